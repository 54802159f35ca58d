package rating

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrInvalidDimension marks dimension descriptors that cannot be normalized.
var ErrInvalidDimension = errors.New("invalid dimension")

// Dimension is a canonical, immutable rating axis.
type Dimension struct {
	Title        string
	NumValues    int
	MinValue     int
	DefaultValue int
	Description  string
}

// DimensionSpec is the descriptor shape used by configuration files and the
// widget configuration surface. Optional fields are pointers so that absent
// values can be told apart from zero.
type DimensionSpec struct {
	Title        string `json:"dimension_title" yaml:"dimension_title" toml:"dimension_title"`
	NumValues    int    `json:"num_values" yaml:"num_values" toml:"num_values"`
	MinValue     *int   `json:"minimal_value,omitempty" yaml:"minimal_value,omitempty" toml:"minimal_value,omitempty"`
	DefaultValue *int   `json:"default_value,omitempty" yaml:"default_value,omitempty" toml:"default_value,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
}

// MaxValue returns the largest value in the dimension's range.
func (d Dimension) MaxValue() int {
	return d.MinValue + d.NumValues - 1
}

// Contains reports whether v lies within the dimension's value range.
func (d Dimension) Contains(v int) bool {
	return v >= d.MinValue && v <= d.MaxValue()
}

// Clamp forces v into the dimension's value range.
func (d Dimension) Clamp(v int) int {
	if v < d.MinValue {
		return d.MinValue
	}
	if hi := d.MaxValue(); v > hi {
		return hi
	}
	return v
}

// Label returns the display label used in legends and tables.
func (d Dimension) Label() string {
	title := strings.ReplaceAll(d.Title, "_", " ")
	return cases.Title(language.Und).String(title)
}

// Spec converts the dimension back into its descriptor form.
func (d Dimension) Spec() DimensionSpec {
	minValue := d.MinValue
	defaultValue := d.DefaultValue
	return DimensionSpec{
		Title:        d.Title,
		NumValues:    d.NumValues,
		MinValue:     &minValue,
		DefaultValue: &defaultValue,
		Description:  d.Description,
	}
}

// DefaultFor computes the implicit default value of a range.
func DefaultFor(minValue, numValues int) int {
	return minValue + numValues/2
}

// DimensionFromCount builds a dimension from the bare-number shape. The title
// is required because counts carry no name of their own.
func DimensionFromCount(title string, numValues int) (Dimension, error) {
	return NormalizeDimension(DimensionSpec{Title: title, NumValues: numValues})
}

// NormalizeDimension converts any supported descriptor shape into a Dimension.
// Supported shapes are DimensionSpec, *DimensionSpec, Dimension and
// map[string]any as produced by JSON, YAML or TOML decoders.
func NormalizeDimension(raw any) (Dimension, error) {
	var spec DimensionSpec
	switch v := raw.(type) {
	case Dimension:
		spec = v.Spec()
	case DimensionSpec:
		spec = v
	case *DimensionSpec:
		if v == nil {
			return Dimension{}, fmt.Errorf("%w: nil descriptor", ErrInvalidDimension)
		}
		spec = *v
	case map[string]any:
		decoded, err := specFromMap(v)
		if err != nil {
			return Dimension{}, err
		}
		spec = decoded
	default:
		return Dimension{}, fmt.Errorf("%w: unsupported descriptor type %T", ErrInvalidDimension, raw)
	}
	return spec.normalize()
}

func (s DimensionSpec) normalize() (Dimension, error) {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		return Dimension{}, fmt.Errorf("%w: dimension_title is required", ErrInvalidDimension)
	}
	if s.NumValues < 2 {
		return Dimension{}, fmt.Errorf("%w: num_values for dimension %q must be at least 2", ErrInvalidDimension, title)
	}
	dim := Dimension{
		Title:       title,
		NumValues:   s.NumValues,
		Description: strings.TrimSpace(s.Description),
	}
	if s.MinValue != nil {
		dim.MinValue = *s.MinValue
	}
	dim.DefaultValue = DefaultFor(dim.MinValue, dim.NumValues)
	if s.DefaultValue != nil {
		if !dim.Contains(*s.DefaultValue) {
			return Dimension{}, fmt.Errorf("%w: default_value %d for dimension %q outside [%d, %d]",
				ErrInvalidDimension, *s.DefaultValue, title, dim.MinValue, dim.MaxValue())
		}
		dim.DefaultValue = *s.DefaultValue
	}
	if dim.Description == "" {
		dim.Description = title
	}
	return dim, nil
}

func specFromMap(m map[string]any) (DimensionSpec, error) {
	var spec DimensionSpec
	title, ok := m["dimension_title"]
	if !ok {
		title = m["title"]
	}
	if s, ok := title.(string); ok {
		spec.Title = s
	}
	if desc, ok := m["description"].(string); ok {
		spec.Description = desc
	}

	count, err := intField(m, "num_values")
	if err != nil {
		return spec, err
	}
	if count == nil {
		return spec, fmt.Errorf("%w: num_values is required for dimension %q", ErrInvalidDimension, spec.Title)
	}
	spec.NumValues = *count

	if spec.MinValue, err = intField(m, "minimal_value"); err != nil {
		return spec, err
	}
	if spec.DefaultValue, err = intField(m, "default_value"); err != nil {
		return spec, err
	}
	return spec, nil
}

// intField reads an optional integer from a decoded map. Decoders disagree on
// numeric types (float64 from JSON, int from YAML, int64 from TOML), so all
// of them are accepted as long as the value is integral.
func intField(m map[string]any, key string) (*int, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var out int
	switch v := raw.(type) {
	case int:
		out = v
	case int64:
		out = int(v)
	case int32:
		out = int(v)
	case uint64:
		out = int(v)
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidDimension, key, v)
		}
		out = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidDimension, key, v)
		}
		out = parsed
	default:
		return nil, fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidDimension, key, raw)
	}
	return &out, nil
}

// Catalog is the ordered set of dimensions rated for a recording.
type Catalog struct {
	dims  []Dimension
	index map[string]int
}

// NewCatalog normalizes every descriptor and rejects duplicate titles.
func NewCatalog(raw ...any) (*Catalog, error) {
	c := &Catalog{index: make(map[string]int, len(raw))}
	for i, item := range raw {
		dim, err := NormalizeDimension(item)
		if err != nil {
			return nil, fmt.Errorf("dimension %d: %w", i, err)
		}
		if _, dup := c.index[dim.Title]; dup {
			return nil, fmt.Errorf("%w: duplicate dimension_title %q", ErrInvalidDimension, dim.Title)
		}
		c.index[dim.Title] = len(c.dims)
		c.dims = append(c.dims, dim)
	}
	return c, nil
}

// NewCatalogFromSpecs is a typed convenience wrapper around NewCatalog.
func NewCatalogFromSpecs(specs []DimensionSpec) (*Catalog, error) {
	raw := make([]any, len(specs))
	for i, spec := range specs {
		raw[i] = spec
	}
	return NewCatalog(raw...)
}

// Len returns the number of dimensions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.dims)
}

// Dimensions returns a copy of the ordered dimensions.
func (c *Catalog) Dimensions() []Dimension {
	if c == nil {
		return nil
	}
	out := make([]Dimension, len(c.dims))
	copy(out, c.dims)
	return out
}

// Titles returns dimension titles in catalog order.
func (c *Catalog) Titles() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.dims))
	for i, d := range c.dims {
		out[i] = d.Title
	}
	return out
}

// Lookup finds a dimension by title.
func (c *Catalog) Lookup(title string) (Dimension, bool) {
	if c == nil {
		return Dimension{}, false
	}
	i, ok := c.index[title]
	if !ok {
		return Dimension{}, false
	}
	return c.dims[i], true
}
