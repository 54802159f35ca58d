// Package studies loads and validates the studies configuration file that
// declares which recordings each study rates, along which dimensions, and by
// whom.
package studies

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"audiorating/internal/rating"
)

const (
	minNameShort = 2
	maxNameShort = 50
	maxNumValues = 20
)

var nameShortPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid studies configuration")

// FieldError reports a single rule violation.
type FieldError struct {
	Study   string
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Study == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("study %q: %s: %s", e.Study, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrInvalid }

// Song is one recording listed in a study.
type Song struct {
	MediaURL    string `json:"media_url" yaml:"media_url" toml:"media_url"`
	DisplayName string `json:"display_name" yaml:"display_name" toml:"display_name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
}

// Study is a validated study declaration.
type Study struct {
	Name                      string
	NameShort                 string
	Description               string
	Songs                     []Song
	RatingDimensions          []rating.DimensionSpec
	ParticipantIDs            []string
	AllowUnlistedParticipants bool
	DataCollectionStart       time.Time
	DataCollectionEnd         time.Time
}

// Catalog builds the rating catalog for the study's dimensions.
func (s Study) Catalog() (*rating.Catalog, error) {
	return rating.NewCatalogFromSpecs(s.RatingDimensions)
}

// AllowsParticipant reports whether uid may submit ratings.
func (s Study) AllowsParticipant(uid string) bool {
	if s.AllowUnlistedParticipants {
		return true
	}
	return slices.Contains(s.ParticipantIDs, uid)
}

// InCollectionWindow reports whether t falls in [start, end).
func (s Study) InCollectionWindow(t time.Time) bool {
	return !t.Before(s.DataCollectionStart) && t.Before(s.DataCollectionEnd)
}

// SongIndex returns the position of mediaURL, or -1.
func (s Study) SongIndex(mediaURL string) int {
	for i, song := range s.Songs {
		if song.MediaURL == mediaURL {
			return i
		}
	}
	return -1
}

// Config is the whole studies file.
type Config struct {
	Studies []Study
}

// Lookup finds a study by its short name.
func (c *Config) Lookup(nameShort string) (Study, bool) {
	if c == nil {
		return Study{}, false
	}
	for _, study := range c.Studies {
		if study.NameShort == nameShort {
			return study, true
		}
	}
	return Study{}, false
}

type fileConfig struct {
	Studies []fileStudy `json:"studies" yaml:"studies" toml:"studies"`
}

type fileStudy struct {
	Name                      string                 `json:"name" yaml:"name" toml:"name"`
	NameShort                 string                 `json:"name_short" yaml:"name_short" toml:"name_short"`
	Description               string                 `json:"description" yaml:"description" toml:"description"`
	Songs                     []Song                 `json:"songs_to_rate" yaml:"songs_to_rate" toml:"songs_to_rate"`
	RatingDimensions          []rating.DimensionSpec `json:"rating_dimensions" yaml:"rating_dimensions" toml:"rating_dimensions"`
	ParticipantIDs            []string               `json:"study_participant_ids" yaml:"study_participant_ids" toml:"study_participant_ids"`
	AllowUnlistedParticipants *bool                  `json:"allow_unlisted_participants" yaml:"allow_unlisted_participants" toml:"allow_unlisted_participants"`
	DataCollectionStart       any                    `json:"data_collection_start" yaml:"data_collection_start" toml:"data_collection_start"`
	DataCollectionEnd         any                    `json:"data_collection_end" yaml:"data_collection_end" toml:"data_collection_end"`
}

// Load reads a studies file. The format is chosen by extension: .yaml, .yml,
// .json or .toml.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("studies configuration file not found at %q", configPath)
		}
		return nil, fmt.Errorf("read studies configuration: %w", err)
	}
	return Parse(data, strings.ToLower(filepath.Ext(configPath)))
}

// Parse decodes and validates studies data in the given format, named by
// file extension with or without the leading dot.
func Parse(data []byte, format string) (*Config, error) {
	var raw fileConfig
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse studies yaml: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse studies json: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse studies toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported studies configuration format: %q", format)
	}
	return raw.validate()
}

func (f fileConfig) validate() (*Config, error) {
	cfg := &Config{Studies: make([]Study, 0, len(f.Studies))}
	seen := make(map[string]struct{}, len(f.Studies))
	for _, raw := range f.Studies {
		study, err := raw.validate()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[study.NameShort]; dup {
			return nil, &FieldError{Study: study.NameShort, Field: "name_short", Message: "declared more than once"}
		}
		seen[study.NameShort] = struct{}{}
		cfg.Studies = append(cfg.Studies, study)
	}
	return cfg, nil
}

func (f fileStudy) validate() (Study, error) {
	nameShort := strings.TrimSpace(f.NameShort)
	fail := func(field, format string, args ...any) (Study, error) {
		return Study{}, &FieldError{Study: nameShort, Field: field, Message: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(f.Name) == "" {
		return fail("name", "cannot be empty")
	}
	switch {
	case nameShort == "":
		return fail("name_short", "cannot be empty")
	case !nameShortPattern.MatchString(nameShort):
		return fail("name_short", "can only contain lowercase letters (a-z), numbers (0-9), and underscores (_)")
	case len(nameShort) < minNameShort:
		return fail("name_short", "must be at least %d characters long", minNameShort)
	case len(nameShort) > maxNameShort:
		return fail("name_short", "cannot exceed %d characters", maxNameShort)
	}

	songs, err := normalizeSongs(f.Songs)
	if err != nil {
		return fail("songs_to_rate", "%v", err)
	}
	dims, err := normalizeDimensions(f.RatingDimensions)
	if err != nil {
		return fail("rating_dimensions", "%v", err)
	}
	if dup := firstDuplicate(f.ParticipantIDs); dup != "" {
		return fail("study_participant_ids", "duplicate participant id %q", dup)
	}

	start, err := parseTimestamp(f.DataCollectionStart)
	if err != nil {
		return fail("data_collection_start", "%v", err)
	}
	end, err := parseTimestamp(f.DataCollectionEnd)
	if err != nil {
		return fail("data_collection_end", "%v", err)
	}
	if !start.Before(end) {
		return fail("data_collection_start", "(%s) must be before data_collection_end (%s)",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	allow := true
	if f.AllowUnlistedParticipants != nil {
		allow = *f.AllowUnlistedParticipants
	}

	return Study{
		Name:                      strings.TrimSpace(f.Name),
		NameShort:                 nameShort,
		Description:               strings.TrimSpace(f.Description),
		Songs:                     songs,
		RatingDimensions:          dims,
		ParticipantIDs:            slices.Clone(f.ParticipantIDs),
		AllowUnlistedParticipants: allow,
		DataCollectionStart:       start,
		DataCollectionEnd:         end,
	}, nil
}

func normalizeSongs(in []Song) ([]Song, error) {
	if len(in) == 0 {
		return nil, errors.New("cannot be empty")
	}
	out := make([]Song, 0, len(in))
	urls := make([]string, 0, len(in))
	names := make([]string, 0, len(in))
	for i, song := range in {
		song.MediaURL = strings.TrimSpace(song.MediaURL)
		if song.MediaURL == "" {
			return nil, fmt.Errorf("entry %d has no media_url", i)
		}
		song.DisplayName = strings.TrimSpace(song.DisplayName)
		if song.DisplayName == "" {
			song.DisplayName = displayNameFromURL(song.MediaURL)
		}
		urls = append(urls, song.MediaURL)
		names = append(names, song.DisplayName)
		out = append(out, song)
	}
	if dup := firstDuplicate(urls); dup != "" {
		return nil, fmt.Errorf("duplicate media_url %q", dup)
	}
	if dup := firstDuplicate(names); dup != "" {
		return nil, fmt.Errorf("duplicate display_name %q", dup)
	}
	return out, nil
}

// displayNameFromURL keeps the last path element without its extension.
func displayNameFromURL(mediaURL string) string {
	name := path.Base(strings.TrimRight(mediaURL, "/"))
	if ext := path.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

func normalizeDimensions(in []rating.DimensionSpec) ([]rating.DimensionSpec, error) {
	if len(in) == 0 {
		return nil, errors.New("cannot be empty")
	}
	out := make([]rating.DimensionSpec, 0, len(in))
	titles := make([]string, 0, len(in))
	for _, spec := range in {
		if spec.NumValues > maxNumValues {
			return nil, fmt.Errorf("num_values for dimension %q cannot exceed %d", spec.Title, maxNumValues)
		}
		dim, err := rating.NormalizeDimension(spec)
		if err != nil {
			return nil, err
		}
		titles = append(titles, dim.Title)
		out = append(out, dim.Spec())
	}
	if dup := firstDuplicate(titles); dup != "" {
		return nil, fmt.Errorf("duplicate dimension_title %q", dup)
	}
	return out, nil
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimestamp accepts ISO 8601 strings and the native datetime values the
// YAML and TOML decoders produce. Values without a zone are taken as UTC.
func parseTimestamp(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, errors.New("is required")
	case time.Time:
		return v.UTC(), nil
	case toml.LocalDateTime:
		return v.AsTime(time.UTC), nil
	case toml.LocalDate:
		return v.AsTime(time.UTC), nil
	case string:
		value := strings.TrimSpace(v)
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return t.UTC(), nil
		}
		for _, layout := range naiveLayouts {
			if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("date %q is not in valid ISO 8601 format (e.g. 2024-01-01T00:00:00Z)", v)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %v (%T)", raw, raw)
	}
}
