package rating

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// MinSegment is the shortest segment a split may produce, in seconds.
	MinSegment = 0.08
	// BoundaryEpsilon keeps dragged boundaries away from their neighbours, in seconds.
	BoundaryEpsilon = 0.02
	// UnknownDuration stands in for the recording length until the renderer
	// reports real metadata.
	UnknownDuration = 1e9

	// boundaryTolerance absorbs float drift in restored payloads.
	boundaryTolerance = 1e-6
)

// ErrBrokenPartition reports a segment list that does not partition [0, duration].
var ErrBrokenPartition = errors.New("segments do not partition the recording")

// Segment is one time interval rated with a single value.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Value int     `json:"value"`
}

// Length returns the segment duration in seconds.
func (s Segment) Length() float64 {
	return s.End - s.Start
}

// DimensionData maps a dimension title to its ordered segment list.
type DimensionData map[string][]Segment

// Clone returns a structural copy that shares no slices with d.
func (d DimensionData) Clone() DimensionData {
	if d == nil {
		return nil
	}
	out := make(DimensionData, len(d))
	for title, segments := range d {
		out[title] = cloneSegments(segments)
	}
	return out
}

// Equal reports whether two payloads hold identical segments.
func (d DimensionData) Equal(other DimensionData) bool {
	if len(d) != len(other) {
		return false
	}
	for title, segments := range d {
		theirs, ok := other[title]
		if !ok || len(theirs) != len(segments) {
			return false
		}
		for i := range segments {
			if segments[i] != theirs[i] {
				return false
			}
		}
	}
	return true
}

// Titles returns the dimension titles in sorted order.
func (d DimensionData) Titles() []string {
	titles := make([]string, 0, len(d))
	for title := range d {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

func cloneSegments(segments []Segment) []Segment {
	if segments == nil {
		return nil
	}
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}

// DefaultSegments returns the single full-length segment at the default value.
func DefaultSegments(dim Dimension, duration float64) []Segment {
	return []Segment{{Start: 0, End: effectiveDuration(duration), Value: dim.DefaultValue}}
}

// DefaultDimensionData builds the initial data for every catalog dimension.
func DefaultDimensionData(catalog *Catalog, duration float64) DimensionData {
	data := make(DimensionData, catalog.Len())
	for _, dim := range catalog.Dimensions() {
		data[dim.Title] = DefaultSegments(dim, duration)
	}
	return data
}

// ValidatePartition checks the partition invariant for one segment list.
func ValidatePartition(segments []Segment, duration float64) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrBrokenPartition)
	}
	if segments[0].Start != 0 {
		return fmt.Errorf("%w: first segment starts at %v", ErrBrokenPartition, segments[0].Start)
	}
	for i, seg := range segments {
		if !(seg.End > seg.Start) {
			return fmt.Errorf("%w: segment %d is empty (%v..%v)", ErrBrokenPartition, i, seg.Start, seg.End)
		}
		if i > 0 && segments[i-1].End != seg.Start {
			return fmt.Errorf("%w: gap or overlap before segment %d", ErrBrokenPartition, i)
		}
	}
	if last := segments[len(segments)-1].End; last != effectiveDuration(duration) {
		return fmt.Errorf("%w: last segment ends at %v, want %v", ErrBrokenPartition, last, effectiveDuration(duration))
	}
	return nil
}

// sanitizeSegments repairs a restored segment list against a dimension and
// duration. Values are clamped, boundaries within tolerance are snapped
// together, and segments beyond the duration are truncated. It reports false
// when the list cannot be repaired.
func sanitizeSegments(dim Dimension, segments []Segment, duration float64) ([]Segment, bool) {
	if len(segments) == 0 {
		return nil, false
	}
	end := effectiveDuration(duration)
	out := make([]Segment, 0, len(segments))
	for i, seg := range segments {
		if math.IsNaN(seg.Start) || math.IsNaN(seg.End) || math.IsInf(seg.Start, 0) || math.IsInf(seg.End, 0) {
			return nil, false
		}
		if i == 0 {
			if math.Abs(seg.Start) > boundaryTolerance {
				return nil, false
			}
			seg.Start = 0
		} else {
			prev := out[len(out)-1].End
			if math.Abs(seg.Start-prev) > boundaryTolerance {
				return nil, false
			}
			seg.Start = prev
		}
		if seg.Start >= end {
			break
		}
		if seg.End > end {
			seg.End = end
		}
		if !(seg.End > seg.Start) {
			return nil, false
		}
		seg.Value = dim.Clamp(seg.Value)
		out = append(out, seg)
	}
	if len(out) == 0 {
		return nil, false
	}
	// A shorter payload than the recording is stretched so the partition still
	// covers [0, duration].
	out[len(out)-1].End = end
	return out, true
}

func clampToDuration(segments []Segment, duration float64) []Segment {
	if len(segments) == 0 {
		return segments
	}
	end := effectiveDuration(duration)
	out := segments[:0]
	for _, seg := range segments {
		if seg.Start >= end {
			break
		}
		if seg.End > end {
			seg.End = end
		}
		out = append(out, seg)
	}
	if len(out) == 0 {
		first := segments[0]
		return []Segment{{Start: 0, End: end, Value: first.Value}}
	}
	out[len(out)-1].End = end
	return out
}

func effectiveDuration(duration float64) float64 {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return UnknownDuration
	}
	return duration
}
