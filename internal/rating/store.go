package rating

// Store owns the DimensionData of one recording and applies the segment
// editing operations. It is not safe for concurrent use; the widget that owns
// it serializes access.
type Store struct {
	catalog  *Catalog
	duration float64
	data     DimensionData
}

// NewStore creates a store with one default segment per dimension. A
// non-positive duration means the recording length is not known yet.
func NewStore(catalog *Catalog, duration float64) *Store {
	if catalog == nil {
		catalog = &Catalog{index: map[string]int{}}
	}
	return &Store{
		catalog:  catalog,
		duration: duration,
		data:     DefaultDimensionData(catalog, duration),
	}
}

// Catalog returns the dimension catalog backing the store.
func (s *Store) Catalog() *Catalog {
	return s.catalog
}

// Duration returns the known recording duration, or 0 when unknown.
func (s *Store) Duration() float64 {
	if s.duration <= 0 {
		return 0
	}
	return s.duration
}

// DurationKnown reports whether real metadata has been applied.
func (s *Store) DurationKnown() bool {
	return s.duration > 0
}

// SetDuration records the recording length and clamps every partition to it.
func (s *Store) SetDuration(duration float64) {
	if duration <= 0 {
		return
	}
	s.duration = duration
	for title, segments := range s.data {
		s.data[title] = clampToDuration(segments, duration)
	}
}

// Snapshot returns a deep copy of the current data.
func (s *Store) Snapshot() DimensionData {
	return s.data.Clone()
}

// Segments returns a copy of one dimension's segments.
func (s *Store) Segments(title string) []Segment {
	return cloneSegments(s.data[title])
}

// Len returns the number of segments in a dimension.
func (s *Store) Len(title string) int {
	return len(s.data[title])
}

// Replace swaps in restored data. Dimensions missing from partial, and
// dimensions whose payload cannot be repaired, fall back to the single
// default segment. Titles unknown to the catalog are dropped.
func (s *Store) Replace(partial DimensionData) (repaired []string) {
	next := make(DimensionData, s.catalog.Len())
	for _, dim := range s.catalog.Dimensions() {
		restored, ok := partial[dim.Title]
		if !ok {
			next[dim.Title] = DefaultSegments(dim, s.duration)
			continue
		}
		clean, ok := sanitizeSegments(dim, restored, s.duration)
		if !ok {
			repaired = append(repaired, dim.Title)
			next[dim.Title] = DefaultSegments(dim, s.duration)
			continue
		}
		next[dim.Title] = clean
	}
	s.data = next
	return repaired
}

// Validate checks the partition invariant for one dimension.
func (s *Store) Validate(title string) error {
	return ValidatePartition(s.data[title], s.duration)
}

// FindSegmentAt returns the index of the first segment whose closed interval
// contains t, or -1.
func (s *Store) FindSegmentAt(title string, t float64) int {
	for i, seg := range s.data[title] {
		if t >= seg.Start && t <= seg.End {
			return i
		}
	}
	return -1
}

// SplitAt splits the segment containing t into two segments carrying the
// same value. It is a no-op when either piece would be shorter than
// MinSegment or t lies outside the recording.
func (s *Store) SplitAt(title string, t float64) bool {
	segments := s.data[title]
	i := s.FindSegmentAt(title, t)
	if i < 0 {
		return false
	}
	seg := segments[i]
	if t-seg.Start < MinSegment || seg.End-t < MinSegment {
		return false
	}
	right := Segment{Start: t, End: seg.End, Value: seg.Value}
	segments[i].End = t

	grown := make([]Segment, 0, len(segments)+1)
	grown = append(grown, segments[:i+1]...)
	grown = append(grown, right)
	grown = append(grown, segments[i+1:]...)
	s.data[title] = grown
	return true
}

// DeleteBoundaryBefore merges segment index into its left neighbour, keeping
// the left value. It is a no-op for index 0 or an out-of-range index.
func (s *Store) DeleteBoundaryBefore(title string, index int) bool {
	segments := s.data[title]
	if index < 1 || index >= len(segments) {
		return false
	}
	segments[index-1].End = segments[index].End
	s.data[title] = append(segments[:index], segments[index+1:]...)
	return true
}

// MoveBoundary moves the boundary between segments index-1 and index to t,
// clamped so both neighbours keep at least BoundaryEpsilon of length. It
// returns the applied time.
func (s *Store) MoveBoundary(title string, index int, t float64) (float64, bool) {
	segments := s.data[title]
	if index < 1 || index >= len(segments) {
		return 0, false
	}
	lo := segments[index-1].Start + BoundaryEpsilon
	hi := segments[index].End - BoundaryEpsilon
	if lo > hi {
		return segments[index].Start, false
	}
	if t < lo {
		t = lo
	}
	if t > hi {
		t = hi
	}
	if t == segments[index].Start {
		return t, false
	}
	segments[index-1].End = t
	segments[index].Start = t
	return t, true
}

// SetValue stores raw, clamped into the dimension's range, on segment index.
// The boolean reports whether the stored value changed.
func (s *Store) SetValue(title string, index int, raw int) (int, bool) {
	dim, ok := s.catalog.Lookup(title)
	if !ok {
		return 0, false
	}
	segments := s.data[title]
	if index < 0 || index >= len(segments) {
		return 0, false
	}
	value := dim.Clamp(raw)
	if segments[index].Value == value {
		return value, false
	}
	segments[index].Value = value
	return value, true
}
