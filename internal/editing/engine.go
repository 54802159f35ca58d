// Package editing interprets pointer gestures against a rating.Store.
//
// The Engine is a small state machine: a press either grabs a boundary
// handle or starts a value drag, moves update the grabbed target, and a
// release (or lost capture) always returns to Idle. Double clicks split the
// segment under the pointer and context clicks delete the boundary under the
// pointer. None of these operations fail; out-of-range input is clamped or
// ignored.
//
// Engine methods return the Change they caused instead of publishing it, so
// the owner can emit notifications after releasing its own locks.
package editing

import (
	"math"

	"audiorating/internal/rating"
	"audiorating/internal/timemap"
)

// HandleHit is the pixel tolerance for grabbing a boundary.
const HandleHit = 8.0

// Reason tags a change notification.
type Reason string

const (
	ReasonBoundaryMoved    Reason = "boundary_moved"
	ReasonRatingChanged    Reason = "rating_changed"
	ReasonSegmentAdded     Reason = "segment_added"
	ReasonSegmentDeleted   Reason = "segment_deleted"
	ReasonDimensionChanged Reason = "dimension_changed"
)

// Change describes one effective mutation together with a deep copy of the
// full per-dimension data after it.
type Change struct {
	Reason    Reason
	Dimension string
	Data      rating.DimensionData
}

// Mode is the gesture state.
type Mode int

const (
	Idle Mode = iota
	DraggingBoundary
	DraggingValue
)

func (m Mode) String() string {
	switch m {
	case DraggingBoundary:
		return "dragging_boundary"
	case DraggingValue:
		return "dragging_value"
	default:
		return "idle"
	}
}

// State is the current gesture state. Left/Right are set while dragging a
// boundary, Segment while dragging a value.
type State struct {
	Mode    Mode
	Left    int
	Right   int
	Segment int
}

// Pointer is a pointer event in local view coordinates.
type Pointer struct {
	ID int
	X  float64
	Y  float64
}

// ViewSource yields the latest view state reported by the renderer.
type ViewSource func() timemap.View

// Engine applies gestures to one store.
type Engine struct {
	store     *rating.Store
	view      ViewSource
	dimension string

	state    State
	captured bool
	pointer  int
}

// New creates an engine editing the first catalog dimension.
func New(store *rating.Store, view ViewSource) *Engine {
	e := &Engine{store: store, view: view}
	if titles := store.Catalog().Titles(); len(titles) > 0 {
		e.dimension = titles[0]
	}
	return e
}

// Dimension returns the active dimension title.
func (e *Engine) Dimension() string {
	return e.dimension
}

// State returns the current gesture state.
func (e *Engine) State() State {
	return e.state
}

// Captured reports whether a pointer is captured by an ongoing drag.
func (e *Engine) Captured() bool {
	return e.captured
}

// SelectDimension switches the active dimension. Any drag in progress is
// abandoned because its indices refer to the previous dimension.
func (e *Engine) SelectDimension(title string) (Change, bool) {
	if _, ok := e.store.Catalog().Lookup(title); !ok || title == e.dimension {
		return Change{}, false
	}
	e.reset()
	e.dimension = title
	return e.change(ReasonDimensionChanged), true
}

// Press starts a boundary or value drag. Boundary handles win over segment
// bodies.
func (e *Engine) Press(p Pointer) {
	if e.captured {
		return
	}
	if idx, ok := e.hitBoundary(p.X); ok {
		e.state = State{Mode: DraggingBoundary, Left: idx - 1, Right: idx}
		e.capture(p.ID)
		return
	}
	view := e.view()
	seg := e.store.FindSegmentAt(e.dimension, view.XToTime(p.X))
	if seg < 0 {
		return
	}
	e.state = State{Mode: DraggingValue, Segment: seg}
	e.capture(p.ID)
}

// Move updates the grabbed boundary or segment value.
func (e *Engine) Move(p Pointer) (Change, bool) {
	if !e.captured || p.ID != e.pointer {
		return Change{}, false
	}
	view := e.view()
	switch e.state.Mode {
	case DraggingBoundary:
		if _, moved := e.store.MoveBoundary(e.dimension, e.state.Right, view.XToTime(p.X)); moved {
			return e.change(ReasonBoundaryMoved), true
		}
	case DraggingValue:
		dim, ok := e.store.Catalog().Lookup(e.dimension)
		if !ok || view.Height <= 0 {
			return Change{}, false
		}
		if _, changed := e.store.SetValue(e.dimension, e.state.Segment, ValueAt(dim, p.Y, view.Height)); changed {
			return e.change(ReasonRatingChanged), true
		}
	}
	return Change{}, false
}

// Release ends any gesture.
func (e *Engine) Release(p Pointer) {
	if e.captured && p.ID != e.pointer {
		return
	}
	e.reset()
}

// LoseCapture ends any gesture when the renderer reports lost pointer capture.
func (e *Engine) LoseCapture() {
	e.reset()
}

// DoubleClick splits the segment under x.
func (e *Engine) DoubleClick(x float64) (Change, bool) {
	if e.store.SplitAt(e.dimension, e.view().XToTime(x)) {
		return e.change(ReasonSegmentAdded), true
	}
	return Change{}, false
}

// ContextClick deletes the boundary under x, merging into the left segment.
func (e *Engine) ContextClick(x float64) (Change, bool) {
	idx, ok := e.hitBoundary(x)
	if !ok {
		return Change{}, false
	}
	if e.store.DeleteBoundaryBefore(e.dimension, idx) {
		return e.change(ReasonSegmentDeleted), true
	}
	return Change{}, false
}

// HoverBoundary reports whether x is within grabbing distance of a boundary,
// so the renderer can show a resize cursor.
func (e *Engine) HoverBoundary(x float64) bool {
	_, ok := e.hitBoundary(x)
	return ok
}

// ValueAt converts a vertical position into a dimension value: the top of
// the view is the maximum and the bottom the minimum.
func ValueAt(dim rating.Dimension, y, height float64) int {
	ratio := 1 - y/height
	idx := int(math.Round(ratio * float64(dim.NumValues-1)))
	return dim.Clamp(dim.MinValue + idx)
}

// YFor is the inverse of ValueAt, returning the centre line for a value.
func YFor(dim rating.Dimension, value int, height float64) float64 {
	if dim.NumValues < 2 {
		return height / 2
	}
	ratio := float64(dim.Clamp(value)-dim.MinValue) / float64(dim.NumValues-1)
	return (1 - ratio) * height
}

// hitBoundary returns the internal boundary index closest to x within
// HandleHit pixels. Index i is the boundary between segments i-1 and i.
func (e *Engine) hitBoundary(x float64) (int, bool) {
	segments := e.store.Segments(e.dimension)
	view := e.view()
	best, bestDist := -1, math.Inf(1)
	for i := 1; i < len(segments); i++ {
		dist := math.Abs(view.TimeToX(segments[i].Start) - x)
		if dist <= HandleHit && dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best, best > 0
}

func (e *Engine) capture(id int) {
	e.captured = true
	e.pointer = id
}

func (e *Engine) reset() {
	e.state = State{Mode: Idle}
	e.captured = false
	e.pointer = 0
}

func (e *Engine) change(reason Reason) Change {
	return Change{Reason: reason, Dimension: e.dimension, Data: e.store.Snapshot()}
}
