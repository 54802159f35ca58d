package editing_test

import (
	"testing"

	"audiorating/internal/editing"
	"audiorating/internal/rating"
	"audiorating/internal/timemap"
)

// 10 seconds over 1000px, no scroll: 100px per second.
func newEngine(t *testing.T) (*editing.Engine, *rating.Store) {
	t.Helper()
	catalog, err := rating.NewCatalog(
		rating.DimensionSpec{Title: "valence", NumValues: 8},
		rating.DimensionSpec{Title: "arousal", NumValues: 5},
	)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	store := rating.NewStore(catalog, 10)
	view := timemap.View{Duration: 10, ContentWidth: 1000, ViewportWidth: 1000, Height: 200}
	return editing.New(store, func() timemap.View { return view }), store
}

func TestDoubleClickSplitsAndNotifies(t *testing.T) {
	engine, store := newEngine(t)

	change, ok := engine.DoubleClick(500)
	if !ok {
		t.Fatal("expected split")
	}
	if change.Reason != editing.ReasonSegmentAdded || change.Dimension != "valence" {
		t.Fatalf("unexpected change %+v", change)
	}
	if len(change.Data["valence"]) != 2 || len(change.Data["arousal"]) != 1 {
		t.Fatalf("unexpected snapshot %v", change.Data)
	}
	change.Data["valence"][0].Value = 99
	if store.Segments("valence")[0].Value == 99 {
		t.Fatal("change snapshot aliases store data")
	}

	if _, ok := engine.DoubleClick(503); ok {
		t.Fatal("split within minimum length should be ignored")
	}
}

func TestBoundaryDragTakesPrecedence(t *testing.T) {
	engine, store := newEngine(t)
	engine.DoubleClick(500)

	engine.Press(editing.Pointer{ID: 1, X: 505, Y: 10})
	state := engine.State()
	if state.Mode != editing.DraggingBoundary || state.Left != 0 || state.Right != 1 {
		t.Fatalf("unexpected state %+v", state)
	}

	change, ok := engine.Move(editing.Pointer{ID: 1, X: 600, Y: 10})
	if !ok || change.Reason != editing.ReasonBoundaryMoved {
		t.Fatalf("expected boundary move, got %+v ok=%v", change, ok)
	}
	if got := store.Segments("valence")[1].Start; got != 6 {
		t.Fatalf("boundary at %v, want 6", got)
	}

	// Dragging past the end clamps to the epsilon bound.
	engine.Move(editing.Pointer{ID: 1, X: 5000})
	end := 10.0
	if got := store.Segments("valence")[1].Start; got != end-rating.BoundaryEpsilon {
		t.Fatalf("boundary at %v, want clamp", got)
	}

	engine.Release(editing.Pointer{ID: 1})
	if engine.State().Mode != editing.Idle || engine.Captured() {
		t.Fatal("expected idle after release")
	}
}

func TestValueDragQuantizesAndClamps(t *testing.T) {
	engine, store := newEngine(t)

	engine.Press(editing.Pointer{ID: 1, X: 300, Y: 100})
	if engine.State().Mode != editing.DraggingValue {
		t.Fatalf("expected value drag, got %v", engine.State().Mode)
	}

	cases := []struct {
		y    float64
		want int
	}{
		{0, 7},
		{200, 0},
		{-500, 7},
		{900, 0},
		{100, 4},
	}
	for _, tc := range cases {
		engine.Move(editing.Pointer{ID: 1, X: 300, Y: tc.y})
		if got := store.Segments("valence")[0].Value; got != tc.want {
			t.Fatalf("y=%v: value %d, want %d", tc.y, got, tc.want)
		}
	}

	if _, ok := engine.Move(editing.Pointer{ID: 1, X: 300, Y: 100}); ok {
		t.Fatal("unchanged value should not notify")
	}
}

func TestValueAtClampsNegativeIndex(t *testing.T) {
	dim := rating.Dimension{Title: "arousal", NumValues: 5, MinValue: 1, DefaultValue: 3}
	// ratio -0.75 → index -3
	if got := editing.ValueAt(dim, 175, 100); got != 1 {
		t.Fatalf("ValueAt = %d, want min", got)
	}
	if got := editing.YFor(dim, 5, 100); got != 0 {
		t.Fatalf("YFor(max) = %v", got)
	}
}

func TestCaptureIgnoresOtherPointers(t *testing.T) {
	engine, store := newEngine(t)
	engine.Press(editing.Pointer{ID: 1, X: 300, Y: 100})
	engine.Press(editing.Pointer{ID: 2, X: 700, Y: 0})

	if _, ok := engine.Move(editing.Pointer{ID: 2, X: 700, Y: 0}); ok {
		t.Fatal("foreign pointer should be ignored while captured")
	}
	engine.Release(editing.Pointer{ID: 2})
	if !engine.Captured() {
		t.Fatal("foreign release should not end the drag")
	}
	engine.LoseCapture()
	if engine.Captured() || engine.State().Mode != editing.Idle {
		t.Fatal("lost capture should reset to idle")
	}
	if store.Segments("valence")[0].Value != 4 {
		t.Fatal("value should be untouched")
	}
}

func TestContextClickDeletesBoundary(t *testing.T) {
	engine, store := newEngine(t)
	engine.DoubleClick(400)
	engine.DoubleClick(700)

	if _, ok := engine.ContextClick(550); ok {
		t.Fatal("context click away from a boundary should be ignored")
	}
	change, ok := engine.ContextClick(697)
	if !ok || change.Reason != editing.ReasonSegmentDeleted {
		t.Fatalf("expected delete, got %+v ok=%v", change, ok)
	}
	segments := store.Segments("valence")
	if len(segments) != 2 || segments[1].Start != 4 || segments[1].End != 10 {
		t.Fatalf("unexpected segments %v", segments)
	}
}

func TestSelectDimension(t *testing.T) {
	engine, _ := newEngine(t)
	engine.Press(editing.Pointer{ID: 1, X: 300, Y: 100})

	change, ok := engine.SelectDimension("arousal")
	if !ok || change.Reason != editing.ReasonDimensionChanged || change.Dimension != "arousal" {
		t.Fatalf("unexpected change %+v ok=%v", change, ok)
	}
	if engine.Captured() {
		t.Fatal("switching dimension should abandon the drag")
	}
	if _, ok := engine.SelectDimension("missing"); ok {
		t.Fatal("unknown dimension should be ignored")
	}
	if _, ok := engine.SelectDimension("arousal"); ok {
		t.Fatal("selecting the active dimension should not notify")
	}

	engine.DoubleClick(500)
	if engine.Dimension() != "arousal" {
		t.Fatalf("active dimension %q", engine.Dimension())
	}
}

func TestPressOutsideRecordingStaysIdle(t *testing.T) {
	engine, _ := newEngine(t)
	engine.Press(editing.Pointer{ID: 1, X: 1500, Y: 10})
	if engine.State().Mode != editing.Idle || engine.Captured() {
		t.Fatal("press outside any segment should stay idle")
	}
}
