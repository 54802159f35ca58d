package widget_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"audiorating/internal/editing"
	"audiorating/internal/rating"
	"audiorating/internal/testsupport"
	"audiorating/internal/widget"
)

func demoConfig() widget.Config {
	return widget.Config{
		Container:   "#rating",
		AudioSource: "audio/song1.wav",
		Dimensions: []any{
			map[string]any{"dimension_title": "valence", "num_values": 8},
			rating.DimensionSpec{Title: "arousal", NumValues: 5, MinValue: intPtr(1)},
		},
		Display:        widget.Display{Height: 200},
		RedrawInterval: 5 * time.Millisecond,
	}
}

func intPtr(v int) *int { return &v }

func newWidget(t *testing.T) (*widget.Widget, *testsupport.FakeRenderer) {
	t.Helper()
	renderer := testsupport.NewFakeRenderer(map[string]float64{
		"audio/song1.wav": 10,
		"audio/song2.wav": 20,
	})
	w, err := widget.Create(context.Background(), demoConfig(), renderer)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = w.Destroy() })
	renderer.Emit(widget.Event{Kind: widget.EventReady, Duration: 10, ViewportWidth: 1000})
	return w, renderer
}

func TestCreateRejectsBadConfiguration(t *testing.T) {
	renderer := testsupport.NewFakeRenderer(nil)
	cases := []struct {
		name     string
		mutate   func(*widget.Config)
		renderer widget.Renderer
		want     error
	}{
		{"no audio source", func(c *widget.Config) { c.AudioSource = "" }, renderer, widget.ErrNoAudioSource},
		{"no container", func(c *widget.Config) { c.Container = " " }, renderer, widget.ErrNoContainer},
		{"no renderer", func(*widget.Config) {}, nil, widget.ErrRendererUnavailable},
		{"bad dimension", func(c *widget.Config) {
			c.Dimensions = []any{map[string]any{"dimension_title": "x", "num_values": 1}}
		}, renderer, widget.ErrInvalidDimensions},
		{"no dimensions", func(c *widget.Config) { c.Dimensions = nil }, renderer, widget.ErrInvalidDimensions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := demoConfig()
			tc.mutate(&cfg)
			if _, err := widget.Create(context.Background(), cfg, tc.renderer); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	failing := testsupport.NewFakeRenderer(nil)
	failing.FailLoads(errors.New("decode failed"))
	if _, err := widget.Create(context.Background(), demoConfig(), failing); !errors.Is(err, widget.ErrRendererUnavailable) {
		t.Fatalf("expected ErrRendererUnavailable on load failure, got %v", err)
	}
}

func TestEditingGesturesNotifySubscribersInOrder(t *testing.T) {
	w, _ := newWidget(t)

	var order []string
	var changes []widget.Change
	w.Subscribe(func(c widget.Change) {
		order = append(order, "first")
		changes = append(changes, c)
	})
	w.Subscribe(func(widget.Change) { order = append(order, "second") })

	if !w.DoubleClick(500) {
		t.Fatal("expected split at 5s")
	}
	if strings.Join(order, ",") != "first,second" {
		t.Fatalf("unexpected handler order %v", order)
	}
	if changes[0].Reason != editing.ReasonSegmentAdded || changes[0].Dimension != "valence" {
		t.Fatalf("unexpected change %+v", changes[0])
	}
	if got := changes[0].Data["valence"]; len(got) != 2 || got[0].End != 5 {
		t.Fatalf("unexpected split result %+v", got)
	}

	pointer := editing.Pointer{ID: 1, X: 500, Y: 100}
	w.PointerDown(pointer)
	pointer.X = 600
	if !w.PointerMove(pointer) {
		t.Fatal("expected boundary move")
	}
	w.PointerUp(pointer)
	valence := w.Data()["valence"]
	if math.Abs(valence[0].End-6) > 1e-9 || valence[1].Start != valence[0].End {
		t.Fatalf("unexpected boundary after drag %+v", valence)
	}

	w.PointerDown(editing.Pointer{ID: 1, X: 200, Y: 100})
	if w.PointerMove(editing.Pointer{ID: 2, X: 200, Y: 0}) {
		t.Fatal("expected events from another pointer to be ignored while captured")
	}
	if !w.PointerMove(editing.Pointer{ID: 1, X: 200, Y: 0}) {
		t.Fatal("expected value drag")
	}
	w.PointerUp(editing.Pointer{ID: 1})
	if got := w.Data()["valence"][0].Value; got != 7 {
		t.Fatalf("expected top of view to map to 7, got %d", got)
	}

	if !w.ContextClick(600) {
		t.Fatal("expected boundary deletion")
	}
	last := changes[len(changes)-1]
	if last.Reason != editing.ReasonSegmentDeleted {
		t.Fatalf("expected segment_deleted, got %s", last.Reason)
	}
	if got := last.Data["valence"]; len(got) != 1 || got[0].Value != 7 || got[0].End != 10 {
		t.Fatalf("unexpected merge result %+v", got)
	}
	if got := w.Data()["arousal"]; len(got) != 1 || got[0].Value != 3 {
		t.Fatalf("expected arousal untouched, got %+v", got)
	}
}

func TestChangeSnapshotsDoNotAlias(t *testing.T) {
	w, _ := newWidget(t)

	var first, second widget.Change
	w.Subscribe(func(c widget.Change) { first = c })
	w.Subscribe(func(c widget.Change) { second = c })
	w.DoubleClick(500)

	first.Data["valence"][0].Value = 0
	if second.Data["valence"][0].Value != 4 {
		t.Fatal("handlers share a snapshot")
	}
	data := w.Data()
	data["valence"][0].Value = 1
	delete(data, "arousal")
	if got := w.Data(); got["valence"][0].Value != 4 || len(got["arousal"]) != 1 {
		t.Fatalf("Data leaked internal state: %+v", got)
	}
}

func TestHandlerWritesStayWithinTheirOwnChange(t *testing.T) {
	w, _ := newWidget(t)

	seen := make([]int, 0, 2)
	w.Subscribe(func(c widget.Change) { c.Data["valence"][0].Value = 0 })
	w.Subscribe(func(c widget.Change) {
		seen = append(seen, c.Data["valence"][0].Value)
		c.Data["valence"][0].Value = 1
	})
	w.Subscribe(func(c widget.Change) { seen = append(seen, c.Data["valence"][0].Value) })
	w.DoubleClick(500)

	if len(seen) != 2 || seen[0] != 4 || seen[1] != 4 {
		t.Fatalf("expected every later handler to see the untouched value 4, got %v", seen)
	}
}

func TestSubscribeNilIsInert(t *testing.T) {
	w, _ := newWidget(t)

	sub := w.Subscribe(nil)
	if !w.DoubleClick(500) {
		t.Fatal("expected split with a nil handler registered")
	}
	sub.Unsubscribe()
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	w, _ := newWidget(t)

	calls := 0
	sub := w.Subscribe(func(widget.Change) { calls++ })
	w.DoubleClick(500)
	sub.Unsubscribe()
	sub.Unsubscribe()
	w.DoubleClick(250)
	if calls != 1 {
		t.Fatalf("expected one delivery, got %d", calls)
	}
}

func TestSelectDimension(t *testing.T) {
	w, _ := newWidget(t)

	var got widget.Change
	w.Subscribe(func(c widget.Change) { got = c })
	if !w.SelectDimension("arousal") {
		t.Fatal("expected dimension switch")
	}
	if got.Reason != editing.ReasonDimensionChanged || got.Dimension != "arousal" {
		t.Fatalf("unexpected change %+v", got)
	}
	if w.SelectDimension("tempo") || w.SelectDimension("arousal") {
		t.Fatal("expected unknown or unchanged dimension to be ignored")
	}
	w.DoubleClick(500)
	if len(w.Data()["arousal"]) != 2 || len(w.Data()["valence"]) != 1 {
		t.Fatal("expected split to target the active dimension only")
	}
}

func TestSetDataRoundTripAndDefaults(t *testing.T) {
	w, _ := newWidget(t)
	w.DoubleClick(500)

	before := w.Data()
	if err := w.SetData(before); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if !w.Data().Equal(before) {
		t.Fatalf("round trip changed data: %+v vs %+v", w.Data(), before)
	}

	partial := rating.DimensionData{"arousal": {{Start: 0, End: 4, Value: 9}, {Start: 4, End: 10, Value: 2}}}
	if err := w.SetData(partial); err != nil {
		t.Fatalf("SetData partial: %v", err)
	}
	data := w.Data()
	if got := data["valence"]; len(got) != 1 || got[0].Value != 4 || got[0].End != 10 {
		t.Fatalf("expected valence default, got %+v", got)
	}
	if got := data["arousal"]; len(got) != 2 || got[0].Value != 5 {
		t.Fatalf("expected clamped arousal, got %+v", got)
	}
}

func TestReadyClampsUnknownDuration(t *testing.T) {
	renderer := testsupport.NewFakeRenderer(nil)
	w, err := widget.Create(context.Background(), demoConfig(), renderer)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Destroy()

	if got := w.Data()["valence"][0].End; got != rating.UnknownDuration {
		t.Fatalf("expected sentinel end before metadata, got %v", got)
	}
	renderer.Emit(widget.Event{Kind: widget.EventReady, Duration: 42.5})
	if got := w.Data()["valence"][0].End; got != 42.5 {
		t.Fatalf("expected end clamped to duration, got %v", got)
	}
	if w.Duration() != 42.5 {
		t.Fatalf("unexpected duration %v", w.Duration())
	}
}

func TestZoomAndScrollDriveMapping(t *testing.T) {
	w, renderer := newWidget(t)

	renderer.Emit(widget.Event{Kind: widget.EventZoom, PixelsPerSecond: 200})
	// 2000px of content; 5s sits at x=1000.
	if !w.DoubleClick(1000) {
		t.Fatal("expected split after zoom")
	}
	if got := w.Data()["valence"][0].End; got != 5 {
		t.Fatalf("expected split at 5s, got %v", got)
	}

	renderer.Emit(widget.Event{Kind: widget.EventScroll, VisibleStart: 5, VisibleEnd: 10, ViewportWidth: 1000})
	// Now 200px/s scrolled by 1000px; x=0 is 5s.
	if !w.HoverBoundary(0) {
		t.Fatal("expected boundary at the left edge after scroll")
	}
	frame, ok := w.Frame()
	if !ok || frame.View.ScrollOffset != 1000 {
		t.Fatalf("unexpected frame view %+v", frame.View)
	}
}

func TestRedrawTickAndDestroy(t *testing.T) {
	w, renderer := newWidget(t)

	select {
	case <-renderer.Drawn():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a redraw tick")
	}
	frames := renderer.Frames()
	if len(frames) == 0 || frames[0].Dimension != "valence" || len(frames[0].Dimensions) != 2 {
		t.Fatalf("unexpected frame %+v", frames)
	}

	if err := w.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := w.Destroy(); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
	if renderer.Closed() != 1 || renderer.Subscribers() != 0 {
		t.Fatalf("expected renderer released once, closed=%d subscribers=%d", renderer.Closed(), renderer.Subscribers())
	}
	drawn := len(renderer.Frames())
	time.Sleep(20 * time.Millisecond)
	if len(renderer.Frames()) != drawn {
		t.Fatal("redraw continued after Destroy")
	}

	if w.Data() != nil {
		t.Fatal("expected nil data after Destroy")
	}
	if err := w.SetData(rating.DimensionData{}); !errors.Is(err, widget.ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed, got %v", err)
	}
	if err := w.Play(); !errors.Is(err, widget.ErrDestroyed) {
		t.Fatalf("expected ErrDestroyed from Play, got %v", err)
	}
	if w.DoubleClick(100) {
		t.Fatal("expected gestures ignored after Destroy")
	}
}

func TestLoadRecordingReplacesData(t *testing.T) {
	w, renderer := newWidget(t)
	w.SelectDimension("arousal")
	w.DoubleClick(500)

	restored := rating.DimensionData{"valence": {{Start: 0, End: 20, Value: 6}}}
	if err := w.LoadRecording(context.Background(), "audio/song2.wav", restored); err != nil {
		t.Fatalf("LoadRecording: %v", err)
	}
	if renderer.Source() != "audio/song2.wav" || w.Source() != "audio/song2.wav" {
		t.Fatal("expected renderer to load the new source")
	}
	data := w.Data()
	if got := data["arousal"]; len(got) != 1 || got[0].End != 20 {
		t.Fatalf("expected fresh arousal data, got %+v", got)
	}
	if got := data["valence"]; got[0].Value != 6 {
		t.Fatalf("expected restored valence, got %+v", got)
	}
	if w.Dimension() != "arousal" {
		t.Fatalf("expected active dimension kept, got %q", w.Dimension())
	}

	renderer.FailLoads(errors.New("gone"))
	if err := w.LoadRecording(context.Background(), "audio/song1.wav", nil); !errors.Is(err, widget.ErrRendererUnavailable) {
		t.Fatalf("expected ErrRendererUnavailable, got %v", err)
	}
}

func TestRestoredBrokenDimensionsAreLogged(t *testing.T) {
	var logs bytes.Buffer
	cfg := demoConfig()
	cfg.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	renderer := testsupport.NewFakeRenderer(map[string]float64{"audio/song1.wav": 10, "audio/song2.wav": 20})
	w, err := widget.Create(context.Background(), cfg, renderer)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = w.Destroy() })

	gapped := rating.DimensionData{"valence": {{Start: 0, End: 3, Value: 2}, {Start: 5, End: 20, Value: 6}}}
	if err := w.LoadRecording(context.Background(), "audio/song2.wav", gapped); err != nil {
		t.Fatalf("LoadRecording: %v", err)
	}
	if got := w.Data()["valence"]; len(got) != 1 || got[0].Value != 4 {
		t.Fatalf("expected valence reset to default, got %+v", got)
	}
	out := logs.String()
	for _, want := range []string{`"event_type":"ratings_repaired"`, `"dimensions":"valence"`, `"recording":"audio/song2.wav"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}

	logs.Reset()
	if err := w.SetData(gapped); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if !strings.Contains(logs.String(), `"event_type":"ratings_repaired"`) {
		t.Fatalf("expected SetData to log the same warning, got %s", logs.String())
	}
}

func TestPlaybackPassthroughs(t *testing.T) {
	w, renderer := newWidget(t)

	if err := w.Seek(25); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if err := w.Seek(-1); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if seeks := renderer.Seeks(); len(seeks) != 2 || seeks[0] != 10 || seeks[1] != 0 {
		t.Fatalf("expected clamped seeks, got %v", seeks)
	}
	if err := w.SetVolume(3); err != nil || renderer.Volume() != 1 {
		t.Fatalf("expected clamped volume, got %v (%v)", renderer.Volume(), err)
	}
	if err := w.Play(); err != nil || !renderer.Playing() {
		t.Fatalf("expected playback, err=%v", err)
	}
	if err := w.Pause(); err != nil || renderer.Playing() {
		t.Fatalf("expected pause, err=%v", err)
	}
}

func TestExportCSV(t *testing.T) {
	w, _ := newWidget(t)
	w.DoubleClick(500)

	var buf bytes.Buffer
	if err := w.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	want := "dimension,start,end,value\nvalence,0.00,5.00,4\nvalence,5.00,10.00,4\narousal,0.00,10.00,3\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}
