package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"audiorating/internal/editing"
	"audiorating/internal/export"
	"audiorating/internal/logging"
	"audiorating/internal/rating"
	"audiorating/internal/timemap"
)

var (
	// ErrNoAudioSource is returned by Create when no recording is configured.
	ErrNoAudioSource = errors.New("widget: no audio source configured")
	// ErrNoContainer is returned by Create when no container is configured.
	ErrNoContainer = errors.New("widget: no container configured")
	// ErrRendererUnavailable reports a missing renderer or one that failed to load.
	ErrRendererUnavailable = errors.New("widget: renderer unavailable")
	// ErrInvalidDimensions reports rating dimensions that cannot be normalized.
	ErrInvalidDimensions = errors.New("widget: invalid rating dimensions")
	// ErrDestroyed is returned by operations on a destroyed widget.
	ErrDestroyed = errors.New("widget: destroyed")
)

// Change is the notification delivered to subscribers.
type Change = editing.Change

type listener struct {
	id uint64
	fn func(Change)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	w    *Widget
	id   uint64
	once sync.Once
}

// Unsubscribe stops delivery to the handler. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.w == nil {
		return
	}
	s.once.Do(func() { s.w.unsubscribe(s.id) })
}

// Widget binds one recording, its rating data and the editing engine to a
// renderer. Mutations happen on the caller's goroutine; the redraw ticker
// only reads.
type Widget struct {
	cfg      Config
	renderer Renderer
	catalog  *rating.Catalog
	logger   *slog.Logger

	mu        sync.Mutex
	source    string
	store     *rating.Store
	engine    *editing.Engine
	view      timemap.View
	viewport  float64
	pxPerSec  float64
	current   float64
	playing   bool
	listeners []listener
	nextID    uint64
	destroyed bool

	cancelEvents func()
	tickStop     chan struct{}
	tickDone     chan struct{}
}

// Create validates cfg, loads the audio source into renderer and returns a
// widget holding default data for every dimension.
func Create(ctx context.Context, cfg Config, renderer Renderer) (*Widget, error) {
	if strings.TrimSpace(cfg.AudioSource) == "" {
		return nil, ErrNoAudioSource
	}
	if strings.TrimSpace(cfg.Container) == "" {
		return nil, ErrNoContainer
	}
	if renderer == nil {
		return nil, ErrRendererUnavailable
	}
	catalog, err := rating.NewCatalog(cfg.Dimensions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDimensions, err)
	}
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: none configured", ErrInvalidDimensions)
	}
	if cfg.RedrawInterval <= 0 {
		cfg.RedrawInterval = defaultRedrawInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	w := &Widget{
		cfg:      cfg,
		renderer: renderer,
		catalog:  catalog,
		logger:   logging.NewComponentLogger(logger, "widget"),
	}
	if err := renderer.Load(ctx, cfg.AudioSource); err != nil {
		return nil, fmt.Errorf("%w: load %q: %w", ErrRendererUnavailable, cfg.AudioSource, err)
	}

	w.mu.Lock()
	w.resetLocked(cfg.AudioSource, renderer.Duration(), "")
	w.mu.Unlock()

	w.cancelEvents = renderer.Subscribe(w.handleEvent)
	w.startTicker()
	w.logger.Debug("widget created",
		logging.String(logging.FieldRecording, cfg.AudioSource),
		logging.Int("dimensions", catalog.Len()),
	)
	return w, nil
}

// resetLocked replaces the rating data with defaults for a new recording.
// The active dimension carries over when it still exists.
func (w *Widget) resetLocked(source string, duration float64, active string) {
	w.source = source
	w.store = rating.NewStore(w.catalog, duration)
	w.engine = editing.New(w.store, func() timemap.View { return w.view })
	if active != "" {
		w.engine.SelectDimension(active)
	}
	w.current = 0
	w.playing = false
	w.refreshViewLocked()
}

func (w *Widget) refreshViewLocked() {
	w.view = timemap.FromZoom(w.store.Duration(), w.pxPerSec, w.view.ScrollOffset, w.viewport, float64(w.cfg.Display.Height))
}

// Catalog returns the normalized dimension catalog.
func (w *Widget) Catalog() *rating.Catalog {
	return w.catalog
}

// Source returns the currently loaded audio source.
func (w *Widget) Source() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source
}

// Dimension returns the active dimension title.
func (w *Widget) Dimension() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.engine == nil {
		return ""
	}
	return w.engine.Dimension()
}

// Duration returns the known recording duration, or 0 before the renderer
// reports it.
func (w *Widget) Duration() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Duration()
}

// Data returns a deep copy of the current rating data, or nil once destroyed.
func (w *Widget) Data() rating.DimensionData {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return nil
	}
	return w.store.Snapshot()
}

// SetData replaces the rating data. Dimensions absent from partial, or whose
// segments cannot be repaired, fall back to a single default segment.
func (w *Widget) SetData(partial rating.DimensionData) error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrDestroyed
	}
	repaired := w.store.Replace(partial)
	source := w.source
	w.mu.Unlock()

	w.warnRepaired(source, repaired)
	w.redraw()
	return nil
}

func (w *Widget) warnRepaired(source string, repaired []string) {
	if len(repaired) == 0 {
		return
	}
	logging.WarnWithContext(w.logger, "restored ratings reset to defaults", "ratings_repaired",
		logging.String(logging.FieldRecording, source),
		logging.String("dimensions", strings.Join(repaired, ",")),
		logging.String(logging.FieldImpact, "those dimensions must be rated again"),
	)
}

// LoadRecording switches to another audio source. The redraw tick stops
// while the renderer loads and the data is replaced wholesale; data, when
// non-nil, is restored over the defaults.
func (w *Widget) LoadRecording(ctx context.Context, source string, data rating.DimensionData) error {
	if strings.TrimSpace(source) == "" {
		return ErrNoAudioSource
	}
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrDestroyed
	}
	active := w.engine.Dimension()
	w.mu.Unlock()

	w.stopTicker()
	if err := w.renderer.Load(ctx, source); err != nil {
		w.startTicker()
		return fmt.Errorf("%w: load %q: %w", ErrRendererUnavailable, source, err)
	}
	duration := w.renderer.Duration()

	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrDestroyed
	}
	w.resetLocked(source, duration, active)
	var repaired []string
	if data != nil {
		repaired = w.store.Replace(data)
	}
	w.mu.Unlock()

	w.warnRepaired(source, repaired)
	w.startTicker()
	return nil
}

// Subscribe registers fn for change notifications. Handlers run
// synchronously on the mutating goroutine, in registration order. A nil fn
// registers nothing and yields an inert handle.
func (w *Widget) Subscribe(fn func(Change)) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	w.listeners = append(w.listeners, listener{id: w.nextID, fn: fn})
	return &Subscription{w: w, id: w.nextID}
}

func (w *Widget) unsubscribe(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, l := range w.listeners {
		if l.id == id {
			w.listeners = append(w.listeners[:i:i], w.listeners[i+1:]...)
			return
		}
	}
}

// mutate runs op under the lock and publishes its change after unlocking so
// handlers may call back into the widget.
func (w *Widget) mutate(op func() (Change, bool)) bool {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return false
	}
	change, ok := op()
	var handlers []listener
	if ok {
		handlers = append(handlers, w.listeners...)
	}
	w.mu.Unlock()

	// Every copy is taken before any handler runs so one handler's writes
	// never reach another.
	deliveries := make([]Change, len(handlers))
	for i := range handlers {
		deliveries[i] = change
		if i > 0 {
			deliveries[i].Data = change.Data.Clone()
		}
	}
	for i, l := range handlers {
		l.fn(deliveries[i])
	}
	return ok
}

// SelectDimension makes title the edited dimension.
func (w *Widget) SelectDimension(title string) bool {
	return w.mutate(func() (Change, bool) { return w.engine.SelectDimension(title) })
}

// PointerDown begins a boundary or value drag.
func (w *Widget) PointerDown(p editing.Pointer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.destroyed {
		w.engine.Press(p)
	}
}

// PointerMove continues the current drag.
func (w *Widget) PointerMove(p editing.Pointer) bool {
	return w.mutate(func() (Change, bool) { return w.engine.Move(p) })
}

// PointerUp ends the current drag.
func (w *Widget) PointerUp(p editing.Pointer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.destroyed {
		w.engine.Release(p)
	}
}

// DoubleClick splits the segment under x.
func (w *Widget) DoubleClick(x float64) bool {
	return w.mutate(func() (Change, bool) { return w.engine.DoubleClick(x) })
}

// ContextClick removes the boundary under x.
func (w *Widget) ContextClick(x float64) bool {
	return w.mutate(func() (Change, bool) { return w.engine.ContextClick(x) })
}

// HoverBoundary reports whether x is over a draggable boundary.
func (w *Widget) HoverBoundary(x float64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.destroyed && w.engine.HoverBoundary(x)
}

func (w *Widget) handleEvent(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return
	}
	height := float64(w.cfg.Display.Height)
	switch ev.Kind {
	case EventReady:
		if ev.Duration > 0 {
			w.store.SetDuration(ev.Duration)
		}
		if ev.ViewportWidth > 0 {
			w.viewport = ev.ViewportWidth
		}
		w.refreshViewLocked()
	case EventScroll:
		if ev.ViewportWidth > 0 {
			w.viewport = ev.ViewportWidth
		}
		w.view = timemap.FromVisibleRange(w.store.Duration(), ev.VisibleStart, ev.VisibleEnd, w.viewport, height)
		if pps := w.view.PixelsPerSecond(); pps > 0 {
			w.pxPerSec = pps
		}
	case EventZoom:
		w.pxPerSec = ev.PixelsPerSecond
		w.refreshViewLocked()
	case EventResize:
		w.viewport = ev.ViewportWidth
		w.refreshViewLocked()
	case EventTimeUpdate:
		w.current = ev.CurrentTime
	case EventPlay:
		w.playing = true
	case EventPause, EventFinish:
		w.playing = false
	case EventCaptureLost:
		w.engine.LoseCapture()
	}
}

// Seek moves playback to seconds, clamped to the known duration.
func (w *Widget) Seek(seconds float64) error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return ErrDestroyed
	}
	if seconds < 0 {
		seconds = 0
	}
	if d := w.store.Duration(); d > 0 && seconds > d {
		seconds = d
	}
	w.mu.Unlock()
	return w.renderer.Seek(seconds)
}

// Play starts playback.
func (w *Widget) Play() error {
	if err := w.alive(); err != nil {
		return err
	}
	return w.renderer.Play()
}

// Pause stops playback.
func (w *Widget) Pause() error {
	if err := w.alive(); err != nil {
		return err
	}
	return w.renderer.Pause()
}

// SetVolume forwards volume, clamped to [0, 1].
func (w *Widget) SetVolume(volume float64) error {
	if err := w.alive(); err != nil {
		return err
	}
	volume = min(max(volume, 0), 1)
	return w.renderer.SetVolume(volume)
}

func (w *Widget) alive() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return ErrDestroyed
	}
	return nil
}

// Frame returns the snapshot the next redraw would draw.
func (w *Widget) Frame() (Frame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return Frame{}, false
	}
	return Frame{
		Dimension:   w.engine.Dimension(),
		Dimensions:  w.catalog.Dimensions(),
		Data:        w.store.Snapshot(),
		View:        w.view,
		CurrentTime: w.current,
		Playing:     w.playing,
		Display:     w.cfg.Display,
	}, true
}

func (w *Widget) redraw() {
	if frame, ok := w.Frame(); ok {
		w.renderer.Draw(frame)
	}
}

func (w *Widget) startTicker() {
	stop := make(chan struct{})
	done := make(chan struct{})
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.tickStop, w.tickDone = stop, done
	w.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(w.cfg.RedrawInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.redraw()
			}
		}
	}()
}

func (w *Widget) stopTicker() {
	w.mu.Lock()
	stop, done := w.tickStop, w.tickDone
	w.tickStop, w.tickDone = nil, nil
	w.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// ExportCSV writes the current data as a dimension,start,end,value table in
// catalog order.
func (w *Widget) ExportCSV(out io.Writer) error {
	data := w.Data()
	if data == nil {
		return ErrDestroyed
	}
	return export.WriteCSV(out, data, w.catalog.Titles())
}

// Destroy stops the redraw tick, drops renderer subscriptions and closes the
// renderer. Later calls return nil and do nothing.
func (w *Widget) Destroy() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return nil
	}
	w.destroyed = true
	cancel := w.cancelEvents
	w.cancelEvents = nil
	w.listeners = nil
	w.mu.Unlock()

	w.stopTicker()
	if cancel != nil {
		cancel()
	}
	if err := w.renderer.Close(); err != nil {
		return fmt.Errorf("close renderer: %w", err)
	}
	return nil
}
