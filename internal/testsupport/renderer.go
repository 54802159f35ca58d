package testsupport

import (
	"context"
	"errors"
	"sync"

	"audiorating/internal/widget"
)

// FakeRenderer is an in-memory widget.Renderer. Durations are looked up per
// source; events are injected with Emit.
type FakeRenderer struct {
	mu        sync.Mutex
	durations map[string]float64
	loadErr   error
	source    string
	handlers  map[int]func(widget.Event)
	nextID    int
	frames    []widget.Frame
	seeks     []float64
	volume    float64
	playing   bool
	closed    int
	drawn     chan struct{}
}

// NewFakeRenderer reports durations[source] after each Load.
func NewFakeRenderer(durations map[string]float64) *FakeRenderer {
	return &FakeRenderer{
		durations: durations,
		handlers:  make(map[int]func(widget.Event)),
		drawn:     make(chan struct{}, 1),
	}
}

// FailLoads makes subsequent Load calls return err.
func (f *FakeRenderer) FailLoads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
}

func (f *FakeRenderer) Load(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.source = source
	return nil
}

// Source returns the last loaded source.
func (f *FakeRenderer) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source
}

func (f *FakeRenderer) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.durations[f.source]
}

func (f *FakeRenderer) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeks) == 0 {
		return 0
	}
	return f.seeks[len(f.seeks)-1]
}

func (f *FakeRenderer) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	return nil
}

// Seeks returns every position passed to Seek.
func (f *FakeRenderer) Seeks() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.seeks...)
}

func (f *FakeRenderer) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	return nil
}

func (f *FakeRenderer) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	return nil
}

// Playing reports the last Play/Pause call.
func (f *FakeRenderer) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *FakeRenderer) SetVolume(volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
	return nil
}

// Volume returns the last volume set.
func (f *FakeRenderer) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *FakeRenderer) Subscribe(handler func(widget.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.handlers[id] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}
}

// Subscribers returns the number of registered event handlers.
func (f *FakeRenderer) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// Emit delivers ev to every registered handler.
func (f *FakeRenderer) Emit(ev widget.Event) {
	f.mu.Lock()
	handlers := make([]func(widget.Event), 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (f *FakeRenderer) Draw(frame widget.Frame) {
	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.mu.Unlock()
	select {
	case f.drawn <- struct{}{}:
	default:
	}
}

// Drawn is signalled after Draw calls. Signals coalesce.
func (f *FakeRenderer) Drawn() <-chan struct{} {
	return f.drawn
}

// Frames returns a copy of every frame drawn so far.
func (f *FakeRenderer) Frames() []widget.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]widget.Frame(nil), f.frames...)
}

func (f *FakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	if f.closed > 1 {
		return errors.New("fake renderer closed twice")
	}
	return nil
}

// Closed returns how many times Close was called.
func (f *FakeRenderer) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
