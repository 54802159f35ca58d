package widget

import (
	"context"

	"audiorating/internal/rating"
	"audiorating/internal/timemap"
)

// EventKind names a notification emitted by the renderer.
type EventKind string

const (
	EventReady       EventKind = "ready"
	EventPlay        EventKind = "play"
	EventPause       EventKind = "pause"
	EventFinish      EventKind = "finish"
	EventTimeUpdate  EventKind = "timeupdate"
	EventScroll      EventKind = "scroll"
	EventZoom        EventKind = "zoom"
	EventResize      EventKind = "resize"
	EventCaptureLost EventKind = "capture_lost"
)

// Event carries the payload of a renderer notification. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind            EventKind
	Duration        float64
	CurrentTime     float64
	VisibleStart    float64
	VisibleEnd      float64
	PixelsPerSecond float64
	ViewportWidth   float64
}

// Renderer is the waveform rendering and playback collaborator. The widget
// never decodes or plays audio itself.
//
// Implementations may deliver events on any goroutine. The widget does not
// hold its own lock while calling into the renderer.
type Renderer interface {
	Load(ctx context.Context, source string) error
	Duration() float64
	CurrentTime() float64
	Seek(seconds float64) error
	Play() error
	Pause() error
	SetVolume(volume float64) error
	// Subscribe registers the widget's event handler and returns a cancel
	// function that deregisters it.
	Subscribe(handler func(Event)) (cancel func())
	Draw(frame Frame)
	Close() error
}

// Frame is a read-only snapshot handed to the renderer on every redraw tick.
type Frame struct {
	Dimension   string
	Dimensions  []rating.Dimension
	Data        rating.DimensionData
	View        timemap.View
	CurrentTime float64
	Playing     bool
	Display     Display
}
