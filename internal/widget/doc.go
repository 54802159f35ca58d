// Package widget composes the rating core into one interactive component.
//
// A Widget owns the rating data of the loaded recording, the editing engine
// and the view reported by an injected Renderer. Pointer input arrives
// through the Pointer* methods; every effective edit is fanned out to
// subscribers as a Change carrying its own deep copy of the data. A ticker
// goroutine hands read-only Frames to the renderer until the recording
// changes or the widget is destroyed.
package widget
