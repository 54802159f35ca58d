// Package timemap converts between absolute audio time and local pixel
// coordinates of a zoomable, horizontally scrolled waveform view.
//
// A View is a plain value describing the renderer's latest reported state.
// Nothing here caches derived values, so a mapping is always consistent with
// the most recent zoom or scroll notification.
package timemap

import "math"

// DriftBound limits TimeToX so transient zoom/scroll drift cannot produce
// absurd coordinates. It is far outside any real viewport.
const DriftBound = 1e7

// View is the renderer state needed to map time to pixels.
type View struct {
	// Duration is the recording length in seconds; zero while unknown.
	Duration float64
	// ContentWidth is the full waveform width in pixels (pixels-per-second × duration).
	ContentWidth float64
	// ScrollOffset is the horizontal scroll position in pixels.
	ScrollOffset float64
	// ViewportWidth is the visible width in pixels.
	ViewportWidth float64
	// Height is the drawable height in pixels, used for value drags.
	Height float64
}

// FromZoom derives a view from a pixels-per-second zoom level.
func FromZoom(duration, pxPerSec, scrollOffset, viewportWidth, height float64) View {
	v := View{
		Duration:      duration,
		ScrollOffset:  scrollOffset,
		ViewportWidth: viewportWidth,
		Height:        height,
	}
	v.ContentWidth = pxPerSec * v.duration()
	if v.ContentWidth <= 0 {
		v.ContentWidth = viewportWidth
	}
	return v
}

// FromVisibleRange derives a view from the visible time window reported by a
// scroll notification.
func FromVisibleRange(duration, visibleStart, visibleEnd, viewportWidth, height float64) View {
	v := View{Duration: duration, ViewportWidth: viewportWidth, Height: height}
	span := visibleEnd - visibleStart
	if span <= 0 || viewportWidth <= 0 {
		v.ContentWidth = viewportWidth
		return v
	}
	pxPerSec := viewportWidth / span
	v.ContentWidth = pxPerSec * v.duration()
	v.ScrollOffset = visibleStart * pxPerSec
	return v
}

// PixelsPerSecond returns the current zoom level.
func (v View) PixelsPerSecond() float64 {
	return v.ContentWidth / v.duration()
}

// TimeToX maps an absolute time to a local x coordinate. The result is not
// clipped to the viewport.
func (v View) TimeToX(t float64) float64 {
	x := t/v.duration()*v.ContentWidth - v.ScrollOffset
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(-DriftBound, math.Min(DriftBound, x))
}

// XToTime maps a local x coordinate back to absolute time.
func (v View) XToTime(x float64) float64 {
	width := v.ContentWidth
	if width <= 0 {
		width = 1
	}
	return (x + v.ScrollOffset) / width * v.duration()
}

// VisibleRange returns the time window currently shown.
func (v View) VisibleRange() (start, end float64) {
	return v.XToTime(0), v.XToTime(v.ViewportWidth)
}

// Visible reports whether x falls inside the viewport.
func (v View) Visible(x float64) bool {
	return x >= 0 && x <= v.ViewportWidth
}

// DurationKnown reports whether the view carries real metadata.
func (v View) DurationKnown() bool {
	return v.Duration > 0
}

func (v View) duration() float64 {
	if v.Duration <= 0 || math.IsNaN(v.Duration) {
		return 1
	}
	return v.Duration
}
