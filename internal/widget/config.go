package widget

import (
	"log/slog"
	"time"

	"audiorating/internal/config"
	"audiorating/internal/rating"
)

const defaultRedrawInterval = 33 * time.Millisecond

// Display holds the presentational toggles and colours. None of it affects
// the rating data.
type Display struct {
	Height           int
	WaveColor        string
	ProgressColor    string
	CursorColor      string
	ShowInstructions bool
	ShowVolume       bool
	ShowLegend       bool
	ShowDownload     bool
	ShowTimeline     bool
}

// Config is consumed once by Create.
type Config struct {
	// Container identifies where the renderer attaches its surface.
	Container string
	// AudioSource locates the recording to load.
	AudioSource string
	// Dimensions accepts any shape rating.NormalizeDimension understands.
	Dimensions     []any
	Display        Display
	RedrawInterval time.Duration
	Logger         *slog.Logger
}

// ConfigFromSettings builds a widget configuration from the [widget] section
// of the application config.
func ConfigFromSettings(settings *config.Config, container, source string, dims []rating.DimensionSpec) Config {
	raw := make([]any, len(dims))
	for i, d := range dims {
		raw[i] = d
	}
	w := settings.Widget
	return Config{
		Container:   container,
		AudioSource: source,
		Dimensions:  raw,
		Display: Display{
			Height:           w.Height,
			WaveColor:        w.WaveColor,
			ProgressColor:    w.ProgressColor,
			CursorColor:      w.CursorColor,
			ShowInstructions: w.ShowInstructions,
			ShowVolume:       w.ShowVolume,
			ShowLegend:       w.ShowLegend,
			ShowDownload:     w.ShowDownload,
			ShowTimeline:     w.ShowTimeline,
		},
		RedrawInterval: settings.RedrawInterval(),
	}
}
