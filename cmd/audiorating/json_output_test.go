package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"audiorating/internal/api"
)

func TestWriteJSONKeepsMediaURLsReadable(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	song := api.Song{MediaURL: "https://cdn.example/a.wav?sig=1&exp=2", DisplayName: "<intro>"}
	if err := writeJSON(cmd, song); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	requireContains(t, out.String(), `"media_url": "https://cdn.example/a.wav?sig=1&exp=2"`)
	requireContains(t, out.String(), `"display_name": "<intro>"`)
	if !strings.HasSuffix(out.String(), "}\n") {
		t.Fatalf("expected a single trailing newline, got %q", out.String())
	}
}
