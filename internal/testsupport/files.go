package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// StudiesYAML declares two studies: an open one with two songs and two
// dimensions, and a closed one that only admits listed participants. Both
// collect data from 2000 until 2100.
const StudiesYAML = `studies:
  - name: Demo Study
    name_short: demo
    description: Two songs, two dimensions
    songs_to_rate:
      - media_url: audio/song1.wav
        display_name: Song 1
      - media_url: audio/song2.wav
        display_name: Song 2
    rating_dimensions:
      - dimension_title: valence
        num_values: 8
      - dimension_title: arousal
        num_values: 5
        minimal_value: 1
    data_collection_start: "2000-01-01T00:00:00Z"
    data_collection_end: "2100-01-01T00:00:00Z"
  - name: Closed Study
    name_short: closed
    songs_to_rate:
      - media_url: audio/song1.wav
        display_name: Song 1
    rating_dimensions:
      - dimension_title: is_cool
        num_values: 2
    study_participant_ids: [P-1, P-2]
    allow_unlisted_participants: false
    data_collection_start: "2000-01-01T00:00:00Z"
    data_collection_end: "2100-01-01T00:00:00Z"
`

// WriteStudiesConfig writes content to path, creating parent directories.
func WriteStudiesConfig(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
