// Package export renders rating data as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"audiorating/internal/rating"
	"audiorating/internal/store"
)

var (
	segmentHeader = []string{"dimension", "start", "end", "value"}
	studyHeader   = []string{"participant", "song", "dimension", "start", "end", "value"}
)

// WriteCSV writes one row per segment. Dimensions follow order; titles in
// data but absent from order come last, sorted.
func WriteCSV(w io.Writer, data rating.DimensionData, order []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(segmentHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, title := range orderedTitles(data, order) {
		for _, seg := range data[title] {
			if err := cw.Write(segmentRow(nil, title, seg)); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStudyCSV writes every stored rating of a study, one row per segment,
// prefixed with the participant and the song's media URL.
func WriteStudyCSV(w io.Writer, records []store.RatingRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(studyHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		prefix := []string{rec.ParticipantID, rec.MediaURL}
		for _, seg := range rec.Segments {
			if err := cw.Write(segmentRow(prefix, rec.Dimension, seg)); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func segmentRow(prefix []string, title string, seg rating.Segment) []string {
	row := make([]string, 0, len(prefix)+4)
	row = append(row, prefix...)
	return append(row,
		title,
		strconv.FormatFloat(seg.Start, 'f', 2, 64),
		strconv.FormatFloat(seg.End, 'f', 2, 64),
		strconv.Itoa(seg.Value),
	)
}

func orderedTitles(data rating.DimensionData, order []string) []string {
	titles := make([]string, 0, len(data))
	seen := make(map[string]struct{}, len(order))
	for _, title := range order {
		if _, ok := data[title]; !ok {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
	}
	var extra []string
	for title := range data {
		if _, ok := seen[title]; !ok {
			extra = append(extra, title)
		}
	}
	slices.Sort(extra)
	return append(titles, extra...)
}
