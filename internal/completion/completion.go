// Package completion decides whether rating data still sits at its initial
// default state.
//
// A dimension counts as rated once it has been split or its single segment
// carries a non-default value. A genuine rating that happens to equal the
// default on an unsplit dimension is therefore reported as missing.
package completion

import "audiorating/internal/rating"

// Status classifies one recording within a study.
type Status string

const (
	StatusUnvisited  Status = "unvisited"
	StatusIncomplete Status = "incomplete"
	StatusComplete   Status = "complete"
)

// Report lists the dimensions still at their default.
type Report struct {
	Missing []string
}

// Complete reports whether every dimension has been rated.
func (r Report) Complete() bool {
	return len(r.Missing) == 0
}

// Status converts the report to a recording status.
func (r Report) Status() Status {
	if r.Complete() {
		return StatusComplete
	}
	return StatusIncomplete
}

// IsDimensionDefaultOnly reports whether dim still holds exactly one segment
// at its default value. A dimension absent from data counts as default-only.
func IsDimensionDefaultOnly(data rating.DimensionData, dim rating.Dimension) bool {
	segments, ok := data[dim.Title]
	if !ok || len(segments) == 0 {
		return true
	}
	return len(segments) == 1 && segments[0].Value == dim.DefaultValue
}

// CheckComplete returns the catalog dimensions that are still default-only,
// in catalog order.
func CheckComplete(data rating.DimensionData, catalog *rating.Catalog) Report {
	var report Report
	for _, dim := range catalog.Dimensions() {
		if IsDimensionDefaultOnly(data, dim) {
			report.Missing = append(report.Missing, dim.Title)
		}
	}
	return report
}
