// Package records defines per-page recognition records and the page-number
// join that pairs box ids with tracking numbers.
package records

import (
	"errors"
	"fmt"
	"sort"
)

// ErrPageMismatch reports that the two documents do not cover the same pages.
var ErrPageMismatch = errors.New("page count mismatch")

// Source says which recognition path produced a field.
type Source string

const (
	SourceNone    Source = ""
	SourceBarcode Source = "barcode"
	SourceText    Source = "text"
	SourceOCR     Source = "ocr"
)

// PageRecord is the recognition outcome for one page. Empty fields mean the
// region was not recognized.
type PageRecord struct {
	Page           int    `json:"page"`
	BoxID          string `json:"box_id"`
	Tracking       string `json:"tracking"`
	BoxIDSource    Source `json:"box_id_source,omitempty"`
	TrackingSource Source `json:"tracking_source,omitempty"`
}

// MergedRow pairs the box id of one document with the tracking number of the
// other for the same page number.
type MergedRow struct {
	Page     int    `json:"page"`
	BoxID    string `json:"box_id"`
	Tracking string `json:"tracking"`
}

// MergeReport lists the pages that appeared in only one input.
type MergeReport struct {
	BoxPages      int   `json:"box_pages"`
	TrackingPages int   `json:"tracking_pages"`
	Matched       int   `json:"matched"`
	OnlyBoxes     []int `json:"only_boxes,omitempty"`
	OnlyTracking  []int `json:"only_tracking,omitempty"`
}

// Mismatch reports whether any page was dropped by the join.
func (r MergeReport) Mismatch() bool {
	return len(r.OnlyBoxes) > 0 || len(r.OnlyTracking) > 0
}

// Err returns an ErrPageMismatch describing the dropped pages, or nil.
func (r MergeReport) Err() error {
	if !r.Mismatch() {
		return nil
	}
	return fmt.Errorf("%w: boxes document has %d pages, labels document has %d; dropped pages boxes=%v labels=%v",
		ErrPageMismatch, r.BoxPages, r.TrackingPages, r.OnlyBoxes, r.OnlyTracking)
}

// Merge inner-joins box records and tracking records on page number.
// Rows come out in ascending page order. Pages present in only one input are
// dropped and listed in the report.
func Merge(boxes, tracking []PageRecord) ([]MergedRow, MergeReport) {
	report := MergeReport{BoxPages: len(boxes), TrackingPages: len(tracking)}

	byPage := make(map[int]PageRecord, len(tracking))
	for _, r := range tracking {
		if _, dup := byPage[r.Page]; !dup {
			byPage[r.Page] = r
		}
	}

	seen := make(map[int]bool, len(boxes))
	rows := make([]MergedRow, 0, min(len(boxes), len(tracking)))
	for _, b := range boxes {
		if seen[b.Page] {
			continue
		}
		seen[b.Page] = true

		t, ok := byPage[b.Page]
		if !ok {
			report.OnlyBoxes = append(report.OnlyBoxes, b.Page)
			continue
		}
		rows = append(rows, MergedRow{Page: b.Page, BoxID: b.BoxID, Tracking: t.Tracking})
	}
	for page := range byPage {
		if !seen[page] {
			report.OnlyTracking = append(report.OnlyTracking, page)
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Page < rows[j].Page })
	sort.Ints(report.OnlyBoxes)
	sort.Ints(report.OnlyTracking)
	report.Matched = len(rows)
	return rows, report
}

// EmptyCounts returns how many rows lack a box id and how many lack a tracking number.
func EmptyCounts(rows []MergedRow) (boxes, tracking int) {
	for _, r := range rows {
		if r.BoxID == "" {
			boxes++
		}
		if r.Tracking == "" {
			tracking++
		}
	}
	return boxes, tracking
}
