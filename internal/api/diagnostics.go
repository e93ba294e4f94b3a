package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// DiagnosticHint is one human-readable insight about an analysed batch.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// maxListedSamples caps how many sample IDs a hint names.
const maxListedSamples = 5

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives hints from a batch, using the bands the batch
// was classified with. Hints are ordered critical first, then warnings, then
// info, then ok.
func computeDiagnostics(b *types.Batch) []DiagnosticHint {
	var hints []DiagnosticHint

	if n := b.Summary.Counts.Unsafe; n > 0 {
		var ids []string
		for _, r := range b.Results {
			if r.Indices.Category == types.CategoryUnsafe {
				ids = append(ids, r.Record.SampleID)
			}
		}
		hints = append(hints, DiagnosticHint{
			Key:   "unsafe_samples",
			Level: "critical",
			Title: "Unsafe samples",
			Detail: fmt.Sprintf(
				"%d of %d samples have an HPI above %.0f and are classified Unsafe: %s. "+
					"Water from these wells should not be used for drinking until retested.",
				n, b.Summary.Samples, b.Bands.UnsafeAbove, listIDs(ids)),
			Value: floatPtr(float64(n)),
		})
	}

	if n := len(b.Errors); n > 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "rows_rejected",
			Level: "warning",
			Title: "Rows rejected",
			Detail: fmt.Sprintf(
				"%d problem(s) were found while reading the file; affected rows are not in the results. "+
					"First: %s", n, b.Errors[0]),
			Value: floatPtr(float64(n)),
		})
	}

	var above []string
	for _, r := range b.Results {
		if r.Indices.CD > 1 {
			above = append(above, r.Record.SampleID)
		}
	}
	if len(above) > 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "above_reference",
			Level: "warning",
			Title: "Above background",
			Detail: fmt.Sprintf(
				"%d sample(s) have at least one metal above its reference concentration (CD > 1): %s.",
				len(above), listIDs(above)),
			Value: floatPtr(b.Summary.MaxCD),
		})
	}

	if b.Bands.SafeBelow == b.Bands.UnsafeAbove && b.Summary.Counts.Moderate == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "narrow_moderate_band",
			Level: "info",
			Title: "Narrow Moderate band",
			Detail: fmt.Sprintf(
				"Moderate only applies to an HPI of exactly %.0f with the bands this batch was classified with, "+
					"so samples are effectively split into Safe and Unsafe.", b.Bands.SafeBelow),
		})
	}

	if b.Summary.Counts.Unsafe == 0 && len(b.Errors) == 0 && len(above) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "all_clear",
			Level:  "ok",
			Title:  "All clear",
			Detail: "Every sample was read and none exceeds its reference concentration.",
		})
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}

func listIDs(ids []string) string {
	if len(ids) <= maxListedSamples {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(ids[:maxListedSamples], ", "), len(ids)-maxListedSamples)
}

func floatPtr(v float64) *float64 { return &v }
