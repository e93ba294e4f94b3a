package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// ReportFilename is the suggested download name of WriteReport output.
const ReportFilename = "water_quality_analysis.csv"

// Report column headers following the metal columns.
const (
	ColumnHPI      = "HPI"
	ColumnMI       = "MI"
	ColumnHEI      = "HEI"
	ColumnCD       = "CD"
	ColumnCategory = "Contamination Level"
)

// Encode writes records as delimited text that Parse reads back unchanged.
// Columns are Sample_ID, Latitude, Longitude, then every metal measured in
// any record (enumeration order), then every attribute key (sorted).
// A metal missing from a single record is written as an empty cell.
func Encode(w io.Writer, records []types.SampleRecord, delimiter rune) error {
	metals := measuredMetals(records)
	attrs := attributeKeys(records)

	header := []string{types.ColumnSampleID, types.ColumnLatitude, types.ColumnLongitude}
	for _, m := range metals {
		header = append(header, string(m))
	}
	header = append(header, attrs...)

	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("ingest: encode header: %w", err)
	}

	row := make([]string, len(header))
	for _, r := range records {
		row = row[:0]
		row = append(row, r.SampleID, formatFloat(r.Latitude), formatFloat(r.Longitude))
		for _, m := range metals {
			if v, ok := r.Concentration(m); ok {
				row = append(row, formatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		for _, k := range attrs {
			row = append(row, r.Attributes[k])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("ingest: encode %s: %w", r.SampleID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReport writes the analysed results with their indices and category.
func WriteReport(w io.Writer, results []types.ComputedRecord) error {
	recs := make([]types.SampleRecord, len(results))
	for i, cr := range results {
		recs[i] = cr.Record
	}
	metals := measuredMetals(recs)

	header := []string{types.ColumnSampleID, types.ColumnLatitude, types.ColumnLongitude}
	for _, m := range metals {
		header = append(header, string(m))
	}
	header = append(header, ColumnHPI, ColumnMI, ColumnHEI, ColumnCD, ColumnCategory)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("ingest: report header: %w", err)
	}
	for _, cr := range results {
		r := cr.Record
		row := []string{r.SampleID, formatFloat(r.Latitude), formatFloat(r.Longitude)}
		for _, m := range metals {
			if v, ok := r.Concentration(m); ok {
				row = append(row, formatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		row = append(row,
			formatFloat(cr.Indices.HPI),
			formatFloat(cr.Indices.MI),
			formatFloat(cr.Indices.HEI),
			formatFloat(cr.Indices.CD),
			string(cr.Indices.Category),
		)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("ingest: report %s: %w", r.SampleID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func measuredMetals(records []types.SampleRecord) []types.Metal {
	var out []types.Metal
	for _, m := range types.AllMetals {
		for _, r := range records {
			if _, ok := r.Metals[m]; ok {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func attributeKeys(records []types.SampleRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Attributes {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatFloat uses the shortest representation that parses back to v.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
