package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// Messages used for batch-level failures.
const (
	msgMissingColumn = "Missing required column: %s"
	msgNoDataRows    = "file must contain at least one data row"
)

// Schema describes which columns an upload must carry and which are numeric.
type Schema struct {
	// Required columns must all appear in the header or the whole batch fails.
	Required []string

	// Numeric columns must parse as finite numbers. Latitude, Longitude and
	// every metal column are always numeric, whether listed here or not.
	Numeric []string

	// Delimiter separates fields. Zero means ','.
	Delimiter rune
}

// DefaultSchema returns the schema of the standard sample template.
func DefaultSchema() Schema {
	return Schema{
		Required: []string{
			types.ColumnSampleID, types.ColumnLatitude, types.ColumnLongitude,
			string(types.Lead), string(types.Cadmium), string(types.Arsenic), string(types.Chromium),
		},
		Delimiter: ',',
	}
}

func (s Schema) isRequired(col string) bool {
	for _, c := range s.Required {
		if c == col {
			return true
		}
	}
	return false
}

func (s Schema) isNumeric(col string) bool {
	if col == types.ColumnLatitude || col == types.ColumnLongitude || types.IsMetal(col) {
		return true
	}
	for _, c := range s.Numeric {
		if c == col {
			return true
		}
	}
	return false
}

// Parse validates text against schema and returns the records that passed
// along with every error found. Row numbers in messages are 1-based line
// numbers of the input, the header being line 1.
//
// The payload is split into rows on newlines and each row is read on its
// own, so quoting never spans rows and a malformed row only fails itself.
func Parse(text string, schema Schema) types.ValidationResult {
	res := types.ValidationResult{Records: []types.SampleRecord{}, Errors: []string{}}

	lines := strings.Split(text, "\n")
	next := 0

	// Leading blank lines are skipped; the first non-blank line is the header.
	var header []string
	for ; next < len(lines); next++ {
		line := strings.TrimSuffix(lines[next], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields, err := splitRow(line, schema.Delimiter)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("header: %v", err))
			return res
		}
		header = fields
		next++
		break
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, col := range schema.Required {
		if !present[col] {
			res.Errors = append(res.Errors, fmt.Sprintf(msgMissingColumn, col))
		}
	}
	if len(res.Errors) > 0 {
		return res
	}

	dataRows := 0
	for i := next; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		row := i + 1

		fields, err := splitRow(line, schema.Delimiter)
		if err != nil {
			dataRows++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: malformed row: %v", row, err))
			continue
		}
		if isBlank(fields) {
			continue
		}
		dataRows++

		rec, rowErrs := buildRecord(header, fields, schema)
		if len(rowErrs) > 0 {
			for _, e := range rowErrs {
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", row, e))
			}
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if dataRows == 0 {
		res.Errors = append(res.Errors, msgNoDataRows)
	}
	return res
}

// splitRow reads a single line as one delimited record. Quoted fields may
// hold the delimiter; an unterminated quote runs to the end of the line.
func splitRow(line string, delimiter rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	if delimiter != 0 {
		r.Comma = delimiter
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	fields, err := r.Read()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, pe.Err
		}
		return nil, err
	}
	return fields, nil
}

// buildRecord converts one row. It returns every problem in the row rather
// than stopping at the first.
func buildRecord(header, fields []string, schema Schema) (types.SampleRecord, []string) {
	rec := types.SampleRecord{Metals: make(map[types.Metal]float64)}
	var errs []string

	for i, col := range header {
		if col == "" {
			continue
		}
		var raw string
		if i < len(fields) {
			raw = strings.TrimSpace(fields[i])
		}

		if !schema.isNumeric(col) {
			if col == types.ColumnSampleID {
				rec.SampleID = raw
				continue
			}
			if raw != "" {
				if rec.Attributes == nil {
					rec.Attributes = make(map[string]string)
				}
				rec.Attributes[col] = raw
			}
			continue
		}

		// An empty cell in an optional column means "not measured".
		if raw == "" && !schema.isRequired(col) {
			continue
		}

		v, ok := parseNumber(raw)
		metal := types.IsMetal(col)
		switch {
		case !ok && metal:
			errs = append(errs, fmt.Sprintf("%s concentration must be a number", col))
			continue
		case !ok:
			errs = append(errs, fmt.Sprintf("%s must be a number", col))
			continue
		}

		switch {
		case col == types.ColumnLatitude:
			rec.Latitude = v
		case col == types.ColumnLongitude:
			rec.Longitude = v
		case metal:
			if v < 0 {
				errs = append(errs, fmt.Sprintf("%s concentration must not be negative", col))
				continue
			}
			rec.Metals[types.Metal(col)] = v
		default:
			if rec.Attributes == nil {
				rec.Attributes = make(map[string]string)
			}
			rec.Attributes[col] = raw
		}
	}
	return rec, errs
}

// parseNumber parses s as a finite float64.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
