package ingest

import (
	"reflect"
	"strings"
	"testing"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

const header = "Sample_ID,Latitude,Longitude,Lead,Cadmium,Arsenic,Chromium"

// csvText joins lines with \n.
func csvText(lines ...string) string { return strings.Join(lines, "\n") }

func contains(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestParse_Valid(t *testing.T) {
	res := Parse(csvText(
		header+",Location",
		"GW001,28.6139,77.2090,0.05,0.002,0.008,0.025,Delhi North",
		"GW002,28.62,77.215,0.12,0.008,0.015,0.045,",
	), DefaultSchema())

	if !res.OK() {
		t.Fatalf("Errors = %v, want none", res.Errors)
	}
	if len(res.Records) != 2 {
		t.Fatalf("Records = %d, want 2", len(res.Records))
	}
	r := res.Records[0]
	if r.SampleID != "GW001" || r.Latitude != 28.6139 || r.Longitude != 77.209 {
		t.Errorf("record = %+v", r)
	}
	if r.Metals[types.Lead] != 0.05 || r.Metals[types.Chromium] != 0.025 {
		t.Errorf("Metals = %v", r.Metals)
	}
	if r.Attributes["Location"] != "Delhi North" {
		t.Errorf("Location = %q, want Delhi North", r.Attributes["Location"])
	}
	if _, ok := res.Records[1].Attributes["Location"]; ok {
		t.Error("empty attribute cell should not be carried")
	}
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	res := Parse(csvText(
		"Sample_ID,Latitude,Longitude,Lead,Cadmium,Chromium",
		"GW001,28.6,77.2,0.05,0.002,0.025",
	), DefaultSchema())

	if len(res.Records) != 0 {
		t.Errorf("Records = %d, want 0", len(res.Records))
	}
	if len(res.Errors) != 1 || res.Errors[0] != "Missing required column: Arsenic" {
		t.Errorf("Errors = %v, want [Missing required column: Arsenic]", res.Errors)
	}
}

func TestParse_EmptyText(t *testing.T) {
	res := Parse("", DefaultSchema())
	if len(res.Errors) != len(DefaultSchema().Required) {
		t.Errorf("Errors = %v, want one per required column", res.Errors)
	}
	if res.Records == nil {
		t.Error("Records = nil, want empty slice")
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	res := Parse(header+"\n", DefaultSchema())
	if len(res.Errors) != 1 || res.Errors[0] != msgNoDataRows {
		t.Errorf("Errors = %v, want [%s]", res.Errors, msgNoDataRows)
	}
}

func TestParse_BadRowExcluded(t *testing.T) {
	res := Parse(csvText(
		header,
		"GW001,28.6,77.2,0.05,0.002,0.008,0.025",
		"GW002,28.6,77.2,abc,0.002,0.008,0.025",
		"GW003,28.6,77.2,0.08,0.005,0.012,0.032",
	), DefaultSchema())

	if len(res.Records) != 2 {
		t.Fatalf("Records = %d, want 2", len(res.Records))
	}
	if res.Records[0].SampleID != "GW001" || res.Records[1].SampleID != "GW003" {
		t.Errorf("kept %q, %q; want GW001, GW003", res.Records[0].SampleID, res.Records[1].SampleID)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "row 3: Lead concentration must be a number" {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestParse_RowErrors(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want string
	}{
		{"negative metal", "GW001,28.6,77.2,-0.05,0.002,0.008,0.025", "Lead concentration must not be negative"},
		{"bad latitude", "GW001,north,77.2,0.05,0.002,0.008,0.025", "Latitude must be a number"},
		{"empty required metal", "GW001,28.6,77.2,0.05,,0.008,0.025", "Cadmium concentration must be a number"},
		{"NaN", "GW001,28.6,77.2,0.05,NaN,0.008,0.025", "Cadmium concentration must be a number"},
		{"infinity", "GW001,28.6,77.2,0.05,0.002,+Inf,0.025", "Arsenic concentration must be a number"},
		{"short row", "GW001,28.6,77.2,0.05", "Arsenic concentration must be a number"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Parse(csvText(header, tc.row), DefaultSchema())
			if len(res.Records) != 0 {
				t.Errorf("Records = %d, want 0", len(res.Records))
			}
			if !contains(res.Errors, "row 2: "+tc.want) {
				t.Errorf("Errors = %v, want one containing %q", res.Errors, tc.want)
			}
		})
	}
}

func TestParse_SeveralErrorsInOneRow(t *testing.T) {
	res := Parse(csvText(header, "GW001,x,y,0.05,0.002,0.008,0.025"), DefaultSchema())
	if len(res.Errors) != 2 {
		t.Errorf("Errors = %v, want latitude and longitude both reported", res.Errors)
	}
}

func TestParse_BlankRowsAndCRLF(t *testing.T) {
	text := header + "\r\n" +
		"GW001,28.6,77.2,0.05,0.002,0.008,0.025\r\n" +
		"\r\n" +
		" , , , , , , \r\n" +
		"GW002,28.6,77.2,bad,0.002,0.008,0.025\r\n"
	res := Parse(text, DefaultSchema())

	if len(res.Records) != 1 {
		t.Errorf("Records = %d, want 1", len(res.Records))
	}
	// Line numbers count the skipped blank lines.
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "row 5: ") {
		t.Errorf("Errors = %v, want one error on row 5", res.Errors)
	}
}

func TestParse_OnlyBlankRows(t *testing.T) {
	res := Parse(header+"\n,,,,,,\n\n", DefaultSchema())
	if !contains(res.Errors, msgNoDataRows) {
		t.Errorf("Errors = %v, want %q", res.Errors, msgNoDataRows)
	}
}

func TestParse_OptionalMetals(t *testing.T) {
	res := Parse(csvText(
		header+",Mercury,Copper",
		"GW001,28.6,77.2,0.05,0.002,0.008,0.025,0.001,",
	), DefaultSchema())
	if !res.OK() {
		t.Fatalf("Errors = %v", res.Errors)
	}
	m := res.Records[0].Metals
	if m[types.Mercury] != 0.001 {
		t.Errorf("Mercury = %v, want 0.001", m[types.Mercury])
	}
	if _, ok := m[types.Copper]; ok {
		t.Error("empty optional Copper cell should be absent, not zero")
	}
	if _, ok := m[types.Iron]; ok {
		t.Error("Iron was never a column and must be absent")
	}
}

func TestParse_OptionalMetalGarbageRejected(t *testing.T) {
	res := Parse(csvText(header+",Mercury", "GW001,28.6,77.2,0.05,0.002,0.008,0.025,lots"), DefaultSchema())
	if !contains(res.Errors, "row 2: Mercury concentration must be a number") {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestParse_CustomNumericColumn(t *testing.T) {
	s := DefaultSchema()
	s.Numeric = []string{"pH"}
	res := Parse(csvText(
		header+",pH",
		"GW001,28.6,77.2,0.05,0.002,0.008,0.025,7.2",
		"GW002,28.6,77.2,0.05,0.002,0.008,0.025,acidic",
	), s)

	if len(res.Records) != 1 || res.Records[0].Attributes["pH"] != "7.2" {
		t.Errorf("Records = %+v", res.Records)
	}
	if !contains(res.Errors, "row 3: pH must be a number") {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestParse_Delimiter(t *testing.T) {
	s := DefaultSchema()
	s.Delimiter = ';'
	res := Parse(csvText(
		strings.ReplaceAll(header, ",", ";"),
		"GW001;28.6;77.2;0.05;0.002;0.008;0.025",
	), s)
	if !res.OK() || len(res.Records) != 1 {
		t.Errorf("Records = %d, Errors = %v", len(res.Records), res.Errors)
	}
}

func TestParse_HeaderWhitespaceAndBOM(t *testing.T) {
	res := Parse(csvText(
		"\ufeffSample_ID, Latitude ,Longitude,Lead,Cadmium,Arsenic,Chromium",
		"GW001,28.6,77.2,0.05,0.002,0.008,0.025",
	), DefaultSchema())
	if !res.OK() || res.Records[0].SampleID != "GW001" {
		t.Errorf("Records = %+v, Errors = %v", res.Records, res.Errors)
	}
}

func TestParse_QuotedFields(t *testing.T) {
	res := Parse(csvText(
		header+",Location",
		`GW001,28.6,77.2,0.05,0.002,0.008,0.025,"Sector 5, Delhi"`,
	), DefaultSchema())
	if !res.OK() {
		t.Fatalf("Errors = %v", res.Errors)
	}
	if got := res.Records[0].Attributes["Location"]; got != "Sector 5, Delhi" {
		t.Errorf("Location = %q", got)
	}
}

func TestParse_StrayQuoteFailsOnlyItsRow(t *testing.T) {
	res := Parse(csvText(
		header,
		"GW001,28.6,77.2,0.05,0.002,0.008,0.025",
		`GW002,"28.6,77.2,0.12,0.008,0.015,0.045`,
		"GW003,28.6,77.2,0.08,0.005,0.012,0.032",
		"GW004,28.6,77.2,0.01,0.001,0.002,0.003",
	), DefaultSchema())

	var ids []string
	for _, r := range res.Records {
		ids = append(ids, r.SampleID)
	}
	if strings.Join(ids, ",") != "GW001,GW003,GW004" {
		t.Errorf("Records = %v, want GW001,GW003,GW004", ids)
	}
	for _, e := range res.Errors {
		if !strings.HasPrefix(e, "row 3: ") {
			t.Errorf("error %q, want only row 3 reported", e)
		}
	}
	if len(res.Errors) == 0 {
		t.Error("Errors empty, want the quoted row reported")
	}
}

func TestParse_SampleRoundTrip(t *testing.T) {
	res := Parse(SampleCSV(), DefaultSchema())
	if !res.OK() {
		t.Fatalf("Errors = %v", res.Errors)
	}
	if !reflect.DeepEqual(res.Records, SampleRecords()) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", res.Records, SampleRecords())
	}
}
