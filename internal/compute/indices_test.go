package compute

import (
	"math"
	"testing"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// rec builds a SampleRecord with the given metal concentrations.
func rec(id string, metals map[types.Metal]float64) types.SampleRecord {
	return types.SampleRecord{SampleID: id, Latitude: 28.6139, Longitude: 77.209, Metals: metals}
}

// gw001 is the reference row used in the dashboard's sample dataset.
func gw001() types.SampleRecord {
	return rec("GW001", map[types.Metal]float64{
		types.Lead:     0.05,
		types.Cadmium:  0.002,
		types.Arsenic:  0.008,
		types.Chromium: 0.025,
	})
}

func TestEvaluate_ReferenceRow(t *testing.T) {
	// HPI = round((0.05*0.5 + 0.002*2.0 + 0.008*1.5 + 0.025*0.8) * 10)
	//     = round(0.061 * 10) = round(0.61) = 1
	// MI  = round2((0.05 + 0.002 + 0.008 + 0.025) / 4) = round2(0.02125) = 0.02
	// HEI = round2((0.05*2 + 0.002*3 + 0*4) * 10) = 1.06
	// CD  = max(1.0, 0.4, 0.8, 0.5) = 1.0
	got := Evaluate(gw001(), DefaultParams())

	if got.HPI != 1 {
		t.Errorf("HPI = %v, want 1", got.HPI)
	}
	if !almostEqual(got.MI, 0.02, 1e-9) {
		t.Errorf("MI = %v, want 0.02", got.MI)
	}
	if !almostEqual(got.HEI, 1.06, 1e-9) {
		t.Errorf("HEI = %v, want 1.06", got.HEI)
	}
	if !almostEqual(got.CD, 1.0, 1e-9) {
		t.Errorf("CD = %v, want 1.0", got.CD)
	}
	if got.Category != types.CategorySafe {
		t.Errorf("Category = %q, want %q", got.Category, types.CategorySafe)
	}
}

func TestClassify_DefaultBands(t *testing.T) {
	b := DefaultParams().Bands
	tests := []struct {
		hpi  float64
		want types.Category
	}{
		{0, types.CategorySafe},
		{99.6, types.CategorySafe},
		{99.999, types.CategorySafe},
		{100, types.CategoryModerate},
		{100.4, types.CategoryUnsafe},
		{250, types.CategoryUnsafe},
	}
	for _, tc := range tests {
		if got := Classify(tc.hpi, b); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.hpi, got, tc.want)
		}
	}
}

func TestClassify_BandedPolicy(t *testing.T) {
	// The 25/50 banding: < 25 safe, 25..49 moderate, >= 50 unsafe for integer HPI.
	b := Bands{SafeBelow: 25, UnsafeAbove: 49}
	tests := []struct {
		hpi  float64
		want types.Category
	}{
		{24, types.CategorySafe},
		{25, types.CategoryModerate},
		{49, types.CategoryModerate},
		{50, types.CategoryUnsafe},
	}
	for _, tc := range tests {
		if got := Classify(tc.hpi, b); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.hpi, got, tc.want)
		}
	}
}

func TestHPI_LinearInEachMetal(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		metal types.Metal
		conc  float64
		k     float64
	}{
		{types.Cadmium, 0.5, 4},
		{types.Lead, 2, 3},
		{types.Chromium, 5, 2},
		{types.Arsenic, 2, 5},
	}
	for _, tc := range tests {
		t.Run(string(tc.metal), func(t *testing.T) {
			base := HPI(rec("a", map[types.Metal]float64{tc.metal: tc.conc}), p)
			scaled := HPI(rec("b", map[types.Metal]float64{tc.metal: tc.conc * tc.k}), p)
			if !almostEqual(scaled, base*tc.k, 1) {
				t.Errorf("HPI(%v·%v) = %v, want ≈ %v", tc.conc, tc.k, scaled, base*tc.k)
			}
		})
	}
}

func TestHPI_IgnoresMetalsWithoutWeight(t *testing.T) {
	p := DefaultParams()
	with := rec("a", map[types.Metal]float64{types.Lead: 1, types.Copper: 50, types.Iron: 9})
	without := rec("b", map[types.Metal]float64{types.Lead: 1})
	if HPI(with, p) != HPI(without, p) {
		t.Errorf("HPI changed by unweighted metals: %v vs %v", HPI(with, p), HPI(without, p))
	}
}

func TestCD_IsMaximumNotSum(t *testing.T) {
	// Ratios against default references: Lead 0.5, Cadmium 2.0, Arsenic 0.1.
	r := rec("x", map[types.Metal]float64{
		types.Lead:    0.025,
		types.Cadmium: 0.01,
		types.Arsenic: 0.001,
	})
	if got := CD(r, DefaultParams()); !almostEqual(got, 2.0, 1e-9) {
		t.Errorf("CD = %v, want 2.0", got)
	}
}

func TestCD_SkipsNonPositiveReference(t *testing.T) {
	p := DefaultParams()
	p.References = map[types.Metal]float64{types.Lead: 0, types.Arsenic: 0.01}
	r := rec("x", map[types.Metal]float64{types.Lead: 10, types.Arsenic: 0.02})
	if got := CD(r, p); !almostEqual(got, 2.0, 1e-9) {
		t.Errorf("CD = %v, want 2.0 (Lead reference 0 ignored)", got)
	}
}

func TestMI_AbsentMetalsCountAsZero(t *testing.T) {
	r := rec("x", map[types.Metal]float64{types.Lead: 0.4})
	// (0.4 + 0 + 0 + 0) / 4 = 0.1
	if got := MI(r, DefaultParams()); !almostEqual(got, 0.1, 1e-9) {
		t.Errorf("MI = %v, want 0.1", got)
	}
}

func TestMI_EmptyMetalSet(t *testing.T) {
	p := DefaultParams()
	p.HPIWeights = map[types.Metal]float64{}
	if got := MI(gw001(), p); got != 0 {
		t.Errorf("MI with no metals = %v, want 0", got)
	}
}

func TestEvaluate_EmptyRecordIsTotal(t *testing.T) {
	got := Evaluate(types.SampleRecord{SampleID: "blank"}, DefaultParams())
	if got.HPI != 0 || got.MI != 0 || got.HEI != 0 || got.CD != 0 {
		t.Errorf("empty record indices = %+v, want all zero", got)
	}
	if got.Category != types.CategorySafe {
		t.Errorf("Category = %q, want Safe", got.Category)
	}
}

func TestEvaluate_ExactlyHundredIsModerate(t *testing.T) {
	// Cadmium 5 mg/L → 5 * 2.0 * 10 = 100.
	got := Evaluate(rec("m", map[types.Metal]float64{types.Cadmium: 5}), DefaultParams())
	if got.HPI != 100 {
		t.Fatalf("HPI = %v, want 100", got.HPI)
	}
	if got.Category != types.CategoryModerate {
		t.Errorf("Category = %q, want Moderate", got.Category)
	}
}

func TestAnalyze_PreservesOrder(t *testing.T) {
	in := []types.SampleRecord{
		rec("c", map[types.Metal]float64{types.Lead: 30}),
		rec("a", map[types.Metal]float64{types.Lead: 0.1}),
		rec("b", map[types.Metal]float64{types.Lead: 20}),
	}
	out := Analyze(in, DefaultParams())
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Record.SampleID != in[i].SampleID {
			t.Errorf("out[%d] = %q, want %q", i, out[i].Record.SampleID, in[i].SampleID)
		}
	}
	// Lead 30 → 30*0.5*10 = 150 → Unsafe
	if out[0].Indices.Category != types.CategoryUnsafe {
		t.Errorf("out[0] Category = %q, want Unsafe (HPI=%v)", out[0].Indices.Category, out[0].Indices.HPI)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0.02125, 0.02}, {1.005, 1.0}, {2.555, 2.56}, {0, 0}, {3, 3},
	}
	for _, tc := range tests {
		if got := round2(tc.in); !almostEqual(got, tc.want, 0.0051) {
			t.Errorf("round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
