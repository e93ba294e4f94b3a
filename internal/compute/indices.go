package compute

import (
	"math"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// Default index constants.
const (
	DefaultHPIScale = 10.0
	DefaultHEIScale = 10.0

	DefaultSafeBelow   = 100.0
	DefaultUnsafeAbove = 100.0
)

// Bands maps an HPI value to a Category.
type Bands = types.Bands

// Params holds the weight and reference tables used by every index.
type Params struct {
	// HPIWeights are the per-metal weights of the HPI sum. Its key set is also
	// the metal set averaged by MI.
	HPIWeights map[types.Metal]float64
	HPIScale   float64

	// HEIWeights are the fixed multipliers of the HEI sum.
	HEIWeights map[types.Metal]float64
	HEIScale   float64

	// References are the background values CD divides each concentration by.
	References map[types.Metal]float64

	Bands Bands

	// ExtremeMetals selects the metals reported in AggregateSummary.Extremes.
	ExtremeMetals []types.Metal
}

// DefaultParams returns the reference tables for the standard index set.
func DefaultParams() Params {
	return Params{
		HPIWeights: map[types.Metal]float64{
			types.Lead:     0.5,
			types.Cadmium:  2.0,
			types.Arsenic:  1.5,
			types.Chromium: 0.8,
		},
		HPIScale: DefaultHPIScale,
		HEIWeights: map[types.Metal]float64{
			types.Lead:    2,
			types.Cadmium: 3,
			types.Mercury: 4,
		},
		HEIScale: DefaultHEIScale,
		References: map[types.Metal]float64{
			types.Lead:     0.05,
			types.Cadmium:  0.005,
			types.Arsenic:  0.01,
			types.Chromium: 0.05,
		},
		Bands: Bands{SafeBelow: DefaultSafeBelow, UnsafeAbove: DefaultUnsafeAbove},
		ExtremeMetals: []types.Metal{
			types.Lead, types.Cadmium, types.Arsenic, types.Chromium,
		},
	}
}

// HPI returns the weighted concentration sum times the scale, rounded to the
// nearest integer.
func HPI(rec types.SampleRecord, p Params) float64 {
	return math.Round(weightedSum(rec, p.HPIWeights) * p.HPIScale)
}

// MI returns the unweighted mean concentration over the HPI metal set,
// rounded to two decimals. Absent metals count as zero.
func MI(rec types.SampleRecord, p Params) float64 {
	metals := orderedMetals(p.HPIWeights)
	if len(metals) == 0 {
		return 0
	}
	var sum float64
	for _, m := range metals {
		sum += rec.Metals[m]
	}
	return round2(sum / float64(len(metals)))
}

// HEI returns the multiplier-weighted sum times the scale, rounded to two
// decimals.
func HEI(rec types.SampleRecord, p Params) float64 {
	return round2(weightedSum(rec, p.HEIWeights) * p.HEIScale)
}

// CD returns the largest concentration-to-reference ratio over the reference
// metals, rounded to two decimals. Metals with a non-positive reference are
// ignored.
func CD(rec types.SampleRecord, p Params) float64 {
	var worst float64
	for _, m := range orderedMetals(p.References) {
		ref := p.References[m]
		if ref <= 0 {
			continue
		}
		if r := rec.Metals[m] / ref; r > worst {
			worst = r
		}
	}
	return round2(worst)
}

// Classify maps an HPI value to its risk Category.
func Classify(hpi float64, b Bands) types.Category {
	switch {
	case hpi < b.SafeBelow:
		return types.CategorySafe
	case hpi > b.UnsafeAbove:
		return types.CategoryUnsafe
	default:
		return types.CategoryModerate
	}
}

// Evaluate computes every index for rec.
func Evaluate(rec types.SampleRecord, p Params) types.IndexResult {
	hpi := HPI(rec, p)
	return types.IndexResult{
		HPI:      hpi,
		MI:       MI(rec, p),
		HEI:      HEI(rec, p),
		CD:       CD(rec, p),
		Category: Classify(hpi, p.Bands),
	}
}

// Analyze evaluates records in input order.
func Analyze(records []types.SampleRecord, p Params) []types.ComputedRecord {
	out := make([]types.ComputedRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, types.ComputedRecord{Record: rec, Indices: Evaluate(rec, p)})
	}
	return out
}

// weightedSum returns Σ weights[m] · c[m], iterating in AllMetals order so the
// floating-point result does not depend on map order.
func weightedSum(rec types.SampleRecord, weights map[types.Metal]float64) float64 {
	var sum float64
	for _, m := range orderedMetals(weights) {
		sum += rec.Metals[m] * weights[m]
	}
	return sum
}

// orderedMetals returns the keys of tbl in AllMetals order.
func orderedMetals(tbl map[types.Metal]float64) []types.Metal {
	out := make([]types.Metal, 0, len(tbl))
	for _, m := range types.AllMetals {
		if _, ok := tbl[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
