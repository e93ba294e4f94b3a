package compute

import (
	"math"
	"sort"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// Summarize aggregates a batch of computed records.
//
// metals selects which metals get a highest/lowest entry in Extremes; a metal
// no record measured is omitted. Ties go to the lexically smaller SampleID so
// the result does not depend on record order.
func Summarize(results []types.ComputedRecord, metals []types.Metal) types.AggregateSummary {
	sum := types.AggregateSummary{
		Samples:      len(results),
		Extremes:     []types.MetalExtreme{},
		Distribution: []types.MetalShare{},
	}
	if len(results) == 0 {
		return sum
	}

	var hpiTotal, miTotal, heiTotal, cdTotal float64
	for i, r := range results {
		sum.Counts.Add(r.Indices.Category)
		hpiTotal += r.Indices.HPI
		miTotal += r.Indices.MI
		heiTotal += r.Indices.HEI
		cdTotal += r.Indices.CD
		if i == 0 || r.Indices.HPI > sum.MaxHPI {
			sum.MaxHPI = r.Indices.HPI
		}
		if i == 0 || r.Indices.CD > sum.MaxCD {
			sum.MaxCD = r.Indices.CD
		}
	}
	n := float64(len(results))
	sum.MeanHPI = round2(hpiTotal / n)
	sum.MeanMI = round2(miTotal / n)
	sum.MeanHEI = round2(heiTotal / n)
	sum.MeanCD = round2(cdTotal / n)

	for _, m := range metals {
		if ext, ok := Extreme(results, m); ok {
			sum.Extremes = append(sum.Extremes, ext)
		}
	}

	sum.Distribution = Distribution(results)
	if len(sum.Distribution) > 0 {
		hi := sum.Distribution[0]
		lo := sum.Distribution[len(sum.Distribution)-1]
		sum.HighestShare = &hi
		sum.LowestShare = &lo
	}
	return sum
}

// Extreme returns the records with the highest and lowest measured
// concentration of m. ok is false when no record measured m.
func Extreme(results []types.ComputedRecord, m types.Metal) (ext types.MetalExtreme, ok bool) {
	ext.Metal = m
	for _, r := range results {
		v, measured := r.Record.Concentration(m)
		if !measured {
			continue
		}
		cur := types.Reading{SampleID: r.Record.SampleID, Value: v}
		if !ok {
			ext.Highest, ext.Lowest, ok = cur, cur, true
			continue
		}
		if v > ext.Highest.Value || (v == ext.Highest.Value && cur.SampleID < ext.Highest.SampleID) {
			ext.Highest = cur
		}
		if v < ext.Lowest.Value || (v == ext.Lowest.Value && cur.SampleID < ext.Lowest.SampleID) {
			ext.Lowest = cur
		}
	}
	return ext, ok
}

// Distribution returns the average concentration of every metal over the
// whole batch (unmeasured counts as zero) with its percentage of the summed
// averages, sorted by average descending. Metals averaging zero are dropped.
func Distribution(results []types.ComputedRecord) []types.MetalShare {
	out := []types.MetalShare{}
	if len(results) == 0 {
		return out
	}

	n := float64(len(results))
	var total float64
	for _, m := range types.AllMetals {
		var s float64
		for _, r := range results {
			s += r.Record.Metals[m]
		}
		avg := s / n
		if avg <= 0 {
			continue
		}
		total += avg
		out = append(out, types.MetalShare{Metal: m, Average: avg})
	}

	for i := range out {
		out[i].Percentage = math.Round(out[i].Average/total*1000) / 10
		out[i].Average = math.Round(out[i].Average*1e4) / 1e4
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Average > out[j].Average })
	return out
}
