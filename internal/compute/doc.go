// Package compute derives pollution indices from validated groundwater samples.
//
// indices.go provides the pure per-sample functions:
//
//	HPI = round( Σ weight[m] · c[m] × scale )          (Heavy-metal Pollution Index)
//	MI  = round2( mean(c[m]) over the HPI metal set )  (Metal Index)
//	HEI = round2( Σ multiplier[m] · c[m] × scale )     (Heavy-metal Evaluation Index)
//	CD  = round2( max(c[m] / reference[m]) )           (Contamination Degree)
//
// A metal absent from a record contributes zero to every index.
//
// Classify maps HPI to Safe / Moderate / Unsafe using Bands. The default
// bands (SafeBelow = UnsafeAbove = 100) put only an HPI of exactly 100 in the
// Moderate bucket.
//
// summary.go aggregates a batch: category counts, per-metal extremes, means
// and the average-concentration distribution.
//
// engine.go provides the Engine, which holds the live Params (hot-swapped on
// config reload) and turns a ValidationResult into a types.Batch.
package compute
