package alerts

import (
	"strconv"
	"strings"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// evalCondition evaluates a rule condition string against a batch.
//
// Supported expressions (field operator value):
//
//	unsafe_count > 0
//	moderate_count >= 5
//	safe_count < 10
//	unsafe_pct > 25
//	max_hpi >= 150
//	mean_hpi > 100
//	max_cd > 3
//	mean_cd > 1
//	error_count > 0
//	samples < 3
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, b *types.Batch) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	v, ok := numericField(field, b)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the batch summary.
func numericField(field string, b *types.Batch) (float64, bool) {
	s := b.Summary
	switch field {
	case "unsafe_count":
		return float64(s.Counts.Unsafe), true
	case "moderate_count":
		return float64(s.Counts.Moderate), true
	case "safe_count":
		return float64(s.Counts.Safe), true
	case "unsafe_pct":
		if s.Samples == 0 {
			return 0, true
		}
		return float64(s.Counts.Unsafe) / float64(s.Samples) * 100, true
	case "max_hpi":
		return s.MaxHPI, true
	case "mean_hpi":
		return s.MeanHPI, true
	case "max_cd":
		return s.MaxCD, true
	case "mean_cd":
		return s.MeanCD, true
	case "mean_hei":
		return s.MeanHEI, true
	case "error_count":
		return float64(len(b.Errors)), true
	case "samples":
		return float64(s.Samples), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
