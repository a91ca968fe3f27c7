package readiness

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	MinIntensityModifier = 0.70
	MaxIntensityModifier = 1.05

	hrvWeight = 0.6
	rhrWeight = 0.4
)

// curvePoints are the knots of the z-score to modifier curve. The downside
// is steeper than the upside.
var curvePoints = []struct{ z, mod float64 }{
	{-2, 0.70},
	{-1, 0.82},
	{0, 0.94},
	{1, 1.00},
	{2, 1.05},
}

// ComponentModifier is one metric's contribution to the combined modifier.
type ComponentModifier struct {
	ZScore   float64 `json:"z_score"`
	Modifier float64 `json:"modifier"`
}

// ModifierBreakdown lists the available per-metric contributions.
type ModifierBreakdown struct {
	HRV *ComponentModifier `json:"hrv,omitempty"`
	RHR *ComponentModifier `json:"rhr,omitempty"`
}

// IntensityModifier scales the planned intensity of today's workout.
type IntensityModifier struct {
	Modifier    float64           `json:"modifier"`
	Confidence  string            `json:"confidence"`
	Breakdown   ModifierBreakdown `json:"breakdown"`
	Description string            `json:"description"`
}

// ZScoreToModifier maps a recovery-oriented z-score onto [0.70, 1.05].
func ZScoreToModifier(z float64) float64 {
	if math.IsNaN(z) {
		z = 0
	}
	z = math.Max(-3, math.Min(3, z))

	first, last := curvePoints[0], curvePoints[len(curvePoints)-1]
	if z <= first.z {
		return first.mod
	}
	if z >= last.z {
		return last.mod
	}
	for i := 1; i < len(curvePoints); i++ {
		lo, hi := curvePoints[i-1], curvePoints[i]
		if z < hi.z {
			return lo.mod + (z-lo.z)*(hi.mod-lo.mod)/(hi.z-lo.z)
		}
	}
	return last.mod
}

// CombineModifiers weighs HRV and RHR z-scores into one modifier. The RHR
// z-score is the raw one; it is negated here since lower RHR is better.
func CombineModifiers(hrvZ, rhrZ *float64) IntensityModifier {
	var out IntensityModifier

	if hrvZ != nil {
		out.Breakdown.HRV = &ComponentModifier{ZScore: *hrvZ, Modifier: ZScoreToModifier(*hrvZ)}
	}
	if rhrZ != nil {
		out.Breakdown.RHR = &ComponentModifier{ZScore: *rhrZ, Modifier: ZScoreToModifier(-*rhrZ)}
	}

	switch {
	case out.Breakdown.HRV != nil && out.Breakdown.RHR != nil:
		out.Modifier = hrvWeight*out.Breakdown.HRV.Modifier + rhrWeight*out.Breakdown.RHR.Modifier
		out.Confidence = ConfidenceHigh
	case out.Breakdown.HRV != nil:
		out.Modifier = out.Breakdown.HRV.Modifier
		out.Confidence = ConfidenceMedium
	case out.Breakdown.RHR != nil:
		out.Modifier = out.Breakdown.RHR.Modifier
		out.Confidence = ConfidenceMedium
	default:
		out.Modifier = 1.0
		out.Confidence = ConfidenceLow
		out.Description = "No HRV or resting HR baseline available; using neutral intensity"
		return out
	}

	out.Modifier = round2(out.Modifier)
	out.Description = describeModifier(out.Modifier)
	return out
}

func describeModifier(m float64) string {
	switch {
	case m >= 1.0:
		return "Well recovered: full or slightly increased intensity"
	case m >= 0.94:
		return "Normal recovery: train as planned"
	case m >= 0.85:
		return "Mild fatigue: reduce intensity slightly"
	case m >= 0.78:
		return "Moderate fatigue: reduce intensity and favour aerobic work"
	default:
		return "Significant fatigue: easy session or rest"
	}
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
