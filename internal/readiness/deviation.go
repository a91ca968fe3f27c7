package readiness

import "fmt"

// Deviation status labels. Labels describe the raw value relative to the
// baseline, so RHR and HRV name their best and worst bands differently.
const (
	StatusElevated      = "elevated"
	StatusExcellent     = "excellent"
	StatusAboveBaseline = "above_baseline"
	StatusNormal        = "normal"
	StatusBelowBaseline = "below_baseline"
	StatusSuppressed    = "suppressed"
	StatusUnavailable   = "unavailable"
)

// DeviationResult compares today's reading with the personal baseline.
type DeviationResult struct {
	Available        bool    `json:"available"`
	Current          float64 `json:"current"`
	Baseline         float64 `json:"baseline"`
	Deviation        float64 `json:"deviation"`
	DeviationPercent float64 `json:"deviation_percent"`
	ZScore           float64 `json:"z_score"`
	Status           string  `json:"status"`
	Interpretation   string  `json:"interpretation"`
}

// ZScorePtr returns the z-score, or nil when the result is unavailable.
func (d DeviationResult) ZScorePtr() *float64 {
	if !d.Available {
		return nil
	}
	z := d.ZScore
	return &z
}

// Deviate computes the signed deviation and z-score of current against b.
func Deviate(current *float64, b MetricBaseline, metric Metric) DeviationResult {
	if current == nil || b.Mean30d == nil {
		return DeviationResult{Status: StatusUnavailable, Interpretation: "no baseline comparison available"}
	}
	std, ok := b.EffectiveStdDev()
	if !ok {
		return DeviationResult{Status: StatusUnavailable, Interpretation: "baseline has no usable spread"}
	}

	mean := *b.Mean30d
	deviation := *current - mean
	z := deviation / std

	status := classifyDeviation(z, metric)
	return DeviationResult{
		Available:        true,
		Current:          *current,
		Baseline:         mean,
		Deviation:        deviation,
		DeviationPercent: deviation / mean * 100,
		ZScore:           z,
		Status:           status,
		Interpretation:   interpretDeviation(metric, status, deviation/mean*100),
	}
}

// classifyDeviation buckets z into five bands after orienting it so that
// positive always means "better recovered".
func classifyDeviation(z float64, metric Metric) string {
	eff := z
	if !metric.HigherIsBetter() {
		eff = -z
	}

	labels := [5]string{StatusElevated, StatusAboveBaseline, StatusNormal, StatusBelowBaseline, StatusSuppressed}
	if metric == MetricRHR {
		labels = [5]string{StatusExcellent, StatusBelowBaseline, StatusNormal, StatusAboveBaseline, StatusElevated}
	}

	switch {
	case eff >= 1.5:
		return labels[0]
	case eff >= 0.5:
		return labels[1]
	case eff > -0.5:
		return labels[2]
	case eff > -1.5:
		return labels[3]
	default:
		return labels[4]
	}
}

func interpretDeviation(metric Metric, status string, pct float64) string {
	name := "HRV"
	if metric == MetricRHR {
		name = "Resting HR"
	}
	switch status {
	case StatusNormal:
		return fmt.Sprintf("%s within normal range (%+.1f%%)", name, pct)
	case StatusExcellent:
		return fmt.Sprintf("%s well below baseline (%+.1f%%), strong recovery signal", name, pct)
	case StatusSuppressed:
		return fmt.Sprintf("%s well below baseline (%+.1f%%), significant fatigue or stress", name, pct)
	case StatusElevated:
		if metric == MetricRHR {
			return fmt.Sprintf("%s well above baseline (%+.1f%%), possible fatigue or illness", name, pct)
		}
		return fmt.Sprintf("%s well above baseline (%+.1f%%), very well recovered", name, pct)
	case StatusAboveBaseline:
		return fmt.Sprintf("%s above baseline (%+.1f%%)", name, pct)
	case StatusBelowBaseline:
		return fmt.Sprintf("%s below baseline (%+.1f%%)", name, pct)
	default:
		return ""
	}
}
