package readiness

import (
	"sort"
	"time"
)

// DailyLoad is the summed training load of one day.
type DailyLoad struct {
	Date time.Time
	Load float64
}

// DailyLoads sums activity training load per calendar day.
func DailyLoads(activities []Activity) []DailyLoad {
	byDay := make(map[time.Time]float64)
	for _, a := range activities {
		byDay[dayKey(a.StartDate)] += a.TrainingLoad
	}
	loads := make([]DailyLoad, 0, len(byDay))
	for day, load := range byDay {
		loads = append(loads, DailyLoad{Date: day, Load: load})
	}
	sort.Slice(loads, func(i, j int) bool { return loads[i].Date.Before(loads[j].Date) })
	return loads
}

// ComputeFitness integrates daily loads into CTL/ATL/TSB with exponential
// decay, filling missing days with zero load up to and including through.
func ComputeFitness(loads []DailyLoad, through time.Time) []FitnessMetrics {
	if len(loads) == 0 {
		return nil
	}

	sorted := make([]DailyLoad, len(loads))
	copy(sorted, loads)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	ctlDecay := 1.0 / 42.0
	atlDecay := 1.0 / 7.0

	loadMap := make(map[string]float64)
	for _, dl := range sorted {
		loadMap[dl.Date.Format("2006-01-02")] += dl.Load
	}

	start := dayKey(sorted[0].Date)
	end := dayKey(sorted[len(sorted)-1].Date)
	if t := dayKey(through.In(start.Location())); t.After(end) {
		end = t
	}

	var metrics []FitnessMetrics
	var ctl, atl float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		load := loadMap[d.Format("2006-01-02")]
		ctl += ctlDecay * (load - ctl)
		atl += atlDecay * (load - atl)

		m := FitnessMetrics{Date: d, CTL: ctl, ATL: atl, TSB: ctl - atl}
		if n := len(metrics); n >= 7 {
			m.RampRate = ctl - metrics[n-7].CTL
		}
		metrics = append(metrics, m)
	}
	return metrics
}

// CurrentFitness returns the last day of ComputeFitness, or nil.
func CurrentFitness(activities []Activity, through time.Time) *FitnessMetrics {
	metrics := ComputeFitness(DailyLoads(activities), through)
	if len(metrics) == 0 {
		return nil
	}
	last := metrics[len(metrics)-1]
	return &last
}

// FormDescription returns a human-readable description of TSB.
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}
