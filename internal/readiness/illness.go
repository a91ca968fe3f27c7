package readiness

import (
	"fmt"
	"time"

	"adaptive-coach/internal/stats"
)

// Illness probability tiers, lowest to highest.
const (
	IllnessNone     = "none"
	IllnessPossible = "possible"
	IllnessLikely   = "likely"
	IllnessHigh     = "high"
)

const (
	concerningDayScore = 3

	highSumThreshold     = 8
	likelySumThreshold   = 5
	possibleDayThreshold = 4

	// skinTempFallbackSD approximates the nightly skin temperature spread
	// when too few deltas exist to measure it.
	skinTempFallbackSD = 0.5
)

// IllnessOptions tune the pattern detector.
type IllnessOptions struct {
	DaysToCheck        int
	MinConsecutiveDays int
}

// DefaultIllnessOptions checks three days and needs two in a row.
func DefaultIllnessOptions() IllnessOptions {
	return IllnessOptions{DaysToCheck: 3, MinConsecutiveDays: 2}
}

// DayDetails records the inputs that produced a day's score.
type DayDetails struct {
	HRVZScore       *float64 `json:"hrv_z_score,omitempty"`
	RHRZScore       *float64 `json:"rhr_z_score,omitempty"`
	SkinTempZScore  *float64 `json:"skin_temp_z_score,omitempty"`
	SleepHours      float64  `json:"sleep_hours"`
	RespiratoryRate *float64 `json:"respiratory_rate,omitempty"`
	RecoveryScore   *float64 `json:"recovery_score,omitempty"`
}

// DayScore is the concern score of a single day.
type DayScore struct {
	Date    time.Time  `json:"date"`
	Markers []string   `json:"markers"`
	Score   int        `json:"score"`
	Details DayDetails `json:"details"`
}

// Concerning reports whether the day counts towards an illness pattern.
func (d DayScore) Concerning() bool {
	return d.Score >= concerningDayScore
}

// IllnessAssessment summarises the multi-day illness pattern check.
type IllnessAssessment struct {
	Detected         bool       `json:"detected"`
	Probability      string     `json:"probability"`
	ConsecutiveDays  int        `json:"consecutive_days"`
	Symptoms         []string   `json:"symptoms"`
	DailyAnalysis    []DayScore `json:"daily_analysis"`
	Recommendation   string     `json:"recommendation"`
	TrainingGuidance string     `json:"training_guidance"`
}

// IllnessRank orders probability tiers so callers can compare severity.
func IllnessRank(probability string) int {
	switch probability {
	case IllnessPossible:
		return 1
	case IllnessLikely:
		return 2
	case IllnessHigh:
		return 3
	default:
		return 0
	}
}

// CheckIllness scores the most recent days against the baseline and looks
// for a sustained run of concerning days ending today.
func CheckIllness(records []WellnessRecord, baseline *Baseline, opts IllnessOptions) IllnessAssessment {
	if opts.DaysToCheck <= 0 {
		opts.DaysToCheck = DefaultIllnessOptions().DaysToCheck
	}
	if opts.MinConsecutiveDays <= 0 {
		opts.MinConsecutiveDays = DefaultIllnessOptions().MinConsecutiveDays
	}

	sorted := newestFirst(records)
	checked := sorted[:min(opts.DaysToCheck, len(sorted))]
	skin := skinTempReference(sorted[len(checked):])

	days := make([]DayScore, len(checked))
	for i, r := range checked {
		days[i] = scoreDay(r, baseline, skin)
	}

	consecutive := 0
	var symptoms []string
	for _, d := range days {
		if !d.Concerning() {
			break
		}
		consecutive++
		symptoms = appendUnique(symptoms, d.Markers...)
	}

	out := IllnessAssessment{
		Probability:     IllnessNone,
		ConsecutiveDays: consecutive,
		Symptoms:        symptoms,
		DailyAnalysis:   days,
	}
	if len(days) == 0 {
		out.Recommendation = "No wellness data available for illness screening"
		out.TrainingGuidance = "Train as planned"
		return out
	}

	leading := 0
	for _, d := range days[:min(opts.MinConsecutiveDays, len(days))] {
		leading += d.Score
	}
	today := days[0].Score

	switch {
	case consecutive >= opts.MinConsecutiveDays && leading >= highSumThreshold:
		out.Detected = true
		out.Probability = IllnessHigh
		out.Recommendation = fmt.Sprintf("Strong illness pattern over %d consecutive days", consecutive)
		out.TrainingGuidance = "Complete rest. No training until markers return towards baseline"
	case consecutive >= opts.MinConsecutiveDays && leading >= likelySumThreshold:
		out.Detected = true
		out.Probability = IllnessLikely
		out.Recommendation = fmt.Sprintf("Illness pattern likely over %d consecutive days", consecutive)
		out.TrainingGuidance = "Light activity only (easy walk or spin). No structured training"
	case consecutive >= 1 && today >= possibleDayThreshold:
		out.Detected = true
		out.Probability = IllnessPossible
		out.Recommendation = "Several illness markers present today"
		out.TrainingGuidance = "Reduce intensity by 30-50% and monitor how you feel"
	case today >= concerningDayScore:
		out.Recommendation = "Some markers are off today but the pattern is not sustained"
		out.TrainingGuidance = "Train as planned, watch for further signs tomorrow"
	default:
		out.Symptoms = nil
		out.Recommendation = "No illness signal"
		out.TrainingGuidance = "Train as planned"
	}
	return out
}

// skinRef is the personal reference for skin temperature deltas.
type skinRef struct {
	mean, sd float64
	ok       bool
}

func skinTempReference(history []WellnessRecord) skinRef {
	vals := stats.Present(column(history, func(r WellnessRecord) *float64 { return r.SkinTempDeltaC }))
	if len(vals) < MinBaselineSamples {
		return skinRef{}
	}
	mean, _ := stats.Average(vals)
	sd, ok := stats.StdDev(vals)
	if !ok || sd <= 0 {
		return skinRef{}
	}
	return skinRef{mean: mean, sd: sd, ok: true}
}

func (s skinRef) zScore(delta float64) float64 {
	if !s.ok {
		return delta / skinTempFallbackSD
	}
	return (delta - s.mean) / s.sd
}

func scoreDay(r WellnessRecord, baseline *Baseline, skin skinRef) DayScore {
	day := DayScore{
		Date: r.Date,
		Details: DayDetails{
			SleepHours:      r.SleepHours,
			RespiratoryRate: r.RespiratoryRate,
			RecoveryScore:   r.RecoveryScore,
		},
	}
	mark := func(points int, format string, args ...any) {
		day.Score += points
		day.Markers = append(day.Markers, fmt.Sprintf(format, args...))
	}

	if d := Deviate(r.RestingHR, baseline.For(MetricRHR), MetricRHR); d.Available {
		day.Details.RHRZScore = d.ZScorePtr()
		if p := ladderAtLeast(d.ZScore, 1.5, 1.0, 0.5); p > 0 {
			mark(p, "Resting HR elevated (%+.1f SD)", d.ZScore)
		}
	}
	if d := Deviate(r.HRV, baseline.For(MetricHRV), MetricHRV); d.Available {
		day.Details.HRVZScore = d.ZScorePtr()
		if p := ladderAtLeast(-d.ZScore, 1.5, 1.0, 0.5); p > 0 {
			mark(p, "HRV suppressed (%+.1f SD)", d.ZScore)
		}
	}

	// Zero sleep means the night was not recorded.
	if r.SleepHours > 0 {
		if p := ladderBelow(r.SleepHours, 5, 6, 6.5); p > 0 {
			mark(p, "Short sleep (%.1fh)", r.SleepHours)
		}
	}

	if r.SkinTempDeltaC != nil {
		z := skin.zScore(*r.SkinTempDeltaC)
		day.Details.SkinTempZScore = &z
		if p := ladderAtLeast(z, 2.0, 1.0, 0.5); p > 0 {
			mark(p, "Skin temperature raised (%+.1f°C)", *r.SkinTempDeltaC)
		}
	}

	if r.RespiratoryRate != nil {
		if p := ladderAtLeast(*r.RespiratoryRate, 18, 16, 14); p > 0 {
			mark(p, "Respiratory rate high (%.1f/min)", *r.RespiratoryRate)
		}
	}

	if r.RecoveryScore != nil {
		switch score := *r.RecoveryScore; {
		case score < 34:
			mark(2, "Low recovery score (%.0f%%)", score)
		case score < 50:
			mark(1, "Below-average recovery score (%.0f%%)", score)
		}
	}

	return day
}

// ladderAtLeast awards 3/2/1 points for v reaching the high/mid/low threshold.
func ladderAtLeast(v, high, mid, low float64) int {
	switch {
	case v >= high:
		return 3
	case v >= mid:
		return 2
	case v >= low:
		return 1
	default:
		return 0
	}
}

// ladderBelow awards 3/2/1 points for v falling under the low/mid/high threshold.
func ladderBelow(v, worst, mid, mild float64) int {
	switch {
	case v < worst:
		return 3
	case v < mid:
		return 2
	case v < mild:
		return 1
	default:
		return 0
	}
}

func appendUnique(dst []string, items ...string) []string {
	for _, item := range items {
		seen := false
		for _, existing := range dst {
			if existing == item {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, item)
		}
	}
	return dst
}
