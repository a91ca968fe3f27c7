// Package readiness turns daily wellness and training-load data into the
// actionable scalars that gate how hard a workout should be: a recovery
// category, an intensity multiplier, an illness flag, a training-gap
// interpretation, a periodization phase and weekly load targets.
package readiness

import (
	"math"
	"time"
)

// WellnessRecord is one calendar day of physiological and subjective data.
type WellnessRecord struct {
	Date            time.Time `json:"date"`
	SleepHours      float64   `json:"sleep_hours"`
	HRV             *float64  `json:"hrv,omitempty"`               // ms
	RestingHR       *float64  `json:"resting_hr,omitempty"`        // bpm
	RecoveryScore   *float64  `json:"recovery_score,omitempty"`    // 0-100
	SkinTempDeltaC  *float64  `json:"skin_temp_delta_c,omitempty"` // deviation from personal norm
	RespiratoryRate *float64  `json:"respiratory_rate,omitempty"`  // breaths/min
	Soreness        *int      `json:"soreness,omitempty"`          // 1-5
	Fatigue         *int      `json:"fatigue,omitempty"`           // 1-5
	Stress          *int      `json:"stress,omitempty"`            // 1-5
	Mood            *int      `json:"mood,omitempty"`              // 1-5
}

// Activity is a completed training session summary.
type Activity struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	StartDate    time.Time `json:"start_date"`
	TrainingLoad float64   `json:"training_load"`
}

// FitnessMetrics holds CTL/ATL/TSB for a day.
type FitnessMetrics struct {
	Date     time.Time `json:"date"`
	CTL      float64   `json:"ctl"` // Chronic Training Load, "fitness"
	ATL      float64   `json:"atl"` // Acute Training Load, "fatigue"
	TSB      float64   `json:"tsb"` // Training Stress Balance, "form"
	RampRate float64   `json:"ramp_rate"`
}

// Goal is the next target event on the athlete's calendar.
type Goal struct {
	Date     time.Time `json:"date"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
}

// Metric identifies a baselined physiological signal.
type Metric string

const (
	MetricHRV Metric = "hrv"
	MetricRHR Metric = "rhr"
)

// HigherIsBetter reports the direction of the metric.
func (m Metric) HigherIsBetter() bool {
	return m != MetricRHR
}

// Confidence levels for derived values.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Result sources. Enhanced results replace the rule-based ones when well formed.
const (
	SourceRule     = "rule"
	SourceEnhanced = "enhanced"
)

// dayKey normalises a timestamp to a calendar day in its own location.
func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	a = dayKey(a)
	b = dayKey(b.In(a.Location()))
	return int(math.Round(b.Sub(a).Hours() / 24))
}
