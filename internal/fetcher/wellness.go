package fetcher

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"adaptive-coach/internal/readiness"
)

var validate = validator.New()

// wellnessDTO is the intervals.icu wellness row. Fields not used by the
// engine are ignored.
type wellnessDTO struct {
	ID            string   `json:"id"`
	CTL           *float64 `json:"ctl"`
	ATL           *float64 `json:"atl"`
	RampRate      *float64 `json:"rampRate"`
	SleepSecs     *float64 `json:"sleepSecs"`
	HRV           *float64 `json:"hrv"`
	RestingHR     *float64 `json:"restingHR"`
	Readiness     *float64 `json:"readiness"`
	SkinTempDelta *float64 `json:"skinTemp"`
	Respiration   *float64 `json:"respiration"`
	Soreness      *int     `json:"soreness"`
	Fatigue       *int     `json:"fatigue"`
	Stress        *int     `json:"stress"`
	Mood          *int     `json:"mood"`
}

func (d wellnessDTO) record(loc *time.Location) (readiness.WellnessRecord, error) {
	date, err := time.ParseInLocation(dateLayout, d.ID, loc)
	if err != nil {
		return readiness.WellnessRecord{}, fmt.Errorf("parse wellness date: %w", err)
	}
	rec := readiness.WellnessRecord{
		Date:            date,
		HRV:             d.HRV,
		RestingHR:       d.RestingHR,
		RecoveryScore:   d.Readiness,
		SkinTempDeltaC:  d.SkinTempDelta,
		RespiratoryRate: d.Respiration,
		Soreness:        d.Soreness,
		Fatigue:         d.Fatigue,
		Stress:          d.Stress,
		Mood:            d.Mood,
	}
	if d.SleepSecs != nil {
		rec.SleepHours = *d.SleepSecs / 3600
	}
	return rec, nil
}

// wellnessCheck carries the plausibility rules applied before a record
// reaches the engine.
type wellnessCheck struct {
	SleepHours      float64  `validate:"gte=0,lte=24"`
	HRV             *float64 `validate:"omitempty,gt=0,lt=400"`
	RestingHR       *float64 `validate:"omitempty,gt=0,lt=250"`
	RecoveryScore   *float64 `validate:"omitempty,gte=0,lte=100"`
	SkinTempDeltaC  *float64 `validate:"omitempty,gte=-5,lte=5"`
	RespiratoryRate *float64 `validate:"omitempty,gt=0,lt=60"`
	Soreness        *int     `validate:"omitempty,min=1,max=5"`
	Fatigue         *int     `validate:"omitempty,min=1,max=5"`
	Stress          *int     `validate:"omitempty,min=1,max=5"`
	Mood            *int     `validate:"omitempty,min=1,max=5"`
}

func validateWellness(r readiness.WellnessRecord) error {
	return validate.Struct(wellnessCheck{
		SleepHours:      r.SleepHours,
		HRV:             r.HRV,
		RestingHR:       r.RestingHR,
		RecoveryScore:   r.RecoveryScore,
		SkinTempDeltaC:  r.SkinTempDeltaC,
		RespiratoryRate: r.RespiratoryRate,
		Soreness:        r.Soreness,
		Fatigue:         r.Fatigue,
		Stress:          r.Stress,
		Mood:            r.Mood,
	})
}

type activityDTO struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	StartDateLocal string   `json:"start_date_local"`
	TrainingLoad   *float64 `json:"icu_training_load"`
}

type eventDTO struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	StartDateLocal string `json:"start_date_local"`
}
