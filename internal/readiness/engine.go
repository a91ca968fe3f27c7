package readiness

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"adaptive-coach/internal/stats"
)

const (
	likelyIllnessCap      = 0.5
	possibleIllnessFactor = 0.6
	recoveryAverageWindow = 7
)

// EngineOptions tune the orchestrator.
type EngineOptions struct {
	Illness         IllnessOptions
	YellowModifier  float64
	GoalCTL         float64
	GapLookbackDays int
}

// Inputs are the already-fetched facts for one decision cycle. Every field
// except Today may be empty.
type Inputs struct {
	Today      time.Time
	Wellness   []WellnessRecord
	Fitness    *FitnessMetrics
	Goal       *Goal
	Activities []Activity
	// ActivitiesUnavailable marks a failed activity fetch, as opposed to an
	// empty history.
	ActivitiesUnavailable bool
}

// Decision is the per-day bundle consumed by workout generation and
// notification layers.
type Decision struct {
	Date          time.Time         `json:"date"`
	Baseline      *Baseline         `json:"baseline,omitempty"`
	HRV           DeviationResult   `json:"hrv"`
	RHR           DeviationResult   `json:"rhr"`
	Intensity     IntensityModifier `json:"intensity"`
	Recovery      RecoveryStatus    `json:"recovery"`
	Illness       IllnessAssessment `json:"illness"`
	Gap           TrainingGapResult `json:"gap"`
	Fitness       *FitnessMetrics   `json:"fitness,omitempty"`
	Phase         *Phase            `json:"phase,omitempty"`
	Load          LoadAdvice        `json:"load"`
	FinalModifier float64           `json:"final_modifier"`
}

// Engine composes the baseline, deviation, illness, gap and load policies.
type Engine struct {
	baselines *BaselineStore
	enhancer  Enhancer
	opts      EngineOptions
	logger    zerolog.Logger
}

// NewEngine builds an engine. enhancer may be nil.
func NewEngine(baselines *BaselineStore, enhancer Enhancer, opts EngineOptions, logger zerolog.Logger) *Engine {
	if opts.Illness.DaysToCheck <= 0 || opts.Illness.MinConsecutiveDays <= 0 {
		opts.Illness = DefaultIllnessOptions()
	}
	if opts.YellowModifier <= 0 {
		opts.YellowModifier = DefaultYellowModifier
	}
	if opts.GapLookbackDays <= 0 {
		opts.GapLookbackDays = DefaultGapLookbackDays
	}
	return &Engine{
		baselines: baselines,
		enhancer:  enhancer,
		opts:      opts,
		logger:    logger.With().Str("component", "engine").Logger(),
	}
}

// Decide computes today's decision bundle. It never fails: missing inputs
// degrade to conservative or neutral values.
func (e *Engine) Decide(ctx context.Context, in Inputs) Decision {
	wellness := newestFirst(in.Wellness)
	d := Decision{Date: dayKey(in.Today), Fitness: in.Fitness}

	// The baseline must be settled before anything compares against it.
	d.Baseline = e.baselines.Compute(ctx, wellness)
	if d.Baseline == nil {
		d.Baseline = e.baselines.Current(ctx)
	}

	// A newest record from an earlier day means today has not synced yet.
	var today *WellnessRecord
	if len(wellness) > 0 {
		if daysBetween(wellness[0].Date, in.Today) == 0 {
			today = &wellness[0]
		} else {
			e.logger.Warn().
				Time("newest_record", wellness[0].Date).
				Time("day", d.Date).
				Msg("no wellness reading for the decision day")
		}
	}

	if today != nil {
		d.HRV = Deviate(today.HRV, d.Baseline.For(MetricHRV), MetricHRV)
		d.RHR = Deviate(today.RestingHR, d.Baseline.For(MetricRHR), MetricRHR)
	} else {
		d.HRV = Deviate(nil, MetricBaseline{}, MetricHRV)
		d.RHR = Deviate(nil, MetricBaseline{}, MetricRHR)
	}
	d.Intensity = CombineModifiers(d.HRV.ZScorePtr(), d.RHR.ZScorePtr())

	recoveryIn := RecoveryInput{Modifier: d.Intensity, HRV: d.HRV, RHR: d.RHR}
	if today != nil {
		recoveryIn.RecoveryScore = today.RecoveryScore
		if today.SleepHours > 0 {
			sleep := today.SleepHours
			recoveryIn.SleepHours = &sleep
		}
	}
	d.Recovery = AssessRecovery(ctx, e.enhancer, recoveryIn, e.logger)

	d.Illness = CheckIllness(wellness, d.Baseline, e.opts.Illness)

	if in.ActivitiesUnavailable {
		d.Gap = UnavailableGap()
	} else {
		last := LastQualifyingActivity(in.Activities)
		d.Gap = AnalyzeGap(ctx, e.enhancer, GapInput{
			Today:          in.Today,
			LastActivity:   last,
			GapDays:        GapDays(in.Today, last, e.opts.GapLookbackDays),
			Recovery:       d.Recovery,
			HasWellness:    len(wellness) > 0,
			YellowModifier: e.opts.YellowModifier,
		}, e.logger)
	}

	loadIn := LoadInput{GoalCTL: e.opts.GoalCTL, RecoveryAverage: recoveryAverage(wellness)}
	if in.Fitness != nil {
		loadIn.Fitness = *in.Fitness
	}
	if in.Goal != nil {
		weeks := float64(WeeksOut(in.Goal.Date, in.Today))
		phase := DeterminePhase(ctx, e.enhancer, PhaseInput{WeeksOut: weeks, Goal: *in.Goal, Fitness: in.Fitness}, e.logger)
		d.Phase = &phase
		loadIn.WeeksOut = weeks
		loadIn.Phase = phase.Name
	}
	d.Load = AdviseLoad(loadIn)

	d.FinalModifier = finalModifier(d.Intensity.Modifier, d.Gap.IntensityModifier, d.Illness.Probability)

	e.logger.Info().
		Time("day", d.Date).
		Float64("intensity", d.Intensity.Modifier).
		Str("confidence", d.Intensity.Confidence).
		Str("recovery", d.Recovery.Label).
		Str("illness", d.Illness.Probability).
		Str("gap", d.Gap.Interpretation).
		Float64("final_modifier", d.FinalModifier).
		Msg("decision computed")
	return d
}

// finalModifier stacks the recovery and gap modifiers and caps them by the
// illness tier.
func finalModifier(intensity, gap float64, illness string) float64 {
	m := intensity * gap
	switch illness {
	case IllnessHigh:
		m = 0
	case IllnessLikely:
		m = math.Min(m, likelyIllnessCap)
	case IllnessPossible:
		m *= possibleIllnessFactor
	}
	return round2(math.Max(0, math.Min(MaxIntensityModifier, m)))
}

func recoveryAverage(records []WellnessRecord) *float64 {
	window := records[:min(recoveryAverageWindow, len(records))]
	scores := stats.Present(column(window, func(r WellnessRecord) *float64 { return r.RecoveryScore }))
	return stats.Ptr(stats.Average(scores))
}
