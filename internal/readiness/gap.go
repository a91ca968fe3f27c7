package readiness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Training gap interpretations produced by the rule-based policy.
const (
	GapNormal               = "normal"
	GapFresh                = "fresh"
	GapReturningFromIllness = "returning_from_illness"
	GapCautiousReturn       = "cautious_return"
	GapUnknown              = "unknown"
)

const (
	normalGapMaxDays = 3
	longGapDays      = 7
	longGapFactor    = 0.9

	freshModifier   = 1.0
	illnessModifier = 0.7
	unknownModifier = 0.8

	// DefaultYellowModifier applies to a cautious return after a gap.
	DefaultYellowModifier = 0.85
	// DefaultGapLookbackDays caps the gap when no qualifying activity exists.
	DefaultGapLookbackDays = 30
)

// TrainingGapResult interprets days without training.
type TrainingGapResult struct {
	GapDays           int      `json:"gap_days"`
	Interpretation    string   `json:"interpretation"`
	IntensityModifier float64  `json:"intensity_modifier"`
	Recommendation    string   `json:"recommendation"`
	Reasoning         []string `json:"reasoning"`
	Source            string   `json:"source"`
}

// GapInput carries the facts the gap policy needs.
type GapInput struct {
	Today          time.Time      `json:"today"`
	LastActivity   *time.Time     `json:"last_activity,omitempty"`
	GapDays        int            `json:"gap_days"`
	Recovery       RecoveryStatus `json:"recovery"`
	HasWellness    bool           `json:"has_wellness"`
	YellowModifier float64        `json:"yellow_modifier"`
}

// QualifyingActivity reports whether a session counts as training for gap
// purposes: any ride or run, regardless of duration.
func QualifyingActivity(activityType string) bool {
	t := strings.ToLower(activityType)
	return strings.Contains(t, "ride") || strings.Contains(t, "run") || strings.Contains(t, "cycling")
}

// LastQualifyingActivity returns the start date of the latest ride or run.
func LastQualifyingActivity(activities []Activity) *time.Time {
	var last *time.Time
	for i := range activities {
		a := activities[i]
		if !QualifyingActivity(a.Type) {
			continue
		}
		if last == nil || a.StartDate.After(*last) {
			start := a.StartDate
			last = &start
		}
	}
	return last
}

// GapDays counts whole days since the last activity, or lookback when none.
func GapDays(today time.Time, last *time.Time, lookback int) int {
	if last == nil {
		if lookback <= 0 {
			lookback = DefaultGapLookbackDays
		}
		return lookback
	}
	days := daysBetween(*last, today)
	if days < 0 {
		return 0
	}
	return days
}

// AnalyzeGap interprets the training gap. Gaps of four days or more try the
// enhancement first and fall back to GapPolicy.
func AnalyzeGap(ctx context.Context, e Enhancer, in GapInput, logger zerolog.Logger) TrainingGapResult {
	if in.GapDays <= normalGapMaxDays {
		return GapPolicy(in)
	}

	valid := func(r TrainingGapResult) bool {
		return r.Interpretation != "" && r.IntensityModifier > 0 && r.IntensityModifier <= MaxIntensityModifier
	}
	if out, ok := tryEnhance(ctx, e, KindTrainingGap, in, valid, logger); ok {
		out.GapDays = in.GapDays
		out.IntensityModifier = round2(out.IntensityModifier)
		out.Source = SourceEnhanced
		return out
	}
	return GapPolicy(in)
}

// UnavailableGap is the gap result when the activity history could not be
// read at all.
func UnavailableGap() TrainingGapResult {
	return TrainingGapResult{
		Interpretation:    GapUnknown,
		IntensityModifier: unknownModifier,
		Recommendation:    "Activity history unavailable; ease in until it syncs",
		Reasoning:         []string{"activity history could not be fetched"},
		Source:            SourceRule,
	}
}

// GapPolicy is the deterministic training gap interpretation.
func GapPolicy(in GapInput) TrainingGapResult {
	out := TrainingGapResult{GapDays: in.GapDays, Source: SourceRule}

	if in.GapDays <= normalGapMaxDays {
		out.Interpretation = GapNormal
		out.IntensityModifier = 1.0
		out.Recommendation = "Normal training rhythm"
		out.Reasoning = []string{fmt.Sprintf("%d day(s) since last ride or run", in.GapDays)}
		return out
	}

	yellow := in.YellowModifier
	if yellow <= 0 {
		yellow = DefaultYellowModifier
	}

	out.Reasoning = append(out.Reasoning, fmt.Sprintf("%d days since last ride or run", in.GapDays))
	switch {
	case !in.HasWellness:
		out.Interpretation = GapUnknown
		out.IntensityModifier = unknownModifier
		out.Recommendation = "Reason for the break is unknown; ease back in"
		out.Reasoning = append(out.Reasoning, "no wellness data to explain the break")
	case in.Recovery.IsGreen():
		out.Interpretation = GapFresh
		out.IntensityModifier = freshModifier
		out.Recommendation = "Well rested after the break; normal intensity is fine"
		out.Reasoning = append(out.Reasoning, "recovery is "+in.Recovery.Label)
	case in.Recovery.IsRed():
		out.Interpretation = GapReturningFromIllness
		out.IntensityModifier = illnessModifier
		out.Recommendation = "Break looks illness or strain related; keep today easy"
		out.Reasoning = append(out.Reasoning, "recovery is "+in.Recovery.Label)
	default:
		out.Interpretation = GapCautiousReturn
		out.IntensityModifier = yellow
		out.Recommendation = "Return with moderate intensity"
		out.Reasoning = append(out.Reasoning, "recovery is "+in.Recovery.Label)
	}

	if in.GapDays >= longGapDays {
		out.IntensityModifier *= longGapFactor
		out.Reasoning = append(out.Reasoning, fmt.Sprintf("break of %d+ days: extra %.0f%% reduction", longGapDays, (1-longGapFactor)*100))
	}
	out.IntensityModifier = round2(out.IntensityModifier)
	return out
}
