package readiness

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Recovery categories.
const (
	RecoveryGreen  = "Green"
	RecoveryYellow = "Yellow"
	RecoveryRed    = "Red"
)

var recoveryLabels = map[string]string{
	RecoveryGreen:  "Green (Primed)",
	RecoveryYellow: "Yellow (Recovering)",
	RecoveryRed:    "Red (Strained)",
}

// RecoveryStatus is today's recovery category.
type RecoveryStatus struct {
	Category string   `json:"category"`
	Label    string   `json:"label"`
	Score    *float64 `json:"score,omitempty"`
	Reason   string   `json:"reason"`
	Source   string   `json:"source"`
}

// IsGreen reports whether the label signals a primed athlete.
func (r RecoveryStatus) IsGreen() bool {
	return containsAny(r.Label, "Green", "Primed") || r.Category == RecoveryGreen
}

// IsRed reports whether the label signals a strained athlete.
func (r RecoveryStatus) IsRed() bool {
	return containsAny(r.Label, "Red", "Strained") || r.Category == RecoveryRed
}

// RecoveryInput is what the recovery policy and its enhancement see.
type RecoveryInput struct {
	RecoveryScore *float64          `json:"recovery_score,omitempty"`
	Modifier      IntensityModifier `json:"intensity_modifier"`
	HRV           DeviationResult   `json:"hrv"`
	RHR           DeviationResult   `json:"rhr"`
	SleepHours    *float64          `json:"sleep_hours,omitempty"`
}

// AssessRecovery classifies recovery, preferring a well-formed enhancement.
func AssessRecovery(ctx context.Context, e Enhancer, in RecoveryInput, logger zerolog.Logger) RecoveryStatus {
	valid := func(r RecoveryStatus) bool {
		_, known := recoveryLabels[r.Category]
		return known
	}
	if out, ok := tryEnhance(ctx, e, KindRecovery, in, valid, logger); ok {
		if out.Label == "" {
			out.Label = recoveryLabels[out.Category]
		}
		out.Score = in.RecoveryScore
		out.Source = SourceEnhanced
		return out
	}
	return RecoveryPolicy(in)
}

// RecoveryPolicy is the deterministic recovery classification.
func RecoveryPolicy(in RecoveryInput) RecoveryStatus {
	status := RecoveryStatus{Score: in.RecoveryScore, Source: SourceRule}

	switch {
	case in.RecoveryScore != nil:
		score := *in.RecoveryScore
		switch {
		case score >= 67:
			status.Category = RecoveryGreen
		case score >= 34:
			status.Category = RecoveryYellow
		default:
			status.Category = RecoveryRed
		}
		status.Reason = fmt.Sprintf("recovery score %.0f%%", score)
	case in.Modifier.Confidence != ConfidenceLow:
		m := in.Modifier.Modifier
		switch {
		case m >= 0.95:
			status.Category = RecoveryGreen
		case m >= 0.85:
			status.Category = RecoveryYellow
		default:
			status.Category = RecoveryRed
		}
		status.Reason = fmt.Sprintf("HRV/RHR intensity modifier %.2f", m)
	default:
		status.Category = RecoveryYellow
		status.Reason = "no recovery data; assuming partial recovery"
	}

	status.Label = recoveryLabels[status.Category]
	return status
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
