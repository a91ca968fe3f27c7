package alerting

import (
	"github.com/shopspring/decimal"

	"adaptive-coach/internal/readiness"
)

// Evaluate turns a decision into the alerts it warrants: one for a likely or
// high illness pattern and one for a red recovery state.
func Evaluate(athlete string, d readiness.Decision, channels []string) []Notification {
	base := Notification{
		Athlete:       athlete,
		Day:           d.Date,
		FinalModifier: decimal.NewFromFloat(d.FinalModifier).Round(2),
		Recovery:      d.Recovery.Label,
		Illness:       d.Illness.Probability,
		Channels:      channels,
	}

	var out []Notification
	if readiness.IllnessRank(d.Illness.Probability) >= readiness.IllnessRank(readiness.IllnessLikely) {
		note := base
		note.Kind = KindIllness
		note.Severity = d.Illness.Probability
		note.Headline = d.Illness.Recommendation
		note.Symptoms = d.Illness.Symptoms
		note.Guidance = d.Illness.TrainingGuidance
		out = append(out, note)
	}
	if d.Recovery.IsRed() {
		note := base
		note.Kind = KindRecovery
		note.Severity = "red"
		note.Headline = "Recovery is " + d.Recovery.Label
		note.Guidance = d.Recovery.Reason
		out = append(out, note)
	}
	return out
}
