package readiness

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Periodization phases.
const (
	PhaseBase      = "Base"
	PhaseBuild     = "Build"
	PhaseSpecialty = "Specialty"
	PhaseTaper     = "Taper"
	PhaseRaceWeek  = "Race Week"
)

var phaseFocus = map[string]string{
	PhaseBase:      "Aerobic endurance, Zone 2 volume, technique and strength foundation",
	PhaseBuild:     "Threshold and VO2max development while extending long sessions",
	PhaseSpecialty: "Race-specific intensity and pacing, simulate event demands",
	PhaseTaper:     "Reduce volume, keep short race-pace efforts, arrive fresh",
	PhaseRaceWeek:  "Openers only, sleep and fuelling, trust the training",
}

// Phase is the periodization window keyed off weeks to the goal.
type Phase struct {
	Name     string  `json:"phase_name"`
	WeeksOut float64 `json:"weeks_out"`
	Focus    string  `json:"focus"`
	Source   string  `json:"source"`
}

// WeeksOut counts weeks until goal, rounding partial weeks up. Past goals
// yield zero or negative values.
func WeeksOut(goal, today time.Time) int {
	days := daysBetween(today, goal)
	return int(math.Ceil(float64(days) / 7))
}

// PhaseFromWeeksOut buckets weeks to goal into a phase. Lower bounds are
// inclusive: 16 is Base, 8 is Build, 3 is Specialty, 1 is Taper.
func PhaseFromWeeksOut(weeksOut float64) Phase {
	var name string
	switch {
	case weeksOut >= 16:
		name = PhaseBase
	case weeksOut >= 8:
		name = PhaseBuild
	case weeksOut >= 3:
		name = PhaseSpecialty
	case weeksOut >= 1:
		name = PhaseTaper
	default:
		name = PhaseRaceWeek
	}
	return Phase{Name: name, WeeksOut: weeksOut, Focus: phaseFocus[name], Source: SourceRule}
}

// PhaseInput is what the phase policy and its enhancement see.
type PhaseInput struct {
	WeeksOut float64         `json:"weeks_out"`
	Goal     Goal            `json:"goal"`
	Fitness  *FitnessMetrics `json:"fitness,omitempty"`
}

// DeterminePhase lets an enhancement refine the phase and focus; the name
// must still be one of the known phases.
func DeterminePhase(ctx context.Context, e Enhancer, in PhaseInput, logger zerolog.Logger) Phase {
	valid := func(p Phase) bool {
		_, known := phaseFocus[p.Name]
		return known
	}
	if out, ok := tryEnhance(ctx, e, KindPhase, in, valid, logger); ok {
		out.WeeksOut = in.WeeksOut
		if out.Focus == "" {
			out.Focus = phaseFocus[out.Name]
		}
		out.Source = SourceEnhanced
		return out
	}
	return PhaseFromWeeksOut(in.WeeksOut)
}
