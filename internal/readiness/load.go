package readiness

import (
	"fmt"
	"math"
	"strings"
)

// Ramp-rate classifications.
const (
	RampRecover    = "recover"
	RampMaintain   = "maintain"
	RampBuild      = "build"
	RampAggressive = "aggressive"
	RampUnsafe     = "unsafe"
)

// Fixed ramp constants in CTL points per week.
const (
	SafeRampMin       = 3.0
	SafeRampMax       = 5.0
	AggressiveCeiling = 7.0
	UnsafeRamp        = 8.0

	taperWeeks       = 2.0
	recoverRamp      = -3.0
	deepFatigueTSB   = -25.0
	lowRecoveryScore = 50.0

	// ctlDaysPerWeek is the 42-day CTL time constant expressed in weeks.
	ctlDaysPerWeek = 42.0 / 7.0
)

var phaseRamp = map[string]float64{
	PhaseBase:      4,
	PhaseBuild:     SafeRampMax,
	PhaseSpecialty: SafeRampMin,
	PhaseTaper:     recoverRamp,
	PhaseRaceWeek:  recoverRamp,
}

// Range is an inclusive min/max pair.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LoadAdvice is the weekly load target derived from current fitness.
type LoadAdvice struct {
	CurrentCTL           float64 `json:"current_ctl"`
	TargetCTL            float64 `json:"target_ctl"`
	WeeksToGoal          float64 `json:"weeks_to_goal"`
	RequiredRampRate     float64 `json:"required_ramp_rate"`
	RecommendedWeeklyTSS float64 `json:"recommended_weekly_tss"`
	TSSRange             Range   `json:"tss_range"`
	DailyTSSRange        Range   `json:"daily_tss_range"`
	RampRateAdvice       string  `json:"ramp_rate_advice"`
	LoadAdvice           string  `json:"load_advice"`
	Warning              string  `json:"warning,omitempty"`
}

// LoadInput carries current fitness and goal context.
type LoadInput struct {
	Fitness  FitnessMetrics
	WeeksOut float64
	Phase    string
	// GoalCTL is the CTL the athlete wants on goal day. Zero derives the
	// target from the phase's default ramp.
	GoalCTL float64
	// RecoveryAverage is the recent mean recovery score, if known.
	RecoveryAverage *float64
}

// AdviseLoad derives the CTL trajectory and weekly TSS targets.
// RecommendedWeeklyTSS holds CTL on next week's step (current CTL plus the
// applied ramp), not on TargetCTL, so the two differ whenever the goal is
// more than a week away.
func AdviseLoad(in LoadInput) LoadAdvice {
	ctl := in.Fitness.CTL
	buildWeeks := math.Max(in.WeeksOut-taperWeeks, 0)

	required := phaseRamp[in.Phase]
	target := ctl + required*buildWeeks
	if in.GoalCTL > 0 && buildWeeks >= 1 {
		required = (in.GoalCTL - ctl) / buildWeeks
		target = in.GoalCTL
	}
	if in.Phase == PhaseTaper || in.Phase == PhaseRaceWeek {
		target = ctl
	}

	advice := LoadAdvice{
		CurrentCTL:       round2(ctl),
		TargetCTL:        math.Round(math.Max(target, 0)),
		WeeksToGoal:      in.WeeksOut,
		RequiredRampRate: round2(required),
	}

	var applied float64
	var notes, warnings []string
	switch {
	case in.Phase == PhaseTaper || in.Phase == PhaseRaceWeek:
		advice.RampRateAdvice = RampRecover
		applied = recoverRamp
		notes = append(notes, "Taper: let CTL drift down while TSB rises towards race day")
	case in.Fitness.TSB < deepFatigueTSB:
		advice.RampRateAdvice = RampRecover
		applied = recoverRamp
		notes = append(notes, "Deep fatigue: absorb recent load before building again")
	case required <= 0.5:
		advice.RampRateAdvice = RampMaintain
		notes = append(notes, "Fitness is on track: hold CTL steady")
	case required <= SafeRampMax:
		advice.RampRateAdvice = RampBuild
		applied = required
		notes = append(notes, fmt.Sprintf("Build CTL by about %.1f per week", required))
	case required <= UnsafeRamp:
		advice.RampRateAdvice = RampAggressive
		applied = math.Min(required, AggressiveCeiling)
		notes = append(notes, fmt.Sprintf("Aggressive build of %.1f CTL per week; prioritise sleep and fuelling", applied))
	default:
		advice.RampRateAdvice = RampUnsafe
		applied = SafeRampMax
		notes = append(notes, fmt.Sprintf("Goal needs %.1f CTL per week; capping at %.0f", required, SafeRampMax))
	}

	if applied > 0 && in.RecoveryAverage != nil && *in.RecoveryAverage < lowRecoveryScore {
		applied /= 2
		notes = append(notes, fmt.Sprintf("Recent recovery averages %.0f%%: ramp halved", *in.RecoveryAverage))
	}

	if in.Fitness.TSB < deepFatigueTSB {
		warnings = append(warnings, fmt.Sprintf("TSB %.0f is below %.0f: high injury and illness risk", in.Fitness.TSB, deepFatigueTSB))
	}
	if required > AggressiveCeiling {
		warnings = append(warnings, fmt.Sprintf("required ramp %.1f CTL/week exceeds the aggressive ceiling of %.0f", required, AggressiveCeiling))
	}
	if in.Fitness.RampRate > UnsafeRamp {
		warnings = append(warnings, fmt.Sprintf("current ramp rate %.1f CTL/week is unsafe", in.Fitness.RampRate))
	}

	daily := math.Max(ctl+applied*ctlDaysPerWeek, 0)
	weekly := daily * 7
	advice.RecommendedWeeklyTSS = math.Round(weekly)
	advice.TSSRange = Range{Min: math.Round(weekly * 0.9), Max: math.Round(weekly * 1.1)}
	advice.DailyTSSRange = Range{Min: math.Round(daily * 0.9), Max: math.Round(daily * 1.1)}
	advice.LoadAdvice = strings.Join(notes, ". ")
	advice.Warning = strings.Join(warnings, "; ")
	return advice
}
