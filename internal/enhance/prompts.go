package enhance

import "adaptive-coach/internal/readiness"

const preamble = "You are an endurance coach reviewing one athlete's data for today. " +
	"Answer with a single JSON object and nothing else. Answer null if the facts are not enough to improve on the rule result."

var instructions = map[string]string{
	readiness.KindRecovery: preamble + `
Classify today's recovery. Respond as {"category": "Green"|"Yellow"|"Red", "label": string, "reason": string}.
Green means primed for hard work, Yellow partially recovered, Red strained.`,

	readiness.KindTrainingGap: preamble + `
The athlete has not ridden or run for gap_days days. Explain the break and how to return.
Respond as {"interpretation": string, "intensity_modifier": number between 0.5 and 1.05,
"recommendation": string, "reasoning": [string]}.`,

	readiness.KindPhase: preamble + `
Choose the periodization phase for the goal event. Respond as {"phase_name": "Base"|"Build"|"Specialty"|"Taper"|"Race Week",
"focus": string}.`,
}
