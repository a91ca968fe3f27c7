package readiness

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Enhancement kinds understood by an Enhancer.
const (
	KindRecovery    = "recovery"
	KindTrainingGap = "training_gap"
	KindPhase       = "phase"
)

// Enhancer is an optional first-choice source for a decision. It receives
// the same facts the rule-based policy sees and returns JSON shaped like the
// policy's result, or nil to decline.
type Enhancer interface {
	Assess(ctx context.Context, kind string, input any) (json.RawMessage, error)
}

// tryEnhance asks the enhancer for a decision of the given kind and decodes
// it into T. Any failure, including a result rejected by valid, is logged
// and reported as declined so the caller applies its fixed rule.
func tryEnhance[T any](ctx context.Context, e Enhancer, kind string, input any, valid func(T) bool, logger zerolog.Logger) (T, bool) {
	var zero T
	if e == nil {
		return zero, false
	}

	raw, err := e.Assess(ctx, kind, input)
	if err != nil {
		logger.Warn().Err(err).Str("kind", kind).Msg("enhancement failed; using rule")
		return zero, false
	}
	if len(raw) == 0 || string(raw) == "null" {
		logger.Debug().Str("kind", kind).Msg("enhancement declined; using rule")
		return zero, false
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warn().Err(err).Str("kind", kind).Msg("enhancement returned malformed result; using rule")
		return zero, false
	}
	if valid != nil && !valid(out) {
		logger.Warn().Str("kind", kind).RawJSON("result", raw).Msg("enhancement result rejected; using rule")
		return zero, false
	}
	return out, true
}
