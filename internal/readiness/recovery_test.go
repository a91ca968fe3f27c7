package readiness

import (
	"context"
	"testing"
)

func TestRecoveryPolicy(t *testing.T) {
	high := IntensityModifier{Modifier: 0.98, Confidence: ConfidenceHigh}
	mid := IntensityModifier{Modifier: 0.88, Confidence: ConfidenceMedium}
	low := IntensityModifier{Modifier: 0.75, Confidence: ConfidenceHigh}
	none := IntensityModifier{Modifier: 1.0, Confidence: ConfidenceLow}

	tests := []struct {
		name     string
		in       RecoveryInput
		category string
	}{
		{"score green", RecoveryInput{RecoveryScore: floatPtr(67), Modifier: low}, RecoveryGreen},
		{"score yellow", RecoveryInput{RecoveryScore: floatPtr(34)}, RecoveryYellow},
		{"score red", RecoveryInput{RecoveryScore: floatPtr(33), Modifier: high}, RecoveryRed},
		{"modifier green", RecoveryInput{Modifier: high}, RecoveryGreen},
		{"modifier yellow", RecoveryInput{Modifier: mid}, RecoveryYellow},
		{"modifier red", RecoveryInput{Modifier: low}, RecoveryRed},
		{"no data", RecoveryInput{Modifier: none}, RecoveryYellow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecoveryPolicy(tt.in)
			if got.Category != tt.category {
				t.Fatalf("category = %s, want %s", got.Category, tt.category)
			}
			if got.Label != recoveryLabels[tt.category] || got.Reason == "" {
				t.Fatalf("unexpected status %+v", got)
			}
		})
	}
}

func TestAssessRecoveryEnhancement(t *testing.T) {
	ctx := context.Background()
	in := RecoveryInput{RecoveryScore: floatPtr(20)}

	e := &stubEnhancer{payloads: map[string]string{KindRecovery: `{"category":"Yellow","reason":"travel fatigue"}`}}
	got := AssessRecovery(ctx, e, in, testLogger())
	if got.Category != RecoveryYellow || got.Label != "Yellow (Recovering)" || got.Source != SourceEnhanced {
		t.Fatalf("enhanced recovery = %+v", got)
	}
	if got.Score == nil || *got.Score != 20 {
		t.Fatalf("score should be carried from input: %+v", got.Score)
	}

	tests := map[string]*stubEnhancer{
		"unknown category": {payloads: map[string]string{KindRecovery: `{"category":"Purple"}`}},
		"malformed":        {payloads: map[string]string{KindRecovery: `not json`}},
		"declined":         {payloads: map[string]string{KindRecovery: `null`}},
		"error":            {err: errEnhance},
	}
	for name, e := range tests {
		t.Run(name, func(t *testing.T) {
			got := AssessRecovery(ctx, e, in, testLogger())
			if got.Category != RecoveryRed || got.Source != SourceRule {
				t.Fatalf("expected rule fallback, got %+v", got)
			}
		})
	}

	if got := AssessRecovery(ctx, nil, in, testLogger()); got.Source != SourceRule {
		t.Fatalf("nil enhancer: %+v", got)
	}
}
