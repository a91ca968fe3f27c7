package readiness

import (
	"math"
	"testing"
)

func TestDeviate(t *testing.T) {
	hrv := MetricBaseline{Mean30d: floatPtr(50), StdDev30d: floatPtr(10)}
	rhr := MetricBaseline{Mean30d: floatPtr(55), StdDev30d: floatPtr(5)}

	tests := []struct {
		name    string
		current float64
		base    MetricBaseline
		metric  Metric
		z       float64
		status  string
	}{
		{"hrv normal", 52, hrv, MetricHRV, 0.2, StatusNormal},
		{"hrv elevated", 65, hrv, MetricHRV, 1.5, StatusElevated},
		{"hrv above", 56, hrv, MetricHRV, 0.6, StatusAboveBaseline},
		{"hrv below", 40, hrv, MetricHRV, -1, StatusBelowBaseline},
		{"hrv suppressed", 30, hrv, MetricHRV, -2, StatusSuppressed},
		{"rhr above", 60, rhr, MetricRHR, 1, StatusAboveBaseline},
		{"rhr elevated", 65, rhr, MetricRHR, 2, StatusElevated},
		{"rhr below", 50, rhr, MetricRHR, -1, StatusBelowBaseline},
		{"rhr excellent", 45, rhr, MetricRHR, -2, StatusExcellent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Deviate(floatPtr(tt.current), tt.base, tt.metric)
			if !got.Available {
				t.Fatal("expected available result")
			}
			if math.Abs(got.ZScore-tt.z) > 1e-9 {
				t.Fatalf("z = %v, want %v", got.ZScore, tt.z)
			}
			if got.Status != tt.status {
				t.Fatalf("status = %s, want %s", got.Status, tt.status)
			}
			if got.Interpretation == "" {
				t.Fatal("missing interpretation")
			}
		})
	}
}

func TestDeviateRHRSignIsRaw(t *testing.T) {
	rhr := MetricBaseline{Mean30d: floatPtr(55), StdDev30d: floatPtr(5)}
	got := Deviate(floatPtr(60), rhr, MetricRHR)
	if got.ZScore <= 0 || got.Deviation != 5 {
		t.Fatalf("higher RHR must yield positive deviation and z, got %+v", got)
	}
	if math.Abs(got.DeviationPercent-5.0/55*100) > 1e-9 {
		t.Fatalf("deviation percent = %v", got.DeviationPercent)
	}
}

func TestDeviateUnavailable(t *testing.T) {
	base := MetricBaseline{Mean30d: floatPtr(50), StdDev30d: floatPtr(5)}
	if got := Deviate(nil, base, MetricHRV); got.Available || got.Status != StatusUnavailable || got.ZScorePtr() != nil {
		t.Fatalf("nil current: %+v", got)
	}
	if got := Deviate(floatPtr(50), MetricBaseline{}, MetricHRV); got.Available {
		t.Fatalf("missing baseline: %+v", got)
	}
}

func TestDeviateZeroSpreadUsesFallback(t *testing.T) {
	base := MetricBaseline{Mean30d: floatPtr(50), StdDev30d: floatPtr(0)}
	got := Deviate(floatPtr(45), base, MetricHRV)
	if math.Abs(got.ZScore+1) > 1e-9 {
		t.Fatalf("z = %v, want -1", got.ZScore)
	}
}
