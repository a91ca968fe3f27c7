package readiness

import (
	"math"
	"testing"
	"time"
)

func TestComputeFitnessDecay(t *testing.T) {
	loads := []DailyLoad{
		{Date: refDay.AddDate(0, 0, -3), Load: 100},
		{Date: refDay.AddDate(0, 0, -1), Load: 100},
	}
	metrics := ComputeFitness(loads, refDay)
	if len(metrics) != 4 {
		t.Fatalf("got %d days, want 4 with gaps filled", len(metrics))
	}

	first := metrics[0]
	if math.Abs(first.CTL-100.0/42) > 1e-9 || math.Abs(first.ATL-100.0/7) > 1e-9 {
		t.Fatalf("first day = %+v", first)
	}
	if math.Abs(first.TSB-(first.CTL-first.ATL)) > 1e-9 {
		t.Fatalf("TSB must equal CTL-ATL")
	}
	if metrics[1].CTL >= first.CTL {
		t.Fatalf("rest day should decay CTL: %v -> %v", first.CTL, metrics[1].CTL)
	}
	if !metrics[3].Date.Equal(refDay) {
		t.Fatalf("last day = %v, want %v", metrics[3].Date, refDay)
	}
}

func TestComputeFitnessRampRate(t *testing.T) {
	var loads []DailyLoad
	for i := 0; i < 14; i++ {
		loads = append(loads, DailyLoad{Date: refDay.AddDate(0, 0, -13+i), Load: 80})
	}
	metrics := ComputeFitness(loads, refDay)
	for i := 0; i < 7; i++ {
		if metrics[i].RampRate != 0 {
			t.Fatalf("ramp rate before a full week should be zero, day %d = %v", i, metrics[i].RampRate)
		}
	}
	last := metrics[len(metrics)-1]
	if want := last.CTL - metrics[len(metrics)-8].CTL; math.Abs(last.RampRate-want) > 1e-9 || last.RampRate <= 0 {
		t.Fatalf("ramp rate = %v, want %v", last.RampRate, want)
	}
}

func TestCurrentFitness(t *testing.T) {
	if CurrentFitness(nil, refDay) != nil {
		t.Fatal("no activities should yield nil")
	}
	acts := []Activity{
		{Type: "Ride", StartDate: refDay.AddDate(0, 0, -2).Add(9 * time.Hour), TrainingLoad: 60},
		{Type: "Run", StartDate: refDay.AddDate(0, 0, -2).Add(17 * time.Hour), TrainingLoad: 40},
	}
	got := CurrentFitness(acts, refDay)
	if got == nil || !got.Date.Equal(refDay) {
		t.Fatalf("current fitness = %+v", got)
	}

	loads := DailyLoads(acts)
	if len(loads) != 1 || loads[0].Load != 100 {
		t.Fatalf("daily loads = %+v", loads)
	}
}

func TestFormDescription(t *testing.T) {
	if FormDescription(30) != "Very fresh (possibly detrained)" {
		t.Fatal("tsb 30")
	}
	if FormDescription(-30) != "Very fatigued - rest needed" {
		t.Fatal("tsb -30")
	}
}
