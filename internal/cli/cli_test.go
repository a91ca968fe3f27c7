package cli

import (
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2026-03-20", want: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)},
		{in: "2026-03-20T06:30:00Z", want: time.Date(2026, 3, 20, 6, 30, 0, 0, time.UTC)},
		{in: "20/03/2026", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseDay("day", tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDay(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || !got.Equal(tt.want) {
			t.Errorf("parseDay(%q) = %s, %v", tt.in, got, err)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "decide", "backfill", "show", "baseline", "export", "simulate-alert", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
