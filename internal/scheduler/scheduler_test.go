package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: 24 * time.Hour, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2026, 3, 20, 13, 45, 0, 0, time.UTC)

	next := s.nextTick(now)
	if want := time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("next = %s, want %s", next, want)
	}
	if got := s.bucketStart(next.Add(3 * time.Second)); !got.Equal(next) {
		t.Fatalf("bucket = %s, want %s", got, next)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())
	now := time.Date(2026, 3, 20, 13, 45, 0, 0, time.UTC)
	if next := s.nextTick(now); !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("next = %s", next)
	}
}

func TestNextTickCron(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	schedule, err := ParseCron("30 6 * * *")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := New(Options{Schedule: schedule, Location: loc}, zerolog.Nop())

	now := time.Date(2026, 3, 20, 6, 0, 0, 0, time.UTC) // 07:00 Berlin
	next := s.nextTick(now)
	want := time.Date(2026, 3, 21, 6, 30, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("next = %s, want %s", next, want)
	}
	if got := s.bucketStart(next); got.Location() != loc {
		t.Fatalf("bucket location = %s", got.Location())
	}
}

func TestParseCronRejectsGarbage(t *testing.T) {
	if _, err := ParseCron("every morning"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx, func(context.Context, time.Time) error {
		t.Fatal("tick should not run")
		return nil
	})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunInvokesTick(t *testing.T) {
	s := New(Options{Interval: 20 * time.Millisecond}, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ticks := 0
	err := s.Run(ctx, func(context.Context, time.Time) error {
		ticks++
		if ticks == 2 {
			cancel()
		}
		return nil
	})
	if err != context.Canceled || ticks != 2 {
		t.Fatalf("err=%v ticks=%d", err, ticks)
	}
}
