package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestParseSpecGrammar(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw      string
		wantCron string
		wantErr  bool
	}{
		{"hourly", "0 * * * *", false},
		{"midnight", "0 0 * * *", false},
		{"daily 09:00", "0 9 * * *", false},
		{"daily 23:59", "59 23 * * *", false},
		{"DAILY 09:00", "0 9 * * *", false},
		{"  daily 09:00  ", "0 9 * * *", false},
		{"every 5m", "*/5 * * * *", false},
		{"every 15 minutes", "*/15 * * * *", false},
		{"every 60m", "0 * * * *", false},
		{"weekly monday 09:00", "0 9 * * 1", false},
		{"weekly sun 00:30", "30 0 * * 0", false},

		{"", "", true},
		{"daily", "", true},
		{"daily 24:00", "", true},
		{"daily 09:60", "", true},
		{"daily 0900", "", true},
		{"every 7m", "", true}, // 7 does not divide 60
		{"every 0m", "", true},
		{"every 90m", "", true},
		{"weekly funday 09:00", "", true},
		{"weekly monday", "", true},
		{"yearly", "", true},
		{"* * * * *", "", true}, // raw cron is not part of the grammar
	}

	for _, tc := range cases {
		sp, err := ParseSpec(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseSpec(%q): expected error, got %q", tc.raw, sp.Cron)
			} else if !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("ParseSpec(%q): error is not ErrInvalidSchedule: %v", tc.raw, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSpec(%q): %v", tc.raw, err)
			continue
		}
		if sp.Cron != tc.wantCron {
			t.Errorf("ParseSpec(%q): cron = %q, want %q", tc.raw, sp.Cron, tc.wantCron)
		}
	}
}

func TestSpecNextSkipsPastActivation(t *testing.T) {
	t.Parallel()

	sp, err := ParseSpec("daily 09:00")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}

	// Five minutes past today's activation: next run must be tomorrow.
	at := time.Date(2026, 3, 10, 9, 5, 0, 0, time.UTC)
	next := sp.Next(at)
	want := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", at, next, want)
	}

	// A minute before the activation: next run is today.
	at = time.Date(2026, 3, 10, 8, 59, 0, 0, time.UTC)
	next = sp.Next(at)
	want = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", at, next, want)
	}
}

func TestSpecNextWeekly(t *testing.T) {
	t.Parallel()

	sp, err := ParseSpec("weekly friday 18:00")
	if err != nil {
		t.Fatalf("ParseSpec: %v", err)
	}
	// 2026-03-10 is a Tuesday.
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	next := sp.Next(at)
	want := time.Date(2026, 3, 13, 18, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("Next(%v) = %v, want %v", at, next, want)
	}
}
