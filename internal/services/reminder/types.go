package reminder

import (
	"context"
	"time"
)

// Booking is the candidate record shape the orchestrator filters. Sourced
// externally (see BookingSource); only the fields relevant to scheduling and
// message formatting are carried.
type Booking struct {
	ID         string
	TenantName string
	RoomName   string
	Contact    string
	Status     string
	ExpiryDate time.Time
}

// Booking statuses eligible for reminders.
const (
	StatusActive   = "active"
	StatusApproved = "approved"
)

// BookingSource supplies the current candidate set. A failed fetch is a
// per-tick recoverable error: the tick processes zero candidates.
type BookingSource interface {
	FetchCandidates(ctx context.Context) ([]Booking, error)
}

// Window is one reminder class: "send Days before expiry".
type Window struct {
	Class string
	Days  int
}

// The two checks the orchestrator registers. Class names feed the reminder
// key ("h15-<bookingID>") and the per-class counters.
var (
	WindowH15 = Window{Class: "h15", Days: 15}
	WindowH1  = Window{Class: "h1", Days: 1}
)

// Config controls schedules and filtering.
type Config struct {
	// H15Schedule / H1Schedule / ResetSchedule use the scheduler grammar.
	// Defaults: "daily 09:00", "daily 09:30", "midnight".
	H15Schedule   string
	H1Schedule    string
	ResetSchedule string

	// Tolerance widens the match window around the target date. Default 24h.
	Tolerance time.Duration

	// DetailCap bounds the free-text failure details kept in stats. Default 50.
	DetailCap int
}

func (c Config) withDefaults() Config {
	if c.H15Schedule == "" {
		c.H15Schedule = "daily 09:00"
	}
	if c.H1Schedule == "" {
		c.H1Schedule = "daily 09:30"
	}
	if c.ResetSchedule == "" {
		c.ResetSchedule = "midnight"
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 24 * time.Hour
	}
	if c.DetailCap <= 0 {
		c.DetailCap = 50
	}
	return c
}

// Job names registered with the scheduler.
const (
	JobH15   = "reminder.h15"
	JobH1    = "reminder.h1"
	JobReset = "reminder.reset"
)

// Stats aggregates per-reset-period counters. Reset together with the
// sent-key set by the daily reset job.
type Stats struct {
	CountByClass map[string]int
	Successful   int
	Failed       int
	Details      []string
}

func newStats() Stats {
	return Stats{CountByClass: map[string]int{}}
}

// Summary is the diffed result of a combined manual check.
type Summary struct {
	NewByClass    map[string]int
	NewSuccessful int
	NewFailed     int
	Duration      time.Duration
}
