package scheduler

import (
	"context"
	"sync"
	"time"
)

// Config controls the scheduler service.
type Config struct {
	// TickInterval is the polling granularity. Jobs fire within one tick
	// after their due time. Default: 1 minute.
	TickInterval time.Duration
	// Timezone is an IANA name, e.g. "Asia/Jakarta". Empty means local time.
	Timezone string
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	return c
}

// Handler is a job body. Errors are counted, logged and swallowed; they never
// stop the polling loop or other jobs.
type Handler func(ctx context.Context) error

// runState serializes executions of one job across ticks and manual runs.
type runState struct {
	mu sync.Mutex
}

type job struct {
	name    string
	spec    Spec
	handler Handler
	state   *runState

	active     bool
	lastRun    time.Time
	nextRun    time.Time
	runCount   int
	errorCount int
}

// RunResult reports a single execution (scheduled or manual).
type RunResult struct {
	OK       bool
	Error    string
	Duration time.Duration
}

// JobInfo is the observable state of one registered job.
type JobInfo struct {
	Name       string
	Spec       string
	Active     bool
	LastRun    time.Time
	NextRun    time.Time
	RunCount   int
	ErrorCount int
}

// Snapshot is a non-mutating view of the whole scheduler.
type Snapshot struct {
	Initialized bool
	Total       int
	Active      int
	Paused      int
	Jobs        []JobInfo
}

// JobEvent is published on the eventbus after each execution.
type JobEvent struct {
	Name     string
	Started  time.Time
	Duration time.Duration
	Manual   bool
	Error    string
}
