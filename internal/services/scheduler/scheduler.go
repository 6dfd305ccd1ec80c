package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"kostbot/internal/eventbus"
	logx "kostbot/pkg/logx"
)

type Service struct {
	mu sync.Mutex

	cfg Config
	log logx.Logger
	bus eventbus.Bus
	loc *time.Location

	jobs        map[string]*job
	initialized bool

	runCtx    context.Context
	runCancel context.CancelFunc
	stopCh    chan struct{}
	wg        sync.WaitGroup

	// now is swappable in tests for deterministic due-time checks.
	now func() time.Time
}

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	return &Service{
		cfg:  cfg,
		log:  log,
		bus:  bus,
		loc:  loadLocation(cfg.Timezone, log),
		jobs: map[string]*job{},
		now:  time.Now,
	}
}

func loadLocation(tz string, log logx.Logger) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// Init marks the scheduler ready and starts the polling loop. Calling it
// again is a no-op.
func (s *Service) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		s.log.Info("scheduler already initialized; ignoring")
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.initialized = true
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.stopCh = make(chan struct{})

	runCtx := s.runCtx
	stopCh := s.stopCh
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pollLoop(runCtx, stopCh)
	}()
	s.log.Info("scheduler started",
		logx.Duration("tick", s.cfg.TickInterval),
		logx.String("tz", s.loc.String()))
}

// Schedule registers (or replaces) a named job. The previous registration
// under the same name is discarded first, so exactly one job per name is
// ever live.
func (s *Service) Schedule(name, rawSpec string, handler Handler) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("job name required")
	}
	if handler == nil {
		return errors.New("job handler required")
	}
	spec, err := ParseSpec(rawSpec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		s.log.Debug("replacing existing job", logx.String("job", name))
	}
	next := spec.Next(s.now().In(s.loc))
	s.jobs[name] = &job{
		name:    name,
		spec:    spec,
		handler: handler,
		state:   &runState{},
		active:  true,
		nextRun: next,
	}
	s.log.Info("job scheduled",
		logx.String("job", name),
		logx.String("spec", spec.Raw),
		logx.String("cron", spec.Cron),
		logx.Time("next_run", next))
	return nil
}

// RunManually executes the named job immediately, outside its schedule.
// Counters and lastRun are updated; nextRun is left untouched.
func (s *Service) RunManually(ctx context.Context, name string) (RunResult, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		res := RunResult{OK: false, Error: fmt.Sprintf("job %s not found", name)}
		return res, fmt.Errorf("job %q: %w", name, ErrJobNotFound)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.execute(ctx, j, true), nil
}

// Pause keeps the job registered but skips it on due ticks.
func (s *Service) Pause(name string) error {
	return s.setActive(name, false)
}

// Resume re-enables a paused job. It fires on its next due tick, not
// retroactively for ticks it missed.
func (s *Service) Resume(name string) error {
	return s.setActive(name, true)
}

func (s *Service) setActive(name string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("job %q: %w", name, ErrJobNotFound)
	}
	j.active = active
	s.log.Info("job state changed", logx.String("job", name), logx.Bool("active", active))
	return nil
}

// Unschedule removes the job. A handler already in flight completes; it can
// no longer be observed or rescheduled afterwards.
func (s *Service) Unschedule(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; !ok {
		return false
	}
	delete(s.jobs, name)
	s.log.Info("job unscheduled", logx.String("job", name))
	return true
}

// StopAll stops the polling loop, clears every job and marks the scheduler
// uninitialized.
func (s *Service) StopAll(ctx context.Context) {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return
	}
	s.initialized = false
	stopCh := s.stopCh
	cancel := s.runCancel
	s.stopCh = nil
	s.runCancel = nil
	s.runCtx = nil
	s.jobs = map[string]*job{}
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// Snapshot returns all jobs plus a count summary.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Initialized: s.initialized, Total: len(s.jobs)}
	for _, j := range s.jobs {
		if j.active {
			snap.Active++
		} else {
			snap.Paused++
		}
		snap.Jobs = append(snap.Jobs, JobInfo{
			Name:       j.name,
			Spec:       j.spec.Raw,
			Active:     j.active,
			LastRun:    j.lastRun,
			NextRun:    j.nextRun,
			RunCount:   j.runCount,
			ErrorCount: j.errorCount,
		})
	}
	sort.Slice(snap.Jobs, func(i, k int) bool { return snap.Jobs[i].Name < snap.Jobs[k].Name })
	return snap
}

func (s *Service) pollLoop(ctx context.Context, stopCh <-chan struct{}) {
	s.mu.Lock()
	tick := s.cfg.TickInterval
	s.mu.Unlock()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs every due job sequentially, in name order so no job starves.
func (s *Service) tick(ctx context.Context) {
	now := s.now().In(s.loc)

	s.mu.Lock()
	due := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if !j.active || j.nextRun.IsZero() {
			continue
		}
		if !now.Before(j.nextRun) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()
	if len(due) == 0 {
		return
	}
	sort.Slice(due, func(i, k int) bool { return due[i].name < due[k].name })

	for _, j := range due {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.execute(ctx, j, false)
	}
}

// execute runs one job under its per-job lock so a job never overlaps
// itself, whether triggered by the poller or manually.
func (s *Service) execute(ctx context.Context, j *job, manual bool) RunResult {
	j.state.mu.Lock()
	defer j.state.mu.Unlock()

	start := s.now()
	err := runHandler(ctx, j.handler)
	dur := time.Since(start)

	s.mu.Lock()
	// The job may have been replaced or unscheduled while running; only then
	// do we skip the bookkeeping, the execution itself is allowed to finish.
	if cur, ok := s.jobs[j.name]; ok && cur == j {
		j.lastRun = start
		if err != nil {
			j.errorCount++
		}
		j.runCount++
		if !manual {
			j.nextRun = j.spec.Next(s.now().In(s.loc))
		}
	}
	s.mu.Unlock()

	res := RunResult{OK: err == nil, Duration: dur}
	ev := JobEvent{Name: j.name, Started: start, Duration: dur, Manual: manual}
	if err != nil {
		res.Error = err.Error()
		ev.Error = err.Error()
		s.log.Warn("job failed", logx.String("job", j.name), logx.Duration("dur", dur), logx.Err(err))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeJobFailed, Data: ev})
		}
		return res
	}
	s.log.Debug("job completed", logx.String("job", j.name), logx.Duration("dur", dur), logx.Bool("manual", manual))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeJobFinished, Data: ev})
	}
	return res
}

// runHandler awaits the handler and converts panics into errors so one bad
// job cannot take down the poller.
func runHandler(ctx context.Context, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v\n%s", r, debug.Stack())
		}
	}()
	return h(ctx)
}
