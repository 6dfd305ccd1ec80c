package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kostbot/internal/services/queue"
	"kostbot/internal/services/scheduler"
	logx "kostbot/pkg/logx"
)

// Service wires the expiry checks into the scheduler and feeds the delivery
// queue. All mutable state (sent keys, counters) sits behind one mutex so the
// two window checks can run concurrently.
type Service struct {
	mu sync.Mutex

	cfg   Config
	log   logx.Logger
	sched *scheduler.Service
	queue *queue.Service
	src   BookingSource

	initialized bool
	sent        map[string]struct{}
	stats       Stats

	// now is swappable in tests.
	now func() time.Time
}

func New(cfg Config, sched *scheduler.Service, q *queue.Service, src BookingSource, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   cfg.withDefaults(),
		log:   log,
		sched: sched,
		queue: q,
		src:   src,
		sent:  map[string]struct{}{},
		stats: newStats(),
		now:   time.Now,
	}
}

// Init registers the two window checks and the daily reset with the
// scheduler. Calling it again is a no-op.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		s.log.Info("reminder service already initialized; ignoring")
		return nil
	}
	s.initialized = true
	cfg := s.cfg
	s.mu.Unlock()

	type reg struct {
		name, spec string
		handler    scheduler.Handler
	}
	regs := []reg{
		{JobH15, cfg.H15Schedule, func(ctx context.Context) error { return s.checkWindow(ctx, WindowH15) }},
		{JobH1, cfg.H1Schedule, func(ctx context.Context) error { return s.checkWindow(ctx, WindowH1) }},
		{JobReset, cfg.ResetSchedule, func(ctx context.Context) error { s.Reset(); return nil }},
	}
	for _, r := range regs {
		if err := s.sched.Schedule(r.name, r.spec, r.handler); err != nil {
			return fmt.Errorf("register %s: %w", r.name, err)
		}
	}
	s.log.Info("reminder jobs registered",
		logx.String("h15", cfg.H15Schedule),
		logx.String("h1", cfg.H1Schedule),
		logx.String("reset", cfg.ResetSchedule))
	return nil
}

// checkWindow runs one reminder class end to end: fetch, filter, dedup,
// enqueue. A fetch failure aborts the whole tick with an error; per-booking
// problems only bump the failure counter and processing continues.
func (s *Service) checkWindow(ctx context.Context, w Window) error {
	bookings, err := s.src.FetchCandidates(ctx)
	if err != nil {
		s.log.Warn("candidate fetch failed", logx.String("class", w.Class), logx.Err(err))
		return fmt.Errorf("fetch candidates: %w", err)
	}

	now := s.now()
	target := now.AddDate(0, 0, w.Days)
	enqueued, skipped := 0, 0

	for _, b := range bookings {
		if !eligibleStatus(b.Status) {
			continue
		}
		if !withinTolerance(b.ExpiryDate, target, s.cfg.Tolerance) {
			continue
		}
		if strings.TrimSpace(b.Contact) == "" {
			s.recordFailure(w, fmt.Sprintf("booking %s (%s): no contact", b.ID, b.TenantName))
			continue
		}
		if !s.claim(w.Class + "-" + b.ID) {
			skipped++
			continue
		}
		id := s.queue.Enqueue(b.Contact, formatReminder(w, b))
		s.recordSuccess(w)
		s.log.Debug("reminder enqueued",
			logx.String("class", w.Class),
			logx.String("booking", b.ID),
			logx.String("item", id))
		enqueued++
	}

	s.log.Info("reminder check done",
		logx.String("class", w.Class),
		logx.Int("candidates", len(bookings)),
		logx.Int("enqueued", enqueued),
		logx.Int("deduped", skipped))
	return nil
}

// claim atomically tests and sets a reminder key. Marking before the enqueue
// means a concurrent run of the same class can never double-send; the enqueue
// itself cannot fail.
func (s *Service) claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.sent[key]; dup {
		return false
	}
	s.sent[key] = struct{}{}
	return true
}

func (s *Service) recordSuccess(w Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.CountByClass[w.Class]++
	s.stats.Successful++
}

func (s *Service) recordFailure(w Window, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Failed++
	if len(s.stats.Details) < s.cfg.DetailCap {
		s.stats.Details = append(s.stats.Details, w.Class+": "+detail)
	}
}

// CheckAndSendReminders runs both window checks concurrently, outside their
// schedules, and reports only what this invocation added.
func (s *Service) CheckAndSendReminders(ctx context.Context) (Summary, error) {
	start := time.Now()
	before := s.Snapshot()

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range []Window{WindowH15, WindowH1} {
		w := w
		g.Go(func() error { return s.checkWindow(gctx, w) })
	}
	err := g.Wait()

	after := s.Snapshot()
	sum := Summary{
		NewByClass:    map[string]int{},
		NewSuccessful: after.Successful - before.Successful,
		NewFailed:     after.Failed - before.Failed,
		Duration:      time.Since(start),
	}
	for class, n := range after.CountByClass {
		if d := n - before.CountByClass[class]; d > 0 {
			sum.NewByClass[class] = d
		}
	}
	s.log.Info("combined reminder check finished",
		logx.Int("new_sent", sum.NewSuccessful),
		logx.Int("new_failed", sum.NewFailed),
		logx.Duration("dur", sum.Duration))
	return sum, err
}

// Reset clears the sent-key set and zeroes the counters in one step. Runs
// daily via JobReset so tenants become eligible for the next day's reminders.
func (s *Service) Reset() {
	s.mu.Lock()
	prev := s.stats
	cleared := len(s.sent)
	s.sent = map[string]struct{}{}
	s.stats = newStats()
	now := s.now()
	s.mu.Unlock()

	s.log.Info("reminder state reset",
		logx.Int("keys_cleared", cleared),
		logx.String("note", formatResetNote(prev, now)))
}

// Snapshot returns a deep copy of the current counters.
func (s *Service) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Stats{
		CountByClass: make(map[string]int, len(s.stats.CountByClass)),
		Successful:   s.stats.Successful,
		Failed:       s.stats.Failed,
		Details:      append([]string(nil), s.stats.Details...),
	}
	for k, v := range s.stats.CountByClass {
		out.CountByClass[k] = v
	}
	return out
}

func eligibleStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusActive, StatusApproved:
		return true
	}
	return false
}

// withinTolerance reports whether expiry falls inside [target-tol, target+tol].
func withinTolerance(expiry, target time.Time, tol time.Duration) bool {
	d := expiry.Sub(target)
	if d < 0 {
		d = -d
	}
	return d <= tol
}
