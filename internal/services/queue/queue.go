package queue

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"kostbot/internal/eventbus"
	logx "kostbot/pkg/logx"
)

// Service is the single-consumer delivery queue.
//
// Enqueue never blocks the caller. The worker goroutine is lazy: it starts on
// the first enqueue into an idle queue and exits when the queue drains.
type Service struct {
	mu sync.Mutex

	cfg     Config
	log     logx.Logger
	bus     eventbus.Bus
	process ProcessFunc

	pending    []Item
	processing bool
	sent       uint64
	failed     uint64

	runCtx  context.Context
	stopCh  chan struct{}
	stopped bool
	wg      sync.WaitGroup

	rng *rand.Rand
}

func New(cfg Config, process ProcessFunc, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg.withDefaults(),
		log:     log,
		bus:     bus,
		process: process,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Apply updates pacing at runtime. In-flight sleeps keep their old duration.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg.withDefaults()
	s.mu.Unlock()
}

// Start makes the queue live. Items enqueued before Start are held; the
// worker is kicked here so they drain without waiting for another Enqueue.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.runCtx = ctx
	s.stopCh = make(chan struct{})
	s.stopped = false
	kick := len(s.pending) > 0 && !s.processing
	if kick {
		s.processing = true
		s.wg.Add(1)
	}
	s.log.Info("delivery queue started",
		logx.Duration("min_delay", s.cfg.MinDelay),
		logx.Duration("max_delay", s.cfg.MaxDelay),
		logx.Int("held", len(s.pending)))
	s.mu.Unlock()

	if kick {
		go s.drain()
	}
}

// Stop halts the worker between items. Pending items stay in memory; this is
// the process shutdown path, not a drain.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh == nil || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	remaining := len(s.pending)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info("delivery queue stopped", logx.Int("pending", remaining))
}

// Enqueue appends an outbound message and returns its id. It always succeeds;
// callers needing backpressure must apply it upstream.
func (s *Service) Enqueue(recipient, body string) string {
	it := Item{
		ID:         uuid.NewString(),
		Recipient:  recipient,
		Body:       body,
		EnqueuedAt: time.Now(),
	}

	s.mu.Lock()
	s.pending = append(s.pending, it)
	n := len(s.pending)
	kick := !s.processing && !s.stopped && s.stopCh != nil
	if kick {
		s.processing = true
		s.wg.Add(1)
	}
	s.mu.Unlock()

	s.log.Debug("message queued",
		logx.String("id", it.ID),
		logx.String("to", recipient),
		logx.Int("queue_len", n))

	if kick {
		go s.drain()
	}
	return it.ID
}

// Status returns a snapshot of the queue state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ItemCount:  len(s.pending),
		Processing: s.processing,
		Sent:       s.sent,
		Failed:     s.failed,
	}
	for i := 0; i < len(s.pending) && i < previewSize; i++ {
		it := s.pending[i]
		st.Preview = append(st.Preview, PreviewItem{ID: it.ID, Recipient: it.Recipient, EnqueuedAt: it.EnqueuedAt})
	}
	return st
}

func (s *Service) drain() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		if s.stopped || len(s.pending) == 0 {
			s.processing = false
			s.mu.Unlock()
			return
		}
		it := s.pending[0]
		cfg := s.cfg
		ctx := s.runCtx
		stopCh := s.stopCh
		s.mu.Unlock()

		began := time.Now()
		out := s.attempt(ctx, cfg, it)
		took := time.Since(began)

		s.mu.Lock()
		// Remove the head exactly once regardless of outcome.
		if len(s.pending) > 0 && s.pending[0].ID == it.ID {
			s.pending = s.pending[1:]
		}
		if out.Success {
			s.sent++
		} else {
			s.failed++
		}
		more := len(s.pending) > 0
		s.mu.Unlock()

		s.report(it, out, took)

		if !more {
			continue
		}
		if d := s.randomDelay(cfg); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-stopCh:
				if !t.Stop() {
					<-t.C
				}
			case <-ctx.Done():
				if !t.Stop() {
					<-t.C
				}
			}
		}
	}
}

// attempt invokes the delivery callback exactly once, bounded by SendTimeout.
// A panicking callback is treated the same as a reported failure.
func (s *Service) attempt(ctx context.Context, cfg Config, it Item) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in delivery callback",
				logx.String("id", it.ID),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
			out = Outcome{Success: false, Err: fmt.Errorf("delivery panic: %v", r)}
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	defer cancel()

	out = s.process(callCtx, it)
	if !out.Success && out.Err == nil && callCtx.Err() != nil {
		out.Err = callCtx.Err()
	}
	return out
}

func (s *Service) report(it Item, out Outcome, took time.Duration) {
	ev := DeliveryEvent{
		ItemID:    it.ID,
		Recipient: it.Recipient,
		At:        time.Now(),
		TookMS:    took.Milliseconds(),
	}
	if out.Success {
		s.log.Debug("message delivered", logx.String("id", it.ID), logx.String("to", it.Recipient))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeDeliverySent, Data: ev})
		}
		return
	}
	if out.Err != nil {
		ev.Error = out.Err.Error()
	}
	// No retry: log, count, move on.
	s.log.Warn("message delivery failed",
		logx.String("id", it.ID),
		logx.String("to", it.Recipient),
		logx.Err(out.Err))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeDeliveryFailed, Data: ev})
	}
}

func (s *Service) randomDelay(cfg Config) time.Duration {
	if cfg.MaxDelay <= cfg.MinDelay {
		return cfg.MinDelay
	}
	span := cfg.MaxDelay - cfg.MinDelay
	s.mu.Lock()
	j := s.rng.Int63n(int64(span) + 1)
	s.mu.Unlock()
	return cfg.MinDelay + time.Duration(j)
}
