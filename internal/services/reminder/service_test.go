package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"kostbot/internal/services/queue"
	"kostbot/internal/services/scheduler"
	logx "kostbot/pkg/logx"
)

type fakeSource struct {
	bookings []Booking
	err      error
}

func (f *fakeSource) FetchCandidates(context.Context) ([]Booking, error) {
	return f.bookings, f.err
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// newTestReminder builds a service over an unstarted queue: enqueued items
// stay pending, which makes them easy to count.
func newTestReminder(src BookingSource, cfg Config) (*Service, *queue.Service) {
	q := queue.New(queue.Config{}, func(context.Context, queue.Item) queue.Outcome {
		return queue.Outcome{Success: true}
	}, logx.Nop(), nil)
	sched := scheduler.New(scheduler.Config{Timezone: "UTC"}, logx.Nop(), nil)
	s := New(cfg, sched, q, src, logx.Nop())
	s.now = func() time.Time { return testNow }
	return s, q
}

func booking(id string, expiry time.Time) Booking {
	return Booking{
		ID:         id,
		TenantName: "Ani",
		RoomName:   "A-12",
		Contact:    "1001",
		Status:     StatusActive,
		ExpiryDate: expiry,
	}
}

func TestCheckWindowDedupsAcrossTicks(t *testing.T) {
	t.Parallel()

	src := &fakeSource{bookings: []Booking{booking("b1", testNow.AddDate(0, 0, 15))}}
	s, q := newTestReminder(src, Config{})

	if err := s.checkWindow(context.Background(), WindowH15); err != nil {
		t.Fatalf("checkWindow: %v", err)
	}
	if err := s.checkWindow(context.Background(), WindowH15); err != nil {
		t.Fatalf("checkWindow (second tick): %v", err)
	}

	st := s.Snapshot()
	if st.Successful != 1 || st.CountByClass["h15"] != 1 {
		t.Fatalf("dedup failed: %+v", st)
	}
	if n := q.Status().ItemCount; n != 1 {
		t.Fatalf("expected 1 queued message, got %d", n)
	}
}

func TestDedupIsPerClass(t *testing.T) {
	t.Parallel()

	// Wide tolerance so one booking matches both windows; each class still
	// sends its own reminder.
	src := &fakeSource{bookings: []Booking{booking("b1", testNow.AddDate(0, 0, 8))}}
	s, q := newTestReminder(src, Config{Tolerance: 15 * 24 * time.Hour})

	if err := s.checkWindow(context.Background(), WindowH15); err != nil {
		t.Fatalf("checkWindow h15: %v", err)
	}
	if err := s.checkWindow(context.Background(), WindowH1); err != nil {
		t.Fatalf("checkWindow h1: %v", err)
	}

	st := s.Snapshot()
	if st.Successful != 2 || st.CountByClass["h15"] != 1 || st.CountByClass["h1"] != 1 {
		t.Fatalf("per-class counters wrong: %+v", st)
	}
	if n := q.Status().ItemCount; n != 2 {
		t.Fatalf("expected 2 queued messages, got %d", n)
	}
}

func TestWindowAndStatusFiltering(t *testing.T) {
	t.Parallel()

	target := testNow.AddDate(0, 0, 15)
	inWindow := booking("hit", target.Add(6*time.Hour))
	outOfWindow := booking("far", target.AddDate(0, 0, 10))
	cancelled := booking("gone", target)
	cancelled.Status = "cancelled"

	src := &fakeSource{bookings: []Booking{inWindow, outOfWindow, cancelled}}
	s, q := newTestReminder(src, Config{})

	if err := s.checkWindow(context.Background(), WindowH15); err != nil {
		t.Fatalf("checkWindow: %v", err)
	}

	st := s.Snapshot()
	if st.Successful != 1 {
		t.Fatalf("expected exactly the in-window active booking, got %+v", st)
	}
	if n := q.Status().ItemCount; n != 1 {
		t.Fatalf("expected 1 queued message, got %d", n)
	}
}

func TestMissingContactIsAFailure(t *testing.T) {
	t.Parallel()

	b := booking("b1", testNow.AddDate(0, 0, 1))
	b.Contact = "  "
	src := &fakeSource{bookings: []Booking{b}}
	s, q := newTestReminder(src, Config{})

	if err := s.checkWindow(context.Background(), WindowH1); err != nil {
		t.Fatalf("checkWindow: %v", err)
	}

	st := s.Snapshot()
	if st.Failed != 1 || st.Successful != 0 {
		t.Fatalf("missing contact not counted: %+v", st)
	}
	if len(st.Details) != 1 || !strings.Contains(st.Details[0], "b1") {
		t.Fatalf("failure detail missing: %v", st.Details)
	}
	if n := q.Status().ItemCount; n != 0 {
		t.Fatalf("nothing should have been queued, got %d", n)
	}
}

func TestFetchFailureAbortsTick(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: errors.New("db locked")}
	s, _ := newTestReminder(src, Config{})

	if err := s.checkWindow(context.Background(), WindowH15); err == nil {
		t.Fatalf("expected error from failed fetch")
	}
	if _, err := s.CheckAndSendReminders(context.Background()); err == nil {
		t.Fatalf("combined check must surface fetch errors")
	}
}

func TestResetClearsKeysAndCounters(t *testing.T) {
	t.Parallel()

	src := &fakeSource{bookings: []Booking{booking("b1", testNow.AddDate(0, 0, 15))}}
	s, q := newTestReminder(src, Config{})

	if err := s.checkWindow(context.Background(), WindowH15); err != nil {
		t.Fatalf("checkWindow: %v", err)
	}
	s.Reset()

	st := s.Snapshot()
	if st.Successful != 0 || st.Failed != 0 || len(st.CountByClass) != 0 {
		t.Fatalf("counters survived reset: %+v", st)
	}

	// Same booking becomes eligible again after the reset.
	if err := s.checkWindow(context.Background(), WindowH15); err != nil {
		t.Fatalf("checkWindow after reset: %v", err)
	}
	if st := s.Snapshot(); st.Successful != 1 {
		t.Fatalf("booking not re-eligible after reset: %+v", st)
	}
	if n := q.Status().ItemCount; n != 2 {
		t.Fatalf("expected 2 queued messages across resets, got %d", n)
	}
}

func TestCombinedCheckReportsOnlyNewWork(t *testing.T) {
	t.Parallel()

	src := &fakeSource{bookings: []Booking{booking("b1", testNow.AddDate(0, 0, 8))}}
	s, _ := newTestReminder(src, Config{Tolerance: 15 * 24 * time.Hour})

	sum, err := s.CheckAndSendReminders(context.Background())
	if err != nil {
		t.Fatalf("CheckAndSendReminders: %v", err)
	}
	if sum.NewSuccessful != 2 || sum.NewByClass["h15"] != 1 || sum.NewByClass["h1"] != 1 {
		t.Fatalf("unexpected first summary: %+v", sum)
	}

	sum, err = s.CheckAndSendReminders(context.Background())
	if err != nil {
		t.Fatalf("CheckAndSendReminders (repeat): %v", err)
	}
	if sum.NewSuccessful != 0 || len(sum.NewByClass) != 0 {
		t.Fatalf("repeat run reported stale work: %+v", sum)
	}
}

func TestInitRegistersJobsOnce(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	q := queue.New(queue.Config{}, func(context.Context, queue.Item) queue.Outcome {
		return queue.Outcome{Success: true}
	}, logx.Nop(), nil)
	sched := scheduler.New(scheduler.Config{Timezone: "UTC"}, logx.Nop(), nil)
	s := New(Config{}, sched, q, src, logx.Nop())

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init (repeat): %v", err)
	}

	snap := sched.Snapshot()
	if snap.Total != 3 {
		t.Fatalf("expected 3 registered jobs, got %d", snap.Total)
	}
	names := map[string]bool{}
	for _, j := range snap.Jobs {
		names[j.Name] = true
	}
	for _, want := range []string{JobH15, JobH1, JobReset} {
		if !names[want] {
			t.Fatalf("job %s not registered (have %v)", want, names)
		}
	}
}

func TestInitRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	q := queue.New(queue.Config{}, func(context.Context, queue.Item) queue.Outcome {
		return queue.Outcome{Success: true}
	}, logx.Nop(), nil)
	sched := scheduler.New(scheduler.Config{Timezone: "UTC"}, logx.Nop(), nil)
	s := New(Config{H15Schedule: "every 7m"}, sched, q, src, logx.Nop())

	if err := s.Init(context.Background()); !errors.Is(err, scheduler.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
}
