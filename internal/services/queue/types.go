package queue

import (
	"context"
	"time"
)

// Config controls delivery pacing.
//
// The worker sleeps a uniformly random duration in [MinDelay, MaxDelay]
// between consecutive deliveries. SendTimeout bounds a single delivery
// attempt; an expired attempt counts as a failure.
type Config struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	SendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinDelay < 0 {
		c.MinDelay = 0
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	return c
}

// Item is a pending outbound message. Immutable once enqueued; owned by the
// queue until it is removed after its single delivery attempt.
type Item struct {
	ID         string
	Recipient  string
	Body       string
	EnqueuedAt time.Time
}

// Outcome reports the result of one delivery attempt.
type Outcome struct {
	Success bool
	Err     error
}

// ProcessFunc performs the actual send. It is invoked exactly once per item,
// never concurrently with itself.
type ProcessFunc func(ctx context.Context, item Item) Outcome

// DeliveryEvent is published on the eventbus after each attempt.
type DeliveryEvent struct {
	ItemID    string
	Recipient string
	At        time.Time
	Error     string
	TookMS    int64
}

// PreviewItem is the observable slice of a pending item (body omitted).
type PreviewItem struct {
	ID         string
	Recipient  string
	EnqueuedAt time.Time
}

// Status is a non-mutating snapshot for observability.
type Status struct {
	ItemCount  int
	Processing bool
	Sent       uint64
	Failed     uint64
	Preview    []PreviewItem
}

const previewSize = 3
