package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled and the app runs without
// a local booking source or delivery audit.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// DeliveryRecord is one queue attempt.
// Keep it compact and schema-stable.
type DeliveryRecord struct {
	At        time.Time
	ItemID    string
	Recipient string
	OK        bool
	Error     string
	TookMS    int64
}
