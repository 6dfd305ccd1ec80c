package storage

import (
	"context"
	"errors"
	"strings"

	"kostbot/internal/services/reminder"
	logx "kostbot/pkg/logx"
)

// Store is the minimal persistence API used by the app. FetchCandidates makes
// every Store a reminder.BookingSource.
type Store interface {
	FetchCandidates(ctx context.Context) ([]reminder.Booking, error)
	UpsertBooking(ctx context.Context, b reminder.Booking) error
	AppendDelivery(ctx context.Context, r DeliveryRecord) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
