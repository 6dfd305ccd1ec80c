package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"kostbot/internal/services/reminder"
	logx "kostbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FetchCandidates returns bookings in a status that can still receive
// reminders. Window filtering happens in the reminder service, so the query
// stays a plain status scan.
func (s *sqliteStore) FetchCandidates(ctx context.Context) ([]reminder.Booking, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_name, room_name, contact, status, expiry_date
		 FROM bookings
		 WHERE status IN ('active', 'approved')
		 ORDER BY expiry_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reminder.Booking
	for rows.Next() {
		var b reminder.Booking
		var expiry string
		if err := rows.Scan(&b.ID, &b.TenantName, &b.RoomName, &b.Contact, &b.Status, &expiry); err != nil {
			return nil, err
		}
		t, err := parseExpiry(expiry)
		if err != nil {
			s.log.Warn("skipping booking with bad expiry date",
				logx.String("booking", b.ID), logx.String("expiry", expiry))
			continue
		}
		b.ExpiryDate = t
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpsertBooking(ctx context.Context, b reminder.Booking) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if strings.TrimSpace(b.ID) == "" {
		return errors.New("booking id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookings(id, tenant_name, room_name, contact, status, expiry_date, updated_at)
		 VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   tenant_name=excluded.tenant_name,
		   room_name=excluded.room_name,
		   contact=excluded.contact,
		   status=excluded.status,
		   expiry_date=excluded.expiry_date,
		   updated_at=excluded.updated_at`,
		b.ID, b.TenantName, b.RoomName, b.Contact, b.Status,
		b.ExpiryDate.Format(time.RFC3339), time.Now().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) AppendDelivery(ctx context.Context, r DeliveryRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries(at, item_id, recipient, ok, err, took_ms)
		 VALUES(?,?,?,?,?,?)`,
		r.At.Format(time.RFC3339Nano), r.ItemID, r.Recipient, r.OK, nullStr(r.Error), r.TookMS,
	)
	return err
}

// parseExpiry accepts both full RFC3339 timestamps and bare dates, which is
// what operators tend to put in by hand.
func parseExpiry(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
