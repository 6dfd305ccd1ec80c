package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"kostbot/internal/services/reminder"
	logx "kostbot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "kostbot.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{}, logx.Nop())
	if err != nil || st != nil {
		t.Fatalf("disabled storage should be (nil, nil), got (%v, %v)", st, err)
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatalf("unknown driver accepted")
	}
}

func TestBookingRoundTrip(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	expiry := time.Date(2026, 3, 25, 12, 0, 0, 0, time.UTC)

	bookings := []reminder.Booking{
		{ID: "b1", TenantName: "Ani", RoomName: "A-12", Contact: "1001", Status: "active", ExpiryDate: expiry},
		{ID: "b2", TenantName: "Budi", RoomName: "B-03", Contact: "1002", Status: "approved", ExpiryDate: expiry.AddDate(0, 0, 5)},
		{ID: "b3", TenantName: "Cici", RoomName: "C-07", Contact: "1003", Status: "cancelled", ExpiryDate: expiry},
	}
	for _, b := range bookings {
		if err := st.UpsertBooking(ctx, b); err != nil {
			t.Fatalf("UpsertBooking(%s): %v", b.ID, err)
		}
	}

	got, err := st.FetchCandidates(ctx)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	// Cancelled bookings are filtered at the query level.
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != "b1" || got[1].ID != "b2" {
		t.Fatalf("candidates not ordered by expiry: %v, %v", got[0].ID, got[1].ID)
	}
	if !got[0].ExpiryDate.Equal(expiry) {
		t.Fatalf("expiry round trip: %v != %v", got[0].ExpiryDate, expiry)
	}

	// Upsert replaces in place.
	updated := bookings[0]
	updated.Status = "cancelled"
	if err := st.UpsertBooking(ctx, updated); err != nil {
		t.Fatalf("UpsertBooking (update): %v", err)
	}
	got, err = st.FetchCandidates(ctx)
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b2" {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestUpsertRequiresID(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	if err := st.UpsertBooking(context.Background(), reminder.Booking{TenantName: "x"}); err == nil {
		t.Fatalf("empty booking id accepted")
	}
}

func TestAppendDelivery(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	recs := []DeliveryRecord{
		{ItemID: "i1", Recipient: "1001", OK: true},
		{ItemID: "i2", Recipient: "1002", OK: false, Error: "blocked by peer"},
	}
	for _, r := range recs {
		if err := st.AppendDelivery(ctx, r); err != nil {
			t.Fatalf("AppendDelivery(%s): %v", r.ItemID, err)
		}
	}
}

func TestParseExpiryFormats(t *testing.T) {
	t.Parallel()

	if _, err := parseExpiry("2026-03-25T12:00:00Z"); err != nil {
		t.Fatalf("RFC3339 rejected: %v", err)
	}
	if d, err := parseExpiry("2026-03-25"); err != nil || d.Day() != 25 {
		t.Fatalf("bare date rejected: %v, %v", d, err)
	}
	if _, err := parseExpiry("soon"); err == nil {
		t.Fatalf("garbage date accepted")
	}
}
