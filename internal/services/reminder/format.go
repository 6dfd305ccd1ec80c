package reminder

import (
	"fmt"
	"time"
)

const dateLayout = "2 January 2006"

// formatReminder builds the outgoing message body for one booking. The h1
// wording is more urgent than the generic N-days-left one.
func formatReminder(w Window, b Booking) string {
	expiry := b.ExpiryDate.Format(dateLayout)
	room := b.RoomName
	if room == "" {
		room = "your room"
	}
	switch w.Class {
	case WindowH1.Class:
		return fmt.Sprintf(
			"Hi %s, your rental for %s expires tomorrow (%s). Please confirm your renewal or checkout today.",
			b.TenantName, room, expiry)
	default:
		return fmt.Sprintf(
			"Hi %s, your rental for %s expires on %s (%d days left). Reply to this message to arrange a renewal.",
			b.TenantName, room, expiry, w.Days)
	}
}

// formatResetNote summarizes the counters being discarded by the daily reset.
func formatResetNote(prev Stats, at time.Time) string {
	return fmt.Sprintf("reset at %s: %d sent, %d failed",
		at.Format(time.RFC3339), prev.Successful, prev.Failed)
}
