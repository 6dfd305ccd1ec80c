package storage

// Package storage persists booking records and the delivery audit trail.
//
// It currently supports:
//   - Booking rows (the reminder candidate source)
//   - Delivery audit appends (one row per queue attempt)
