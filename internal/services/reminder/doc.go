// Package reminder decides which bookings get an expiry notification and when.
//
// Two recurring checks (15 days and 1 day before expiry) fetch candidate
// bookings, filter them against a one-day tolerance window around the target
// date, and enqueue one message per booking per reminder class. A sent-key set
// guarantees a given class+booking pair is enqueued at most once between daily
// resets. Deduplication is per class on purpose: a booking sitting on a window
// boundary may legitimately receive both the h15 and the h1 reminder.
package reminder
