// Package scheduler runs named recurring jobs on a coarse polling loop.
//
// Instead of arming a timer per job, the service wakes at a fixed tick
// (default one minute) and executes every active job whose computed next-run
// time has passed, then recomputes the next run from the completion time.
// A job is therefore guaranteed to run eventually after its due time, never
// before it, and never concurrently with itself.
//
// The supported schedule grammar is a deliberately closed set; see ParseSpec.
package scheduler
