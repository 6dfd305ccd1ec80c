// Package queue implements the outbound delivery queue.
//
// Messages are delivered strictly in enqueue order by a single worker that
// spaces consecutive sends with a randomized delay, so the chat channel never
// sees bursts that trip rate limits or anti-spam heuristics. Each item gets
// exactly one delivery attempt; failures are counted and dropped, never
// retried ("send once and move on").
package queue
