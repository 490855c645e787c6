// Package queue implements the upload orchestration core: a bounded-
// concurrency FIFO pipeline with per-item state machines, automatic retry
// with linear backoff, cooperative pause/resume and per-item cancellation.
//
// # Lifecycle
//
// Every item moves through a small state machine: pending → uploading →
// {completed | error | paused | cancelled}. Error transitions back to
// pending when a retry is scheduled, and paused transitions back to pending
// on resume. Completed and cancelled are terminal; error is terminal until
// an explicit RetryFailed call.
//
// # Concurrency Model
//
// The manager serializes all state behind one mutex. Upload functions run
// on their own goroutines outside the lock; each settling upload frees its
// slot and admits the next queued item, so the number of concurrently
// uploading items never exceeds the configured concurrency. Admission
// happens in a single place, which makes the bound easy to audit.
//
// # Retry Policy
//
// Transient failures (network, timeout, internal) are retried up to the
// configured budget with a linear backoff: the nth retry waits n times the
// base delay. Retried items re-enter the queue at the front, ahead of
// never-attempted items. Explicit cancellation and permanent rejection are
// never retried.
//
// # Pause Semantics
//
// Pause is cooperative: in-flight uploads are not aborted, but their
// results are dropped when they eventually settle. Resume aborts those
// stale flights and re-runs the items from the front of the queue.
//
// # Determinism
//
// Time and delayed execution are injected through the TimeProvider and
// Scheduler interfaces, so retry backoff, timeouts and throughput figures
// are all testable without wall-clock sleeps.
package queue
