package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// UploadFunc performs one transfer. The manager is agnostic to how the bytes
// move; implementations receive a snapshot copy of the item and must honor
// ctx cancellation. Returning a *Error controls failure classification;
// any other error is treated as a transient network failure.
type UploadFunc func(ctx context.Context, item Item) (interface{}, error)

// Callbacks are the event hooks consumed by UI and collaborators. They are
// invoked synchronously from within the manager's transition logic while its
// lock is held: consumers must not block and must not call back into the
// manager.
type Callbacks struct {
	// OnProgress fires when batch progress advances.
	OnProgress func(Snapshot)

	// OnStatusChange fires on every item state transition.
	OnStatusChange func(id string, status Status)

	// OnComplete fires once when the pipeline drains, with the results of
	// all completed items in insertion order.
	OnComplete func([]Result)

	// OnError fires on manager-level faults, such as a panicking upload
	// function. Per-item failures are reported through OnStatusChange and
	// the item's Err field instead.
	OnError func(error)
}

// Config holds the manager's operating parameters.
type Config struct {
	// Concurrency bounds the active set. The number of items uploading at
	// once never exceeds it.
	Concurrency int

	// MaxRetries bounds the retry budget per item.
	MaxRetries int

	// RetryDelay is the base backoff unit. The nth retry of an item waits
	// n times this value before re-entering the queue.
	RetryDelay time.Duration

	// Timeout is the hard per-attempt limit. An attempt that has not
	// settled within it is aborted and treated as a transient failure.
	// Zero disables the limit.
	Timeout time.Duration

	// Time and Scheduler inject clock and delayed execution for
	// deterministic tests. Nil values select the standard library.
	Time      TimeProvider
	Scheduler Scheduler
}

// DefaultConfig returns the stock manager parameters.
func DefaultConfig() Config {
	return Config{
		Concurrency: 3,
		MaxRetries:  3,
		RetryDelay:  time.Second,
		Timeout:     5 * time.Minute,
	}
}

// attempt tracks one in-flight invocation of the upload function. The
// cancel function is the item's cancellation token; aborting it never
// affects other attempts.
type attempt struct {
	cancel   context.CancelFunc
	timer    Timer
	timedOut bool
}

// Manager owns the per-file state machine, the pending queue, the active-set
// concurrency limiter, the retry policy and the pause/resume/cancel
// semantics.
//
// All internal state is serialized behind a single mutex: upload completions
// race to free their slots, and processNext is the only admission point, so
// transitions never interleave partially. Read surfaces return snapshot
// copies, never references into live structures.
type Manager struct {
	mu   sync.Mutex
	cond *sync.Cond

	config Config
	clock  TimeProvider
	sched  Scheduler

	items   map[string]*Item
	order   []string
	pending []string
	active  map[string]*attempt
	delayed map[string]Timer

	paused    bool
	uploadFn  UploadFunc
	baseCtx   context.Context
	startedAt time.Time

	callbacks     Callbacks
	completeFired bool
}

// NewManager creates a manager. Zero or negative config values fall back to
// DefaultConfig.
func NewManager(config Config) *Manager {
	defaults := DefaultConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.Time == nil {
		config.Time = DefaultTimeProvider{}
	}
	if config.Scheduler == nil {
		config.Scheduler = DefaultScheduler{}
	}

	m := &Manager{
		config:  config,
		clock:   config.Time,
		sched:   config.Scheduler,
		items:   make(map[string]*Item),
		active:  make(map[string]*attempt),
		delayed: make(map[string]Timer),
	}
	m.cond = sync.NewCond(&m.mu)

	logrus.WithFields(logrus.Fields{
		"function":    "NewManager",
		"concurrency": config.Concurrency,
		"max_retries": config.MaxRetries,
		"retry_delay": config.RetryDelay,
		"timeout":     config.Timeout,
	}).Info("Creating upload queue manager")

	return m
}

// SetCallbacks registers the event hooks. Replaces any previous set.
func (m *Manager) SetCallbacks(cb Callbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = cb
}

// Add inserts new items in the pending state and appends their identifiers
// to the queue. Items without an identifier receive a fresh one. Re-adding a
// known identifier is a caller error; the whole call is rejected before any
// insertion.
func (m *Manager) Add(items ...*Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		if _, exists := m.items[item.ID]; exists {
			return ErrItemExists
		}
	}

	for _, item := range items {
		item.Status = StatusPending
		m.items[item.ID] = item
		m.order = append(m.order, item.ID)
		m.pending = append(m.pending, item.ID)

		logrus.WithFields(logrus.Fields{
			"function":  "Add",
			"item_id":   item.ID,
			"file_name": item.Name,
			"file_size": item.Size,
			"strategy":  item.Strategy,
		}).Debug("Item added to queue")
	}

	return nil
}

// Start begins draining the queue with the given upload function. It fills
// the active set up to the concurrency limit and returns once that initial
// wave has settled; each settling upload admits the next queued item, so
// the manager self-drains the full queue. Use Wait to block until the
// pipeline is fully idle.
//
// An empty queue is a no-op.
func (m *Manager) Start(ctx context.Context, fn UploadFunc) error {
	if fn == nil {
		return ErrNoUploadFunc
	}

	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil
	}

	m.paused = false
	m.uploadFn = fn
	m.baseCtx = ctx
	m.startedAt = m.clock.Now()
	m.completeFired = false

	logrus.WithFields(logrus.Fields{
		"function":    "Start",
		"queued":      len(m.pending),
		"concurrency": m.config.Concurrency,
	}).Info("Starting upload queue drain")

	g := new(errgroup.Group)
	for len(m.active) < m.config.Concurrency {
		run, ok := m.admitLocked()
		if !ok {
			break
		}
		g.Go(run)
	}
	m.mu.Unlock()

	return g.Wait()
}

// Pause stops admitting new work. Items currently uploading are marked
// paused; their in-flight operations are not aborted, but any results they
// eventually deliver are dropped. Resume re-runs them.
func (m *Manager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paused = true
	for id := range m.active {
		item := m.items[id]
		if item != nil && item.Status == StatusUploading {
			item.Status = StatusPaused
			m.notifyStatusLocked(item)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Pause",
		"paused":   len(m.active),
	}).Info("Upload queue paused")
}

// Resume clears the paused flag, re-enqueues every paused item at the front
// of the queue and restarts draining. A non-nil fn replaces the upload
// function.
func (m *Manager) Resume(fn UploadFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fn != nil {
		m.uploadFn = fn
	}
	if m.uploadFn == nil {
		return ErrNoUploadFunc
	}

	m.paused = false

	var resumed []string
	for _, id := range m.order {
		item := m.items[id]
		if item == nil || item.Status != StatusPaused {
			continue
		}
		if att, ok := m.active[id]; ok {
			// A flight left over from before the pause. Abort it; its
			// result would be dropped regardless.
			if att.timer != nil {
				att.timer.Stop()
			}
			att.cancel()
			delete(m.active, id)
		}
		item.Status = StatusPending
		m.notifyStatusLocked(item)
		resumed = append(resumed, id)
	}

	// Paused items take priority over never-attempted pending items.
	m.pending = append(resumed, m.pending...)
	m.completeFired = false

	logrus.WithFields(logrus.Fields{
		"function": "Resume",
		"resumed":  len(resumed),
		"queued":   len(m.pending),
	}).Info("Upload queue resumed")

	m.processNextLocked()
	m.cond.Broadcast()
	return nil
}

// Cancel aborts the cancellation token for an in-flight item, removes it
// from the active set and marks it cancelled. Pending and retry-delayed
// items are withdrawn without ever invoking the upload function. Cancelled
// items are never retried. Completed and already-cancelled items are left
// untouched.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return ErrItemNotFound
	}
	if item.Status == StatusCompleted || item.Status == StatusCancelled {
		return nil
	}

	m.detachLocked(id)
	item.Status = StatusCancelled
	item.EndedAt = m.clock.Now()
	m.notifyStatusLocked(item)

	logrus.WithFields(logrus.Fields{
		"function":  "Cancel",
		"item_id":   id,
		"file_name": item.Name,
	}).Info("Upload cancelled")

	m.processNextLocked()
	m.maybeCompleteLocked()
	m.cond.Broadcast()
	return nil
}

// Remove cancels any in-flight upload for the item and deletes it from all
// internal structures. Safe to call regardless of current state.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return ErrItemNotFound
	}

	m.detachLocked(id)
	delete(m.items, id)
	m.order = removeID(m.order, id)

	logrus.WithFields(logrus.Fields{
		"function":  "Remove",
		"item_id":   id,
		"file_name": item.Name,
	}).Debug("Item removed from queue")

	m.processNextLocked()
	m.cond.Broadcast()
	return nil
}

// RetryFailed resets every item in the terminal error state and re-enqueues
// it. Manual retries draw from the same retry budget: the retry counter
// keeps incrementing. A non-nil fn replaces the upload function.
func (m *Manager) RetryFailed(fn UploadFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fn != nil {
		m.uploadFn = fn
	}
	if m.uploadFn == nil {
		return ErrNoUploadFunc
	}

	var retried int
	for _, id := range m.order {
		item := m.items[id]
		if item == nil || item.Status != StatusError {
			continue
		}
		item.Status = StatusPending
		item.Progress = 0
		item.Err = nil
		item.RetryCount++
		m.pending = append(m.pending, id)
		m.notifyStatusLocked(item)
		retried++
	}

	if retried == 0 {
		return nil
	}

	m.paused = false
	if m.startedAt.IsZero() {
		m.startedAt = m.clock.Now()
	}
	m.completeFired = false

	logrus.WithFields(logrus.Fields{
		"function": "RetryFailed",
		"retried":  retried,
	}).Info("Re-enqueued failed uploads")

	m.processNextLocked()
	return nil
}

// ClearAll preemptively aborts every in-flight upload, cancels scheduled
// retries and resets the manager to its initial empty state.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, att := range m.active {
		if att.timer != nil {
			att.timer.Stop()
		}
		att.cancel()
	}
	for _, t := range m.delayed {
		t.Stop()
	}

	cleared := len(m.items)
	m.items = make(map[string]*Item)
	m.active = make(map[string]*attempt)
	m.delayed = make(map[string]Timer)
	m.order = nil
	m.pending = nil
	m.paused = false
	m.uploadFn = nil
	m.startedAt = time.Time{}
	m.completeFired = false

	logrus.WithFields(logrus.Fields{
		"function": "ClearAll",
		"cleared":  cleared,
	}).Info("Upload queue cleared")

	m.cond.Broadcast()
}

// Wait blocks until the pipeline is idle: no active uploads and no pending
// retry timers. A paused pipeline counts as idle.
func (m *Manager) Wait() {
	m.mu.Lock()
	for len(m.active) > 0 || len(m.delayed) > 0 {
		m.cond.Wait()
	}
	m.mu.Unlock()
}

// SetProgress records mid-transfer progress reported by the upload function.
// Progress is clamped to 0-100 and is monotonically non-decreasing while the
// item is uploading; reports for items in any other state are dropped.
func (m *Manager) SetProgress(id string, percent int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok || item.Status != StatusUploading {
		return
	}
	if percent > 100 {
		percent = 100
	}
	if percent <= item.Progress {
		return
	}
	item.Progress = percent

	if m.callbacks.OnProgress != nil {
		m.callbacks.OnProgress(m.snapshotLocked())
	}
}

// Files returns copies of all items in insertion order.
func (m *Manager) Files() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	files := make([]Item, 0, len(m.order))
	for _, id := range m.order {
		if item := m.items[id]; item != nil {
			files = append(files, *item)
		}
	}
	return files
}

// FilesByStatus returns copies of the items currently in the given state,
// in insertion order.
func (m *Manager) FilesByStatus(status Status) []Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	var files []Item
	for _, id := range m.order {
		if item := m.items[id]; item != nil && item.Status == status {
			files = append(files, *item)
		}
	}
	return files
}

// Progress returns the current batch progress snapshot.
func (m *Manager) Progress() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// admitLocked dequeues the next pending item, transitions it to uploading,
// registers its attempt and returns the function that runs the upload. It
// is the single admission path; calling it from anywhere but Start and
// processNextLocked would break the concurrency bound.
func (m *Manager) admitLocked() (func() error, bool) {
	for len(m.pending) > 0 {
		id := m.pending[0]
		m.pending = m.pending[1:]

		item, ok := m.items[id]
		if !ok || item.Status != StatusPending {
			continue
		}

		item.Status = StatusUploading
		item.StartedAt = m.clock.Now()
		item.EndedAt = time.Time{}
		m.completeFired = false
		m.notifyStatusLocked(item)

		parent := m.baseCtx
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := context.WithCancel(parent)
		att := &attempt{cancel: cancel}
		if m.config.Timeout > 0 {
			att.timer = m.sched.AfterFunc(m.config.Timeout, func() {
				m.timeoutAttempt(id, att)
			})
		}
		m.active[id] = att

		snapshot := *item
		fn := m.uploadFn

		logrus.WithFields(logrus.Fields{
			"function":  "admit",
			"item_id":   id,
			"file_name": item.Name,
			"attempt":   item.RetryCount + 1,
			"active":    len(m.active),
		}).Debug("Item admitted to active set")

		return func() error {
			m.runAttempt(ctx, id, att, snapshot, fn)
			return nil
		}, true
	}
	return nil, false
}

// processNextLocked refills the active set from the pending queue. It is
// called exactly once per settled upload and once per Start/Resume slot, so
// a freed slot is never double-filled.
func (m *Manager) processNextLocked() {
	for !m.paused && m.uploadFn != nil {
		if len(m.active) >= m.config.Concurrency {
			return
		}
		run, ok := m.admitLocked()
		if !ok {
			return
		}
		go func() { _ = run() }()
	}
}

// runAttempt invokes the upload function outside the lock and hands the
// outcome to settle. A panic in the upload function is captured as an
// internal failure and surfaced through the manager-level error callback
// without corrupting per-item state.
func (m *Manager) runAttempt(ctx context.Context, id string, att *attempt, snapshot Item, fn UploadFunc) {
	defer func() {
		if r := recover(); r != nil {
			err := NewError(CodeInternal, "upload function panicked: %v", r)
			m.settle(id, att, nil, err)
			m.reportError(err)
		}
	}()

	value, err := fn(ctx, snapshot)
	m.settle(id, att, value, err)
}

// settle applies the outcome of one attempt. Only the attempt currently
// registered in the active set may transition the item; stale flights (from
// cancellation, removal or a pause/resume cycle) have their results dropped.
func (m *Manager) settle(id string, att *attempt, value interface{}, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.active[id]
	if !ok || cur != att {
		logrus.WithFields(logrus.Fields{
			"function": "settle",
			"item_id":  id,
		}).Debug("Dropping result of stale upload attempt")
		return
	}
	if att.timer != nil {
		att.timer.Stop()
	}
	delete(m.active, id)

	item, exists := m.items[id]
	switch {
	case !exists:
		// Removed while in flight.
	case item.Status == StatusPaused:
		// The pipeline paused under this flight; the item re-runs on
		// resume.
		logrus.WithFields(logrus.Fields{
			"function":  "settle",
			"item_id":   id,
			"file_name": item.Name,
		}).Debug("Dropping result delivered to paused pipeline")
	case item.Status != StatusUploading:
		// Cancelled concurrently with completion.
	case err == nil:
		item.Status = StatusCompleted
		item.Progress = 100
		item.Result = value
		item.EndedAt = m.clock.Now()
		m.notifyStatusLocked(item)
		if m.callbacks.OnProgress != nil {
			m.callbacks.OnProgress(m.snapshotLocked())
		}

		logrus.WithFields(logrus.Fields{
			"function":  "settle",
			"item_id":   id,
			"file_name": item.Name,
			"duration":  item.EndedAt.Sub(item.StartedAt),
		}).Info("Upload completed")
	default:
		m.failLocked(item, classifyError(err, att.timedOut))
	}

	m.processNextLocked()
	m.maybeCompleteLocked()
	m.cond.Broadcast()
}

// failLocked applies a failure outcome: transient failures with budget left
// are re-queued after a linear backoff delay, everything else becomes a
// terminal error.
func (m *Manager) failLocked(item *Item, uerr *Error) {
	if uerr.Retryable() && item.RetryCount < m.config.MaxRetries {
		item.RetryCount++
		item.Status = StatusPending
		item.Progress = 0
		item.Err = nil
		m.notifyStatusLocked(item)

		// Linear backoff: the nth retry waits n * RetryDelay. The item
		// is never retried synchronously; re-entry goes through the
		// scheduler to avoid thundering-herd retries.
		delay := time.Duration(item.RetryCount) * m.config.RetryDelay
		id := item.ID
		m.delayed[id] = m.sched.AfterFunc(delay, func() {
			m.requeueRetry(id)
		})

		logrus.WithFields(logrus.Fields{
			"function":    "fail",
			"item_id":     item.ID,
			"file_name":   item.Name,
			"retry_count": item.RetryCount,
			"max_retries": m.config.MaxRetries,
			"delay":       delay,
			"error":       uerr.Message,
		}).Warn("Upload failed, retry scheduled")
		return
	}

	item.Status = StatusError
	item.Err = uerr
	item.EndedAt = m.clock.Now()
	m.notifyStatusLocked(item)

	logrus.WithFields(logrus.Fields{
		"function":    "fail",
		"item_id":     item.ID,
		"file_name":   item.Name,
		"retry_count": item.RetryCount,
		"error_code":  uerr.Code,
		"error":       uerr.Message,
	}).Error("Upload failed terminally")
}

// requeueRetry moves a retry-delayed item back into the queue when its
// backoff timer fires. Retried items re-enter at the front, ahead of
// never-attempted pending items.
func (m *Manager) requeueRetry(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, scheduled := m.delayed[id]; !scheduled {
		// Withdrawn (cancel, remove, clear) while the timer was pending.
		return
	}
	delete(m.delayed, id)

	item, ok := m.items[id]
	if !ok || item.Status != StatusPending {
		m.cond.Broadcast()
		return
	}

	m.pending = append([]string{id}, m.pending...)

	logrus.WithFields(logrus.Fields{
		"function":    "requeueRetry",
		"item_id":     id,
		"file_name":   item.Name,
		"retry_count": item.RetryCount,
	}).Debug("Retry backoff elapsed, item re-queued at front")

	m.processNextLocked()
	m.cond.Broadcast()
}

// timeoutAttempt aborts an attempt that exceeded the hard timeout. The abort
// is indistinguishable from a network failure to the upload function, but
// the manager records it so the failure classifies as a retryable timeout.
func (m *Manager) timeoutAttempt(id string, att *attempt) {
	m.mu.Lock()
	if cur, ok := m.active[id]; ok && cur == att {
		att.timedOut = true
		logrus.WithFields(logrus.Fields{
			"function": "timeoutAttempt",
			"item_id":  id,
			"timeout":  m.config.Timeout,
		}).Warn("Upload attempt exceeded hard timeout, aborting")
	}
	m.mu.Unlock()

	att.cancel()
}

// detachLocked withdraws an item from every scheduling structure: aborts an
// in-flight attempt, stops a pending retry timer and strips it from the
// pending queue.
func (m *Manager) detachLocked(id string) {
	if att, ok := m.active[id]; ok {
		if att.timer != nil {
			att.timer.Stop()
		}
		att.cancel()
		delete(m.active, id)
	}
	if t, ok := m.delayed[id]; ok {
		t.Stop()
		delete(m.delayed, id)
	}
	m.pending = removeID(m.pending, id)
}

// maybeCompleteLocked fires the completion callback once per drain, when no
// work remains anywhere in the pipeline.
func (m *Manager) maybeCompleteLocked() {
	if m.completeFired || m.startedAt.IsZero() {
		return
	}
	if len(m.active) > 0 || len(m.delayed) > 0 || len(m.pending) > 0 {
		return
	}
	if len(m.order) == 0 {
		return
	}
	m.completeFired = true

	var results []Result
	for _, id := range m.order {
		item := m.items[id]
		if item == nil || item.Status != StatusCompleted {
			continue
		}
		results = append(results, Result{
			ItemID:   item.ID,
			Name:     item.Name,
			Strategy: item.Strategy,
			Value:    item.Result,
		})
	}

	logrus.WithFields(logrus.Fields{
		"function":  "maybeComplete",
		"completed": len(results),
		"total":     len(m.order),
	}).Info("Upload queue drained")

	if m.callbacks.OnComplete != nil {
		m.callbacks.OnComplete(results)
	}
	if m.callbacks.OnProgress != nil {
		m.callbacks.OnProgress(m.snapshotLocked())
	}
}

// reportError surfaces a manager-level fault through the error callback.
func (m *Manager) reportError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.callbacks.OnError != nil {
		m.callbacks.OnError(err)
	}
}

func (m *Manager) notifyStatusLocked(item *Item) {
	if m.callbacks.OnStatusChange != nil {
		m.callbacks.OnStatusChange(item.ID, item.Status)
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	items := make([]*Item, 0, len(m.order))
	for _, id := range m.order {
		if item := m.items[id]; item != nil {
			items = append(items, item)
		}
	}
	return aggregate(items, m.startedAt, m.clock)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
