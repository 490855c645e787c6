// Package uploadqueue implements client-side upload orchestration: batch
// validation, transfer strategy selection, a bounded-concurrency upload
// pipeline with retry and pause/resume, and aggregated progress reporting.
//
// Example:
//
//	options := uploadqueue.NewOptions()
//	options.Concurrency = 2
//
//	client, err := uploadqueue.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.OnProgress(func(snap queue.Snapshot) {
//	    fmt.Printf("progress: %.1f%%\n", snap.OverallProgress)
//	})
//
//	batch, err := client.AddFiles(ctx, files...)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, rejected := range batch.InvalidFiles {
//	    fmt.Printf("skipped %s: %v\n", rejected.Name, rejected.Err)
//	}
//
//	err = client.Start(ctx, func(ctx context.Context, item queue.Item) (interface{}, error) {
//	    return upload(ctx, item)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.Wait()
package uploadqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/uploadqueue/limits"
	"github.com/opd-ai/uploadqueue/queue"
	"github.com/opd-ai/uploadqueue/strategy"
	"github.com/opd-ai/uploadqueue/validate"
)

// File describes one candidate upload handed to AddFiles.
type File = validate.File

// UploadFunc performs one transfer for the pipeline.
type UploadFunc = queue.UploadFunc

// Options contains configuration options for creating a Client.
type Options struct {
	// Pipeline parameters.
	Concurrency int
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration

	// Validation parameters.
	MaxFileSize   int64
	AllowedTypes  []string
	MaxFiles      int
	VerifyContent bool

	// Strategy selection parameters.
	AutoSelect        bool
	DirectMax         int64
	ChunkedMin        int64
	StreamingVideoMin int64
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	sel := strategy.DefaultConfig()
	val := validate.DefaultConfig()
	pipe := queue.DefaultConfig()

	return &Options{
		Concurrency: pipe.Concurrency,
		MaxRetries:  pipe.MaxRetries,
		RetryDelay:  pipe.RetryDelay,
		Timeout:     pipe.Timeout,

		MaxFileSize:   val.MaxFileSize,
		AllowedTypes:  val.AllowedTypes,
		MaxFiles:      val.MaxFiles,
		VerifyContent: true,

		AutoSelect:        sel.AutoSelect,
		DirectMax:         sel.DirectMax,
		ChunkedMin:        sel.ChunkedMin,
		StreamingVideoMin: sel.StreamingVideoMin,
	}
}

// Client wires the validator, the strategy selector and the queue manager
// into one upload pipeline.
type Client struct {
	options   *Options
	validator *validate.Validator
	selector  *strategy.Selector
	manager   *queue.Manager

	cbMu      sync.Mutex
	callbacks queue.Callbacks
}

// New creates a new Client with the given options. Nil options select the
// defaults; zero-valued fields fall back per component.
func New(options *Options) (*Client, error) {
	if options == nil {
		options = NewOptions()
	}
	if options.MaxFileSize > limits.MaxFileSize {
		return nil, fmt.Errorf("%w: configured cap %d exceeds hard limit %d",
			limits.ErrFileTooLarge, options.MaxFileSize, limits.MaxFileSize)
	}

	validator := validate.NewValidator(validate.Config{
		MaxFileSize:  options.MaxFileSize,
		AllowedTypes: options.AllowedTypes,
		MaxFiles:     options.MaxFiles,
	})
	selector := strategy.NewSelector(strategy.Config{
		AutoSelect:        options.AutoSelect,
		DirectMax:         options.DirectMax,
		ChunkedMin:        options.ChunkedMin,
		StreamingVideoMin: options.StreamingVideoMin,
	})
	manager := queue.NewManager(queue.Config{
		Concurrency: options.Concurrency,
		MaxRetries:  options.MaxRetries,
		RetryDelay:  options.RetryDelay,
		Timeout:     options.Timeout,
	})

	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"concurrency": options.Concurrency,
		"max_files":   options.MaxFiles,
		"auto_select": options.AutoSelect,
	}).Info("Creating upload client")

	return &Client{
		options:   options,
		validator: validator,
		selector:  selector,
		manager:   manager,
	}, nil
}

// AddFiles validates a batch and enqueues every file that passes. Files that
// fail validation are reported in the returned BatchResult and never reach
// the queue; batch-level failures (count limit, size ceiling) reject the
// whole batch. Valid files receive a transfer strategy and a fresh queue
// identifier.
//
// When content verification is enabled, image payloads are additionally
// checked against their declared type's magic bytes before enqueueing.
func (c *Client) AddFiles(ctx context.Context, files ...File) (*validate.BatchResult, error) {
	batch := c.validator.ValidateBatch(files, len(c.manager.Files()))

	if c.options.VerifyContent {
		kept := batch.ValidFiles[:0]
		for _, f := range batch.ValidFiles {
			r := c.validator.ValidateContent(ctx, f)
			if !r.Valid {
				batch.InvalidFiles = append(batch.InvalidFiles, validate.FileError{Name: f.Name, Err: r.Err})
				batch.TotalSize -= f.Size
				continue
			}
			kept = append(kept, f)
		}
		batch.ValidFiles = kept
	}

	for _, f := range batch.ValidFiles {
		strat := c.selector.Select(f.MIME, f.Size)
		item := queue.NewItem(f.Name, f.Size, f.MIME, f.Data, strat)
		if err := c.manager.Add(item); err != nil {
			return &batch, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "AddFiles",
		"offered":  len(files),
		"accepted": len(batch.ValidFiles),
		"rejected": len(batch.InvalidFiles),
	}).Info("Batch added")

	return &batch, nil
}

// Start begins draining the queue with the given upload function. See
// queue.Manager.Start for the drain semantics.
func (c *Client) Start(ctx context.Context, fn UploadFunc) error {
	return c.manager.Start(ctx, fn)
}

// Pause stops admitting new uploads. In-flight transfers finish but their
// results are dropped.
func (c *Client) Pause() {
	c.manager.Pause()
}

// Resume restarts a paused pipeline. A non-nil fn replaces the upload
// function.
func (c *Client) Resume(fn UploadFunc) error {
	return c.manager.Resume(fn)
}

// Cancel aborts one upload by identifier.
func (c *Client) Cancel(id string) error {
	return c.manager.Cancel(id)
}

// Remove cancels and deletes one item by identifier.
func (c *Client) Remove(id string) error {
	return c.manager.Remove(id)
}

// RetryFailed re-enqueues every failed upload. A non-nil fn replaces the
// upload function.
func (c *Client) RetryFailed(fn UploadFunc) error {
	return c.manager.RetryFailed(fn)
}

// ClearAll aborts everything and resets the pipeline to empty.
func (c *Client) ClearAll() {
	c.manager.ClearAll()
}

// Wait blocks until the pipeline is idle.
func (c *Client) Wait() {
	c.manager.Wait()
}

// Files returns copies of all tracked items in insertion order.
func (c *Client) Files() []queue.Item {
	return c.manager.Files()
}

// FilesByStatus returns copies of the items in the given state.
func (c *Client) FilesByStatus(status queue.Status) []queue.Item {
	return c.manager.FilesByStatus(status)
}

// Progress returns the current batch progress snapshot.
func (c *Client) Progress() queue.Snapshot {
	return c.manager.Progress()
}

// SetProgress records mid-transfer progress for an uploading item. Upload
// functions call this to drive the progress surface.
func (c *Client) SetProgress(id string, percent int) {
	c.manager.SetProgress(id, percent)
}

// OnProgress registers the callback fired when batch progress advances.
func (c *Client) OnProgress(cb func(queue.Snapshot)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.callbacks.OnProgress = cb
	c.manager.SetCallbacks(c.callbacks)
}

// OnStatusChange registers the callback fired on every item state
// transition.
func (c *Client) OnStatusChange(cb func(id string, status queue.Status)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.callbacks.OnStatusChange = cb
	c.manager.SetCallbacks(c.callbacks)
}

// OnComplete registers the callback fired once per drained batch.
func (c *Client) OnComplete(cb func([]queue.Result)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.callbacks.OnComplete = cb
	c.manager.SetCallbacks(c.callbacks)
}

// OnError registers the callback fired on pipeline-level faults.
func (c *Client) OnError(cb func(error)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.callbacks.OnError = cb
	c.manager.SetCallbacks(c.callbacks)
}
