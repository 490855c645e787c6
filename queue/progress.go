package queue

import "time"

// Snapshot is a point-in-time view of batch progress derived from the
// per-item states owned by the manager.
type Snapshot struct {
	// Completed, Failed, Uploading, Pending and Total count items by
	// state. Pending includes paused items and items waiting out a retry
	// delay; Failed includes cancelled items.
	Completed int
	Failed    int
	Uploading int
	Pending   int
	Total     int

	// OverallProgress is the arithmetic mean of all items' progress
	// percentages. It is deliberately not byte-weighted: a small file and
	// a large file contribute equally.
	OverallProgress float64

	// UploadSpeed is completed bytes divided by wall-clock time since the
	// drain started, in bytes per second.
	UploadSpeed float64

	// EstimatedTimeRemaining is the remaining bytes of non-terminal items
	// divided by UploadSpeed. Zero when the speed is zero.
	EstimatedTimeRemaining time.Duration
}

// aggregate computes a Snapshot from item states. startedAt zero means the
// drain has not started and the speed is reported as zero.
func aggregate(items []*Item, startedAt time.Time, clock TimeProvider) Snapshot {
	var snap Snapshot
	snap.Total = len(items)

	var progressSum int
	var completedBytes, remainingBytes int64

	for _, item := range items {
		progressSum += item.Progress

		switch item.Status {
		case StatusCompleted:
			snap.Completed++
			completedBytes += item.Size
		case StatusError, StatusCancelled:
			snap.Failed++
		case StatusUploading:
			snap.Uploading++
			remainingBytes += item.Size
		default:
			snap.Pending++
			remainingBytes += item.Size
		}
	}

	if snap.Total > 0 {
		snap.OverallProgress = float64(progressSum) / float64(snap.Total)
	}

	if !startedAt.IsZero() {
		if elapsed := clock.Since(startedAt).Seconds(); elapsed > 0 {
			snap.UploadSpeed = float64(completedBytes) / elapsed
		}
	}

	if snap.UploadSpeed > 0 {
		seconds := float64(remainingBytes) / snap.UploadSpeed
		snap.EstimatedTimeRemaining = time.Duration(seconds * float64(time.Second))
	}

	return snap
}
