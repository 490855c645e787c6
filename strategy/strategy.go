// Package strategy selects the transfer strategy for individual files based
// on their size and MIME type.
//
// Strategy selection is a pure function of the file's declared size and type
// against configurable thresholds, so the same file always maps to the same
// strategy under the same configuration.
//
// Example:
//
//	selector := strategy.NewSelector(strategy.DefaultConfig())
//	s := selector.Select("video/mp4", 200<<20) // strategy.Streaming
package strategy

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Strategy identifies how a single file's bytes are transferred.
type Strategy uint8

const (
	// Direct sends the whole payload in a single request.
	Direct Strategy = iota
	// Chunked splits the payload into independently sent parts.
	Chunked
	// Streaming sends the payload as a continuous stream, used for large
	// video files.
	Streaming
	// Hybrid combines direct and chunked behavior for mid-sized files.
	Hybrid
)

// String returns the lower-case name of the strategy.
func (s Strategy) String() string {
	switch s {
	case Direct:
		return "direct"
	case Chunked:
		return "chunked"
	case Streaming:
		return "streaming"
	case Hybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Config holds the selection thresholds. Thresholds are configuration rather
// than constants so deployments can tune them without code changes.
type Config struct {
	// AutoSelect enables threshold-based selection. When false every file
	// maps to Direct.
	AutoSelect bool

	// DirectMax is the exclusive upper bound for Direct selection.
	DirectMax int64

	// ChunkedMin is the exclusive lower bound for Chunked selection.
	ChunkedMin int64

	// StreamingVideoMin is the exclusive lower bound for Streaming
	// selection of video files. Evaluated before ChunkedMin; a large video
	// must stream even though it also clears the chunked threshold.
	StreamingVideoMin int64
}

// DefaultConfig returns the stock thresholds: direct under 10 MiB, streaming
// for video over 100 MiB, chunked over 50 MiB, hybrid otherwise.
func DefaultConfig() Config {
	return Config{
		AutoSelect:        true,
		DirectMax:         10 * 1024 * 1024,
		ChunkedMin:        50 * 1024 * 1024,
		StreamingVideoMin: 100 * 1024 * 1024,
	}
}

// Selector maps files to strategies under a fixed Config.
type Selector struct {
	config Config
}

// NewSelector creates a Selector with the given configuration.
func NewSelector(config Config) *Selector {
	logrus.WithFields(logrus.Fields{
		"function":            "NewSelector",
		"auto_select":         config.AutoSelect,
		"direct_max":          config.DirectMax,
		"chunked_min":         config.ChunkedMin,
		"streaming_video_min": config.StreamingVideoMin,
	}).Debug("Creating strategy selector")

	return &Selector{config: config}
}

// Select returns the strategy for a file with the given MIME type and size.
//
// The evaluation order is significant: the video/streaming rule runs before
// the generic chunked rule so that large videos stream rather than chunk.
func (s *Selector) Select(mimeType string, size int64) Strategy {
	if !s.config.AutoSelect {
		return Direct
	}

	switch {
	case size < s.config.DirectMax:
		return Direct
	case isVideo(mimeType) && size > s.config.StreamingVideoMin:
		return Streaming
	case size > s.config.ChunkedMin:
		return Chunked
	default:
		return Hybrid
	}
}

// EstimateChunks returns the number of parts a Chunked upload of the given
// size would produce at the given chunk size. Returns 1 for non-positive
// chunk sizes.
func EstimateChunks(size, chunkSize int64) int {
	if chunkSize <= 0 || size <= 0 {
		return 1
	}
	n := size / chunkSize
	if size%chunkSize != 0 {
		n++
	}
	return int(n)
}

// isVideo reports whether the MIME type belongs to the video family.
func isVideo(mimeType string) bool {
	return strings.HasPrefix(mimeType, "video/")
}
