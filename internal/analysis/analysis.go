// Package analysis models the speech-analysis collaborator. The real work
// happens in an external speech-to-text service; this package defines the
// interface handlers and the queue consumer program against, the HTTP client
// for the real service, and an explicit "unavailable" fallback.
package analysis

import (
	"context"
	"errors"
	"io"
)

// ErrUnavailable signals that no analysis capability is configured or
// reachable. Callers must surface it as a failed analysis; nobody in this
// codebase invents scores.
var ErrUnavailable = errors.New("analysis unavailable")

// Word status values.
const (
	WordCorrect = "correct"
	WordMissed  = "missed"
	WordExtra   = "extra"
)

// Pace classes derived from words-per-minute.
const (
	PaceSlow   = "slow"
	PaceSteady = "steady"
	PaceFast   = "fast"
)

// WordResult is the per-word verdict from aligning the transcript against the
// reference text.
type WordResult struct {
	Word   string `json:"word"`
	Status string `json:"status"`
}

// Result is a completed analysis of one recording.
type Result struct {
	Transcript      string
	AccuracyPct     float64
	FluencyScore    float64
	WordsPerMinute  float64
	PauseCount      int
	DurationSeconds float64
	Pace            string
	Words           []WordResult
}

// Transcriber scores an audio recording against a reference text. audio is
// consumed fully; filename is a hint for the upstream service's container
// detection.
type Transcriber interface {
	Analyze(ctx context.Context, audio io.Reader, filename, referenceText string) (*Result, error)
}

// paceClass buckets words-per-minute into a pace label. The steady band is
// centered on the 100 WPM target used when scoring fluency.
func paceClass(wpm float64) string {
	switch {
	case wpm < 60:
		return PaceSlow
	case wpm > 130:
		return PaceFast
	default:
		return PaceSteady
	}
}

// Unavailable is the degraded-mode Transcriber used when no speech service is
// configured. It refuses to analyze rather than fabricate metrics.
type Unavailable struct{}

func (Unavailable) Analyze(ctx context.Context, audio io.Reader, filename, referenceText string) (*Result, error) {
	return nil, ErrUnavailable
}
