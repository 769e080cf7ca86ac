// Package pipeline holds the progress events emitted by an analysis run.
package pipeline

import (
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
	"github.com/kailas-cloud/medscribe/internal/domain/search/result"
)

// Status is the stage a run has entered.
type Status string

// Run stages in emission order. ERROR may replace any stage after STARTED.
const (
	StatusStarted    Status = "started"
	StatusSearching  Status = "searching"
	StatusPreparing  Status = "preparing"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// IsTerminal reports whether no event follows this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Mode selects the workflow a run executes.
type Mode string

// Workflows.
const (
	ModeAnalyze    Mode = "analyze"
	ModeTranscript Mode = "transcript"
)

// Event is one progress record. Payload is set only on COMPLETED.
type Event struct {
	Status  Status
	Message string
	Payload *Payload
}

// Payload is the full result of a completed run.
// SimilarDocuments is populated in analyze mode only.
type Payload struct {
	Mode             Mode
	Text             string
	SimilarDocuments []result.Result
	Info             generation.Info
}
