// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package critic audits research notes against their sources and mission
// goals through an external model backend, and runs that audit over a
// mission's unchecked notes as a batch.
package critic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/note-critic/internal/reply"
	"github.com/pdiddy/note-critic/pkg/types"
)

// Backend abstracts the model API so tests can supply a mock. Invoke issues
// a single non-streaming call and returns the reply's text payload plus call
// metadata. Metadata is populated on a best-effort basis even when the call
// fails.
type Backend interface {
	Invoke(ctx context.Context, prompt string) (Reply, error)
}

// Reply is one model backend response.
type Reply struct {
	// Text is the single text payload. Empty on failure.
	Text string

	Meta CallMetadata
}

// CallMetadata describes one backend call for observability.
type CallMetadata struct {
	Model   string
	Elapsed time.Duration
}

// BackendError reports a failed or empty model backend call. It is
// non-fatal: the audit that hit it is inconclusive, nothing more.
type BackendError struct {
	Reason string
	Err    error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model backend: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("model backend: %s", e.Reason)
}

func (e *BackendError) Unwrap() error { return e.Err }

// AuditContext carries the mission-level inputs for one note audit.
type AuditContext struct {
	// MissionID correlates the audit with its mission.
	MissionID string

	// SectionGoal is the goal the note is evaluated against.
	SectionGoal string

	// ActiveGoals lists the mission's active goals. May be empty.
	ActiveGoals []types.GoalEntry

	// RecentThoughts lists recent thought-log entries. May be empty.
	RecentThoughts []types.ThoughtEntry

	// Scratchpad is the running scratchpad carried between audits.
	Scratchpad string
}

// Outcome is the result of one audit pass. A nil Result means the audit was
// inconclusive: the backend failed, or its reply did not parse or validate.
// Err classifies the failure and is informational only; callers must treat
// an inconclusive outcome as non-fatal.
type Outcome struct {
	Result           *types.CritiqueResult
	ScratchpadUpdate string
	Meta             CallMetadata
	Err              error
}

// Inconclusive reports whether the audit produced no usable critique.
func (o Outcome) Inconclusive() bool { return o.Result == nil }

// Worker critiques notes one at a time through a model backend. It has no
// side effects beyond the outbound call; persisting results is the
// orchestrator's job.
type Worker struct {
	backend Backend
	cfg     types.CriticConfig
}

// NewWorker returns a Worker using the given backend and configuration.
func NewWorker(backend Backend, cfg types.CriticConfig) *Worker {
	return &Worker{backend: backend, cfg: cfg}
}

// Audit critiques one note against its source snippet and the mission
// context. It issues exactly one backend call, parses the reply into a
// CritiqueResult, and forces the result's note id to the audited note's id:
// the model's self-reported id is never trusted. Failures of any kind are
// folded into the returned Outcome and never escape as errors.
func (w *Worker) Audit(ctx context.Context, note types.Note, actx AuditContext) Outcome {
	prompt, err := BuildPrompt(note, actx)
	if err != nil {
		return Outcome{Err: fmt.Errorf("assembling prompt: %w", err)}
	}

	resp, err := w.backend.Invoke(ctx, prompt)
	if err != nil {
		return Outcome{Meta: resp.Meta, Err: &BackendError{Reason: "call failed", Err: err}}
	}
	if strings.TrimSpace(resp.Text) == "" {
		return Outcome{Meta: resp.Meta, Err: &BackendError{Reason: "empty reply"}}
	}

	result, err := reply.ToResult(resp.Text)
	if err != nil {
		return Outcome{Meta: resp.Meta, Err: err}
	}

	result.NoteID = note.NoteID

	return Outcome{
		Result:           result,
		ScratchpadUpdate: result.ScratchpadUpdate,
		Meta:             resp.Meta,
	}
}
