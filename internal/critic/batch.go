package critic

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/pdiddy/note-critic/pkg/types"
)

// workerName identifies this component in the mission execution log.
const workerName = "NoteCritic"

// defaultRecentThoughts caps the thought-log context when the critic
// configuration does not set a limit.
const defaultRecentThoughts = 5

// ErrMissionNotFound is returned when a batch targets a mission the store
// does not know. It is fatal to the batch call only.
var ErrMissionNotFound = errors.New("mission not found")

// MissionStore is the store surface the orchestrator consumes. All
// mutations are independent, at-least-once idempotent calls: re-running a
// batch after a crash is safe because only unchecked notes are re-selected.
type MissionStore interface {
	// GetMission loads a mission and its notes, or returns (nil, nil) when
	// the mission does not exist.
	GetMission(ctx context.Context, missionID string) (*types.MissionContext, error)

	GetActiveGoals(ctx context.Context, missionID string) ([]types.GoalEntry, error)
	GetRecentThoughts(ctx context.Context, missionID string, limit int) ([]types.ThoughtEntry, error)
	GetScratchpad(ctx context.Context, missionID string) (string, error)

	// UpdateNoteVerification persists a note's new status and feedback and
	// appends the critique result to the note's history.
	UpdateNoteVerification(ctx context.Context, missionID, noteID string, status types.VerificationStatus, feedback string, result *types.CritiqueResult) error

	UpdateScratchpad(ctx context.Context, missionID, text string) error
	AddThought(ctx context.Context, missionID, agentName, content string) error
	LogStep(ctx context.Context, missionID, component, action, summary, status string) error
}

// HaltFunc reports whether processing for a mission should stop. It is
// polled once per note, before the audit; a mid-flight backend call is
// allowed to complete.
type HaltFunc func(missionID string) bool

// BatchSummary holds counts from one batch critique run.
type BatchSummary struct {
	// Critiqued counts notes transitioned to a terminal state.
	Critiqued int
	// Failed counts notes whose audit was inconclusive; they stay unchecked.
	Failed int
	// Halted counts unchecked notes left unprocessed after a halt.
	Halted int
}

// Total returns the number of unchecked notes the batch selected.
func (s BatchSummary) Total() int { return s.Critiqued + s.Failed + s.Halted }

// HasFailures reports whether any note's audit was inconclusive.
func (s BatchSummary) HasFailures() bool { return s.Failed > 0 }

// CritiqueAll audits every unchecked note of a mission, strictly in the
// store's order. The scratchpad is threaded from note to note: each audit
// sees the scratchpad reflecting all prior results in this batch. One
// note's failure never aborts the batch; the note simply stays unchecked
// and is picked up by the next run. Progress lines go to w.
func CritiqueAll(ctx context.Context, store MissionStore, worker *Worker, missionID string, halt HaltFunc, w io.Writer) (BatchSummary, error) {
	mctx, err := store.GetMission(ctx, missionID)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("loading mission %s: %w", missionID, err)
	}
	if mctx == nil {
		return BatchSummary{}, fmt.Errorf("mission %s: %w", missionID, ErrMissionNotFound)
	}

	goals, err := store.GetActiveGoals(ctx, missionID)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("loading goals: %w", err)
	}
	maxThoughts := worker.cfg.MaxRecentThoughts
	if maxThoughts <= 0 {
		maxThoughts = defaultRecentThoughts
	}
	thoughts, err := store.GetRecentThoughts(ctx, missionID, maxThoughts)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("loading thoughts: %w", err)
	}
	scratchpad, err := store.GetScratchpad(ctx, missionID)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("loading scratchpad: %w", err)
	}

	var unchecked []types.Note
	for _, note := range mctx.Notes {
		if note.VerificationStatus == types.StatusUnchecked {
			unchecked = append(unchecked, note)
		}
	}

	fmt.Fprintf(w, "critiquing %d unchecked notes in mission %s\n", len(unchecked), missionID)

	var summary BatchSummary
	for i, note := range unchecked {
		if ctx.Err() != nil || (halt != nil && halt(missionID)) {
			summary.Halted = len(unchecked) - i
			fmt.Fprintf(w, "halted with %d notes remaining\n", summary.Halted)
			break
		}

		outcome := worker.Audit(ctx, note, AuditContext{
			MissionID: missionID,
			// Notes carry no explicit section assignment; the mission's
			// own request stands in as the section goal.
			SectionGoal:    mctx.UserRequest,
			ActiveGoals:    goals,
			RecentThoughts: thoughts,
			Scratchpad:     scratchpad,
		})

		if outcome.Inconclusive() {
			summary.Failed++
			fmt.Fprintf(w, "failed  %s: %v\n", note.NoteID, outcome.Err)
			continue
		}

		result := outcome.Result
		for _, problem := range result.Validate() {
			fmt.Fprintf(w, "warning %s: %s\n", note.NoteID, problem)
		}

		if err := store.UpdateNoteVerification(ctx, missionID, note.NoteID, result.VerificationStatus, result.OverallAssessment, result); err != nil {
			summary.Failed++
			fmt.Fprintf(w, "failed  %s: persisting verification: %v\n", note.NoteID, err)
			continue
		}

		if outcome.ScratchpadUpdate != "" {
			if err := store.UpdateScratchpad(ctx, missionID, outcome.ScratchpadUpdate); err != nil {
				fmt.Fprintf(w, "warning %s: persisting scratchpad: %v\n", note.NoteID, err)
			}
			scratchpad = outcome.ScratchpadUpdate
		}

		if result.GeneratedThought != "" {
			if err := store.AddThought(ctx, missionID, workerName, result.GeneratedThought); err != nil {
				fmt.Fprintf(w, "warning %s: recording thought: %v\n", note.NoteID, err)
			}
		}

		summary.Critiqued++
		fmt.Fprintf(w, "critiqued %s status=%s\n", note.NoteID, result.VerificationStatus)
	}

	logSummary := fmt.Sprintf("Critiqued %d notes.", summary.Critiqued)
	if err := store.LogStep(ctx, missionID, workerName, "Batch Critique", logSummary, "success"); err != nil {
		fmt.Fprintf(w, "warning: recording batch log: %v\n", err)
	}
	fmt.Fprintln(w, logSummary)

	return summary, nil
}
