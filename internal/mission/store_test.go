// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mission

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/note-critic/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedMission(t *testing.T, store *Store) string {
	t.Helper()
	id, err := store.CreateMission(context.Background(), "", "Survey attention mechanisms")
	require.NoError(t, err)
	return id
}

func seedNote(t *testing.T, store *Store, missionID string, fields map[string]any) *types.Note {
	t.Helper()
	base := map[string]any{
		"content":     "The Transformer reaches 28.4 BLEU on WMT14 EN-DE.",
		"source_type": "document",
		"source_id":   "doc_attn",
	}
	for k, v := range fields {
		base[k] = v
	}
	note, err := types.NewNote(base)
	require.NoError(t, err)
	require.NoError(t, store.AddNote(context.Background(), missionID, note))
	return note
}

func TestMissionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missionID := seedMission(t, store)
	assert.NotEmpty(t, missionID)

	note := seedNote(t, store, missionID, map[string]any{
		"note_type": "literature",
		"tags":      []any{"nlp", "benchmarks"},
		"source_metadata": map[string]any{
			"title":              "Attention Is All You Need",
			"snippet":            "Our model achieves 28.4 BLEU.",
			"custom_ingest_flag": true,
		},
		"structured_analysis": map[string]any{
			"core_argument": "Self-attention replaces recurrence.",
			"key_findings":  []any{"28.4 BLEU"},
		},
	})

	mctx, err := store.GetMission(ctx, missionID)
	require.NoError(t, err)
	require.NotNil(t, mctx)
	assert.Equal(t, "Survey attention mechanisms", mctx.UserRequest)
	assert.Equal(t, types.MissionActive, mctx.Status)
	require.Len(t, mctx.Notes, 1)

	got := mctx.Notes[0]
	assert.Equal(t, note.NoteID, got.NoteID)
	assert.Equal(t, note.Content, got.Content)
	assert.Equal(t, types.NoteLiterature, got.NoteType)
	assert.Equal(t, types.StatusUnchecked, got.VerificationStatus)
	assert.Equal(t, []string{"nlp", "benchmarks"}, got.Tags)

	// Open metadata record: declared and custom keys both survive storage.
	assert.Equal(t, "Attention Is All You Need", got.SourceMetadata.Title())
	assert.Equal(t, "Our model achieves 28.4 BLEU.", got.SourceMetadata.Snippet())
	assert.Equal(t, true, got.SourceMetadata["custom_ingest_flag"])

	require.NotNil(t, got.StructuredAnalysis)
	assert.Equal(t, "Self-attention replaces recurrence.", got.StructuredAnalysis.CoreArgument)
}

func TestGetMissionUnknown(t *testing.T) {
	store := newTestStore(t)

	mctx, err := store.GetMission(context.Background(), "mission_nope")
	require.NoError(t, err)
	assert.Nil(t, mctx)
}

func TestNotesKeepInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	missionID := seedMission(t, store)

	var want []string
	for i := 0; i < 5; i++ {
		note := seedNote(t, store, missionID, map[string]any{
			"content": fmt.Sprintf("Note body %d", i),
		})
		want = append(want, note.NoteID)
	}

	notes, err := store.ListNotes(ctx, missionID)
	require.NoError(t, err)
	require.Len(t, notes, 5)
	for i, note := range notes {
		assert.Equal(t, want[i], note.NoteID)
	}
}

func TestUpdateNoteVerification(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	missionID := seedMission(t, store)
	note := seedNote(t, store, missionID, nil)

	result := &types.CritiqueResult{
		NoteID:            note.NoteID,
		OverallAssessment: "Claim matches the source.",
		AccuracyScore:     0.91,
		SourceAlignment: types.SourceAlignment{
			Aligned:            true,
			CoveragePercentage: 85,
		},
		VerificationStatus: types.StatusPassed,
		ScratchpadUpdate:   "verified",
	}

	err := store.UpdateNoteVerification(ctx, missionID, note.NoteID, types.StatusPassed, result.OverallAssessment, result)
	require.NoError(t, err)

	notes, err := store.ListNotes(ctx, missionID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	got := notes[0]

	assert.Equal(t, types.StatusPassed, got.VerificationStatus)
	assert.Equal(t, "Claim matches the source.", got.VerificationFeedback)

	require.Len(t, got.RevisionHistory, 1)
	rev := got.RevisionHistory[0]
	assert.Equal(t, "NoteCritic", rev.AgentName)
	assert.Equal(t, types.ChangeVerification, rev.ChangeKind)
	assert.Equal(t, string(types.StatusUnchecked), rev.OriginalValue)
	assert.Equal(t, string(types.StatusPassed), rev.NewValue)
	assert.False(t, rev.Timestamp.IsZero())

	require.Len(t, got.CritiqueResults, 1)
	assert.Equal(t, 0.91, got.CritiqueResults[0].AccuracyScore)

	// A second verdict appends, never replaces.
	err = store.UpdateNoteVerification(ctx, missionID, note.NoteID, types.StatusRevise, "second pass", nil)
	require.NoError(t, err)

	notes, err = store.ListNotes(ctx, missionID)
	require.NoError(t, err)
	got = notes[0]
	assert.Equal(t, types.StatusRevise, got.VerificationStatus)
	require.Len(t, got.RevisionHistory, 2)
	assert.Equal(t, string(types.StatusPassed), got.RevisionHistory[1].OriginalValue)
	assert.Len(t, got.CritiqueResults, 1, "nil result must not append to the critique history")
}

func TestUpdateNoteVerificationUnknownNote(t *testing.T) {
	store := newTestStore(t)
	missionID := seedMission(t, store)

	err := store.UpdateNoteVerification(context.Background(), missionID, "note_ghost", types.StatusPassed, "", nil)
	assert.Error(t, err)
}

func TestGetActiveGoalsFiltersStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	missionID := seedMission(t, store)

	require.NoError(t, store.AddGoal(ctx, missionID, "Cover attention mechanisms"))
	require.NoError(t, store.AddGoal(ctx, missionID, "Compare against RNN baselines"))

	// Retire the first goal directly; AddGoal always creates them active.
	_, err := store.db.Exec(`UPDATE goals SET status = 'done' WHERE text = ?`, "Cover attention mechanisms")
	require.NoError(t, err)

	goals, err := store.GetActiveGoals(ctx, missionID)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Compare against RNN baselines", goals[0].Text)
	assert.Equal(t, "active", goals[0].Status)
}

func TestGetRecentThoughtsLimitAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	missionID := seedMission(t, store)

	for i := 1; i <= 7; i++ {
		require.NoError(t, store.AddThought(ctx, missionID, "NoteCritic", fmt.Sprintf("thought %d", i)))
	}

	thoughts, err := store.GetRecentThoughts(ctx, missionID, 3)
	require.NoError(t, err)
	require.Len(t, thoughts, 3)

	// Most recent three, oldest first.
	assert.Equal(t, "thought 5", thoughts[0].Content)
	assert.Equal(t, "thought 6", thoughts[1].Content)
	assert.Equal(t, "thought 7", thoughts[2].Content)
}

func TestScratchpad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	missionID := seedMission(t, store)

	scratchpad, err := store.GetScratchpad(ctx, missionID)
	require.NoError(t, err)
	assert.Empty(t, scratchpad)

	require.NoError(t, store.UpdateScratchpad(ctx, missionID, "BLEU figures need double-checking."))

	scratchpad, err = store.GetScratchpad(ctx, missionID)
	require.NoError(t, err)
	assert.Equal(t, "BLEU figures need double-checking.", scratchpad)

	// Unknown missions read as empty rather than erroring.
	scratchpad, err = store.GetScratchpad(ctx, "mission_nope")
	require.NoError(t, err)
	assert.Empty(t, scratchpad)
}

func TestStopMission(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	missionID := seedMission(t, store)

	assert.False(t, store.IsStopped(ctx, missionID))

	require.NoError(t, store.StopMission(ctx, missionID))
	assert.True(t, store.IsStopped(ctx, missionID))

	mctx, err := store.GetMission(ctx, missionID)
	require.NoError(t, err)
	require.NotNil(t, mctx)
	assert.Equal(t, types.MissionStopped, mctx.Status)

	assert.Error(t, store.StopMission(ctx, "mission_nope"))
	assert.True(t, store.IsStopped(ctx, "mission_nope"), "unknown missions read as stopped")
}

func TestLogStep(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	missionID := seedMission(t, store)

	require.NoError(t, store.LogStep(ctx, missionID, "NoteCritic", "Batch Critique", "Critiqued 3 notes.", "success"))

	var summary, status string
	err := store.db.QueryRow(
		`SELECT summary, status FROM execution_log WHERE mission_id = ?`, missionID,
	).Scan(&summary, &status)
	require.NoError(t, err)
	assert.Equal(t, "Critiqued 3 notes.", summary)
	assert.Equal(t, "success", status)
}
