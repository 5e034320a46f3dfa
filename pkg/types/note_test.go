package types

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validNoteFields() map[string]any {
	return map[string]any{
		"content":     "Transformers improve translation quality.",
		"source_type": "document",
		"source_id":   "doc_001",
	}
}

func TestNewNoteDefaults(t *testing.T) {
	note, err := NewNote(validNoteFields())
	if err != nil {
		t.Fatalf("NewNote: %v", err)
	}

	if !strings.HasPrefix(note.NoteID, "note_") {
		t.Errorf("NoteID = %q, want note_ prefix", note.NoteID)
	}
	if note.NoteType != NoteFleeting {
		t.Errorf("NoteType = %q, want %q", note.NoteType, NoteFleeting)
	}
	if note.VerificationStatus != StatusUnchecked {
		t.Errorf("VerificationStatus = %q, want %q", note.VerificationStatus, StatusUnchecked)
	}
	if note.CreatedAt.IsZero() || note.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
	if note.SourceMetadata == nil {
		t.Error("SourceMetadata should default to an empty mapping")
	}
}

func TestNewNoteGeneratedIDsDiffer(t *testing.T) {
	a, err := NewNote(validNoteFields())
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewNote(validNoteFields())
	if err != nil {
		t.Fatal(err)
	}
	if a.NoteID == b.NoteID {
		t.Errorf("two generated ids are equal: %s", a.NoteID)
	}
}

func TestNewNoteRejectsUnknownField(t *testing.T) {
	fields := validNoteFields()
	fields["importance"] = "high"

	_, err := NewNote(fields)
	if err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if verr.Field != "importance" {
		t.Errorf("Field = %q, want %q", verr.Field, "importance")
	}
}

func TestNewNoteMetadataPassthrough(t *testing.T) {
	fields := validNoteFields()
	fields["source_metadata"] = map[string]any{
		"title":              "Attention Is All You Need",
		"snippet":            "We propose the Transformer.",
		"original_chunk_ids": []any{"c1", "c2"},
		"window_position":    map[string]any{"start": 0, "end": 512},
		"custom_ingest_flag": true,
	}

	note, err := NewNote(fields)
	if err != nil {
		t.Fatalf("NewNote: %v", err)
	}

	if got := note.SourceMetadata.Title(); got != "Attention Is All You Need" {
		t.Errorf("Title() = %q", got)
	}
	if got := note.SourceMetadata.Snippet(); got != "We propose the Transformer." {
		t.Errorf("Snippet() = %q", got)
	}
	// The metadata record is open: unknown keys survive construction.
	if _, ok := note.SourceMetadata["custom_ingest_flag"]; !ok {
		t.Error("custom_ingest_flag dropped from source metadata")
	}
	if _, ok := note.SourceMetadata["window_position"]; !ok {
		t.Error("window_position dropped from source metadata")
	}
}

func TestNewNoteRequiredAndEnumFields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(map[string]any)
		wantField string
	}{
		{
			name:      "missing content",
			mutate:    func(m map[string]any) { delete(m, "content") },
			wantField: "content",
		},
		{
			name:      "missing source_id",
			mutate:    func(m map[string]any) { delete(m, "source_id") },
			wantField: "source_id",
		},
		{
			name:      "invalid source_type",
			mutate:    func(m map[string]any) { m["source_type"] = "carrier-pigeon" },
			wantField: "source_type",
		},
		{
			name:      "invalid note_type",
			mutate:    func(m map[string]any) { m["note_type"] = "ephemeral" },
			wantField: "note_type",
		},
		{
			name:      "invalid verification_status",
			mutate:    func(m map[string]any) { m["verification_status"] = "maybe" },
			wantField: "verification_status",
		},
		{
			name:      "structured_analysis not a mapping",
			mutate:    func(m map[string]any) { m["structured_analysis"] = "just a blob" },
			wantField: "structured_analysis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validNoteFields()
			tt.mutate(fields)

			_, err := NewNote(fields)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestNewNoteStructuredAnalysis(t *testing.T) {
	fields := validNoteFields()
	fields["note_type"] = "literature"
	fields["structured_analysis"] = map[string]any{
		"core_argument": "Self-attention replaces recurrence.",
		"key_findings":  []any{"28.4 BLEU on WMT14", "Trains faster than RNNs"},
		"quotes":        []any{"\"Attention is all you need.\" (p.1)"},
	}

	note, err := NewNote(fields)
	if err != nil {
		t.Fatalf("NewNote: %v", err)
	}
	if note.NoteType != NoteLiterature {
		t.Errorf("NoteType = %q, want literature", note.NoteType)
	}
	analysis := note.StructuredAnalysis
	if analysis == nil {
		t.Fatal("StructuredAnalysis is nil")
	}
	if analysis.CoreArgument != "Self-attention replaces recurrence." {
		t.Errorf("CoreArgument = %q", analysis.CoreArgument)
	}
	if len(analysis.KeyFindings) != 2 {
		t.Errorf("KeyFindings = %v, want 2 entries", analysis.KeyFindings)
	}
	if len(analysis.Quotes) != 1 {
		t.Errorf("Quotes = %v, want 1 entry", analysis.Quotes)
	}
}

func TestRecordRevision(t *testing.T) {
	note, err := NewNote(validNoteFields())
	if err != nil {
		t.Fatal(err)
	}
	before := note.UpdatedAt

	time.Sleep(time.Millisecond)
	note.RecordRevision(NoteRevision{
		AgentName:     "NoteCritic",
		ChangeKind:    ChangeVerification,
		OriginalValue: "unchecked",
		NewValue:      "passed",
	})

	if len(note.RevisionHistory) != 1 {
		t.Fatalf("RevisionHistory length = %d, want 1", len(note.RevisionHistory))
	}
	rev := note.RevisionHistory[0]
	if rev.Timestamp.IsZero() {
		t.Error("revision timestamp not filled in")
	}
	if !note.UpdatedAt.After(before) {
		t.Error("UpdatedAt not bumped by revision")
	}
}
