// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NoteType classifies a research note.
type NoteType string

const (
	// NoteFleeting is a raw copy-paste or quick thought.
	NoteFleeting NoteType = "fleeting"
	// NoteLiterature is a synthesized summary of a source.
	NoteLiterature NoteType = "literature"
	// NotePermanent is an atomic, self-contained idea.
	NotePermanent NoteType = "permanent"
)

// SourceType identifies the origin of a note's source material.
type SourceType string

const (
	SourceDocument SourceType = "document"
	SourceWeb      SourceType = "web"
	SourceInternal SourceType = "internal"
)

// VerificationStatus is the audit state of a note.
type VerificationStatus string

const (
	StatusUnchecked VerificationStatus = "unchecked"
	StatusPassed    VerificationStatus = "passed"
	StatusRevise    VerificationStatus = "revise"
)

// ChangeKind categorizes a note revision.
type ChangeKind string

const (
	ChangeContent            ChangeKind = "content"
	ChangeStructuredAnalysis ChangeKind = "structured_analysis"
	ChangeVerification       ChangeKind = "verification"
)

// SourceMetadata describes where a note's content came from. Ingestion
// attaches arbitrary provenance fields (chunk ids, window positions, and so
// on), so the record is an open mapping: unknown keys are preserved, never
// rejected. Well-known fields are reached through accessors.
type SourceMetadata map[string]any

// Title returns the source document title, if present.
func (m SourceMetadata) Title() string { return m.str("title") }

// Snippet returns the source text snippet, if present.
func (m SourceMetadata) Snippet() string { return m.str("snippet") }

// Authors returns the source authors, if present.
func (m SourceMetadata) Authors() string { return m.str("authors") }

// URL returns the source URL for web sources, if present.
func (m SourceMetadata) URL() string { return m.str("url") }

func (m SourceMetadata) str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// NoteAnalysis is a structured breakdown of a note's content, used for
// higher-value literature notes instead of a single blob string.
type NoteAnalysis struct {
	// CoreArgument is a one sentence summary of the main point.
	CoreArgument string `json:"core_argument,omitempty" yaml:"core_argument,omitempty"`

	// KeyFindings lists specific facts or discoveries.
	KeyFindings []string `json:"key_findings,omitempty" yaml:"key_findings,omitempty"`

	// Methodology records how the information was derived.
	Methodology string `json:"methodology,omitempty" yaml:"methodology,omitempty"`

	// Quotes holds verbatim quotes with page or location references.
	Quotes []string `json:"quotes,omitempty" yaml:"quotes,omitempty"`

	// CriticalAnalysis is the gathering agent's critique of the source.
	CriticalAnalysis string `json:"critical_analysis,omitempty" yaml:"critical_analysis,omitempty"`
}

// NoteRevision records one modification to a note.
type NoteRevision struct {
	Timestamp     time.Time  `json:"timestamp" yaml:"timestamp"`
	AgentName     string     `json:"agent_name" yaml:"agent_name"`
	ChangeKind    ChangeKind `json:"change_type" yaml:"change_type"`
	OriginalValue string     `json:"original_value" yaml:"original_value"`
	NewValue      string     `json:"new_value" yaml:"new_value"`
	Feedback      string     `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// Note is a single piece of information gathered during research, carrying
// its own verification state and audit trail. The core record is a closed
// contract: construction rejects unknown fields. Only the embedded
// SourceMetadata is open-ended.
type Note struct {
	// NoteID is the stable identifier, immutable once assigned.
	NoteID string `json:"note_id" yaml:"note_id"`

	// Content is the main textual body of the note.
	Content string `json:"content" yaml:"content"`

	// StructuredAnalysis is an optional breakdown for high-value notes.
	StructuredAnalysis *NoteAnalysis `json:"structured_analysis,omitempty" yaml:"structured_analysis,omitempty"`

	// SourceType is the origin type: document, web, or internal.
	SourceType SourceType `json:"source_type" yaml:"source_type"`

	// SourceID identifies the specific source.
	SourceID string `json:"source_id" yaml:"source_id"`

	// SourceMetadata carries open-ended provenance fields.
	SourceMetadata SourceMetadata `json:"source_metadata" yaml:"source_metadata"`

	// NoteType classifies the note: fleeting, literature, or permanent.
	NoteType NoteType `json:"note_type" yaml:"note_type"`

	// Tags are free-form semantic labels.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// VerificationStatus is the critic's verdict on this note.
	VerificationStatus VerificationStatus `json:"verification_status" yaml:"verification_status"`

	// VerificationFeedback is the critic's most recent assessment text.
	VerificationFeedback string `json:"verification_feedback,omitempty" yaml:"verification_feedback,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	// RevisionHistory tracks all modifications, oldest first.
	RevisionHistory []NoteRevision `json:"revision_history,omitempty" yaml:"revision_history,omitempty"`

	// CritiqueResults is the append-only history of critique passes.
	CritiqueResults []CritiqueResult `json:"critique_results,omitempty" yaml:"critique_results,omitempty"`
}

// noteFields is the closed set of keys NewNote accepts.
var noteFields = map[string]bool{
	"note_id":               true,
	"content":               true,
	"structured_analysis":   true,
	"source_type":           true,
	"source_id":             true,
	"source_metadata":       true,
	"note_type":             true,
	"tags":                  true,
	"verification_status":   true,
	"verification_feedback": true,
	"created_at":            true,
	"updated_at":            true,
	"revision_history":      true,
	"critique_results":      true,
}

// NewNoteID returns a fresh note identifier.
func NewNoteID() string {
	return "note_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewNote constructs a Note from a mapping of field names to values.
// Unknown top-level keys are rejected; contrast SourceMetadata, which keeps
// whatever keys it is given. Missing optional fields receive defaults:
// a generated note_id, fleeting note_type, unchecked verification_status,
// and current timestamps.
func NewNote(fields map[string]any) (*Note, error) {
	for key := range fields {
		if !noteFields[key] {
			return nil, &ValidationError{Field: key, Reason: "unknown field"}
		}
	}

	content, err := reqString(fields, "content")
	if err != nil {
		return nil, err
	}
	sourceID, err := reqString(fields, "source_id")
	if err != nil {
		return nil, err
	}
	sourceTypeRaw, err := reqString(fields, "source_type")
	if err != nil {
		return nil, err
	}
	sourceType := SourceType(sourceTypeRaw)
	switch sourceType {
	case SourceDocument, SourceWeb, SourceInternal:
	default:
		return nil, &ValidationError{Field: "source_type", Reason: fmt.Sprintf("invalid value %q", sourceTypeRaw)}
	}

	now := time.Now().UTC()
	note := &Note{
		NoteID:             optString(fields, "note_id"),
		Content:            content,
		SourceType:         sourceType,
		SourceID:           sourceID,
		SourceMetadata:     SourceMetadata{},
		NoteType:           NoteFleeting,
		VerificationStatus: StatusUnchecked,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if note.NoteID == "" {
		note.NoteID = NewNoteID()
	}

	if raw, ok := fields["source_metadata"]; ok && raw != nil {
		meta, ok := asMap(raw)
		if !ok {
			return nil, &ValidationError{Field: "source_metadata", Reason: "not a mapping"}
		}
		note.SourceMetadata = SourceMetadata(meta)
	}

	if raw, ok := fields["structured_analysis"]; ok && raw != nil {
		m, ok := asMap(raw)
		if !ok {
			return nil, &ValidationError{Field: "structured_analysis", Reason: "not a mapping"}
		}
		note.StructuredAnalysis = &NoteAnalysis{
			CoreArgument:     optString(m, "core_argument"),
			KeyFindings:      optStringList(m, "key_findings"),
			Methodology:      optString(m, "methodology"),
			Quotes:           optStringList(m, "quotes"),
			CriticalAnalysis: optString(m, "critical_analysis"),
		}
	}

	if raw := optString(fields, "note_type"); raw != "" {
		nt := NoteType(raw)
		switch nt {
		case NoteFleeting, NoteLiterature, NotePermanent:
			note.NoteType = nt
		default:
			return nil, &ValidationError{Field: "note_type", Reason: fmt.Sprintf("invalid value %q", raw)}
		}
	}

	if raw := optString(fields, "verification_status"); raw != "" {
		vs := VerificationStatus(raw)
		switch vs {
		case StatusUnchecked, StatusPassed, StatusRevise:
			note.VerificationStatus = vs
		default:
			return nil, &ValidationError{Field: "verification_status", Reason: fmt.Sprintf("invalid value %q", raw)}
		}
	}

	note.Tags = optStringList(fields, "tags")
	note.VerificationFeedback = optString(fields, "verification_feedback")

	return note, nil
}

// RecordRevision appends a revision entry and bumps the update timestamp.
func (n *Note) RecordRevision(rev NoteRevision) {
	if rev.Timestamp.IsZero() {
		rev.Timestamp = time.Now().UTC()
	}
	n.RevisionHistory = append(n.RevisionHistory, rev)
	n.UpdatedAt = rev.Timestamp
}
