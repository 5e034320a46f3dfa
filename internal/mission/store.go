// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mission persists missions, research notes, goals, thoughts, and
// the execution log in a local SQLite database. It is the concrete store
// behind the critic orchestrator's MissionStore interface.
package mission

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/note-critic/pkg/types"
)

const dbFile = "missions.db"

// criticAgent names the critic in note revision entries.
const criticAgent = "NoteCritic"

// Store manages the mission SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the mission database at dataDir/missions.db and
// bootstraps the schema.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS missions (
			id TEXT PRIMARY KEY,
			user_request TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			scratchpad TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notes (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			mission_id TEXT NOT NULL REFERENCES missions(id),
			content TEXT NOT NULL,
			structured_analysis TEXT,
			source_type TEXT NOT NULL,
			source_id TEXT NOT NULL,
			source_metadata TEXT,
			note_type TEXT NOT NULL,
			tags TEXT,
			verification_status TEXT NOT NULL,
			verification_feedback TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			revision_history TEXT,
			critique_results TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_mission_id ON notes(mission_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_status ON notes(verification_status)`,
		`CREATE TABLE IF NOT EXISTS goals (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			mission_id TEXT NOT NULL REFERENCES missions(id),
			text TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS thoughts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			mission_id TEXT NOT NULL REFERENCES missions(id),
			agent_name TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS execution_log (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			mission_id TEXT NOT NULL REFERENCES missions(id),
			component TEXT NOT NULL,
			action TEXT NOT NULL,
			summary TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseStamp(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateMission inserts a new active mission and returns its id. When id is
// empty a fresh one is generated.
func (s *Store) CreateMission(ctx context.Context, id, userRequest string) (string, error) {
	if id == "" {
		id = newID("mission")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO missions (id, user_request, status, scratchpad, created_at) VALUES (?, ?, ?, '', ?)`,
		id, userRequest, string(types.MissionActive), nowStamp(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting mission: %w", err)
	}
	return id, nil
}

// AddNote persists a note under a mission. Insertion order is the store's
// native note order.
func (s *Store) AddNote(ctx context.Context, missionID string, note *types.Note) error {
	analysisJSON, err := marshalOrNull(note.StructuredAnalysis)
	if err != nil {
		return fmt.Errorf("encoding structured analysis: %w", err)
	}
	metadataJSON, err := json.Marshal(note.SourceMetadata)
	if err != nil {
		return fmt.Errorf("encoding source metadata: %w", err)
	}
	tagsJSON, _ := json.Marshal(note.Tags)
	revisionsJSON, _ := json.Marshal(note.RevisionHistory)
	critiquesJSON, _ := json.Marshal(note.CritiqueResults)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notes (id, mission_id, content, structured_analysis, source_type, source_id,
			source_metadata, note_type, tags, verification_status, verification_feedback,
			created_at, updated_at, revision_history, critique_results)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.NoteID, missionID, note.Content, analysisJSON, string(note.SourceType), note.SourceID,
		string(metadataJSON), string(note.NoteType), string(tagsJSON),
		string(note.VerificationStatus), note.VerificationFeedback,
		note.CreatedAt.UTC().Format(time.RFC3339Nano), note.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(revisionsJSON), string(critiquesJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting note %s: %w", note.NoteID, err)
	}
	return nil
}

func marshalOrNull(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// AddGoal records a mission goal.
func (s *Store) AddGoal(ctx context.Context, missionID, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (id, mission_id, text, status, created_at) VALUES (?, ?, ?, 'active', ?)`,
		newID("goal"), missionID, text, nowStamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting goal: %w", err)
	}
	return nil
}

// AddThought appends an entry to the mission-wide thought log.
func (s *Store) AddThought(ctx context.Context, missionID, agentName, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO thoughts (id, mission_id, agent_name, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		newID("thought"), missionID, agentName, content, nowStamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting thought: %w", err)
	}
	return nil
}

// GetMission loads a mission and its notes in insertion order. Returns
// (nil, nil) when the mission does not exist.
func (s *Store) GetMission(ctx context.Context, missionID string) (*types.MissionContext, error) {
	var (
		userRequest string
		status      string
		createdAt   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_request, status, created_at FROM missions WHERE id = ?`, missionID,
	).Scan(&userRequest, &status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying mission: %w", err)
	}

	notes, err := s.ListNotes(ctx, missionID)
	if err != nil {
		return nil, err
	}

	return &types.MissionContext{
		MissionID:   missionID,
		UserRequest: userRequest,
		Status:      types.MissionStatus(status),
		Notes:       notes,
		CreatedAt:   parseStamp(createdAt),
	}, nil
}

// ListNotes returns a mission's notes in the store's native order.
func (s *Store) ListNotes(ctx context.Context, missionID string) ([]types.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, structured_analysis, source_type, source_id, source_metadata,
			note_type, tags, verification_status, verification_feedback,
			created_at, updated_at, revision_history, critique_results
		 FROM notes WHERE mission_id = ? ORDER BY rowid`, missionID)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []types.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func scanNote(rows *sql.Rows) (types.Note, error) {
	var (
		note         types.Note
		analysisJSON sql.NullString
		sourceType   string
		metadataJSON sql.NullString
		noteType     string
		tagsJSON     sql.NullString
		status       string
		feedback     sql.NullString
		createdAt    string
		updatedAt    string
		revJSON      sql.NullString
		critJSON     sql.NullString
	)
	err := rows.Scan(&note.NoteID, &note.Content, &analysisJSON, &sourceType, &note.SourceID,
		&metadataJSON, &noteType, &tagsJSON, &status, &feedback,
		&createdAt, &updatedAt, &revJSON, &critJSON)
	if err != nil {
		return types.Note{}, fmt.Errorf("scanning note: %w", err)
	}

	note.SourceType = types.SourceType(sourceType)
	note.NoteType = types.NoteType(noteType)
	note.VerificationStatus = types.VerificationStatus(status)
	note.VerificationFeedback = feedback.String
	note.CreatedAt = parseStamp(createdAt)
	note.UpdatedAt = parseStamp(updatedAt)
	note.SourceMetadata = types.SourceMetadata{}

	if analysisJSON.Valid && analysisJSON.String != "" {
		var analysis types.NoteAnalysis
		if err := json.Unmarshal([]byte(analysisJSON.String), &analysis); err != nil {
			return types.Note{}, fmt.Errorf("decoding structured analysis for %s: %w", note.NoteID, err)
		}
		note.StructuredAnalysis = &analysis
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &note.SourceMetadata); err != nil {
			return types.Note{}, fmt.Errorf("decoding source metadata for %s: %w", note.NoteID, err)
		}
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		json.Unmarshal([]byte(tagsJSON.String), &note.Tags)
	}
	if revJSON.Valid && revJSON.String != "" {
		if err := json.Unmarshal([]byte(revJSON.String), &note.RevisionHistory); err != nil {
			return types.Note{}, fmt.Errorf("decoding revision history for %s: %w", note.NoteID, err)
		}
	}
	if critJSON.Valid && critJSON.String != "" {
		if err := json.Unmarshal([]byte(critJSON.String), &note.CritiqueResults); err != nil {
			return types.Note{}, fmt.Errorf("decoding critique results for %s: %w", note.NoteID, err)
		}
	}
	return note, nil
}

// GetActiveGoals returns a mission's goals with status "active", in
// insertion order.
func (s *Store) GetActiveGoals(ctx context.Context, missionID string) ([]types.GoalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, status, created_at FROM goals
		 WHERE mission_id = ? AND status = 'active' ORDER BY rowid`, missionID)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()

	var goals []types.GoalEntry
	for rows.Next() {
		var g types.GoalEntry
		var createdAt string
		if err := rows.Scan(&g.GoalID, &g.Text, &g.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		g.CreatedAt = parseStamp(createdAt)
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// GetRecentThoughts returns the limit most recent thought entries in
// chronological order.
func (s *Store) GetRecentThoughts(ctx context.Context, missionID string, limit int) ([]types.ThoughtEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, agent_name, content, created_at FROM thoughts
		 WHERE mission_id = ? ORDER BY rowid DESC LIMIT ?`, missionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying thoughts: %w", err)
	}
	defer rows.Close()

	var thoughts []types.ThoughtEntry
	for rows.Next() {
		var t types.ThoughtEntry
		var createdAt string
		if err := rows.Scan(&t.ThoughtID, &t.AgentName, &t.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning thought: %w", err)
		}
		t.CreatedAt = parseStamp(createdAt)
		thoughts = append(thoughts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; flip to chronological.
	for i, j := 0, len(thoughts)-1; i < j; i, j = i+1, j-1 {
		thoughts[i], thoughts[j] = thoughts[j], thoughts[i]
	}
	return thoughts, nil
}

// GetScratchpad returns the mission's running scratchpad, or "" when the
// mission does not exist.
func (s *Store) GetScratchpad(ctx context.Context, missionID string) (string, error) {
	var scratchpad string
	err := s.db.QueryRowContext(ctx,
		`SELECT scratchpad FROM missions WHERE id = ?`, missionID,
	).Scan(&scratchpad)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying scratchpad: %w", err)
	}
	return scratchpad, nil
}

// UpdateScratchpad replaces the mission's scratchpad text.
func (s *Store) UpdateScratchpad(ctx context.Context, missionID, text string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE missions SET scratchpad = ? WHERE id = ?`, text, missionID)
	if err != nil {
		return fmt.Errorf("updating scratchpad: %w", err)
	}
	return nil
}

// UpdateNoteVerification persists a critique verdict: the note's status and
// feedback are updated, the full result is appended to its critique
// history, and a verification revision is recorded.
func (s *Store) UpdateNoteVerification(ctx context.Context, missionID, noteID string, status types.VerificationStatus, feedback string, result *types.CritiqueResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		oldStatus string
		revJSON   sql.NullString
		critJSON  sql.NullString
	)
	err = tx.QueryRowContext(ctx,
		`SELECT verification_status, revision_history, critique_results
		 FROM notes WHERE id = ? AND mission_id = ?`, noteID, missionID,
	).Scan(&oldStatus, &revJSON, &critJSON)
	if err == sql.ErrNoRows {
		return fmt.Errorf("note %s not found in mission %s", noteID, missionID)
	}
	if err != nil {
		return fmt.Errorf("querying note %s: %w", noteID, err)
	}

	var revisions []types.NoteRevision
	if revJSON.Valid && revJSON.String != "" {
		if err := json.Unmarshal([]byte(revJSON.String), &revisions); err != nil {
			return fmt.Errorf("decoding revision history: %w", err)
		}
	}
	var critiques []types.CritiqueResult
	if critJSON.Valid && critJSON.String != "" {
		if err := json.Unmarshal([]byte(critJSON.String), &critiques); err != nil {
			return fmt.Errorf("decoding critique results: %w", err)
		}
	}

	now := time.Now().UTC()
	revisions = append(revisions, types.NoteRevision{
		Timestamp:     now,
		AgentName:     criticAgent,
		ChangeKind:    types.ChangeVerification,
		OriginalValue: oldStatus,
		NewValue:      string(status),
		Feedback:      feedback,
	})
	if result != nil {
		critiques = append(critiques, *result)
	}

	newRevJSON, _ := json.Marshal(revisions)
	newCritJSON, _ := json.Marshal(critiques)

	_, err = tx.ExecContext(ctx,
		`UPDATE notes SET verification_status = ?, verification_feedback = ?,
			revision_history = ?, critique_results = ?, updated_at = ?
		 WHERE id = ? AND mission_id = ?`,
		string(status), feedback, string(newRevJSON), string(newCritJSON),
		now.Format(time.RFC3339Nano), noteID, missionID,
	)
	if err != nil {
		return fmt.Errorf("updating note %s: %w", noteID, err)
	}

	return tx.Commit()
}

// LogStep appends an execution log entry for a mission.
func (s *Store) LogStep(ctx context.Context, missionID, component, action, summary, status string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_log (mission_id, component, action, summary, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		missionID, component, action, summary, status, nowStamp(),
	)
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

// StopMission marks a mission stopped. The critique batch polls this state
// as its cancellation signal.
func (s *Store) StopMission(ctx context.Context, missionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE missions SET status = ? WHERE id = ?`, string(types.MissionStopped), missionID)
	if err != nil {
		return fmt.Errorf("stopping mission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mission %s not found", missionID)
	}
	return nil
}

// IsStopped reports whether a mission has been marked stopped. Unknown
// missions read as stopped so a halt poll can never resurrect one.
func (s *Store) IsStopped(ctx context.Context, missionID string) bool {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM missions WHERE id = ?`, missionID,
	).Scan(&status)
	if err != nil {
		return true
	}
	return types.MissionStatus(status) == types.MissionStopped
}
