// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

const (
	MissionActive  MissionStatus = "active"
	MissionStopped MissionStatus = "stopped"
	MissionDone    MissionStatus = "done"
)

// MissionContext is a mission together with its gathered notes, as loaded
// from the mission store.
type MissionContext struct {
	MissionID   string        `json:"mission_id" yaml:"mission_id"`
	UserRequest string        `json:"user_request" yaml:"user_request"`
	Status      MissionStatus `json:"status" yaml:"status"`
	Notes       []Note        `json:"notes" yaml:"notes"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`
}

// GoalEntry is one mission goal.
type GoalEntry struct {
	GoalID    string    `json:"goal_id" yaml:"goal_id"`
	Text      string    `json:"text" yaml:"text"`
	Status    string    `json:"status" yaml:"status"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ThoughtEntry is one entry in the mission-wide thought log.
type ThoughtEntry struct {
	ThoughtID string    `json:"thought_id" yaml:"thought_id"`
	AgentName string    `json:"agent_name" yaml:"agent_name"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ExecutionLogEntry records one step taken against a mission.
type ExecutionLogEntry struct {
	MissionID string    `json:"mission_id" yaml:"mission_id"`
	Component string    `json:"component" yaml:"component"`
	Action    string    `json:"action" yaml:"action"`
	Summary   string    `json:"summary" yaml:"summary"`
	Status    string    `json:"status" yaml:"status"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
