// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package critic

import (
	"strings"
	"testing"

	"github.com/pdiddy/note-critic/pkg/types"
)

func promptNote(t *testing.T, fields map[string]any) types.Note {
	t.Helper()
	base := map[string]any{
		"note_id":     "note_prompt01",
		"content":     "The Transformer reaches 28.4 BLEU on WMT14 EN-DE.",
		"source_type": "document",
		"source_id":   "doc_attn",
	}
	for k, v := range fields {
		base[k] = v
	}
	note, err := types.NewNote(base)
	if err != nil {
		t.Fatal(err)
	}
	return *note
}

func TestBuildPromptCoreFields(t *testing.T) {
	note := promptNote(t, map[string]any{
		"source_metadata": map[string]any{
			"title":   "Attention Is All You Need",
			"snippet": "Our model achieves 28.4 BLEU on the WMT 2014 English-to-German task.",
		},
	})

	prompt, err := BuildPrompt(note, AuditContext{SectionGoal: "Survey translation benchmarks"})
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}

	for _, want := range []string{
		"ID: note_prompt01",
		"Content: The Transformer reaches 28.4 BLEU on WMT14 EN-DE.",
		"Structured Analysis: None",
		"Our model achieves 28.4 BLEU",
		"Source ID: doc_attn",
		"Title: Attention Is All You Need",
		"Section Goal:\nSurvey translation benchmarks",
		"Output ONLY the JSON object.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptNoSnippet(t *testing.T) {
	note := promptNote(t, nil)

	prompt, err := BuildPrompt(note, AuditContext{SectionGoal: "goal"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "(No source snippet available)") {
		t.Error("missing-snippet placeholder not emitted")
	}
}

func TestBuildPromptOmitsEmptyBlocks(t *testing.T) {
	note := promptNote(t, nil)

	prompt, err := BuildPrompt(note, AuditContext{SectionGoal: "goal"})
	if err != nil {
		t.Fatal(err)
	}

	for _, header := range []string{
		"Active Mission Goals:",
		"Current Agent Scratchpad:",
		"Recent Thoughts:",
	} {
		if strings.Contains(prompt, header) {
			t.Errorf("empty block %q should be omitted entirely", header)
		}
	}
}

func TestBuildPromptContextBlocks(t *testing.T) {
	note := promptNote(t, nil)
	actx := AuditContext{
		SectionGoal: "goal",
		ActiveGoals: []types.GoalEntry{
			{GoalID: "g1", Text: "Cover attention mechanisms"},
			{GoalID: "g2", Text: "Compare against RNN baselines"},
		},
		RecentThoughts: []types.ThoughtEntry{
			{AgentName: "NoteCritic", Content: "BLEU figures keep drifting."},
		},
		Scratchpad: "S1",
	}

	prompt, err := BuildPrompt(note, actx)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(prompt, "Active Mission Goals:\n---\n- Cover attention mechanisms\n- Compare against RNN baselines\n---") {
		t.Error("goals block malformed")
	}
	if !strings.Contains(prompt, "Current Agent Scratchpad:\n---\nS1\n---") {
		t.Error("scratchpad block malformed or scratchpad text altered")
	}
	if !strings.Contains(prompt, "Recent Thoughts:\n---\n- BLEU figures keep drifting.\n---") {
		t.Error("thoughts block malformed")
	}
}

func TestBuildPromptStructuredAnalysis(t *testing.T) {
	note := promptNote(t, map[string]any{
		"note_type": "literature",
		"structured_analysis": map[string]any{
			"core_argument": "Self-attention replaces recurrence.",
		},
	})

	prompt, err := BuildPrompt(note, AuditContext{SectionGoal: "goal"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, `"core_argument":"Self-attention replaces recurrence."`) {
		t.Error("structured analysis not rendered as JSON")
	}
	if strings.Contains(prompt, "Structured Analysis: None") {
		t.Error("analysis present but rendered as None")
	}
}
