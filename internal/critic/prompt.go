// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package critic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/note-critic/pkg/types"
)

// noSnippetLiteral is emitted when a note's metadata carries no source text.
const noSnippetLiteral = "(No source snippet available)"

// auditPromptTmpl is the prompt sent to the model backend for each note.
// The instructions cast the model as a research auditor and pin down the
// exact JSON reply shape; the context blocks below them are assembled per
// note, and empty blocks are omitted entirely.
var auditPromptTmpl = template.Must(template.New("audit").Parse(`You are a meticulous Research Auditor. Your task is to verify the quality, accuracy, and alignment of a research note against its source material and the mission's goals. You do not generate new content; you rigorously critique existing content.

Your primary responsibilities are:
1. Hallucination Detection: verify that the note's claims are supported by the provided source context. Flag any information not present in the source.
2. Source Alignment: ensure the note accurately reflects the source's meaning without distortion or omission of critical context.
3. Goal Alignment: check that the note is relevant to the section goal and active mission goals.
4. Quality Check: evaluate whether the note is clear, concise, and properly structured.

Respond with a single JSON object containing exactly these fields:
- note_id: string, the id of the note being critiqued
- overall_assessment: string, your general assessment of the note
- accuracy_score: number between 0.0 and 1.0
- source_alignment: object with aligned (bool), coverage_percentage (number 0-100), unsupported_claims (array of strings)
- hallucinations_detected: array of objects with claim (string), risk_level ("high", "medium", or "low"), reason (string), source_check_performed (bool)
- suggested_refinements: array of objects with original_text, suggested_text, reason (strings), confidence (number 0.0-1.0)
- revise_needed: bool
- verification_status: "passed", "revise", or "unchecked"
- scratchpad_update: string, context to carry into subsequent critiques
- generated_thought: optional string for the mission thought log

Do not include any text outside the JSON object.

Please critique the following research note.

Note to Verify:
---
ID: {{.NoteID}}
Content: {{.Content}}
Structured Analysis: {{.StructuredAnalysis}}
---

{{.SourceContext}}
Section Goal:
{{.SectionGoal}}
{{.GoalsContext}}{{.ScratchpadContext}}{{.ThoughtsContext}}
Task: Verify the note's accuracy against the source snippet, check for hallucinations, and assess relevance to the section goal. Output ONLY the JSON object.
`))

// promptData feeds auditPromptTmpl.
type promptData struct {
	NoteID             string
	Content            string
	StructuredAnalysis string
	SourceContext      string
	SectionGoal        string
	GoalsContext       string
	ScratchpadContext  string
	ThoughtsContext    string
}

// BuildPrompt assembles the audit request for one note. Goal, scratchpad,
// and thought blocks are omitted entirely when their inputs are empty.
func BuildPrompt(note types.Note, actx AuditContext) (string, error) {
	data := promptData{
		NoteID:             note.NoteID,
		Content:            note.Content,
		StructuredAnalysis: formatAnalysis(note.StructuredAnalysis),
		SourceContext:      sourceContext(note),
		SectionGoal:        actx.SectionGoal,
		GoalsContext:       goalsContext(actx.ActiveGoals),
		ScratchpadContext:  scratchpadContext(actx.Scratchpad),
		ThoughtsContext:    thoughtsContext(actx.RecentThoughts),
	}

	var buf bytes.Buffer
	if err := auditPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatAnalysis renders a structured analysis as compact JSON, or "None"
// when the note has no analysis attached.
func formatAnalysis(analysis *types.NoteAnalysis) string {
	if analysis == nil {
		return "None"
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return "None"
	}
	return string(data)
}

// sourceContext formats the note's source snippet, id, and title.
func sourceContext(note types.Note) string {
	var b strings.Builder
	b.WriteString("Source Snippet/Content:\n---\n")
	if snippet := note.SourceMetadata.Snippet(); snippet != "" {
		b.WriteString(snippet)
		b.WriteString("\n")
	} else {
		b.WriteString(noSnippetLiteral)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Source ID: %s\nTitle: %s\n---\n", note.SourceID, note.SourceMetadata.Title())
	return b.String()
}

func goalsContext(goals []types.GoalEntry) string {
	if len(goals) == 0 {
		return ""
	}
	var lines []string
	for _, g := range goals {
		lines = append(lines, "- "+g.Text)
	}
	return fmt.Sprintf("\nActive Mission Goals:\n---\n%s\n---\n", strings.Join(lines, "\n"))
}

func scratchpadContext(scratchpad string) string {
	if scratchpad == "" {
		return ""
	}
	return fmt.Sprintf("\nCurrent Agent Scratchpad:\n---\n%s\n---\n", scratchpad)
}

func thoughtsContext(thoughts []types.ThoughtEntry) string {
	if len(thoughts) == 0 {
		return ""
	}
	var lines []string
	for _, t := range thoughts {
		lines = append(lines, "- "+t.Content)
	}
	return fmt.Sprintf("\nRecent Thoughts:\n---\n%s\n---\n", strings.Join(lines, "\n"))
}
