// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reply turns raw model replies into validated critique results.
//
// Parsing is two-phase: Extract recovers a JSON object from the reply text,
// tolerating code fences and common near-miss JSON; Prepare reconciles the
// decoded mapping against the critique schema without ever failing. Hard
// validation is deferred to types.NewCritiqueResult.
package reply

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/note-critic/pkg/types"
)

// ParseError reports a reply whose text could not be recovered as a JSON
// object.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing model reply: %s", e.Reason)
}

// fencePattern matches a JSON object wrapped in a Markdown code fence with
// an optional language tag.
var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*(\\{.*?\\})\\s*```")

// trailingCommaPattern matches a comma directly before a closing brace or
// bracket, ignoring whitespace.
var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// smartQuoteReplacer maps typographic quotes to their ASCII forms.
var smartQuoteReplacer = strings.NewReplacer(
	"“", `"`, // left double
	"”", `"`, // right double
	"‘", "'", // left single
	"’", "'", // right single
)

// ToResult runs the full pipeline on a raw reply: extract a mapping,
// prepare it for validation, and construct a CritiqueResult. The returned
// error is a *ParseError when no structure could be recovered, or a
// *types.ValidationError when the recovered structure violates the schema.
func ToResult(raw string) (*types.CritiqueResult, error) {
	fields, err := Extract(raw)
	if err != nil {
		return nil, err
	}
	return types.NewCritiqueResult(Prepare(fields))
}

// Extract recovers a JSON object from raw reply text. If the text contains
// a fenced code block, only the enclosed object is considered; otherwise
// the entire string is. Trailing commas, smart quotes, and single-quoted
// strings are normalized before strict parsing.
func Extract(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &ParseError{Reason: "empty reply"}
	}

	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	// Strict parse first; repair only when needed.
	candidates := []string{
		text,
		normalize(text),
		singleToDoubleQuotes(normalize(text)),
	}
	var lastErr error
	for _, candidate := range candidates {
		fields, err := decodeObject(candidate)
		if err == nil {
			return fields, nil
		}
		lastErr = err
	}
	return nil, &ParseError{Reason: lastErr.Error()}
}

// decodeObject parses text as a single JSON object.
func decodeObject(text string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("reply is JSON null, not an object")
	}
	return fields, nil
}

// normalize repairs near-miss JSON that strict parsing rejects: smart
// quotes become ASCII quotes and trailing commas are dropped.
func normalize(text string) string {
	text = smartQuoteReplacer.Replace(text)
	return trailingCommaPattern.ReplaceAllString(text, "$1")
}

// singleToDoubleQuotes rewrites single-quoted strings as double-quoted
// ones, leaving apostrophes inside double-quoted strings untouched.
func singleToDoubleQuotes(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inDouble := false
	inSingle := false
	escaped := false
	for _, r := range text {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			b.WriteRune(r)
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			b.WriteRune('"')
		case r == '"' && inSingle:
			// An embedded double quote must be escaped once the
			// surrounding string becomes double-quoted.
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// numericFields are top-level critique keys holding numbers.
var numericFields = []string{"accuracy_score"}

// Prepare reconciles a decoded mapping against the critique schema: keys
// the schema does not recognize are dropped, string-typed numbers are
// coerced, and recognized-but-absent optional list fields receive empty
// defaults. Prepare never fails; it only narrows and repairs, leaving hard
// validation to construction.
func Prepare(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if types.KnownCritiqueField(key) {
			out[key] = value
		}
	}

	for _, key := range numericFields {
		coerceNumber(out, key)
	}

	if alignment, ok := out["source_alignment"].(map[string]any); ok {
		coerceNumber(alignment, "coverage_percentage")
		if _, ok := alignment["unsupported_claims"]; !ok {
			alignment["unsupported_claims"] = []any{}
		}
	}

	if items, ok := out["suggested_refinements"].([]any); ok {
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				coerceNumber(m, "confidence")
			}
		}
	}

	for _, key := range []string{"hallucinations_detected", "suggested_refinements"} {
		if _, ok := out[key]; !ok {
			out[key] = []any{}
		}
	}

	return out
}

// coerceNumber rewrites m[key] as float64 when it holds a numeric string.
func coerceNumber(m map[string]any, key string) {
	s, ok := m[key].(string)
	if !ok {
		return
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		m[key] = f
	}
}
