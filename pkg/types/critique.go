// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// RiskLevel grades a flagged hallucination.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// SourceAlignment reports how well a note reflects its source material.
type SourceAlignment struct {
	// Aligned is true when the note matches the source's meaning.
	Aligned bool `json:"aligned" yaml:"aligned"`

	// CoveragePercentage is the share of claims supported by the source (0-100).
	CoveragePercentage float64 `json:"coverage_percentage" yaml:"coverage_percentage"`

	// UnsupportedClaims lists claims not found in the source.
	UnsupportedClaims []string `json:"unsupported_claims" yaml:"unsupported_claims"`
}

// Hallucination flags a claim with no support in the source.
type Hallucination struct {
	Claim                string    `json:"claim" yaml:"claim"`
	RiskLevel            RiskLevel `json:"risk_level" yaml:"risk_level"`
	Reason               string    `json:"reason" yaml:"reason"`
	SourceCheckPerformed bool      `json:"source_check_performed" yaml:"source_check_performed"`
}

// Refinement is a suggested text replacement to improve accuracy or clarity.
type Refinement struct {
	OriginalText  string  `json:"original_text" yaml:"original_text"`
	SuggestedText string  `json:"suggested_text" yaml:"suggested_text"`
	Reason        string  `json:"reason" yaml:"reason"`
	Confidence    float64 `json:"confidence" yaml:"confidence"`
}

// CritiqueResult is the output of one audit pass over a note. It is
// constructed once from a validated model reply, appended to the note's
// critique history, and never mutated afterwards.
type CritiqueResult struct {
	// NoteID links the result to the audited note. The critic worker
	// overwrites whatever id the model reported.
	NoteID string `json:"note_id" yaml:"note_id"`

	// OverallAssessment is the critic's free-text verdict.
	OverallAssessment string `json:"overall_assessment" yaml:"overall_assessment"`

	// AccuracyScore estimates note accuracy in [0.0, 1.0].
	AccuracyScore float64 `json:"accuracy_score" yaml:"accuracy_score"`

	SourceAlignment SourceAlignment `json:"source_alignment" yaml:"source_alignment"`

	// HallucinationsDetected lists flagged claims, possibly empty.
	HallucinationsDetected []Hallucination `json:"hallucinations_detected" yaml:"hallucinations_detected"`

	// SuggestedRefinements lists proposed text fixes, possibly empty.
	SuggestedRefinements []Refinement `json:"suggested_refinements" yaml:"suggested_refinements"`

	// ReviseNeeded is true when the note requires revision.
	ReviseNeeded bool `json:"revise_needed" yaml:"revise_needed"`

	// VerificationStatus is the final verdict: passed, revise, or unchecked.
	VerificationStatus VerificationStatus `json:"verification_status" yaml:"verification_status"`

	// ScratchpadUpdate carries context forward to subsequent critiques
	// within the same batch.
	ScratchpadUpdate string `json:"scratchpad_update" yaml:"scratchpad_update"`

	// GeneratedThought is an optional entry for the mission-wide thought log.
	GeneratedThought string `json:"generated_thought,omitempty" yaml:"generated_thought,omitempty"`
}

// critiqueFields is the set of keys recognized by the critique schema.
// Unlike the Note record, construction ignores keys outside this set; the
// model backend is free to emit extras.
var critiqueFields = map[string]bool{
	"note_id":                 true,
	"overall_assessment":      true,
	"accuracy_score":          true,
	"source_alignment":        true,
	"hallucinations_detected": true,
	"suggested_refinements":   true,
	"revise_needed":           true,
	"verification_status":     true,
	"scratchpad_update":       true,
	"generated_thought":       true,
}

// KnownCritiqueField reports whether the critique schema recognizes key.
func KnownCritiqueField(key string) bool {
	return critiqueFields[key]
}

// NewCritiqueResult constructs a CritiqueResult from a mapping of field
// names to values, as produced by decoding a model reply. Required fields
// must be present with the right shape; enumerated fields must hold values
// from their closed sets. Out-of-range numerics are accepted here and
// flagged by Validate.
func NewCritiqueResult(fields map[string]any) (*CritiqueResult, error) {
	noteID, err := reqString(fields, "note_id")
	if err != nil {
		return nil, err
	}
	assessment, err := reqString(fields, "overall_assessment")
	if err != nil {
		return nil, err
	}
	accuracy, err := reqFloat(fields, "accuracy_score")
	if err != nil {
		return nil, err
	}
	revise, err := reqBool(fields, "revise_needed")
	if err != nil {
		return nil, err
	}
	statusRaw, err := reqString(fields, "verification_status")
	if err != nil {
		return nil, err
	}
	status := VerificationStatus(statusRaw)
	switch status {
	case StatusUnchecked, StatusPassed, StatusRevise:
	default:
		return nil, &ValidationError{Field: "verification_status", Reason: fmt.Sprintf("invalid value %q", statusRaw)}
	}
	scratchpad, err := reqString(fields, "scratchpad_update")
	if err != nil {
		return nil, err
	}

	alignment, err := parseAlignment(fields["source_alignment"])
	if err != nil {
		return nil, err
	}

	result := &CritiqueResult{
		NoteID:             noteID,
		OverallAssessment:  assessment,
		AccuracyScore:      accuracy,
		SourceAlignment:    alignment,
		ReviseNeeded:       revise,
		VerificationStatus: status,
		ScratchpadUpdate:   scratchpad,
		GeneratedThought:   optString(fields, "generated_thought"),
	}

	if raw, ok := fields["hallucinations_detected"]; ok && raw != nil {
		items, ok := asList(raw)
		if !ok {
			return nil, &ValidationError{Field: "hallucinations_detected", Reason: "not a list of mappings"}
		}
		for i, item := range items {
			h, err := parseHallucination(item)
			if err != nil {
				return nil, &ValidationError{Field: fmt.Sprintf("hallucinations_detected[%d]", i), Reason: err.Error()}
			}
			result.HallucinationsDetected = append(result.HallucinationsDetected, h)
		}
	}

	if raw, ok := fields["suggested_refinements"]; ok && raw != nil {
		items, ok := asList(raw)
		if !ok {
			return nil, &ValidationError{Field: "suggested_refinements", Reason: "not a list of mappings"}
		}
		for i, item := range items {
			r, err := parseRefinement(item)
			if err != nil {
				return nil, &ValidationError{Field: fmt.Sprintf("suggested_refinements[%d]", i), Reason: err.Error()}
			}
			result.SuggestedRefinements = append(result.SuggestedRefinements, r)
		}
	}

	return result, nil
}

func parseAlignment(raw any) (SourceAlignment, error) {
	if raw == nil {
		return SourceAlignment{}, &ValidationError{Field: "source_alignment", Reason: "required field missing"}
	}
	m, ok := asMap(raw)
	if !ok {
		return SourceAlignment{}, &ValidationError{Field: "source_alignment", Reason: fmt.Sprintf("expected mapping, got %T", raw)}
	}
	aligned, err := reqBool(m, "aligned")
	if err != nil {
		return SourceAlignment{}, &ValidationError{Field: "source_alignment", Reason: err.Error()}
	}
	coverage, err := reqFloat(m, "coverage_percentage")
	if err != nil {
		return SourceAlignment{}, &ValidationError{Field: "source_alignment", Reason: err.Error()}
	}
	return SourceAlignment{
		Aligned:            aligned,
		CoveragePercentage: coverage,
		UnsupportedClaims:  optStringList(m, "unsupported_claims"),
	}, nil
}

func parseHallucination(m map[string]any) (Hallucination, error) {
	claim, err := reqString(m, "claim")
	if err != nil {
		return Hallucination{}, err
	}
	riskRaw, err := reqString(m, "risk_level")
	if err != nil {
		return Hallucination{}, err
	}
	risk := RiskLevel(riskRaw)
	switch risk {
	case RiskHigh, RiskMedium, RiskLow:
	default:
		return Hallucination{}, &ValidationError{Field: "risk_level", Reason: fmt.Sprintf("invalid value %q", riskRaw)}
	}
	reason, err := reqString(m, "reason")
	if err != nil {
		return Hallucination{}, err
	}
	checked, err := reqBool(m, "source_check_performed")
	if err != nil {
		return Hallucination{}, err
	}
	return Hallucination{Claim: claim, RiskLevel: risk, Reason: reason, SourceCheckPerformed: checked}, nil
}

func parseRefinement(m map[string]any) (Refinement, error) {
	original, err := reqString(m, "original_text")
	if err != nil {
		return Refinement{}, err
	}
	suggested, err := reqString(m, "suggested_text")
	if err != nil {
		return Refinement{}, err
	}
	reason, err := reqString(m, "reason")
	if err != nil {
		return Refinement{}, err
	}
	confidence, err := reqFloat(m, "confidence")
	if err != nil {
		return Refinement{}, err
	}
	return Refinement{OriginalText: original, SuggestedText: suggested, Reason: reason, Confidence: confidence}, nil
}

// Validate reports range problems the schema accepts structurally:
// accuracy_score outside [0, 1], coverage_percentage outside [0, 100], and
// refinement confidence outside [0, 1]. An empty slice means the result is
// within expected ranges.
func (r *CritiqueResult) Validate() []string {
	var problems []string
	if r.AccuracyScore < 0.0 || r.AccuracyScore > 1.0 {
		problems = append(problems, fmt.Sprintf("accuracy_score %g out of range [0,1]", r.AccuracyScore))
	}
	if r.SourceAlignment.CoveragePercentage < 0.0 || r.SourceAlignment.CoveragePercentage > 100.0 {
		problems = append(problems, fmt.Sprintf("coverage_percentage %g out of range [0,100]", r.SourceAlignment.CoveragePercentage))
	}
	for i, ref := range r.SuggestedRefinements {
		if ref.Confidence < 0.0 || ref.Confidence > 1.0 {
			problems = append(problems, fmt.Sprintf("suggested_refinements[%d]: confidence %g out of range [0,1]", i, ref.Confidence))
		}
	}
	return problems
}
