package story

import (
	"fmt"
	"strings"
)

// RequirementsTransformer is the transform stage contract.
type RequirementsTransformer interface {
	Transform(pc *ProcessingContext, analysis *AnalysisResult) (*TransformedRequirements, error)
}

// EARSTransformer rewrites requirements into EARS-pattern statements,
// derives Gherkin acceptance scenarios, and turns unresolved ambiguities
// into open questions. Each requirement rewrite is recorded against the
// processing context so the loop detector can see rewrite churn.
type EARSTransformer struct{}

// NewEARSTransformer builds the standard transformer.
func NewEARSTransformer() *EARSTransformer { return &EARSTransformer{} }

// Transform implements RequirementsTransformer.
func (t *EARSTransformer) Transform(pc *ProcessingContext, analysis *AnalysisResult) (*TransformedRequirements, error) {
	out := &TransformedRequirements{}

	for _, req := range analysis.Requirements {
		pc.RecordSectionRewrite(req.ID)
		out.FunctionalRequirements = append(out.FunctionalRequirements, toEARS(req))
		out.AcceptanceCriteria = append(out.AcceptanceCriteria, toScenario(req))
	}

	for _, amb := range analysis.Ambiguities {
		out.OpenQuestions = append(out.OpenQuestions, OpenQuestion{
			Question: "Clarify: " + amb,
			Context:  "raised during requirement analysis",
		})
	}
	for _, gap := range analysis.TestabilityGaps {
		out.OpenQuestions = append(out.OpenQuestions, OpenQuestion{
			Question: "Define a measurable threshold: " + gap,
			Context:  "criterion is not testable as written",
		})
	}

	return out, nil
}

// toEARS renders one requirement as an event-driven EARS statement. Already
// conditional requirements keep their trigger clause.
func toEARS(req Requirement) string {
	desc := strings.TrimRight(strings.TrimSpace(req.Description), ".")
	lower := strings.ToLower(desc)
	if strings.HasPrefix(lower, "when ") || strings.HasPrefix(lower, "if ") {
		if i := strings.Index(lower, " then "); i > 0 {
			return fmt.Sprintf("%s: WHEN %s, THE SYSTEM SHALL %s.",
				req.ID, strings.TrimSpace(desc[:i]), strings.TrimSpace(desc[i+6:]))
		}
		return fmt.Sprintf("%s: %s, THE SYSTEM SHALL satisfy the stated behavior.", req.ID, desc)
	}
	return fmt.Sprintf("%s: THE SYSTEM SHALL %s.", req.ID, lowerFirst(desc))
}

func toScenario(req Requirement) GherkinScenario {
	desc := strings.TrimRight(strings.TrimSpace(req.Description), ".")
	return GherkinScenario{
		Name:  req.ID + " behavior",
		Given: "the system is in its normal operating state",
		When:  "the condition described by " + req.ID + " occurs",
		Then:  lowerFirst(desc),
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
