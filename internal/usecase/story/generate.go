package story

import (
	"fmt"
	"strings"
)

// OutputGenerator is the generate stage contract.
type OutputGenerator interface {
	Generate(issue Issue, transformed *TransformedRequirements) (string, error)
}

// MarkdownGenerator renders the strengthened story back into a markdown
// document suitable for posting on the issue.
type MarkdownGenerator struct{}

// NewMarkdownGenerator builds the standard generator.
func NewMarkdownGenerator() *MarkdownGenerator { return &MarkdownGenerator{} }

// Generate implements OutputGenerator.
func (g *MarkdownGenerator) Generate(issue Issue, transformed *TransformedRequirements) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Strengthened Story: %s\n\n", strings.TrimSpace(issue.Title))

	b.WriteString("## Functional Requirements\n\n")
	if len(transformed.FunctionalRequirements) == 0 {
		b.WriteString("_No functional requirements were extracted._\n")
	}
	for _, fr := range transformed.FunctionalRequirements {
		fmt.Fprintf(&b, "- %s\n", fr)
	}

	b.WriteString("\n## Acceptance Criteria\n")
	for _, sc := range transformed.AcceptanceCriteria {
		fmt.Fprintf(&b, "\n### Scenario: %s\n\n", sc.Name)
		fmt.Fprintf(&b, "- **Given** %s\n", sc.Given)
		fmt.Fprintf(&b, "- **When** %s\n", sc.When)
		fmt.Fprintf(&b, "- **Then** %s\n", sc.Then)
	}

	if len(transformed.OpenQuestions) > 0 {
		b.WriteString("\n## Open Questions\n\n")
		for i, q := range transformed.OpenQuestions {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, q.Question, q.Context)
		}
	}

	return b.String(), nil
}
