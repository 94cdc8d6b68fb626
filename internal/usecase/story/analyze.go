package story

import (
	"fmt"
	"strings"
)

// RequirementsAnalyzer is the analyze stage contract.
type RequirementsAnalyzer interface {
	Analyze(parsed *ParsedIssue) (*AnalysisResult, error)
}

// HeuristicAnalyzer derives requirements from the narrative and criteria,
// flags vague wording, and raises inference flags on regulated topics.
type HeuristicAnalyzer struct{}

// NewHeuristicAnalyzer builds the standard analyzer.
func NewHeuristicAnalyzer() *HeuristicAnalyzer { return &HeuristicAnalyzer{} }

// vagueTerms undermine testability when they appear in a criterion.
var vagueTerms = []string{
	"fast", "quickly", "easy", "user-friendly", "intuitive", "robust",
	"scalable", "appropriate", "etc", "reasonable", "seamless", "as needed",
	"performant", "flexible", "simple",
}

var inferenceTerms = map[string][]string{
	"legal":      {"legal", "liability", "lawsuit", "contractual", "terms of service"},
	"financial":  {"pricing", "billing", "refund", "tax", "invoice", "payment amount"},
	"security":   {"encryption scheme", "authentication mechanism", "access policy", "key rotation"},
	"regulatory": {"gdpr", "hipaa", "pci", "sox", "compliance", "regulation"},
}

// Analyze implements RequirementsAnalyzer.
func (a *HeuristicAnalyzer) Analyze(parsed *ParsedIssue) (*AnalysisResult, error) {
	res := &AnalysisResult{}

	if parsed.Narrative.Goal != "" {
		res.Requirements = append(res.Requirements, Requirement{
			ID:          "REQ-1",
			Description: parsed.Narrative.Goal,
			Testable:    !containsVagueTerm(parsed.Narrative.Goal),
		})
	}
	for i, c := range parsed.AcceptanceCriteria {
		req := Requirement{
			ID:          fmt.Sprintf("REQ-%d", len(res.Requirements)+1),
			Description: c,
			Testable:    !containsVagueTerm(c),
		}
		res.Requirements = append(res.Requirements, req)
		if !req.Testable {
			res.TestabilityGaps = append(res.TestabilityGaps,
				fmt.Sprintf("criterion %d uses unmeasurable wording: %q", i+1, c))
		}
	}

	corpus := strings.ToLower(parsed.Title + "\n" + flattenSections(parsed.Sections))
	for _, term := range vagueTerms {
		if containsWord(corpus, term) {
			res.Ambiguities = append(res.Ambiguities, "ambiguous term in issue text: "+term)
		}
	}

	res.RequiresLegalInference = matchesAny(corpus, inferenceTerms["legal"])
	res.RequiresFinancialInference = matchesAny(corpus, inferenceTerms["financial"])
	res.RequiresSecurityInference = matchesAny(corpus, inferenceTerms["security"])
	res.RequiresRegulatoryInference = matchesAny(corpus, inferenceTerms["regulatory"])

	return res, nil
}

func flattenSections(sections map[string]string) string {
	var b strings.Builder
	for _, text := range sections {
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}

func containsVagueTerm(s string) bool {
	lower := strings.ToLower(s)
	for _, term := range vagueTerms {
		if containsWord(lower, term) {
			return true
		}
	}
	return false
}

// containsWord matches term at word boundaries to avoid hits inside longer
// words ("fastener" must not match "fast").
func containsWord(haystack, term string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], term)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordByte(haystack[i-1])
		afterIdx := i + len(term)
		after := afterIdx >= len(haystack) || !isWordByte(haystack[afterIdx])
		if before && after {
			return true
		}
		idx = i + len(term)
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func matchesAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
