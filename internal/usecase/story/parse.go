package story

import (
	"regexp"
	"strings"

	"agent-advisor/internal/domain"
)

// IssueParser is the parse stage contract.
type IssueParser interface {
	Parse(issue Issue) (*ParsedIssue, error)
}

// MarkdownParser extracts sections, the user-story narrative, and
// acceptance criteria bullets from a markdown issue body.
type MarkdownParser struct{}

// NewMarkdownParser builds the standard parser.
func NewMarkdownParser() *MarkdownParser { return &MarkdownParser{} }

var (
	headingRe   = regexp.MustCompile(`(?m)^#{1,4}\s+(.+)$`)
	narrativeRe = regexp.MustCompile(`(?is)as\s+an?\s+(.+?)[,\n]\s*i\s+want\s+(.+?)(?:[,\n]\s*so\s+that\s+(.+?))?(?:\.|\n\n|$)`)
	bulletRe    = regexp.MustCompile(`(?m)^\s*(?:[-*]|\d+\.)\s+(.+)$`)
)

// Parse implements IssueParser.
func (p *MarkdownParser) Parse(issue Issue) (*ParsedIssue, error) {
	body := strings.ReplaceAll(issue.Body, "\r\n", "\n")
	if strings.TrimSpace(body) == "" {
		return nil, domain.NewDomainError("story.parse", domain.ErrInvalidRequest, "issue body is empty")
	}

	parsed := &ParsedIssue{
		Title:    strings.TrimSpace(issue.Title),
		Sections: splitSections(body),
	}

	if m := narrativeRe.FindStringSubmatch(body); m != nil {
		parsed.Narrative = UserStory{
			Role:    strings.TrimSpace(m[1]),
			Goal:    strings.TrimSpace(m[2]),
			Benefit: strings.TrimSpace(m[3]),
		}
	}

	parsed.AcceptanceCriteria = extractCriteria(parsed.Sections)
	return parsed, nil
}

// splitSections maps lowercased heading text to the body beneath it. Text
// before the first heading lands under "description".
func splitSections(body string) map[string]string {
	sections := map[string]string{}
	locs := headingRe.FindAllStringSubmatchIndex(body, -1)
	if len(locs) == 0 {
		sections["description"] = strings.TrimSpace(body)
		return sections
	}
	if lead := strings.TrimSpace(body[:locs[0][0]]); lead != "" {
		sections["description"] = lead
	}
	for i, loc := range locs {
		name := strings.ToLower(strings.TrimSpace(body[loc[2]:loc[3]]))
		end := len(body)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections[name] = strings.TrimSpace(body[loc[1]:end])
	}
	return sections
}

func extractCriteria(sections map[string]string) []string {
	var criteria []string
	for name, text := range sections {
		if !strings.Contains(name, "acceptance") && !strings.Contains(name, "criteria") {
			continue
		}
		for _, m := range bulletRe.FindAllStringSubmatch(text, -1) {
			if line := strings.TrimSpace(m[1]); line != "" {
				criteria = append(criteria, line)
			}
		}
	}
	return criteria
}
