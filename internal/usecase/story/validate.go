package story

import "strings"

// IssueValidator is the validate stage contract.
type IssueValidator interface {
	ValidateIssue(issue Issue) ValidationResult
}

// ValidatorConfig scopes the validator to one repository and a set of
// accepted title prefixes.
type ValidatorConfig struct {
	Repository string
	Prefixes   []string
}

func (c ValidatorConfig) withDefaults() ValidatorConfig {
	if len(c.Prefixes) == 0 {
		c.Prefixes = []string{"[BACKEND]", "[STORY]"}
	}
	return c
}

// DefaultIssueValidator rejects issues that are out of repository scope,
// carry an unsupported title prefix, or are not functional stories.
type DefaultIssueValidator struct {
	cfg ValidatorConfig
}

// NewDefaultIssueValidator builds the standard validator.
func NewDefaultIssueValidator(cfg ValidatorConfig) *DefaultIssueValidator {
	return &DefaultIssueValidator{cfg: cfg.withDefaults()}
}

// ValidateIssue implements IssueValidator.
func (v *DefaultIssueValidator) ValidateIssue(issue Issue) ValidationResult {
	if v.cfg.Repository != "" && !strings.EqualFold(issue.Repository, v.cfg.Repository) {
		return InvalidResult("STOP: Repository not in scope",
			"issue belongs to "+issue.Repository+", expected "+v.cfg.Repository)
	}
	if !v.hasSupportedPrefix(issue.Title) {
		return InvalidResult("STOP: Issue prefix not supported",
			"title must start with one of "+strings.Join(v.cfg.Prefixes, ", "))
	}
	if !looksLikeFunctionalStory(issue) {
		return InvalidResult("STOP: Issue is not a functional story",
			"body carries no user-story narrative or functional intent")
	}
	return ValidResult()
}

func (v *DefaultIssueValidator) hasSupportedPrefix(title string) bool {
	trimmed := strings.TrimSpace(title)
	for _, p := range v.cfg.Prefixes {
		if strings.HasPrefix(strings.ToUpper(trimmed), p) {
			return true
		}
	}
	return false
}

// nonFunctionalLabels mark issues that are work items rather than stories.
var nonFunctionalLabels = map[string]struct{}{
	"bug":      {},
	"chore":    {},
	"refactor": {},
	"spike":    {},
	"question": {},
}

func looksLikeFunctionalStory(issue Issue) bool {
	for _, l := range issue.Labels {
		if _, bad := nonFunctionalLabels[strings.ToLower(strings.TrimSpace(l))]; bad {
			return false
		}
	}
	body := strings.ToLower(issue.Body)
	if strings.TrimSpace(body) == "" {
		return false
	}
	markers := []string{"as a ", "as an ", "i want", "so that", "user story", "acceptance criteria"}
	for _, m := range markers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}
