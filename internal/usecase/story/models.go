package story

// Issue is a GitHub-style issue submitted for strengthening.
type Issue struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Labels     []string `json:"labels"`
	Repository string   `json:"repository"`
	Number     int      `json:"number"`
}

// ParsedIssue is the structured form produced by the parse stage.
type ParsedIssue struct {
	Title              string
	Narrative          UserStory
	Sections           map[string]string
	AcceptanceCriteria []string
}

// UserStory holds the "as a / I want / so that" clauses of a story
// narrative. Missing clauses stay empty.
type UserStory struct {
	Role    string
	Goal    string
	Benefit string
}

// AnalysisResult is the analyze stage output.
type AnalysisResult struct {
	Requirements    []Requirement
	Ambiguities     []string
	TestabilityGaps []string
	// Inference flags raised when the issue would force the pipeline to
	// invent domain judgments it must not make on its own.
	RequiresLegalInference      bool
	RequiresFinancialInference  bool
	RequiresSecurityInference   bool
	RequiresRegulatoryInference bool
}

// Requirement is one extracted functional requirement.
type Requirement struct {
	ID          string
	Description string
	Testable    bool
}

// TransformedRequirements is the transform stage output.
type TransformedRequirements struct {
	FunctionalRequirements []string // EARS-pattern statements
	AcceptanceCriteria     []GherkinScenario
	OpenQuestions          []OpenQuestion
}

// GherkinScenario is one given/when/then acceptance scenario.
type GherkinScenario struct {
	Name  string
	Given string
	When  string
	Then  string
}

// OpenQuestion records an ambiguity the transformation could not resolve.
type OpenQuestion struct {
	Question string
	Context  string
}

// ValidationResult is the validate stage outcome. Invalid issues halt the
// pipeline with their own stop phrase before any loop checkpoint runs.
type ValidationResult struct {
	Valid      bool
	StopPhrase string
	Reason     string
}

// ValidResult reports a passing validation.
func ValidResult() ValidationResult { return ValidationResult{Valid: true} }

// InvalidResult reports a failed validation with its stop phrase.
func InvalidResult(stopPhrase, reason string) ValidationResult {
	return ValidationResult{Valid: false, StopPhrase: stopPhrase, Reason: reason}
}

// ProcessingResult is the pipeline outcome. Deliberate terminations carry a
// machine-recognizable "STOP:" phrase instead of an output artifact.
type ProcessingResult struct {
	Success    bool   `json:"success"`
	Output     string `json:"output,omitempty"`
	StopPhrase string `json:"stop_phrase,omitempty"`
	Reason     string `json:"reason,omitempty"`
	// LoopDetected distinguishes checkpoint halts from validation and
	// stage-failure stops.
	LoopDetected bool `json:"loop_detected,omitempty"`
}

// SuccessResult wraps a generated artifact.
func SuccessResult(output string) ProcessingResult {
	return ProcessingResult{Success: true, Output: output}
}

// StoppedResult records a deliberate early termination.
func StoppedResult(stopPhrase, reason string) ProcessingResult {
	return ProcessingResult{Success: false, StopPhrase: stopPhrase, Reason: reason}
}
