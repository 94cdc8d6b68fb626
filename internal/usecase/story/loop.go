package story

// ProcessingContext accumulates stage outputs and counters as the pipeline
// runs. Loop detectors inspect it at each checkpoint.
type ProcessingContext struct {
	Issue       Issue
	Parsed      *ParsedIssue
	Analysis    *AnalysisResult
	Transformed *TransformedRequirements

	// Checkpoint is the checkpoint number about to be evaluated (1..3).
	Checkpoint int

	sectionRewrites map[string]int
}

// NewProcessingContext starts a fresh context for one issue.
func NewProcessingContext(issue Issue) *ProcessingContext {
	return &ProcessingContext{
		Issue:           issue,
		sectionRewrites: map[string]int{},
	}
}

// RecordSectionRewrite bumps the rewrite counter for a section and returns
// the new count.
func (pc *ProcessingContext) RecordSectionRewrite(section string) int {
	pc.sectionRewrites[section]++
	return pc.sectionRewrites[section]
}

// SectionRewrites returns the rewrite count for a section.
func (pc *ProcessingContext) SectionRewrites(section string) int {
	return pc.sectionRewrites[section]
}

// AcceptanceCriteriaCount counts acceptance scenarios produced so far,
// falling back to the parsed criteria before the transform stage runs.
func (pc *ProcessingContext) AcceptanceCriteriaCount() int {
	if pc.Transformed != nil {
		return len(pc.Transformed.AcceptanceCriteria)
	}
	if pc.Parsed != nil {
		return len(pc.Parsed.AcceptanceCriteria)
	}
	return 0
}

// OpenQuestionsCount counts open questions produced so far.
func (pc *ProcessingContext) OpenQuestionsCount() int {
	if pc.Transformed == nil {
		return 0
	}
	return len(pc.Transformed.OpenQuestions)
}

// LoopDetectionResult reports whether a checkpoint found a runaway
// condition. StopPhrase and Reason may be empty; the pipeline substitutes
// checkpoint-numbered defaults.
type LoopDetectionResult struct {
	Detected   bool
	StopPhrase string
	Reason     string
}

// LoopDetector examines the processing context at pipeline checkpoints.
type LoopDetector interface {
	CheckForLoops(pc *ProcessingContext) LoopDetectionResult
}

// Threshold limits for ThresholdLoopDetector. Zero values take defaults.
type Thresholds struct {
	MaxSectionRewrites int // default 2
	MaxCriteria        int // default 25
	MaxOpenQuestions   int // default 10
}

func (t Thresholds) withDefaults() Thresholds {
	if t.MaxSectionRewrites <= 0 {
		t.MaxSectionRewrites = 2
	}
	if t.MaxCriteria <= 0 {
		t.MaxCriteria = 25
	}
	if t.MaxOpenQuestions <= 0 {
		t.MaxOpenQuestions = 10
	}
	return t
}

// ThresholdLoopDetector halts processing on explosive growth or when the
// issue demands domain inference the pipeline is forbidden to make.
type ThresholdLoopDetector struct {
	limits Thresholds
}

// NewThresholdLoopDetector builds a detector with the given limits.
func NewThresholdLoopDetector(limits Thresholds) *ThresholdLoopDetector {
	return &ThresholdLoopDetector{limits: limits.withDefaults()}
}

// CheckForLoops implements LoopDetector.
func (d *ThresholdLoopDetector) CheckForLoops(pc *ProcessingContext) LoopDetectionResult {
	for section, n := range pc.sectionRewrites {
		if n > d.limits.MaxSectionRewrites {
			return LoopDetectionResult{
				Detected:   true,
				StopPhrase: "STOP: Section rewrite limit exceeded",
				Reason:     "section " + section + " rewritten more than the allowed number of times",
			}
		}
	}
	if n := pc.AcceptanceCriteriaCount(); n >= d.limits.MaxCriteria {
		return LoopDetectionResult{
			Detected:   true,
			StopPhrase: "STOP: Acceptance criteria explosion",
			Reason:     "acceptance criteria count reached the runaway threshold",
		}
	}
	if n := pc.OpenQuestionsCount(); n >= d.limits.MaxOpenQuestions {
		return LoopDetectionResult{
			Detected:   true,
			StopPhrase: "STOP: Open questions explosion",
			Reason:     "open question count reached the runaway threshold",
		}
	}
	if a := pc.Analysis; a != nil {
		switch {
		case a.RequiresLegalInference:
			return unsafeInference("legal")
		case a.RequiresFinancialInference:
			return unsafeInference("financial")
		case a.RequiresSecurityInference:
			return unsafeInference("security")
		case a.RequiresRegulatoryInference:
			return unsafeInference("regulatory")
		}
	}
	return LoopDetectionResult{}
}

func unsafeInference(kind string) LoopDetectionResult {
	return LoopDetectionResult{
		Detected:   true,
		StopPhrase: "STOP: Unsafe inference required",
		Reason:     "issue requires " + kind + " inference outside the pipeline's authority",
	}
}
