package story

import (
	"context"
	"fmt"
	"log/slog"
)

// Pipeline runs the five strengthening stages over one issue:
// validate, parse, analyze, transform, generate. Loop checkpoints run
// after parse, analyze, and transform; a detection halts the pipeline
// with a stop phrase instead of an output.
type Pipeline struct {
	validator   IssueValidator
	parser      IssueParser
	analyzer    RequirementsAnalyzer
	transformer RequirementsTransformer
	generator   OutputGenerator
	detector    LoopDetector
	logger      *slog.Logger
}

// NewPipeline wires the stages. Nil stages take the package defaults so
// callers only override what they need.
func NewPipeline(validator IssueValidator, parser IssueParser, analyzer RequirementsAnalyzer,
	transformer RequirementsTransformer, generator OutputGenerator, detector LoopDetector,
	logger *slog.Logger) *Pipeline {
	if validator == nil {
		validator = NewDefaultIssueValidator(ValidatorConfig{})
	}
	if parser == nil {
		parser = NewMarkdownParser()
	}
	if analyzer == nil {
		analyzer = NewHeuristicAnalyzer()
	}
	if transformer == nil {
		transformer = NewEARSTransformer()
	}
	if generator == nil {
		generator = NewMarkdownGenerator()
	}
	if detector == nil {
		detector = NewThresholdLoopDetector(Thresholds{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		validator:   validator,
		parser:      parser,
		analyzer:    analyzer,
		transformer: transformer,
		generator:   generator,
		detector:    detector,
		logger:      logger,
	}
}

// Process runs the pipeline. It never panics; every termination is a
// ProcessingResult carrying either an output or a stop phrase.
func (p *Pipeline) Process(ctx context.Context, issue Issue) ProcessingResult {
	if v := p.validator.ValidateIssue(issue); !v.Valid {
		p.logger.Info("issue rejected by validation",
			slog.Int("issue", issue.Number), slog.String("stop_phrase", v.StopPhrase))
		return StoppedResult(v.StopPhrase, v.Reason)
	}

	pc := NewProcessingContext(issue)

	if err := ctx.Err(); err != nil {
		return StoppedResult("STOP: Processing canceled", err.Error())
	}
	parsed, err := p.parser.Parse(issue)
	if err != nil {
		p.logger.Warn("issue parsing failed", slog.Int("issue", issue.Number), slog.Any("error", err))
		return StoppedResult("STOP: Issue parsing failed", err.Error())
	}
	pc.Parsed = parsed
	if res, halted := p.checkpoint(pc, 1); halted {
		return res
	}

	if err := ctx.Err(); err != nil {
		return StoppedResult("STOP: Processing canceled", err.Error())
	}
	analysis, err := p.analyzer.Analyze(parsed)
	if err != nil {
		p.logger.Warn("requirement analysis failed", slog.Int("issue", issue.Number), slog.Any("error", err))
		return StoppedResult("STOP: Requirement analysis failed", err.Error())
	}
	pc.Analysis = analysis
	if res, halted := p.checkpoint(pc, 2); halted {
		return res
	}

	if err := ctx.Err(); err != nil {
		return StoppedResult("STOP: Processing canceled", err.Error())
	}
	transformed, err := p.transformer.Transform(pc, analysis)
	if err != nil {
		p.logger.Warn("requirement transformation failed", slog.Int("issue", issue.Number), slog.Any("error", err))
		return StoppedResult("STOP: Requirement transformation failed", err.Error())
	}
	pc.Transformed = transformed
	if res, halted := p.checkpoint(pc, 3); halted {
		return res
	}

	output, err := p.generator.Generate(issue, transformed)
	if err != nil {
		p.logger.Warn("output generation failed", slog.Int("issue", issue.Number), slog.Any("error", err))
		return StoppedResult("STOP: Output generation failed", err.Error())
	}

	p.logger.Info("issue strengthened",
		slog.Int("issue", issue.Number),
		slog.Int("requirements", len(transformed.FunctionalRequirements)),
		slog.Int("open_questions", len(transformed.OpenQuestions)))
	return SuccessResult(output)
}

// checkpoint runs the loop detector and fills in checkpoint-numbered
// defaults for detections that omit a stop phrase or reason.
func (p *Pipeline) checkpoint(pc *ProcessingContext, n int) (ProcessingResult, bool) {
	pc.Checkpoint = n
	res := p.detector.CheckForLoops(pc)
	if !res.Detected {
		return ProcessingResult{}, false
	}
	phrase := res.StopPhrase
	if phrase == "" {
		phrase = fmt.Sprintf("STOP: Loop detected at checkpoint %d", n)
	}
	reason := res.Reason
	if reason == "" {
		reason = "Loop condition detected"
	}
	p.logger.Warn("loop detected, halting pipeline",
		slog.Int("issue", pc.Issue.Number), slog.Int("checkpoint", n), slog.String("stop_phrase", phrase))
	stopped := StoppedResult(phrase, reason)
	stopped.LoopDetected = true
	return stopped, true
}
