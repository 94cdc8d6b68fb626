package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"agent-advisor/internal/domain"
	"agent-advisor/internal/usecase"
	"agent-advisor/internal/usecase/story"
)

// StoryAgentType is the request type routed directly to the story agent.
const StoryAgentType = "story"

// StoryConfig tunes the strengthening pipeline behind the story agent.
type StoryConfig struct {
	Repository string
	Prefixes   []string
	Limits     story.Thresholds
	Logger     *slog.Logger
}

// Story wraps the five-stage strengthening pipeline as an advisory
// handler. Deliberate stops come back as failure responses carrying the
// stop phrase; loop halts are classified as loop_detected.
func Story(cfg StoryConfig) *usecase.Handler {
	pipeline := story.NewPipeline(
		story.NewDefaultIssueValidator(story.ValidatorConfig{Repository: cfg.Repository, Prefixes: cfg.Prefixes}),
		nil, nil, nil, nil,
		story.NewThresholdLoopDetector(cfg.Limits),
		cfg.Logger,
	)

	return &usecase.Handler{
		Desc: descriptor("advisor-story", "Story Strengthening Agent", domain.DomainDocumentation,
			"story", "requirements", "gherkin"),
		ValidateFn: func(req domain.AgentRequest) error {
			if err := requireDescription(req); err != nil {
				return err
			}
			props := req.Props()
			if strings.TrimSpace(props.String("title")) == "" {
				return fmt.Errorf("story request needs a title property")
			}
			if strings.TrimSpace(props.String("body")) == "" {
				return fmt.Errorf("story request needs a body property")
			}
			return nil
		},
		ExecuteFn: func(ctx context.Context, req domain.AgentRequest, props domain.Properties) (*domain.AgentResponse, error) {
			issue := story.Issue{
				Title:      props.String("title"),
				Body:       props.String("body"),
				Labels:     props.StringList("labels"),
				Repository: props.String("repository"),
				Number:     props.Int("issue_number"),
			}

			result := pipeline.Process(ctx, issue)
			if result.Success {
				resp := domain.NewSuccessResponse(result.Output, 0.9,
					"Review the open questions with the issue author before implementation.")
				return resp, nil
			}

			var resp *domain.AgentResponse
			if result.LoopDetected {
				resp = domain.NewFailureResponse(
					domain.NewDomainError("story.pipeline", domain.ErrLoopDetected, result.Reason))
			} else {
				resp = domain.NewFailureResponse(
					domain.NewDomainError("story.pipeline", domain.ErrInvalidRequest, result.Reason))
			}
			resp.ErrorMessage = result.StopPhrase
			resp.Context["stop_phrase"] = result.StopPhrase
			resp.Context["stop_reason"] = result.Reason
			return resp, nil
		},
	}
}
