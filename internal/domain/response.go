package domain

// Status classifies the outcome of a consultation.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// AgentResponse is the uniform outbound consultation result. It is the only
// way outcomes cross the manager boundary; errors never propagate as panics.
type AgentResponse struct {
	Status           Status         `json:"status"`
	Success          bool           `json:"success"`
	Output           string         `json:"output"`
	Confidence       float64        `json:"confidence"`
	Recommendations  []string       `json:"recommendations"`
	Context          map[string]any `json:"context,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// Normalize enforces the response invariants in place: status and success
// agree, confidence is clamped to [0,1], recommendations and context are
// never nil, processing time is non-negative, and a failure always carries
// an error message or a stop phrase.
func (r *AgentResponse) Normalize() *AgentResponse {
	if r.Status == "" {
		if r.Success {
			r.Status = StatusSuccess
		} else {
			r.Status = StatusFailure
		}
	}
	r.Success = r.Status == StatusSuccess
	if r.Confidence < 0 {
		r.Confidence = 0
	} else if r.Confidence > 1 {
		r.Confidence = 1
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	if r.Context == nil {
		r.Context = map[string]any{}
	}
	if r.ProcessingTimeMs < 0 {
		r.ProcessingTimeMs = 0
	}
	if r.Status == StatusFailure && r.ErrorMessage == "" {
		if phrase, _ := r.Context["stop_phrase"].(string); phrase == "" {
			r.ErrorMessage = "consultation failed"
		}
	}
	return r
}

// NewSuccessResponse builds a normalized SUCCESS response.
func NewSuccessResponse(output string, confidence float64, recommendations ...string) *AgentResponse {
	resp := &AgentResponse{
		Status:          StatusSuccess,
		Success:         true,
		Output:          output,
		Confidence:      confidence,
		Recommendations: recommendations,
	}
	return resp.Normalize()
}

// NewFailureResponse builds a normalized FAILURE response carrying the
// error message and its stable category in the response context.
func NewFailureResponse(err error) *AgentResponse {
	resp := &AgentResponse{
		Status:       StatusFailure,
		ErrorMessage: err.Error(),
		Context:      map[string]any{"error_category": string(Category(err))},
	}
	return resp.Normalize()
}
