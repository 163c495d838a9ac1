package invoke

// Result is the outcome of one invocation, the only artifact surfaced to
// the model-facing message stream. LLMContent feeds the model; DisplayContent
// feeds the human-facing transcript. Cancelled distinguishes cooperative
// cancellation from failure.
type Result struct {
	Success        bool                   `json:"success"`
	LLMContent     string                 `json:"llm_content,omitempty"`
	DisplayContent string                 `json:"display_content,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Cancelled      bool                   `json:"cancelled,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ErrorResult builds a failed result from an error.
func ErrorResult(err error) Result {
	return Result{
		Success: false,
		Error:   err.Error(),
	}
}

// CancelledResult builds the distinguishable cancellation result.
func CancelledResult() Result {
	return Result{
		Success:   false,
		Cancelled: true,
		Error:     ErrCancelled.Error(),
	}
}
