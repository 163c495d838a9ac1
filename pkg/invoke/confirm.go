package invoke

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/gatekit/pkg/policy"
)

// ConfirmationRequest is what a human-confirmation surface sees for one
// pending tool call: the signature, the decision that led here, and the
// projections needed to render a prompt.
type ConfirmationRequest struct {
	ToolName      string          `json:"tool_name"`
	Signature     string          `json:"signature"`
	Description   string          `json:"description"`
	AffectedPaths []string        `json:"affected_paths,omitempty"`
	Decision      policy.Decision `json:"decision"`
	SessionID     string          `json:"session_id,omitempty"`
}

// ConfirmationResponse is the human's answer. RememberRule optionally
// carries an allow-rule pattern (from policy.AbstractRule) that the caller
// should merge into the active rule set.
type ConfirmationResponse struct {
	Approved     bool   `json:"approved"`
	Reason       string `json:"reason"`
	RememberRule string `json:"remember_rule,omitempty"`
}

// ConfirmationHandler answers confirmation requests. Implementations block
// until the human decides or the context is cancelled.
type ConfirmationHandler interface {
	Confirm(ctx context.Context, req ConfirmationRequest) (ConfirmationResponse, error)
}

// ConfirmManager bounds handler latency with a timeout so a stalled
// confirmation surface cannot wedge an invocation forever.
type ConfirmManager struct {
	handler        ConfirmationHandler
	defaultTimeout time.Duration
}

// NewConfirmManager creates a confirmation manager around a handler.
func NewConfirmManager(handler ConfirmationHandler) *ConfirmManager {
	return &ConfirmManager{
		handler:        handler,
		defaultTimeout: 60 * time.Second,
	}
}

// SetDefaultTimeout sets the timeout applied to every request.
func (cm *ConfirmManager) SetDefaultTimeout(timeout time.Duration) {
	cm.defaultTimeout = timeout
}

// Confirm asks the handler for a decision, enforcing the timeout.
func (cm *ConfirmManager) Confirm(ctx context.Context, req ConfirmationRequest) (ConfirmationResponse, error) {
	if cm.handler == nil {
		return ConfirmationResponse{}, fmt.Errorf("no confirmation handler configured")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, cm.defaultTimeout)
	defer cancel()

	log.Info().
		Str("tool", req.ToolName).
		Str("signature", req.Signature).
		Msg("Requesting confirmation")

	responseChan := make(chan ConfirmationResponse, 1)
	errorChan := make(chan error, 1)

	go func() {
		response, err := cm.handler.Confirm(timeoutCtx, req)
		if err != nil {
			errorChan <- err
		} else {
			responseChan <- response
		}
	}()

	select {
	case response := <-responseChan:
		if response.Approved {
			log.Info().
				Str("tool", req.ToolName).
				Str("reason", response.Reason).
				Msg("Confirmation granted")
		} else {
			log.Warn().
				Str("tool", req.ToolName).
				Str("reason", response.Reason).
				Msg("Confirmation refused")
		}
		return response, nil

	case err := <-errorChan:
		if timeoutCtx.Err() == context.DeadlineExceeded {
			log.Warn().
				Str("tool", req.ToolName).
				Dur("timeout", cm.defaultTimeout).
				Msg("Confirmation request timed out")
			return ConfirmationResponse{}, fmt.Errorf("confirmation request timed out after %v", cm.defaultTimeout)
		}
		log.Error().
			Err(err).
			Str("tool", req.ToolName).
			Msg("Confirmation request failed")
		return ConfirmationResponse{}, fmt.Errorf("confirmation request failed: %w", err)

	case <-timeoutCtx.Done():
		log.Warn().
			Str("tool", req.ToolName).
			Dur("timeout", cm.defaultTimeout).
			Msg("Confirmation request timed out")
		return ConfirmationResponse{}, fmt.Errorf("confirmation request timed out after %v", cm.defaultTimeout)
	}
}

// AutoApproveHandler approves every request without user interaction.
type AutoApproveHandler struct{}

// Confirm implements ConfirmationHandler.
func (AutoApproveHandler) Confirm(_ context.Context, _ ConfirmationRequest) (ConfirmationResponse, error) {
	return ConfirmationResponse{Approved: true, Reason: "auto-approved"}, nil
}

// MockConfirmationHandler is a configurable handler for testing.
type MockConfirmationHandler struct {
	Response ConfirmationResponse
	Delay    time.Duration
	Err      error

	Requests []ConfirmationRequest
}

// Confirm implements ConfirmationHandler.
func (m *MockConfirmationHandler) Confirm(ctx context.Context, req ConfirmationRequest) (ConfirmationResponse, error) {
	m.Requests = append(m.Requests, req)

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ConfirmationResponse{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return ConfirmationResponse{}, m.Err
	}
	return m.Response, nil
}
