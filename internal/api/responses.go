package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	app_errors "intellimind/backend/internal/errors"
)

// This file contains shared DTOs (Data Transfer Objects) for API requests and
// responses, and the helpers that write consistent HTTP responses.

// ErrorResponse defines the standard JSON structure for error messages.
// Kind is set for language model failures so clients can render an inline,
// actionable message in the conversation.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty" example:"timeout"`
}

// StatusResponse defines a generic success response, typically for operations
// like PUT and DELETE that don't need to return a full resource.
type StatusResponse struct {
	Status string `json:"status"`
}

// CreateChatRequest is the DTO for creating an empty chat.
type CreateChatRequest struct {
	Title string `json:"title" validate:"max=100" example:"Trip planning"`
}

// UpdateTitleRequest is the DTO for the manual chat title update endpoint.
type UpdateTitleRequest struct {
	Title string `json:"title" validate:"required,min=1,max=100" example:"My Custom Chat Title"`
}

// SubmitMessageRequest is one user turn. Image is base64 encoded in JSON.
type SubmitMessageRequest struct {
	Content string `json:"content" validate:"required_without=Image,max=32000" example:"Hello"`
	Image   []byte `json:"image,omitempty" validate:"max=10485760" swaggertype:"string" format:"base64"`
}

// SwitchChatRequest selects the active chat of a session.
type SwitchChatRequest struct {
	ChatID string `json:"chat_id" validate:"required" example:"7b1e6c1c-3f0a-4f57-9a53-0d3c2d6f3a11"`
}

// FeedbackRequest is a rating of a chat.
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"min=1,max=5" example:"5"`
	Comment string `json:"comment" validate:"max=2000" example:"Very helpful"`
}

// UpdateSettingsRequest is the DTO for saving settings.
type UpdateSettingsRequest struct {
	SystemPrompt string `json:"system_prompt" validate:"max=8000" example:"You are IntelliMind, a helpful assistant."`
	ChatMode     string `json:"chat_mode" validate:"omitempty,oneof=general creative technical academic" example:"general"`
}

// respondWithError is the centralized error handling function for the API layer.
// It maps business-layer errors to HTTP status codes and a standard JSON body.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	var message string
	var kind string

	var failure *app_errors.LLMFailure
	switch {
	case errors.As(err, &failure):
		kind = string(failure.Kind)
		statusCode, message = llmFailureResponse(failure.Kind)
	case errors.Is(err, app_errors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "The requested resource was not found. Refresh your chat list."
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
		// Validation messages from the service layer are already user-friendly.
		message = err.Error()
	case errors.Is(err, app_errors.ErrInvalidState):
		statusCode = http.StatusConflict
		message = "Please wait for the current response to finish."
	case errors.Is(err, app_errors.ErrStorage):
		statusCode = http.StatusServiceUnavailable
		message = "Chat history is unavailable right now. Your messages are kept for this session only."
	default:
		// Never leak implementation details to the client.
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)

	respondWithJSON(w, statusCode, ErrorResponse{Error: message, Kind: kind})
}

func llmFailureResponse(kind app_errors.LLMFailureKind) (int, string) {
	switch kind {
	case app_errors.LLMTimeout:
		return http.StatusGatewayTimeout, "The assistant took too long to answer. Your message was saved, please try again."
	case app_errors.LLMRateLimited:
		return http.StatusTooManyRequests, "You have reached the rate limit for the AI model. Please try again later."
	case app_errors.LLMUnauthorized:
		return http.StatusBadGateway, "The AI provider rejected our credentials. Check the configured API key."
	default:
		return http.StatusBadGateway, "The AI provider returned an unusable answer. Please try again."
	}
}

// respondWithJSON marshals payload and writes it with the given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// decodeAndValidate reads a JSON body into dst and runs the struct validator.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request payload", app_errors.ErrValidation)
	}
	return validateRequest(dst)
}
