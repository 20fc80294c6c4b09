package errors

import (
	"errors"
	"fmt"
)

// This package defines a centralized set of sentinel errors for the application.
// Services return these (wrapped with %w) and the API layer maps them to HTTP
// responses with errors.Is / errors.As, without either side knowing about the
// other's implementation details.

var (
	// ErrNotFound signifies that an operation referenced a chat or session id that
	// does not exist (never existed, or was deleted). Callers recover by refreshing
	// their chat list.
	ErrNotFound = errors.New("resource not found")

	// ErrValidation signifies that input data failed business rule validation.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState signifies that an operation is not legal in the current
	// turn state, e.g. switching chats while a response is pending.
	ErrInvalidState = errors.New("invalid state")

	// ErrStorage signifies that the durable chat history could not be read or
	// written. Chat operations keep working in memory until storage recovers.
	ErrStorage = errors.New("chat history storage unavailable")

	// ErrLLM is the umbrella for every failure of the language model client.
	// The concrete kind is carried by *LLMFailure.
	ErrLLM = errors.New("language model request failed")

	// ErrCollaborator signifies a failure of a secondary collaborator (feedback
	// sink, image processor). These are logged and never block the chat flow.
	ErrCollaborator = errors.New("collaborator failed")

	// ErrInternal signifies an unexpected error on the server.
	ErrInternal = errors.New("internal server error")
)

// LLMFailureKind classifies why a language model call failed.
type LLMFailureKind string

const (
	LLMTimeout      LLMFailureKind = "timeout"
	LLMRateLimited  LLMFailureKind = "rate_limited"
	LLMUnauthorized LLMFailureKind = "unauthorized"
	LLMMalformed    LLMFailureKind = "malformed"
)

// LLMFailure is returned by LLM clients and surfaced by the session controller.
// It matches ErrLLM with errors.Is.
type LLMFailure struct {
	Kind LLMFailureKind
	Err  error
}

// NewLLMFailure wraps err with the given failure kind.
func NewLLMFailure(kind LLMFailureKind, err error) *LLMFailure {
	return &LLMFailure{Kind: kind, Err: err}
}

func (e *LLMFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("llm failure (%s)", e.Kind)
	}
	return fmt.Sprintf("llm failure (%s): %v", e.Kind, e.Err)
}

func (e *LLMFailure) Unwrap() error { return e.Err }

// Is makes every LLMFailure match ErrLLM.
func (e *LLMFailure) Is(target error) bool {
	return target == ErrLLM
}

// LLMFailureKindOf extracts the failure kind from err, if err carries one.
func LLMFailureKindOf(err error) (LLMFailureKind, bool) {
	var failure *LLMFailure
	if errors.As(err, &failure) {
		return failure.Kind, true
	}
	return "", false
}
