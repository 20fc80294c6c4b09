package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	app_errors "intellimind/backend/internal/errors"
	"intellimind/backend/internal/feedback"
	"intellimind/backend/internal/imaging"
	"intellimind/backend/internal/llm"
	"intellimind/backend/internal/model"
)

// TurnState is the per-session turn state machine.
type TurnState string

const (
	StateIdle             TurnState = "idle"
	StateAwaitingResponse TurnState = "awaiting_response"
)

const (
	defaultLLMTimeout = 60 * time.Second
	feedbackTimeout   = 10 * time.Second
)

// SettingsProvider supplies the system prompt and chat mode for a turn.
type SettingsProvider interface {
	Get(ctx context.Context) (*Settings, error)
}

// SessionConfig holds the collaborators shared by every session. Settings,
// Images and Feedback are optional.
type SessionConfig struct {
	LLM      llm.Client
	Settings SettingsProvider
	Images   imaging.Processor
	Feedback feedback.Sink
	Timeout  time.Duration
}

// SubmitRequest is one user input.
type SubmitRequest struct {
	Content string
	Image   []byte
}

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	Chat             *model.Chat    `json:"chat"`
	UserMessage      model.Message  `json:"user_message"`
	AssistantMessage *model.Message `json:"assistant_message,omitempty"`
	// HistoryUnavailable is set when the turn succeeded but could not be
	// written to storage. The messages are kept in memory.
	HistoryUnavailable bool `json:"history_unavailable,omitempty"`
}

// Stats are the analytics of a single session.
type Stats struct {
	TotalMessages       int     `json:"total_messages"`
	UserMessages        int     `json:"user_messages"`
	AssistantMessages   int     `json:"assistant_messages"`
	FailedTurns         int     `json:"failed_turns"`
	AvgResponseSeconds  float64 `json:"avg_response_seconds"`
	LastResponseSeconds float64 `json:"last_response_seconds"`
}

// Session is the per-user context object. It owns the active chat pointer and
// drives the Idle -> AwaitingResponse -> Idle turn protocol.
type Session struct {
	id        string
	createdAt time.Time
	store     *ChatStore
	cfg       SessionConfig

	mu         sync.Mutex
	active     string
	state      TurnState
	lastActive time.Time
	stats      Stats
	totalWait  time.Duration

	pending sync.WaitGroup
}

// NewSession creates a session whose active chat is the most recent one.
func NewSession(id string, store *ChatStore, cfg SessionConfig) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLLMTimeout
	}
	now := time.Now()
	return &Session{
		id:         id,
		createdAt:  now,
		store:      store,
		cfg:        cfg,
		active:     store.MostRecentChatID(),
		state:      StateIdle,
		lastActive: now,
	}
}

func (s *Session) ID() string { return s.id }

// ActiveChatID returns the active chat, or "" when none is selected.
func (s *Session) ActiveChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) State() TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// LastActive is the time of the last call that touched the session.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Submit runs one turn on the active chat, creating a chat first when none is
// active. On an LLM failure the user message is kept and persisted and the
// returned error is an *app_errors.LLMFailure.
func (s *Session) Submit(ctx context.Context, req SubmitRequest) (*TurnResult, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.Image) == 0 {
		return nil, fmt.Errorf("%w: message content cannot be empty", app_errors.ErrValidation)
	}

	chatID, err := s.startTurn(ctx)
	if err != nil {
		return nil, err
	}
	defer s.endTurn()

	imageRef := s.processImage(ctx, chatID, req.Image)
	if content == "" {
		if imageRef == "" {
			return nil, fmt.Errorf("%w: the image could not be processed and the message has no text", app_errors.ErrValidation)
		}
		content = model.ImageOnlyContent
	}

	snapshot, userMsg, err := s.store.beginTurn(chatID, content, imageRef)
	if err != nil {
		if errors.Is(err, app_errors.ErrNotFound) {
			s.clearActive(chatID)
		}
		return nil, err
	}
	s.countUserMessage()

	history := s.buildHistory(ctx, snapshot)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	started := time.Now()
	reply, llmErr := s.cfg.LLM.Complete(callCtx, history)
	elapsed := time.Since(started)
	cancel()

	// The turn is persisted even if the caller went away.
	persistCtx := context.WithoutCancel(ctx)

	if llmErr != nil {
		failure := classifyTurnError(callCtx, llmErr)
		slog.Warn("LLM request failed, keeping user message", "chat_id", chatID, "error", failure)
		s.recordFailure()
		if _, _, err := s.store.finishTurn(persistCtx, chatID, nil); err != nil {
			slog.Error("Failed to persist user message after LLM failure", "chat_id", chatID, "error", err)
		}
		return nil, failure
	}

	chat, assistant, err := s.store.finishTurn(persistCtx, chatID, &reply)
	if chat == nil {
		s.clearActive(chatID)
		return nil, err
	}
	s.recordReply(elapsed)

	result := &TurnResult{Chat: chat, UserMessage: userMsg, AssistantMessage: assistant}
	if err != nil {
		slog.Error("Turn completed but history could not be saved", "chat_id", chatID, "error", err)
		result.HistoryUnavailable = true
	}
	return result, nil
}

// startTurn moves the session to AwaitingResponse and resolves the chat the
// turn runs on.
func (s *Session) startTurn(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	if s.state != StateIdle {
		return "", fmt.Errorf("%w: a response is still pending in this session", app_errors.ErrInvalidState)
	}
	if s.active == "" || !s.store.Exists(s.active) {
		chat, err := s.store.CreateChat(ctx, "")
		if err != nil {
			return "", err
		}
		s.active = chat.ID
	}
	s.state = StateAwaitingResponse
	return s.active, nil
}

func (s *Session) endTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
	s.lastActive = time.Now()
}

func (s *Session) buildHistory(ctx context.Context, chat *model.Chat) []llm.Message {
	history := make([]llm.Message, 0, len(chat.Messages)+1)
	if s.cfg.Settings != nil {
		settings, err := s.cfg.Settings.Get(ctx)
		if err != nil {
			slog.Warn("Could not load settings, sending history without system prompt", "error", err)
		} else if instr := settings.SystemInstruction(); instr != "" {
			history = append(history, llm.Message{Role: string(model.RoleSystem), Content: instr})
		}
	}
	for _, msg := range chat.Messages {
		history = append(history, llm.Message{Role: string(msg.Role), Content: msg.Content})
	}
	return history
}

func (s *Session) processImage(ctx context.Context, chatID string, data []byte) string {
	if len(data) == 0 || s.cfg.Images == nil {
		return ""
	}
	artifact, err := s.cfg.Images.Process(ctx, data)
	if err != nil {
		slog.Warn("Image processing failed, continuing without image", "chat_id", chatID, "error", err)
		return ""
	}
	slog.Info("Processed image", "chat_id", chatID, "artifact_id", artifact.ID, "width", artifact.Width, "height", artifact.Height)
	return artifact.ID
}

// classifyTurnError makes sure the caller always gets an LLMFailure.
func classifyTurnError(callCtx context.Context, err error) error {
	if _, ok := app_errors.LLMFailureKindOf(err); ok {
		return err
	}
	if callCtx.Err() != nil {
		return app_errors.NewLLMFailure(app_errors.LLMTimeout, err)
	}
	return app_errors.NewLLMFailure(app_errors.LLMMalformed, err)
}

// SwitchTo makes id the active chat. It is only legal while no turn is pending.
func (s *Session) SwitchTo(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActive = time.Now()
	if s.state != StateIdle {
		return fmt.Errorf("%w: cannot switch chats while a response is pending", app_errors.ErrInvalidState)
	}
	if !s.store.Exists(id) {
		return fmt.Errorf("chat %s: %w", id, app_errors.ErrNotFound)
	}
	s.active = id
	return nil
}

// DeleteChat deletes a chat and clears the active pointer if it pointed there.
func (s *Session) DeleteChat(ctx context.Context, id string) error {
	if err := s.store.DeleteChat(ctx, id); err != nil {
		return err
	}
	s.clearActive(id)
	return nil
}

func (s *Session) clearActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	if s.active == id {
		s.active = ""
	}
}

// forgetChat drops the active pointer when it names a deleted chat. Unlike
// clearActive it does not count as session activity.
func (s *Session) forgetChat(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == id {
		s.active = ""
	}
}

// RecordFeedback hands a rating to the feedback sink in the background. Sink
// failures are only logged.
func (s *Session) RecordFeedback(ctx context.Context, chatID string, rating int, comment string) error {
	if !s.store.Exists(chatID) {
		return fmt.Errorf("chat %s: %w", chatID, app_errors.ErrNotFound)
	}
	if rating < feedback.MinRating || rating > feedback.MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", app_errors.ErrValidation, feedback.MinRating, feedback.MaxRating)
	}
	if s.cfg.Feedback == nil {
		slog.Debug("No feedback sink configured, dropping feedback", "chat_id", chatID)
		return nil
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), feedbackTimeout)
		defer cancel()
		if err := s.cfg.Feedback.Record(fctx, chatID, rating, comment); err != nil {
			slog.Warn("Failed to record feedback", "chat_id", chatID, "error", err)
		}
	}()
	return nil
}

// Close waits for background feedback deliveries.
func (s *Session) Close() {
	s.pending.Wait()
}

func (s *Session) countUserMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.UserMessages++
	s.stats.TotalMessages++
}

func (s *Session) recordReply(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.AssistantMessages++
	s.stats.TotalMessages++
	s.totalWait += elapsed
	s.stats.LastResponseSeconds = elapsed.Seconds()
	s.stats.AvgResponseSeconds = s.totalWait.Seconds() / float64(s.stats.AssistantMessages)
}

func (s *Session) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.FailedTurns++
}
