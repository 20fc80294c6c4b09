package interfaces

import (
	"context"

	"intellimind/backend/internal/model"
	"intellimind/backend/internal/service"
)

// This file defines the interfaces the API layer depends on. Handlers only see
// these contracts, so they can be tested against mocks without any storage or
// language model behind them.

// ChatStore defines the contract for chat CRUD, independent of any session.
type ChatStore interface {
	CreateChat(ctx context.Context, title string) (*model.Chat, error)
	ListChats(ctx context.Context) ([]model.ChatSummary, error)
	SearchChats(ctx context.Context, query string) ([]model.ChatSummary, error)
	GetChat(ctx context.Context, id string) (*model.Chat, error)
	RenameChat(ctx context.Context, id, title string) error
	DeleteChat(ctx context.Context, id string) error
}

// SessionManager defines the contract for per-user sessions, addressed by id.
type SessionManager interface {
	OpenSession(ctx context.Context) (*service.SessionInfo, error)
	SessionInfo(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	CloseSession(ctx context.Context, sessionID string) error
	Submit(ctx context.Context, sessionID string, req service.SubmitRequest) (*service.TurnResult, error)
	SwitchTo(ctx context.Context, sessionID, chatID string) error
	DeleteChat(ctx context.Context, sessionID, chatID string) error
	RecordFeedback(ctx context.Context, sessionID, chatID string, rating int, comment string) error
}

// SettingsService defines the contract for managing application settings.
type SettingsService interface {
	InitAndGet(ctx context.Context, defaultSystemPrompt string) (*service.Settings, error)
	Get(ctx context.Context) (*service.Settings, error)
	Save(ctx context.Context, settings *service.Settings) error
}
