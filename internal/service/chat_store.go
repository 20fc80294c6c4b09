package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	app_errors "intellimind/backend/internal/errors"
	"intellimind/backend/internal/model"
	"intellimind/backend/internal/repository"
)

const maxIDAttempts = 8

// ChatStore owns the in-memory mapping of chats and its durable copy. Every
// mutation and every Save happens under one mutex, so ids are never handed out
// twice and two Saves never interleave. The LLM call is never made while the
// mutex is held.
type ChatStore struct {
	mu       sync.Mutex
	repo     repository.Repository
	chats    map[string]*model.Chat
	inFlight map[string]struct{}

	// degraded is set when the initial Load failed. Until a later Load succeeds
	// nothing is written, so an outage never wipes the durable history.
	degraded bool
	// dirty marks in-memory changes that did not reach storage yet.
	dirty bool

	now   func() time.Time
	newID func() string

	onDelete []func(id string)
}

// StoreOption customizes a ChatStore.
type StoreOption func(*ChatStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(s *ChatStore) { s.now = now }
}

// WithIDGenerator replaces the random UUID generator.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *ChatStore) { s.newID = gen }
}

// NewChatStore loads the persisted chats. A backend that cannot be read leaves
// the store empty and in-memory only; the failure is logged and retried on the
// next write.
func NewChatStore(ctx context.Context, repo repository.Repository, opts ...StoreOption) *ChatStore {
	s := &ChatStore{
		repo:     repo,
		chats:    make(map[string]*model.Chat),
		inFlight: make(map[string]struct{}),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	chats, err := repo.Load(ctx)
	if err != nil {
		slog.Error("Chat history is unavailable, continuing in memory", "error", err)
		s.degraded = true
		return s
	}
	s.chats = chats
	slog.Info("Loaded chat history", "chats", len(chats))
	return s
}

// CreateChat allocates a new chat and persists it. If the save fails the chat
// is dropped again and ErrStorage is returned.
func (s *ChatStore) CreateChat(ctx context.Context, title string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.allocateIDLocked()
	if err != nil {
		return nil, err
	}

	createdAt := s.now().UTC()
	title = strings.TrimSpace(title)
	if title == "" {
		title = model.PlaceholderTitle(createdAt)
	}
	chat := &model.Chat{ID: id, Title: title, CreatedAt: createdAt, Messages: []model.Message{}}

	s.chats[id] = chat
	if err := s.persistLocked(ctx); err != nil {
		delete(s.chats, id)
		return nil, err
	}

	slog.Info("Created chat", "chat_id", id)
	return chat.Clone(), nil
}

func (s *ChatStore) allocateIDLocked() (string, error) {
	for range maxIDAttempts {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, taken := s.chats[id]; !taken {
			return id, nil
		}
		slog.Warn("Generated chat id collided, retrying", "chat_id", id)
	}
	return "", fmt.Errorf("%w: could not allocate a unique chat id", app_errors.ErrInternal)
}

// ListChats returns summaries of all chats, newest first.
func (s *ChatStore) ListChats(ctx context.Context) ([]model.ChatSummary, error) {
	return s.filter(func(*model.Chat) bool { return true }), nil
}

// SearchChats lists the chats whose title or any message contains query,
// ignoring case. An empty query matches everything.
func (s *ChatStore) SearchChats(ctx context.Context, query string) ([]model.ChatSummary, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.filter(func(c *model.Chat) bool {
		if q == "" || strings.Contains(strings.ToLower(c.Title), q) {
			return true
		}
		for _, msg := range c.Messages {
			if strings.Contains(strings.ToLower(msg.Content), q) {
				return true
			}
		}
		return false
	}), nil
}

func (s *ChatStore) filter(keep func(*model.Chat) bool) []model.ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]model.ChatSummary, 0, len(s.chats))
	for _, chat := range s.chats {
		if keep(chat) {
			summaries = append(summaries, chat.Summary())
		}
	}
	slices.SortFunc(summaries, func(a, b model.ChatSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return summaries
}

// MostRecentChatID returns the id of the newest chat, or "" when there is none.
func (s *ChatStore) MostRecentChatID() string {
	summaries, _ := s.ListChats(context.Background())
	if len(summaries) == 0 {
		return ""
	}
	return summaries[0].ID
}

// GetChat returns a copy of the chat.
func (s *ChatStore) GetChat(ctx context.Context, id string) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", id, app_errors.ErrNotFound)
	}
	return chat.Clone(), nil
}

// Exists reports whether a chat with id is present.
func (s *ChatStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chats[id]
	return ok
}

// OnDelete registers fn to be called after a chat was deleted. Listeners run
// outside the store lock.
func (s *ChatStore) OnDelete(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDelete = append(s.onDelete, fn)
}

// DeleteChat removes a chat and notifies the OnDelete listeners. The store has
// no notion of an active chat.
func (s *ChatStore) DeleteChat(ctx context.Context, id string) error {
	listeners, err := s.deleteChat(ctx, id)
	if err != nil {
		return err
	}
	for _, fn := range listeners {
		fn(id)
	}
	return nil
}

func (s *ChatStore) deleteChat(ctx context.Context, id string) ([]func(string), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", id, app_errors.ErrNotFound)
	}
	delete(s.chats, id)
	if err := s.persistLocked(ctx); err != nil {
		s.chats[id] = chat
		return nil, err
	}
	slog.Info("Deleted chat", "chat_id", id)
	return slices.Clone(s.onDelete), nil
}

// RenameChat sets an explicit title.
func (s *ChatStore) RenameChat(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title cannot be empty", app_errors.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		return fmt.Errorf("chat %s: %w", id, app_errors.ErrNotFound)
	}
	old := chat.Title
	chat.Title = title
	if err := s.persistLocked(ctx); err != nil {
		chat.Title = old
		return err
	}
	slog.Info("Renamed chat", "chat_id", id, "title", title)
	return nil
}

// Persist writes pending in-memory changes, if any.
func (s *ChatStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty && !s.degraded {
		return nil
	}
	return s.persistLocked(ctx)
}

// persistLocked saves the whole mapping. A degraded store first retries Load
// and merges the durable chats it has not seen yet.
func (s *ChatStore) persistLocked(ctx context.Context) error {
	if s.degraded {
		loaded, err := s.repo.Load(ctx)
		if err != nil {
			s.dirty = true
			return fmt.Errorf("%w: %v", app_errors.ErrStorage, err)
		}
		for id, chat := range loaded {
			if _, ok := s.chats[id]; !ok {
				s.chats[id] = chat
			}
		}
		s.degraded = false
		slog.Info("Chat history storage recovered", "chats", len(s.chats))
	}

	if err := s.repo.Save(ctx, s.chats); err != nil {
		s.dirty = true
		slog.Error("Failed to save chat history", "error", err)
		return fmt.Errorf("%w: %v", app_errors.ErrStorage, err)
	}
	s.dirty = false
	return nil
}

// beginTurn marks chatID as having a turn in flight, appends the user message
// without persisting it and returns a snapshot of the history to send to the
// model. A second turn on the same chat fails with ErrInvalidState.
func (s *ChatStore) beginTurn(chatID string, content, imageRef string) (*model.Chat, model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return nil, model.Message{}, fmt.Errorf("chat %s: %w", chatID, app_errors.ErrNotFound)
	}
	if _, busy := s.inFlight[chatID]; busy {
		return nil, model.Message{}, fmt.Errorf("%w: chat %s is already waiting for a response", app_errors.ErrInvalidState, chatID)
	}
	s.inFlight[chatID] = struct{}{}

	if chat.HasPlaceholderTitle() && !hasUserMessage(chat) && content != model.ImageOnlyContent {
		if derived := model.DeriveTitle(content); derived != "" {
			chat.Title = derived
		}
	}
	msg := chat.AppendImageMessage(model.RoleUser, content, imageRef, s.now())
	s.dirty = true
	return chat.Clone(), msg, nil
}

// finishTurn releases the in-flight mark, appends the reply when there is one
// and persists the chat once. The returned chat is a copy. When the chat was
// deleted while the model was answering the reply is dropped and ErrNotFound
// returned.
func (s *ChatStore) finishTurn(ctx context.Context, chatID string, reply *string) (*model.Chat, *model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, chatID)
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, nil, fmt.Errorf("chat %s was deleted during the turn: %w", chatID, app_errors.ErrNotFound)
	}

	var assistant *model.Message
	if reply != nil {
		msg := chat.AppendMessage(model.RoleAssistant, *reply, s.now())
		assistant = &msg
	}

	err := s.persistLocked(ctx)
	return chat.Clone(), assistant, err
}

func hasUserMessage(c *model.Chat) bool {
	return slices.ContainsFunc(c.Messages, func(m model.Message) bool { return m.Role == model.RoleUser })
}
