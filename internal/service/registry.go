package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	app_errors "intellimind/backend/internal/errors"
)

// SessionInfo is the externally visible state of a session.
type SessionInfo struct {
	ID           string    `json:"id"`
	ActiveChatID string    `json:"active_chat_id,omitempty"`
	State        TurnState `json:"state"`
	Stats        Stats     `json:"stats"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}

// Registry tracks the open sessions. It is created once by the application
// and injected where needed.
type Registry struct {
	store       *ChatStore
	cfg         SessionConfig
	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	closing  bool
	// turns counts Submit calls in progress so Shutdown can let them persist.
	turns sync.WaitGroup
}

func NewRegistry(store *ChatStore, cfg SessionConfig, idleTimeout time.Duration) *Registry {
	r := &Registry{
		store:       store,
		cfg:         cfg,
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*Session),
	}
	store.OnDelete(r.chatDeleted)
	return r
}

// chatDeleted clears the active pointer of every session that held id,
// whichever endpoint deleted the chat.
func (r *Registry) chatDeleted(id string) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.mu.RUnlock()

	for _, sess := range sessions {
		sess.forgetChat(id)
	}
}

// Open starts a new session.
func (r *Registry) Open(ctx context.Context) *Session {
	sess := NewSession(uuid.NewString(), r.store, r.cfg)

	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()

	slog.Info("Opened session", "session_id", sess.ID(), "active_chat_id", sess.ActiveChatID())
	return sess
}

// Get returns an open session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, app_errors.ErrNotFound)
	}
	return sess, nil
}

// Close removes a session and waits for its background work.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, app_errors.ErrNotFound)
	}
	sess.Close()
	slog.Info("Closed session", "session_id", id)
	return nil
}

// Sweep closes idle sessions that were not touched since now minus the idle
// timeout. Sessions waiting for a response are never swept. It returns the
// number of closed sessions.
func (r *Registry) Sweep(now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idleTimeout)

	r.mu.Lock()
	var expired []*Session
	for id, sess := range r.sessions {
		if sess.State() == StateIdle && sess.LastActive().Before(cutoff) {
			expired = append(expired, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
		slog.Info("Expired idle session", "session_id", sess.ID())
	}
	return len(expired)
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Shutdown rejects new turns, waits for the running ones to finish and closes
// every session. Running turns are bounded by the LLM timeout.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closing = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	r.turns.Wait()

	for _, sess := range sessions {
		sess.Close()
	}
}

// The methods below address sessions by id for the HTTP layer.

func (r *Registry) OpenSession(ctx context.Context) (*SessionInfo, error) {
	return infoOf(r.Open(ctx)), nil
}

func (r *Registry) SessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := r.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return infoOf(sess), nil
}

func (r *Registry) CloseSession(ctx context.Context, sessionID string) error {
	return r.Close(sessionID)
}

func (r *Registry) Submit(ctx context.Context, sessionID string, req SubmitRequest) (*TurnResult, error) {
	r.mu.Lock()
	if r.closing {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: server is shutting down", app_errors.ErrInvalidState)
	}
	sess, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", sessionID, app_errors.ErrNotFound)
	}
	r.turns.Add(1)
	r.mu.Unlock()
	defer r.turns.Done()

	return sess.Submit(ctx, req)
}

func (r *Registry) SwitchTo(ctx context.Context, sessionID, chatID string) error {
	sess, err := r.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.SwitchTo(ctx, chatID)
}

func (r *Registry) DeleteChat(ctx context.Context, sessionID, chatID string) error {
	sess, err := r.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.DeleteChat(ctx, chatID)
}

func (r *Registry) RecordFeedback(ctx context.Context, sessionID, chatID string, rating int, comment string) error {
	sess, err := r.Get(sessionID)
	if err != nil {
		return err
	}
	return sess.RecordFeedback(ctx, chatID, rating, comment)
}

func infoOf(s *Session) *SessionInfo {
	return &SessionInfo{
		ID:           s.ID(),
		ActiveChatID: s.ActiveChatID(),
		State:        s.State(),
		Stats:        s.Stats(),
		CreatedAt:    s.createdAt,
		LastActive:   s.LastActive(),
	}
}
