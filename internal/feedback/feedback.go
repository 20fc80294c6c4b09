// Package feedback records user ratings of chats. Sinks are collaborators of
// the chat flow: callers fire them off and only log failures.
package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	app_errors "intellimind/backend/internal/errors"
	"intellimind/backend/internal/model"
)

// Sink accepts feedback records.
type Sink interface {
	Record(ctx context.Context, chatID string, rating int, comment string) error
}

const (
	MinRating = 1
	MaxRating = 5
)

func newRecord(chatID string, rating int, comment string) (*model.Feedback, error) {
	if chatID == "" {
		return nil, fmt.Errorf("%w: chat id is required", app_errors.ErrValidation)
	}
	if rating < MinRating || rating > MaxRating {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", app_errors.ErrValidation, MinRating, MaxRating)
	}
	return &model.Feedback{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SQLiteSink stores feedback in the feedback table.
type SQLiteSink struct {
	db *sql.DB
}

func NewSQLiteSink(db *sql.DB) *SQLiteSink {
	return &SQLiteSink{db: db}
}

func (s *SQLiteSink) Record(ctx context.Context, chatID string, rating int, comment string) error {
	fb, err := newRecord(chatID, rating, comment)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO feedback (id, chat_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)",
		fb.ID, fb.ChatID, fb.Rating, fb.Comment, fb.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert feedback: %v", app_errors.ErrCollaborator, err)
	}
	return nil
}

// LogSink writes feedback to the structured log only.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, chatID string, rating int, comment string) error {
	fb, err := newRecord(chatID, rating, comment)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Feedback received",
		"feedback_id", fb.ID, "chat_id", fb.ChatID, "rating", fb.Rating, "comment", fb.Comment)
	return nil
}
