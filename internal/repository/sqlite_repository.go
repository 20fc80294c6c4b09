package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"intellimind/backend/internal/model"
)

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository stores chats in the chats/messages tables created by
// database.InitDB. Timestamps are kept as RFC 3339 text so they round-trip
// exactly.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) Load(ctx context.Context) (map[string]*model.Chat, error) {
	chats, err := r.load(ctx)
	if errors.Is(err, ErrCorrupt) {
		slog.Warn("Chat tables hold undecodable rows, starting empty", "error", err)
		return map[string]*model.Chat{}, nil
	}
	return chats, err
}

func (r *sqliteRepository) load(ctx context.Context) (map[string]*model.Chat, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, title, created_at FROM chats")
	if err != nil {
		return nil, fmt.Errorf("could not query chats: %w", err)
	}
	defer rows.Close()

	chats := make(map[string]*model.Chat)
	for rows.Next() {
		var chat model.Chat
		var createdAt string
		if err := rows.Scan(&chat.ID, &chat.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("could not scan chat: %w", err)
		}
		if chat.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		chat.Messages = []model.Message{}
		chats[chat.ID] = &chat
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate chats: %w", err)
	}

	msgRows, err := r.db.QueryContext(ctx, "SELECT chat_id, role, content, timestamp, image FROM messages ORDER BY chat_id, seq")
	if err != nil {
		return nil, fmt.Errorf("could not query messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var chatID, role, ts string
		var msg model.Message
		if err := msgRows.Scan(&chatID, &role, &msg.Content, &ts, &msg.Image); err != nil {
			return nil, fmt.Errorf("could not scan message: %w", err)
		}
		chat, ok := chats[chatID]
		if !ok {
			return nil, fmt.Errorf("%w: message references unknown chat %q", ErrCorrupt, chatID)
		}
		msg.Role = model.Role(role)
		if msg.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		chat.Messages = append(chat.Messages, msg)
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate messages: %w", err)
	}

	return chats, nil
}

// Save rewrites both tables inside one transaction, so a failure leaves the
// previous snapshot untouched.
func (r *sqliteRepository) Save(ctx context.Context, chats map[string]*model.Chat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages"); err != nil {
		return fmt.Errorf("could not clear messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chats"); err != nil {
		return fmt.Errorf("could not clear chats: %w", err)
	}

	chatStmt, err := tx.PrepareContext(ctx, "INSERT INTO chats (id, title, created_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("could not prepare chat insert: %w", err)
	}
	defer chatStmt.Close()

	msgStmt, err := tx.PrepareContext(ctx, "INSERT INTO messages (chat_id, seq, role, content, timestamp, image) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("could not prepare message insert: %w", err)
	}
	defer msgStmt.Close()

	for _, id := range sortedIDs(chats) {
		chat := chats[id]
		if _, err := chatStmt.ExecContext(ctx, chat.ID, chat.Title, formatTime(chat.CreatedAt)); err != nil {
			return fmt.Errorf("could not insert chat %s: %w", chat.ID, err)
		}
		for seq, msg := range chat.Messages {
			if _, err := msgStmt.ExecContext(ctx, chat.ID, seq, string(msg.Role), msg.Content, formatTime(msg.Timestamp), msg.Image); err != nil {
				return fmt.Errorf("could not insert message %d of chat %s: %w", seq, chat.ID, err)
			}
		}
	}

	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrCorrupt, s)
	}
	return t, nil
}
