package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"intellimind/backend/internal/fsutil"
	"intellimind/backend/internal/model"
)

type jsonFileRepository struct {
	path string
}

// NewJSONFileRepository stores all chats in a single JSON document at path.
func NewJSONFileRepository(path string) Repository {
	return &jsonFileRepository{path: path}
}

func (r *jsonFileRepository) Load(ctx context.Context) (map[string]*model.Chat, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("No chat history file found, starting empty", "path", r.path)
		return map[string]*model.Chat{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read history file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]*model.Chat{}, nil
	}

	chats, err := decodeChats(data)
	if err != nil {
		slog.Warn("Chat history file is corrupt, starting empty", "path", r.path, "error", err)
		return map[string]*model.Chat{}, nil
	}
	return chats, nil
}

func (r *jsonFileRepository) Save(ctx context.Context, chats map[string]*model.Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeChats(chats)
	if err != nil {
		return err
	}
	if err := fsutil.AtomicWriteFile(r.path, data, 0600); err != nil {
		return fmt.Errorf("could not write history file: %w", err)
	}
	return nil
}
