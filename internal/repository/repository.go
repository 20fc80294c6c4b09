package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"intellimind/backend/internal/model"
)

// Repository is the durable store behind the chat session store. It works on the
// whole mapping at once so that implementations can make Save atomic; swapping a
// JSON file for SQLite or Redis does not touch the service layer.
type Repository interface {
	// Load returns every persisted chat keyed by id. Missing or undecodable
	// storage yields an empty mapping and a nil error; only hard I/O failures
	// (permissions, lost connection) are reported.
	Load(ctx context.Context) (map[string]*model.Chat, error)

	// Save replaces the durable state with chats. It either fully succeeds or
	// leaves the previous state intact.
	Save(ctx context.Context, chats map[string]*model.Chat) error
}

// encodeChats renders the persisted layout. encoding/json sorts map keys, so the
// same mapping always produces the same bytes.
func encodeChats(chats map[string]*model.Chat) ([]byte, error) {
	if chats == nil {
		chats = map[string]*model.Chat{}
	}
	data, err := json.MarshalIndent(chats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode chats: %w", err)
	}
	return append(data, '\n'), nil
}

func decodeChats(data []byte) (map[string]*model.Chat, error) {
	var chats map[string]*model.Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if chats == nil {
		chats = map[string]*model.Chat{}
	}
	for id, chat := range chats {
		if chat == nil {
			return nil, fmt.Errorf("%w: chat %q has no body", ErrCorrupt, id)
		}
		if chat.Messages == nil {
			chat.Messages = []model.Message{}
		}
	}
	return chats, nil
}

func decodeChat(data []byte) (*model.Chat, error) {
	var chat model.Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if chat.Messages == nil {
		chat.Messages = []model.Message{}
	}
	return &chat, nil
}

func sortedIDs(chats map[string]*model.Chat) []string {
	return slices.Sorted(maps.Keys(chats))
}
