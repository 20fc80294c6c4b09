package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intellimind/backend/internal/model"
)

func TestChat_AppendMessage(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Appends in order", func(t *testing.T) {
		chat := &model.Chat{ID: "c1"}
		first := chat.AppendMessage(model.RoleUser, "Hello", base)
		second := chat.AppendMessage(model.RoleAssistant, "Hi there", base.Add(time.Second))

		require.Len(t, chat.Messages, 2)
		assert.Equal(t, first, chat.Messages[0])
		assert.Equal(t, second, chat.Messages[1])
		last, ok := chat.LastMessage()
		require.True(t, ok)
		assert.Equal(t, "Hi there", last.Content)
	})

	t.Run("Clamps a timestamp that goes backwards", func(t *testing.T) {
		chat := &model.Chat{ID: "c1"}
		chat.AppendMessage(model.RoleUser, "first", base)
		msg := chat.AppendMessage(model.RoleAssistant, "second", base.Add(-time.Hour))

		assert.Equal(t, base, msg.Timestamp)
		assert.False(t, chat.Messages[1].Timestamp.Before(chat.Messages[0].Timestamp))
	})

	t.Run("Keeps image reference", func(t *testing.T) {
		chat := &model.Chat{ID: "c1"}
		msg := chat.AppendImageMessage(model.RoleUser, "look", "img-1", base)
		assert.Equal(t, "img-1", msg.Image)
	})
}

func TestChat_Clone(t *testing.T) {
	chat := &model.Chat{ID: "c1", Title: "t"}
	chat.AppendMessage(model.RoleUser, "a", time.Now())

	cp := chat.Clone()
	cp.AppendMessage(model.RoleAssistant, "b", time.Now())
	cp.Title = "changed"

	assert.Len(t, chat.Messages, 1)
	assert.Equal(t, "t", chat.Title)
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Short", "Hello", "Hello"},
		{"Collapses whitespace", "  Hello \n\t world  ", "Hello world"},
		{"Truncates long input", strings.Repeat("a", 60), strings.Repeat("a", 47) + "..."},
		{"Exactly fifty runes", strings.Repeat("é", 50), strings.Repeat("é", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, model.DeriveTitle(tt.input))
		})
	}
}

func TestChat_HasPlaceholderTitle(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, (&model.Chat{CreatedAt: created}).HasPlaceholderTitle())
	assert.True(t, (&model.Chat{CreatedAt: created, Title: model.PlaceholderTitle(created)}).HasPlaceholderTitle())
	assert.False(t, (&model.Chat{CreatedAt: created, Title: "Trip planning"}).HasPlaceholderTitle())

	// Loaded from storage in another zone, the same instant still matches.
	tokyo := time.FixedZone("JST", 9*60*60)
	title := model.PlaceholderTitle(created)
	assert.Equal(t, "Chat 2026-03-01 10:00", title)
	assert.True(t, (&model.Chat{CreatedAt: created.In(tokyo), Title: title}).HasPlaceholderTitle())
}

func TestChat_SummaryAndExport(t *testing.T) {
	chat := &model.Chat{ID: "c1", Title: "Greetings", CreatedAt: time.Now()}
	chat.AppendMessage(model.RoleUser, "Hello", time.Now())
	chat.AppendMessage(model.RoleAssistant, "Hi there", time.Now())

	summary := chat.Summary()
	assert.Equal(t, "c1", summary.ID)
	assert.Equal(t, 2, summary.MessageCount)
	assert.Equal(t, "Hello", summary.Preview)

	md := chat.ExportMarkdown()
	assert.Contains(t, md, "# Greetings")
	assert.Contains(t, md, "**User**")
	assert.Contains(t, md, "**Assistant**")
	assert.Contains(t, md, "Hi there")
}
