package model

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Chat is one conversation thread. The JSON shape is the persisted layout and
// must stay stable across releases.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
}

// Message stores a single message in a chat. Messages are never edited after
// they have been appended.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Image     string    `json:"image,omitempty"` // Artifact id of an attached image.
}

// ChatSummary is the lightweight listing view of a chat.
type ChatSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	MessageCount int       `json:"messageCount"`
	Preview      string    `json:"preview,omitempty"`
}

// Feedback is a rating left by a user on a chat.
type Feedback struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageOnlyContent is the text of a user message that carries only an image.
const ImageOnlyContent = "[image]"

const (
	titleMaxRunes   = 50
	previewMaxRunes = 80
)

// PlaceholderTitle is the title a chat gets when none was supplied. It is
// formatted in UTC so it is recognised after a restart in another time zone.
func PlaceholderTitle(createdAt time.Time) string {
	return "Chat " + createdAt.UTC().Format("2006-01-02 15:04")
}

// DeriveTitle builds a chat title from the first user message: whitespace runs
// become single spaces and the result is cut to 50 runes.
func DeriveTitle(content string) string {
	return truncate(strings.Join(strings.Fields(content), " "), titleMaxRunes)
}

// HasPlaceholderTitle reports whether the chat still carries its default title.
func (c *Chat) HasPlaceholderTitle() bool {
	return c.Title == "" || c.Title == PlaceholderTitle(c.CreatedAt)
}

// Clone returns a deep copy of the chat.
func (c *Chat) Clone() *Chat {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// Summary returns the listing view of the chat.
func (c *Chat) Summary() ChatSummary {
	return ChatSummary{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		MessageCount: len(c.Messages),
		Preview:      c.Preview(),
	}
}

// Preview returns the first user message, shortened for listings.
func (c *Chat) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return truncate(msg.Content, previewMaxRunes)
		}
	}
	return ""
}

// ExportMarkdown renders the conversation as a Markdown transcript.
func (c *Chat) ExportMarkdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", c.Title)
	fmt.Fprintf(&sb, "Created: %s\n\n---\n\n", c.CreatedAt.Format(time.RFC3339))

	for _, msg := range c.Messages {
		label := "**User**"
		switch msg.Role {
		case RoleAssistant:
			label = "**Assistant**"
		case RoleSystem:
			label = "**System**"
		}
		fmt.Fprintf(&sb, "%s (%s):\n\n%s\n\n---\n\n", label, msg.Timestamp.Format("2006-01-02 15:04:05"), msg.Content)
	}
	return sb.String()
}

// truncate shortens a string to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
