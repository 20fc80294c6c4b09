package model

import "time"

// AppendMessage adds a message to the end of the conversation log and returns it.
// The timestamp is clamped so it never precedes the previous message, which keeps
// the log ordered even if the wall clock steps backwards. The chat is mutated in
// place; persisting it is the caller's job.
func (c *Chat) AppendMessage(role Role, content string, at time.Time) Message {
	return c.appendMessage(Message{Role: role, Content: content}, at)
}

// AppendImageMessage is AppendMessage with an attached image artifact id.
func (c *Chat) AppendImageMessage(role Role, content, imageRef string, at time.Time) Message {
	return c.appendMessage(Message{Role: role, Content: content, Image: imageRef}, at)
}

func (c *Chat) appendMessage(msg Message, at time.Time) Message {
	at = at.UTC()
	if n := len(c.Messages); n > 0 {
		if last := c.Messages[n-1].Timestamp; at.Before(last) {
			at = last
		}
	}
	msg.Timestamp = at
	c.Messages = append(c.Messages, msg)
	return msg
}

// LastMessage returns the most recent message, if any.
func (c *Chat) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}
