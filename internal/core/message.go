// Package core holds the platform-neutral types shared by the bot: messages,
// reactions, interactions, inbound events and the ports the application
// uses to talk to the chat platform.
package core

import "errors"

// ErrNotFound is returned by Client when the target message no longer exists.
var ErrNotFound = errors.New("not found")

// Message is a chat message.
type Message struct {
	ID        string `json:"id" validate:"required"`
	ChannelID string `json:"channel_id" validate:"required"`
	GuildID   string `json:"guild_id,omitempty"`
	AuthorID  string `json:"author_id,omitempty"`
	AuthorBot bool   `json:"author_bot,omitempty"`
	Content   string `json:"content,omitempty"`
}

// ReactionInfo identifies one user's reaction on a message.
type ReactionInfo struct {
	UserID string `json:"user_id" validate:"required"`
	Emote  string `json:"emote" validate:"required"`
}

// Interaction is the part of a slash or message command invocation needed to
// answer it.
type Interaction struct {
	ID        string `validate:"required"`
	AppID     string
	Token     string `validate:"required"`
	GuildID   string
	ChannelID string
	UserID    string
	Locale    string
}
