package core

import (
	"context"
	"time"
)

// Client is the chat platform as seen by command handlers.
type Client interface {
	// SendReply posts text to channelID as a reply to replyToID.
	SendReply(ctx context.Context, channelID, replyToID, text string) (Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	RemoveReaction(ctx context.Context, channelID, messageID string, reaction ReactionInfo) error
	// FetchMessage returns ErrNotFound when the message is gone.
	FetchMessage(ctx context.Context, channelID, messageID string) (Message, error)
	// Typing shows a typing indicator in channelID until release is called.
	Typing(ctx context.Context, channelID string) (release func())
}

// Interactions answers slash and message command invocations.
type Interactions interface {
	Respond(ctx context.Context, it Interaction, text string, ephemeral bool) error
	Defer(ctx context.Context, it Interaction, ephemeral bool) error
	Edit(ctx context.Context, it Interaction, text string) error
	// Discard removes a deferred response that will not be answered.
	Discard(ctx context.Context, it Interaction) error
}

// Scheduler runs command after delay, outside the caller's stack and
// cancellation scope. Failures are logged by the scheduler.
type Scheduler interface {
	Schedule(ctx context.Context, command any, delay time.Duration) error
}
