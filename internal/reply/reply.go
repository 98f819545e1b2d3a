// Package reply implements temporary replies: a message posted in answer to
// another one and removed again after a delay, together with the reaction
// that triggered it.
package reply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/internal/core"
	"github.com/keshon/server-babel/pkg/cmd"
)

// Send posts Text as a reply to Source and schedules a Delete after Delay.
type Send struct {
	Text     string `validate:"required"`
	Source   core.Message
	Reaction *core.ReactionInfo
	Delay    time.Duration `validate:"gt=0"`
}

// Delete removes Reply and, when Reaction is set, the reaction on the source
// message.
type Delete struct {
	Reply           core.Message       `json:"reply"`
	SourceMessageID string             `json:"source_message_id"`
	Reaction        *core.ReactionInfo `json:"reaction,omitempty"`
}

// DeleteKind names Delete entries in the scheduler's storage.
const DeleteKind = "reply.delete"

type SendHandler struct {
	logger    zerolog.Logger
	client    core.Client
	scheduler core.Scheduler
}

func NewSendHandler(logger zerolog.Logger, client core.Client, scheduler core.Scheduler) *SendHandler {
	return &SendHandler{
		logger:    logger.With().Str("component", "reply").Logger(),
		client:    client,
		scheduler: scheduler,
	}
}

func (h *SendHandler) Handle(ctx context.Context, c Send) (core.Message, error) {
	release := h.client.Typing(ctx, c.Source.ChannelID)
	defer release()

	msg, err := h.client.SendReply(ctx, c.Source.ChannelID, c.Source.ID, c.Text)
	if err != nil {
		h.logger.Error().Err(err).
			Str("source_message", c.Source.ID).
			Str("text", c.Text).
			Msg("failed to send reply")
		return core.Message{}, fmt.Errorf("send reply: %w", err)
	}

	del := Delete{Reply: msg, SourceMessageID: c.Source.ID, Reaction: c.Reaction}
	if err := h.scheduler.Schedule(ctx, del, c.Delay); err != nil {
		h.logger.Error().Err(err).Str("reply", msg.ID).Msg("failed to schedule reply deletion")
		return h.retract(ctx, msg, fmt.Errorf("schedule deletion: %w", err))
	}
	return msg, nil
}

// retract takes back a reply that would otherwise never be deleted. If that
// fails too the reply is orphaned and still returned with cause.
func (h *SendHandler) retract(ctx context.Context, msg core.Message, cause error) (core.Message, error) {
	err := h.client.DeleteMessage(ctx, msg.ChannelID, msg.ID)
	if err == nil || errors.Is(err, core.ErrNotFound) {
		return core.Message{}, cause
	}
	h.logger.Warn().Err(err).
		Str("reply", msg.ID).
		Str("channel", msg.ChannelID).
		Msg("orphaned reply: deletion could not be scheduled or done now")
	return msg, cause
}

type DeleteHandler struct {
	logger zerolog.Logger
	client core.Client
}

func NewDeleteHandler(logger zerolog.Logger, client core.Client) *DeleteHandler {
	return &DeleteHandler{
		logger: logger.With().Str("component", "reply").Logger(),
		client: client,
	}
}

// Handle deletes the reply first. A reply that is already gone is fine; any
// other failure is returned and the reaction is left alone.
func (h *DeleteHandler) Handle(ctx context.Context, c Delete) (cmd.Unit, error) {
	l := h.logger.With().Str("reply", c.Reply.ID).Str("channel", c.Reply.ChannelID).Logger()

	err := h.client.DeleteMessage(ctx, c.Reply.ChannelID, c.Reply.ID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		l.Info().Msg("reply already deleted")
	case err != nil:
		l.Error().Err(err).Msg("failed to delete reply")
		return cmd.Unit{}, fmt.Errorf("delete reply %s: %w", c.Reply.ID, err)
	}

	if c.Reaction != nil && c.SourceMessageID != "" {
		h.removeReaction(ctx, l, c)
	}
	return cmd.Unit{}, nil
}

func (h *DeleteHandler) removeReaction(ctx context.Context, l zerolog.Logger, c Delete) {
	src, err := h.client.FetchMessage(ctx, c.Reply.ChannelID, c.SourceMessageID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		l.Debug().Str("source_message", c.SourceMessageID).Msg("source message gone, skipping reaction")
		return
	case err != nil:
		l.Warn().Err(err).Str("source_message", c.SourceMessageID).Msg("failed to fetch source message")
		return
	}

	if err := h.client.RemoveReaction(ctx, src.ChannelID, src.ID, *c.Reaction); err != nil {
		l.Warn().Err(err).Str("source_message", src.ID).Str("emote", c.Reaction.Emote).Msg("failed to remove reaction")
	}
}

// Register wires both handlers into d.
func Register(d *cmd.Dispatcher, send *SendHandler, del *DeleteHandler) {
	cmd.Register[Send, core.Message](d, send)
	cmd.Register[Delete, cmd.Unit](d, del)
}
