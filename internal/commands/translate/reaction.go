package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/internal/core"
	"github.com/keshon/server-babel/internal/reply"
	"github.com/keshon/server-babel/internal/translate"
	"github.com/keshon/server-babel/pkg/cmd"
)

// ChannelStore tells which channels have reaction translation enabled.
type ChannelStore interface {
	IsTranslateChannel(guildID, channelID string) (bool, error)
}

// ReactionHandler translates a message when someone reacts to it with a
// flag and answers with a temporary reply.
type ReactionHandler struct {
	logger   zerolog.Logger
	d        *cmd.Dispatcher
	client   core.Client
	channels ChannelStore
	ttl      time.Duration
}

func NewReactionHandler(logger zerolog.Logger, d *cmd.Dispatcher, client core.Client, channels ChannelStore, ttl time.Duration) *ReactionHandler {
	return &ReactionHandler{
		logger:   logger.With().Str("component", "translate").Logger(),
		d:        d,
		client:   client,
		channels: channels,
		ttl:      ttl,
	}
}

func (h *ReactionHandler) Handle(ctx context.Context, e core.ReactionAdded) error {
	if e.UserBot {
		return nil
	}
	target, ok := translate.FlagLocale(e.Emote)
	if !ok {
		return nil
	}

	if e.GuildID != "" {
		allowed, err := h.channels.IsTranslateChannel(e.GuildID, e.ChannelID)
		if err != nil {
			return fmt.Errorf("check translate channel: %w", err)
		}
		if !allowed {
			return nil
		}
	}

	msg, err := h.client.FetchMessage(ctx, e.ChannelID, e.MessageID)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch message: %w", err)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return nil
	}

	reaction := &core.ReactionInfo{UserID: e.UserID, Emote: e.Emote}
	out, err := cmd.Send[Translate, Outcome](ctx, h.d, Translate{
		Text:     msg.Content,
		Target:   target,
		Message:  msg,
		Reaction: reaction,
	})
	if err != nil {
		return err
	}
	if out.Text == "" {
		return nil
	}

	_, err = cmd.Send[reply.Send, core.Message](ctx, h.d, reply.Send{
		Text:     out.Text,
		Source:   msg,
		Reaction: reaction,
		Delay:    h.ttl,
	})
	return err
}
