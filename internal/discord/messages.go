package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-babel/internal/core"
)

// typingInterval refreshes the indicator before it expires after 10s.
const typingInterval = 8 * time.Second

func (b *Bot) SendReply(ctx context.Context, channelID, replyToID, text string) (core.Message, error) {
	m, err := b.dg.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         text,
		Reference:       &discordgo.MessageReference{MessageID: replyToID, ChannelID: channelID},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return core.Message{}, mapError(err)
	}
	return message(m), nil
}

func (b *Bot) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return mapError(b.dg.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (b *Bot) RemoveReaction(ctx context.Context, channelID, messageID string, reaction core.ReactionInfo) error {
	return mapError(b.dg.MessageReactionRemove(channelID, messageID, reaction.Emote, reaction.UserID, discordgo.WithContext(ctx)))
}

func (b *Bot) FetchMessage(ctx context.Context, channelID, messageID string) (core.Message, error) {
	m, err := b.dg.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return core.Message{}, mapError(err)
	}
	if m.ChannelID == "" {
		m.ChannelID = channelID
	}
	return message(m), nil
}

// Typing keeps the typing indicator up in channelID until release is called
// or ctx ends.
func (b *Bot) Typing(ctx context.Context, channelID string) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(typingInterval)
		defer t.Stop()
		for {
			if err := b.dg.ChannelTyping(channelID, discordgo.WithContext(ctx)); err != nil && ctx.Err() == nil {
				b.logger.Debug().Err(err).Str("channel", channelID).Msg("typing indicator failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
	return cancel
}

// OverwriteCommands replaces the bot's commands in guildID.
func (b *Bot) OverwriteCommands(ctx context.Context, guildID string, commands []*discordgo.ApplicationCommand) error {
	b.mu.Lock()
	appID := b.appID
	b.mu.Unlock()
	if appID == "" {
		return errors.New("application id unknown before ready")
	}
	_, err := b.dg.ApplicationCommandBulkOverwrite(appID, guildID, commands, discordgo.WithContext(ctx))
	return mapError(err)
}

func (b *Bot) LeaveGuild(ctx context.Context, guildID string) error {
	return mapError(b.dg.GuildLeave(guildID, discordgo.WithContext(ctx)))
}

// statusError exposes the HTTP status of a REST failure so callers can
// decide whether to retry.
type statusError struct {
	err  *discordgo.RESTError
	code int
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }

// mapError turns unknown message responses into core.ErrNotFound and
// attaches the HTTP status to other REST errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMessage {
		return fmt.Errorf("%w: %s", core.ErrNotFound, rest.Message.Message)
	}
	if rest.Response == nil {
		return err
	}
	if rest.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", core.ErrNotFound, err)
	}
	return &statusError{err: rest, code: rest.Response.StatusCode}
}
