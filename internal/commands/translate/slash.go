package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/keshon/server-babel/internal/core"
	"github.com/keshon/server-babel/internal/storage"
	"github.com/keshon/server-babel/pkg/cmd"
)

// Command names as registered with the platform.
const (
	SlashTranslate   = "translate"
	SlashChannels    = "translate-channels"
	MessageTranslate = "Translate"
)

const failedMessage = "Translation failed, please try again later."

// SlashHandler answers /translate.
type SlashHandler struct {
	logger       zerolog.Logger
	d            *cmd.Dispatcher
	interactions core.Interactions
}

func NewSlashHandler(logger zerolog.Logger, d *cmd.Dispatcher, interactions core.Interactions) *SlashHandler {
	return &SlashHandler{
		logger:       logger.With().Str("component", "translate").Logger(),
		d:            d,
		interactions: interactions,
	}
}

func (h *SlashHandler) Handle(ctx context.Context, e core.SlashCommandInvoked) error {
	if e.Name != SlashTranslate {
		return nil
	}

	text := e.Options["text"]
	target, err := language.Parse(e.Options["language"])
	if err != nil || strings.TrimSpace(text) == "" {
		return h.interactions.Respond(ctx, e.Interaction, "Please provide some text and a language.", true)
	}

	if err := h.interactions.Defer(ctx, e.Interaction, false); err != nil {
		return fmt.Errorf("defer interaction: %w", err)
	}
	return answer(ctx, h.d, h.interactions, e.Interaction, Translate{
		Text:    text,
		Target:  target,
		Message: core.Message{ChannelID: e.Interaction.ChannelID, GuildID: e.Interaction.GuildID, AuthorID: e.Interaction.UserID},
	})
}

// answer runs c and edits the deferred response with the outcome. A silent
// outcome discards the response.
func answer(ctx context.Context, d *cmd.Dispatcher, interactions core.Interactions, it core.Interaction, c Translate) error {
	out, err := cmd.Send[Translate, Outcome](ctx, d, c)
	if err != nil {
		if editErr := interactions.Edit(ctx, it, failedMessage); editErr != nil {
			err = errors.Join(err, editErr)
		}
		return err
	}
	if out.Text == "" {
		return interactions.Discard(ctx, it)
	}
	return interactions.Edit(ctx, it, out.Text)
}

// ChannelAdmin is the storage used by /translate-channels.
type ChannelAdmin interface {
	AddTranslateChannel(guildID, channelID string) error
	RemoveTranslateChannel(guildID, channelID string) error
	GetTranslateChannels(guildID string) ([]string, error)
	ResetTranslateChannels(guildID string) error
}

// ChannelsHandler answers /translate-channels, restricted to administrators
// by the command's default permissions.
type ChannelsHandler struct {
	logger       zerolog.Logger
	store        ChannelAdmin
	interactions core.Interactions
}

func NewChannelsHandler(logger zerolog.Logger, store ChannelAdmin, interactions core.Interactions) *ChannelsHandler {
	return &ChannelsHandler{
		logger:       logger.With().Str("component", "translate").Logger(),
		store:        store,
		interactions: interactions,
	}
}

func (h *ChannelsHandler) Handle(ctx context.Context, e core.SlashCommandInvoked) error {
	if e.Name != SlashChannels {
		return nil
	}
	guildID := e.Interaction.GuildID
	if guildID == "" {
		return h.respond(ctx, e, "This command only works in a server.")
	}

	channelID := e.Options["channel"]
	switch e.Subcommand {
	case "add":
		if err := h.store.AddTranslateChannel(guildID, channelID); err != nil {
			return h.failed(ctx, e, "add channel", err)
		}
		return h.respond(ctx, e, fmt.Sprintf("<#%s> added to translate reaction channels.", channelID))
	case "remove":
		if err := h.store.RemoveTranslateChannel(guildID, channelID); err != nil {
			return h.failed(ctx, e, "remove channel", err)
		}
		return h.respond(ctx, e, fmt.Sprintf("<#%s> removed from translate reaction channels.", channelID))
	case "list":
		channels, err := h.store.GetTranslateChannels(guildID)
		if err != nil {
			return h.failed(ctx, e, "get channels", err)
		}
		if len(channels) == 0 {
			return h.respond(ctx, e, "No channels configured, translation reactions work everywhere.")
		}
		var b strings.Builder
		b.WriteString("Channels enabled for translation reactions:\n")
		for _, ch := range channels {
			fmt.Fprintf(&b, "- <#%s>\n", ch)
		}
		return h.respond(ctx, e, b.String())
	case "reset":
		if err := h.store.ResetTranslateChannels(guildID); err != nil {
			return h.failed(ctx, e, "reset channels", err)
		}
		return h.respond(ctx, e, "All translate reaction channels have been reset.")
	default:
		return h.respond(ctx, e, "Unknown subcommand provided.")
	}
}

func (h *ChannelsHandler) respond(ctx context.Context, e core.SlashCommandInvoked, text string) error {
	return h.interactions.Respond(ctx, e.Interaction, text, true)
}

// failed reports user mistakes back verbatim and storage faults generically.
func (h *ChannelsHandler) failed(ctx context.Context, e core.SlashCommandInvoked, action string, err error) error {
	if errors.Is(err, storage.ErrChannelExists) || errors.Is(err, storage.ErrChannelNotFound) {
		return h.respond(ctx, e, fmt.Sprintf("Failed to %s: `%v`", action, err))
	}
	h.logger.Error().Err(err).Str("guild", e.Interaction.GuildID).Str("subcommand", e.Subcommand).Msg("translate channels update failed")
	if rerr := h.respond(ctx, e, fmt.Sprintf("Failed to %s.", action)); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}
