// Package translate wires the translation chain to the chat platform: the
// Translate command and the event handlers for flag reactions, slash and
// context-menu commands, command schema registration and library logs.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/keshon/server-babel/internal/core"
	"github.com/keshon/server-babel/internal/translate"
	"github.com/keshon/server-babel/pkg/cmd"
)

// maxMessageLength is the platform's limit for one message.
const maxMessageLength = 2000

// Translate asks the provider chain to translate Text into Target. Message
// is where Text came from; slash commands leave it empty.
type Translate struct {
	Text     string `validate:"required"`
	Target   language.Tag
	Source   language.Tag
	Message  core.Message `validate:"-"`
	Reaction *core.ReactionInfo
}

// Outcome is what to show the user. An empty Text means stay silent.
type Outcome struct {
	Text   string
	Result *translate.Result
}

// Translator is the part of *translate.Chain used by the handlers.
type Translator interface {
	Translate(ctx context.Context, target language.Tag, text string, source language.Tag) (*translate.Result, error)
}

type Handler struct {
	logger zerolog.Logger
	chain  Translator
}

func NewHandler(logger zerolog.Logger, chain Translator) *Handler {
	return &Handler{
		logger: logger.With().Str("component", "translate").Logger(),
		chain:  chain,
	}
}

func (h *Handler) Handle(ctx context.Context, c Translate) (Outcome, error) {
	res, err := h.chain.Translate(ctx, c.Target, c.Text, c.Source)

	var unsupported *translate.UnsupportedLanguageError
	switch {
	case err == nil:
		return Outcome{Text: format(res), Result: res}, nil
	case errors.As(err, &unsupported):
		return Outcome{Text: unsupported.Message}, nil
	case errors.Is(err, translate.ErrSourceUndetected):
		return Outcome{Text: translate.UndetectedSourceMessage, Result: res}, nil
	case errors.Is(err, translate.ErrNoTranslation):
		h.logger.Debug().Str("source_message", c.Message.ID).Str("target", c.Target.String()).Msg("no translation available")
		return Outcome{}, nil
	default:
		return Outcome{}, err
	}
}

// format renders a result as the translation followed by a small footer.
func format(res *translate.Result) string {
	from := res.Source
	if from == "" {
		from = "auto"
	}
	footer := fmt.Sprintf("\n-# %s → %s · %s", from, res.Target, res.Provider)
	return truncate(strings.TrimSpace(res.Text), maxMessageLength-len([]rune(footer))) + footer
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

// Handlers groups this package's handlers for Register.
type Handlers struct {
	Translate *Handler
	Reaction  *ReactionHandler
	Slash     *SlashHandler
	Channels  *ChannelsHandler
	Message   *MessageCommandHandler
	Schema    *SchemaHandler
	Logs      *LogHandler
}

// Register wires the Translate command and every event subscription into d.
func Register(d *cmd.Dispatcher, h Handlers) {
	cmd.Register[Translate, Outcome](d, h.Translate)
	cmd.Subscribe[core.ReactionAdded](d, "translate.reaction", h.Reaction)
	cmd.Subscribe[core.SlashCommandInvoked](d, "translate.slash", h.Slash)
	cmd.Subscribe[core.SlashCommandInvoked](d, "translate.channels", h.Channels)
	cmd.Subscribe[core.MessageCommandInvoked](d, "translate.message", h.Message)
	cmd.Subscribe[core.ClientReady](d, "schema.ready", cmd.EventHandlerFunc[core.ClientReady](h.Schema.HandleReady))
	cmd.Subscribe[core.GuildJoined](d, "schema.guild", cmd.EventHandlerFunc[core.GuildJoined](h.Schema.HandleGuildJoined))
	cmd.Subscribe[core.LogReceived](d, "logs", h.Logs)
}
