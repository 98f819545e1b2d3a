package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/keshon/server-babel/internal/core"
	"github.com/keshon/server-babel/pkg/cmd"
)

// MessageCommandHandler answers the "Translate" message command by
// translating the target message into the invoker's client language.
type MessageCommandHandler struct {
	logger       zerolog.Logger
	d            *cmd.Dispatcher
	interactions core.Interactions
}

func NewMessageCommandHandler(logger zerolog.Logger, d *cmd.Dispatcher, interactions core.Interactions) *MessageCommandHandler {
	return &MessageCommandHandler{
		logger:       logger.With().Str("component", "translate").Logger(),
		d:            d,
		interactions: interactions,
	}
}

func (h *MessageCommandHandler) Handle(ctx context.Context, e core.MessageCommandInvoked) error {
	if e.Name != MessageTranslate {
		return nil
	}
	if strings.TrimSpace(e.Target.Content) == "" {
		return h.interactions.Respond(ctx, e.Interaction, "That message has no text to translate.", true)
	}

	if err := h.interactions.Defer(ctx, e.Interaction, true); err != nil {
		return fmt.Errorf("defer interaction: %w", err)
	}
	return answer(ctx, h.d, h.interactions, e.Interaction, Translate{
		Text:    e.Target.Content,
		Target:  LocaleTarget(e.Interaction.Locale),
		Message: e.Target,
	})
}

// LocaleTarget maps a client locale such as "pt-BR" to a translation target,
// falling back to English.
func LocaleTarget(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil || tag == language.Und {
		return language.English
	}
	return tag
}
