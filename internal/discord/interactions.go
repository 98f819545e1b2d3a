package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-babel/internal/core"
)

func (b *Bot) Respond(ctx context.Context, it core.Interaction, text string, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Content: text}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := b.dg.InteractionRespond(raw(it), &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

// Defer acknowledges an interaction without an immediate reply.
func (b *Bot) Defer(ctx context.Context, it core.Interaction, ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return mapError(b.dg.InteractionRespond(raw(it), resp, discordgo.WithContext(ctx)))
}

// Edit replaces the content of the interaction's response.
func (b *Bot) Edit(ctx context.Context, it core.Interaction, text string) error {
	_, err := b.dg.InteractionResponseEdit(raw(it), &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx))
	return mapError(err)
}

func (b *Bot) Discard(ctx context.Context, it core.Interaction) error {
	return mapError(b.dg.InteractionResponseDelete(raw(it), discordgo.WithContext(ctx)))
}

func raw(it core.Interaction) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        it.ID,
		AppID:     it.AppID,
		Token:     it.Token,
		GuildID:   it.GuildID,
		ChannelID: it.ChannelID,
	}
}
