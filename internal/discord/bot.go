package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/internal/core"
)

// Publisher receives the events the bot turns gateway payloads into.
type Publisher interface {
	PublishAny(ctx context.Context, e any) error
}

// Bot is a Discord gateway session publishing core events. It also
// implements core.Client, core.Interactions and the command registrar.
type Bot struct {
	logger    zerolog.Logger
	dg        *discordgo.Session
	publisher Publisher

	ctx context.Context

	mu      sync.Mutex
	appID   string
	startup map[string]struct{}
}

// Options tunes the session.
type Options struct {
	// LogLevel is the discordgo level forwarded as LogReceived events.
	LogLevel int
}

// New creates a session for token. Nothing connects until Run.
func New(logger zerolog.Logger, token string, publisher Publisher, opts Options) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.LogLevel = opts.LogLevel
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentsMessageContent

	b := &Bot{
		logger:    logger.With().Str("component", "discord").Logger(),
		dg:        dg,
		publisher: publisher,
		ctx:       context.Background(),
		startup:   make(map[string]struct{}),
	}
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onGuildCreate)
	dg.AddHandler(b.onMessageReactionAdd)
	dg.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Run opens the gateway and blocks until ctx is done, then closes it.
// Events are published with ctx.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	hookLogs(b.publish)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	b.logger.Info().Msg("gateway connected")

	<-ctx.Done()
	b.logger.Info().Msg("shutdown signal received, closing gateway")
	if err := b.dg.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (b *Bot) publish(e any) {
	if err := b.publisher.PublishAny(b.ctx, e); err != nil {
		b.logger.Error().Err(err).Type("event", e).Msg("failed to publish event")
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	guilds := make([]string, 0, len(r.Guilds))
	b.mu.Lock()
	if r.Application != nil {
		b.appID = r.Application.ID
	} else {
		b.appID = r.User.ID
	}
	for _, g := range r.Guilds {
		guilds = append(guilds, g.ID)
		b.startup[g.ID] = struct{}{}
	}
	b.mu.Unlock()

	b.logger.Info().Str("user", r.User.Username).Int("guilds", len(guilds)).Msg("bot is running")
	b.publish(core.ClientReady{UserID: r.User.ID, Username: r.User.Username, Guilds: guilds})
}

// onGuildCreate also fires for every guild listed in Ready; only guilds
// joined afterwards are published.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.mu.Lock()
	_, known := b.startup[g.ID]
	delete(b.startup, g.ID)
	b.mu.Unlock()
	if known {
		return
	}

	b.logger.Info().Str("guild", g.ID).Str("name", g.Name).Msg("bot added to guild")
	b.publish(core.GuildJoined{GuildID: g.ID, Name: g.Name})
}

func (b *Bot) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	b.publish(reactionAdded(r, s.State.User))
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		b.logger.Debug().Int("type", int(i.Type)).Msg("ignoring interaction")
		return
	}

	data := i.ApplicationCommandData()
	it := interaction(i.Interaction)
	switch data.CommandType {
	case discordgo.ChatApplicationCommand:
		sub, opts := flattenOptions(data.Options)
		b.publish(core.SlashCommandInvoked{Interaction: it, Name: data.Name, Subcommand: sub, Options: opts})
	case discordgo.MessageApplicationCommand:
		var target core.Message
		if data.Resolved != nil {
			if m, ok := data.Resolved.Messages[data.TargetID]; ok {
				target = message(m)
			}
		}
		b.publish(core.MessageCommandInvoked{Interaction: it, Name: data.Name, Target: target})
	default:
		b.logger.Debug().Str("command", data.Name).Msg("unknown command type")
	}
}

func reactionAdded(r *discordgo.MessageReactionAdd, self *discordgo.User) core.ReactionAdded {
	bot := r.Member != nil && r.Member.User != nil && r.Member.User.Bot
	if self != nil && r.UserID == self.ID {
		bot = true
	}
	return core.ReactionAdded{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		UserBot:   bot,
		Emote:     r.Emoji.APIName(),
	}
}

func interaction(i *discordgo.Interaction) core.Interaction {
	it := core.Interaction{
		ID:        i.ID,
		AppID:     i.AppID,
		Token:     i.Token,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Locale:    string(i.Locale),
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		it.UserID = i.Member.User.ID
	case i.User != nil:
		it.UserID = i.User.ID
	}
	return it
}

func message(m *discordgo.Message) core.Message {
	msg := core.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorBot = m.Author.Bot
	}
	return msg
}

// flattenOptions returns the subcommand name, if any, and the leaf option
// values as strings.
func flattenOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) (string, map[string]string) {
	values := make(map[string]string, len(opts))
	var sub string
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			name, nested := flattenOptions(o.Options)
			sub = o.Name
			if name != "" {
				sub += " " + name
			}
			for k, v := range nested {
				values[k] = v
			}
		default:
			values[o.Name] = fmt.Sprint(o.Value)
		}
	}
	return sub, values
}
