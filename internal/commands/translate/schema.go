package translate

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/internal/core"
	"github.com/keshon/server-babel/internal/translate"
	"github.com/keshon/server-babel/pkg/retrylimit"
	"github.com/keshon/server-babel/pkg/util"
)

// maxChoices is the platform's limit on choices per option.
const maxChoices = 25

// Registrar manages the bot's presence and commands in a guild.
type Registrar interface {
	// OverwriteCommands replaces every command of the bot in guildID.
	OverwriteCommands(ctx context.Context, guildID string, commands []*discordgo.ApplicationCommand) error
	LeaveGuild(ctx context.Context, guildID string) error
}

// HashStore remembers the last schema registered per guild.
type HashStore interface {
	CommandHash(guildID string) (string, error)
	SetCommandHash(guildID, hash string) error
}

// BuildCommands returns the command schema offered in every guild. The
// /translate language choices are taken from languages in order.
func BuildCommands(languages []translate.Language) []*discordgo.ApplicationCommand {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(languages), maxChoices))
	for _, l := range languages[:min(len(languages), maxChoices)] {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: l.Name, Value: l.Code})
	}
	admin := int64(discordgo.PermissionAdministrator)
	channel := func(desc string) []*discordgo.ApplicationCommandOption {
		return []*discordgo.ApplicationCommandOption{{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  desc,
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			Required:     true,
		}}
	}

	return []*discordgo.ApplicationCommand{
		{
			Type:        discordgo.ChatApplicationCommand,
			Name:        SlashTranslate,
			Description: "Translate text into another language",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "Text to translate",
					Required:    true,
					MaxLength:   maxMessageLength,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "language",
					Description: "Target language",
					Required:    true,
					Choices:     choices,
				},
			},
		},
		{
			Type:                     discordgo.ChatApplicationCommand,
			Name:                     SlashChannels,
			Description:              "Choose where flag reactions are translated",
			DefaultMemberPermissions: &admin,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Enable translation reactions in a channel",
					Options:     channel("Channel to enable"),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Disable translation reactions in a channel",
					Options:     channel("Channel to disable"),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List channels enabled for translation reactions",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "reset",
					Description: "Allow translation reactions in every channel again",
				},
			},
		},
		{
			Type: discordgo.MessageApplicationCommand,
			Name: MessageTranslate,
		},
	}
}

// HashCommands returns a deterministic hash of commands that ignores
// server-assigned fields and option order.
func HashCommands(commands []*discordgo.ApplicationCommand) string {
	normalized := make([]map[string]any, len(commands))
	for i, c := range commands {
		normalized[i] = normalizeCommand(c)
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i]["name"].(string) < normalized[j]["name"].(string)
	})
	data, _ := json.Marshal(normalized)
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func normalizeCommand(c *discordgo.ApplicationCommand) map[string]any {
	obj := map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"type":        c.Type,
	}
	if c.DefaultMemberPermissions != nil {
		obj["permissions"] = *c.DefaultMemberPermissions
	}
	if len(c.Options) > 0 {
		obj["options"] = normalizeOptions(c.Options)
	}
	return obj
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]any {
	normalized := make([]map[string]any, len(opts))
	for i, o := range opts {
		entry := map[string]any{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if o.MaxLength > 0 {
			entry["max_length"] = o.MaxLength
		}
		if len(o.ChannelTypes) > 0 {
			entry["channel_types"] = o.ChannelTypes
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]any, len(o.Choices))
			for j, c := range o.Choices {
				choices[j] = map[string]any{"name": c.Name, "value": c.Value}
			}
			entry["choices"] = choices
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		normalized[i] = entry
	}
	sort.Slice(normalized, func(i, j int) bool {
		return normalized[i]["name"].(string) < normalized[j]["name"].(string)
	})
	return normalized
}

// SchemaOptions configures a SchemaHandler.
type SchemaOptions struct {
	// Register disables command registration when false; blacklisted guilds
	// are still left.
	Register  bool
	Blacklist []string
	// Workers bounds how many guilds are synced at once.
	Workers int
}

// SchemaHandler keeps every guild's commands in line with the schema and
// leaves blacklisted guilds.
type SchemaHandler struct {
	logger    zerolog.Logger
	registrar Registrar
	store     HashStore
	commands  []*discordgo.ApplicationCommand
	hash      string
	opts      SchemaOptions
	limiter   *retrylimit.AdaptiveLimiter

	mu     sync.Mutex
	guilds map[string]*sync.Mutex
}

func NewSchemaHandler(logger zerolog.Logger, registrar Registrar, store HashStore, commands []*discordgo.ApplicationCommand, opts SchemaOptions) *SchemaHandler {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &SchemaHandler{
		logger:    logger.With().Str("component", "schema").Logger(),
		registrar: registrar,
		store:     store,
		commands:  commands,
		hash:      HashCommands(commands),
		opts:      opts,
		limiter:   retrylimit.NewAdaptiveLimiter(2, 0.5, 5, 0.5, 0.5),
		guilds:    make(map[string]*sync.Mutex),
	}
}

// HandleReady syncs every guild the session starts with.
func (h *SchemaHandler) HandleReady(ctx context.Context, e core.ClientReady) error {
	h.logger.Info().Str("user", e.Username).Int("guilds", len(e.Guilds)).Msg("syncing command schema")
	return util.Parallel(ctx, e.Guilds, h.opts.Workers, func(ctx context.Context, guildID string) error {
		if err := h.sync(ctx, guildID); err != nil {
			h.logger.Error().Err(err).Str("guild", guildID).Msg("failed to sync commands")
		}
		return nil
	})
}

func (h *SchemaHandler) HandleGuildJoined(ctx context.Context, e core.GuildJoined) error {
	return h.sync(ctx, e.GuildID)
}

func (h *SchemaHandler) sync(ctx context.Context, guildID string) error {
	l := h.logger.With().Str("guild", guildID).Logger()

	if slices.Contains(h.opts.Blacklist, guildID) {
		l.Info().Msg("leaving blacklisted guild")
		return h.registrar.LeaveGuild(ctx, guildID)
	}
	if !h.opts.Register {
		l.Debug().Msg("command registration disabled")
		return nil
	}

	lock := h.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := h.store.CommandHash(guildID)
	if err != nil {
		return fmt.Errorf("read command hash: %w", err)
	}
	if stored == h.hash {
		l.Debug().Msg("commands up to date")
		return nil
	}

	err = retrylimit.WithRetry(ctx, l, func() error {
		return h.registrar.OverwriteCommands(ctx, guildID, h.commands)
	}, h.limiter)
	if err != nil {
		return fmt.Errorf("overwrite commands: %w", err)
	}
	if err := h.store.SetCommandHash(guildID, h.hash); err != nil {
		return fmt.Errorf("store command hash: %w", err)
	}
	l.Info().Int("commands", len(h.commands)).Str("hash", shortHash(h.hash)).Msg("commands registered")
	return nil
}

func (h *SchemaHandler) guildLock(guildID string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.guilds[guildID]
	if !ok {
		lock = &sync.Mutex{}
		h.guilds[guildID] = lock
	}
	return lock
}

func shortHash(h string) string {
	return h[:min(len(h), 8)]
}
