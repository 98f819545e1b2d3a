package discord

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/server-babel/internal/core"
	"github.com/keshon/server-babel/pkg/retrylimit"
)

func restError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "error"},
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		notFound  bool
		retryable bool
	}{
		{name: "unknown message", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage), notFound: true},
		{name: "plain 404", err: restError(http.StatusNotFound, 0), notFound: true},
		{name: "missing permissions", err: restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)},
		{name: "server error", err: restError(http.StatusBadGateway, 0), retryable: true},
		{name: "rate limited", err: restError(http.StatusTooManyRequests, 0), retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := mapError(tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.notFound, errors.Is(err, core.ErrNotFound))
			if !tt.notFound {
				assert.Equal(t, tt.retryable, retrylimit.Retryable(err))
				var rest *discordgo.RESTError
				assert.ErrorAs(t, err, &rest)
			}
		})
	}

	assert.NoError(t, mapError(nil))
	other := errors.New("dial tcp: timeout")
	assert.Same(t, other, mapError(other))
}

func TestFlattenOptions(t *testing.T) {
	t.Parallel()

	sub, values := flattenOptions([]*discordgo.ApplicationCommandInteractionDataOption{{
		Name: "add",
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: "123"},
		},
	}})
	assert.Equal(t, "add", sub)
	assert.Equal(t, map[string]string{"channel": "123"}, values)

	sub, values = flattenOptions([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "text", Type: discordgo.ApplicationCommandOptionString, Value: "hello"},
		{Name: "language", Type: discordgo.ApplicationCommandOptionString, Value: "fr"},
	})
	assert.Empty(t, sub)
	assert.Equal(t, map[string]string{"text": "hello", "language": "fr"}, values)
}

func TestReactionAdded(t *testing.T) {
	t.Parallel()
	self := &discordgo.User{ID: "me"}

	r := &discordgo.MessageReactionAdd{MessageReaction: &discordgo.MessageReaction{
		UserID: "u1", MessageID: "m1", ChannelID: "c1", GuildID: "g1",
		Emoji: discordgo.Emoji{Name: "🇩🇪"},
	}}
	got := reactionAdded(r, self)
	assert.Equal(t, core.ReactionAdded{GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: "u1", Emote: "🇩🇪"}, got)

	r.UserID = "me"
	assert.True(t, reactionAdded(r, self).UserBot, "own reactions count as bot reactions")

	r.UserID = "u2"
	r.Member = &discordgo.Member{User: &discordgo.User{ID: "u2", Bot: true}}
	assert.True(t, reactionAdded(r, self).UserBot)
}

func TestInteraction(t *testing.T) {
	t.Parallel()

	it := interaction(&discordgo.Interaction{
		ID: "i1", AppID: "a1", Token: "tok", GuildID: "g1", ChannelID: "c1",
		Locale: discordgo.German,
		Member: &discordgo.Member{User: &discordgo.User{ID: "u1"}},
	})
	assert.Equal(t, core.Interaction{ID: "i1", AppID: "a1", Token: "tok", GuildID: "g1", ChannelID: "c1", UserID: "u1", Locale: "de"}, it)

	dm := interaction(&discordgo.Interaction{ID: "i2", User: &discordgo.User{ID: "u2"}})
	assert.Equal(t, "u2", dm.UserID)
}

func TestLogReceived(t *testing.T) {
	t.Parallel()

	e := logReceived(discordgo.LogWarning, 0, "heartbeat %d late", 3)
	assert.Equal(t, core.SeverityWarning, e.Severity)
	assert.Equal(t, "heartbeat 3 late", e.Message)
	assert.Contains(t, e.Source, "logging.go:")

	assert.Equal(t, discordgo.LogDebug, LogLevel("debug"))
	assert.Equal(t, discordgo.LogWarning, LogLevel("warn"))
}
