package core

// ReactionAdded is published when a user reacts to a message.
type ReactionAdded struct {
	GuildID   string
	ChannelID string `validate:"required"`
	MessageID string `validate:"required"`
	UserID    string `validate:"required"`
	UserBot   bool
	Emote     string `validate:"required"`
}

// SlashCommandInvoked is published for chat input commands.
type SlashCommandInvoked struct {
	Interaction Interaction
	Name        string `validate:"required"`
	Subcommand  string
	Options     map[string]string
}

// MessageCommandInvoked is published for message context-menu commands.
type MessageCommandInvoked struct {
	Interaction Interaction
	Name        string `validate:"required"`
	Target      Message
}

// ClientReady is published once the gateway session is ready.
type ClientReady struct {
	UserID   string
	Username string
	Guilds   []string
}

// GuildJoined is published when a guild becomes available, including after
// the bot is added to it.
type GuildJoined struct {
	GuildID string `validate:"required"`
	Name    string
}

// Severity of a forwarded platform library log line.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
	SeverityDebug
)

// LogReceived forwards a platform library log line. It is high volume
// relative to its value and is published without instrumentation.
type LogReceived struct {
	Severity Severity
	Source   string
	Message  string
}
