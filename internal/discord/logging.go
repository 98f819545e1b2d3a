package discord

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/server-babel/internal/core"
)

// hookLogs routes discordgo's package logger into publish as LogReceived
// events. discordgo only offers a package-level hook.
func hookLogs(publish func(any)) {
	discordgo.Logger = func(level, caller int, format string, a ...any) {
		publish(logReceived(level, caller+2, format, a...))
	}
}

func logReceived(level, caller int, format string, a ...any) core.LogReceived {
	source := "discordgo"
	if _, file, line, ok := runtime.Caller(caller); ok {
		source = filepath.Base(file) + ":" + strconv.Itoa(line)
	}
	return core.LogReceived{
		Severity: severity(level),
		Source:   source,
		Message:  fmt.Sprintf(format, a...),
	}
}

func severity(level int) core.Severity {
	switch level {
	case discordgo.LogError:
		return core.SeverityError
	case discordgo.LogWarning:
		return core.SeverityWarning
	case discordgo.LogInformational:
		return core.SeverityInfo
	default:
		return core.SeverityDebug
	}
}

// LogLevel maps a zerolog level name to the discordgo level to forward.
func LogLevel(name string) int {
	switch name {
	case "debug", "trace":
		return discordgo.LogDebug
	case "info":
		return discordgo.LogInformational
	case "error":
		return discordgo.LogError
	default:
		return discordgo.LogWarning
	}
}
