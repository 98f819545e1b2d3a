package storage

import (
	"errors"
	"slices"
)

var (
	ErrChannelExists   = errors.New("channel already in translate list")
	ErrChannelNotFound = errors.New("channel not found in translate list")
)

func (s *Storage) AddTranslateChannel(guildID string, channelID string) error {
	return s.updateGuild(guildID, func(record *GuildRecord) error {
		if slices.Contains(record.TranslateChannels, channelID) {
			return ErrChannelExists
		}
		record.TranslateChannels = append(record.TranslateChannels, channelID)
		return nil
	})
}

func (s *Storage) RemoveTranslateChannel(guildID string, channelID string) error {
	return s.updateGuild(guildID, func(record *GuildRecord) error {
		i := slices.Index(record.TranslateChannels, channelID)
		if i < 0 {
			return ErrChannelNotFound
		}
		record.TranslateChannels = slices.Delete(record.TranslateChannels, i, i+1)
		return nil
	})
}

func (s *Storage) GetTranslateChannels(guildID string) ([]string, error) {
	record, err := s.readGuild(guildID)
	if err != nil {
		return nil, err
	}
	return record.TranslateChannels, nil
}

func (s *Storage) ResetTranslateChannels(guildID string) error {
	return s.updateGuild(guildID, func(record *GuildRecord) error {
		record.TranslateChannels = []string{}
		return nil
	})
}

// IsTranslateChannel reports whether reaction translation is enabled in
// channelID. A guild without a channel list allows every channel.
func (s *Storage) IsTranslateChannel(guildID string, channelID string) (bool, error) {
	channels, err := s.GetTranslateChannels(guildID)
	if err != nil {
		return false, err
	}
	return len(channels) == 0 || slices.Contains(channels, channelID), nil
}
