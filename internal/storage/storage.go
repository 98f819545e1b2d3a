// Package storage keeps the bot's persistent state in the datastore: per-guild
// settings and the scheduler's pending entries.
package storage

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/datastore"
)

const guildPrefix = "guild:"

type Storage struct {
	ds *datastore.DataStore

	// mu serializes read-modify-write of records.
	mu sync.Mutex
}

// GuildRecord is everything stored for one guild.
type GuildRecord struct {
	TranslateChannels []string          `json:"translate_channels"`
	CommandHashes     map[string]string `json:"command_hashes"`
}

func New(filePath string, logger zerolog.Logger) (*Storage, error) {
	ds, err := datastore.New(filePath, logger)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// Flush writes pending changes to disk.
func (s *Storage) Flush() error {
	return s.ds.Flush()
}

// decode converts a value read from the datastore, which may be a generic
// JSON tree or an already typed value, into out.
func decode(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshalling data: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error unmarshalling to %T: %w", out, err)
	}
	return nil
}

// getOrCreateGuildRecord must be called with s.mu held.
func (s *Storage) getOrCreateGuildRecord(guildID string) (*GuildRecord, error) {
	data, exists := s.ds.Get(guildPrefix + guildID)
	if !exists {
		return &GuildRecord{
			TranslateChannels: []string{},
			CommandHashes:     map[string]string{},
		}, nil
	}

	var record GuildRecord
	if err := decode(data, &record); err != nil {
		return nil, err
	}
	if record.TranslateChannels == nil {
		record.TranslateChannels = []string{}
	}
	if record.CommandHashes == nil {
		record.CommandHashes = map[string]string{}
	}
	return &record, nil
}

func (s *Storage) saveGuildRecord(guildID string, record *GuildRecord) error {
	return s.ds.Add(guildPrefix+guildID, record)
}

// updateGuild applies fn to the guild's record and stores it if fn succeeds.
func (s *Storage) updateGuild(guildID string, fn func(*GuildRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	if err := fn(record); err != nil {
		return err
	}
	return s.saveGuildRecord(guildID, record)
}

func (s *Storage) readGuild(guildID string) (*GuildRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateGuildRecord(guildID)
}
