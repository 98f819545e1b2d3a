package storage

// CommandHash returns the hash of the command schema last registered in the
// guild, or "" when none was recorded.
func (s *Storage) CommandHash(guildID string) (string, error) {
	record, err := s.readGuild(guildID)
	if err != nil {
		return "", err
	}
	return record.CommandHashes[commandSchemaKey], nil
}

func (s *Storage) SetCommandHash(guildID string, hash string) error {
	return s.updateGuild(guildID, func(record *GuildRecord) error {
		record.CommandHashes[commandSchemaKey] = hash
		return nil
	})
}

const commandSchemaKey = "schema"
