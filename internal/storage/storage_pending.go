package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const pendingPrefix = "pending:"

// PendingEntry is a scheduled command that must survive a restart.
type PendingEntry struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	RunAt   time.Time       `json:"run_at"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Storage) SavePending(entry PendingEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("pending entry without id")
	}
	return s.ds.Add(pendingPrefix+entry.ID, entry)
}

func (s *Storage) DeletePending(id string) error {
	return s.ds.Delete(pendingPrefix + id)
}

// ListPending returns the stored entries ordered by RunAt.
func (s *Storage) ListPending() ([]PendingEntry, error) {
	keys := s.ds.Keys(pendingPrefix)
	out := make([]PendingEntry, 0, len(keys))
	for _, key := range keys {
		v, ok := s.ds.Get(key)
		if !ok {
			continue
		}
		var entry PendingEntry
		if err := decode(v, &entry); err != nil {
			return nil, fmt.Errorf("pending entry %s: %w", key, err)
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	return out, nil
}
