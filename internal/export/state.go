package export

import (
	"context"
	"time"

	"futarchy/internal/storage"
)

// StateStore persists the last slot whose windows are fully exported.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, slot uint64) error
}

// FileStateStore keeps the export cursor in a local JSON file.
type FileStateStore struct {
	Path string
}

type cursor struct {
	LastProcessedSlot uint64    `json:"last_processed_slot"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (s *FileStateStore) Load(context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	var c cursor
	ok, err := storage.ReadJSON(s.Path, &c)
	if err != nil || !ok {
		return 0, false, err
	}
	return c.LastProcessedSlot, true, nil
}

func (s *FileStateStore) Save(_ context.Context, slot uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	return storage.WriteJSON(s.Path, cursor{LastProcessedSlot: slot, UpdatedAt: time.Now().UTC()})
}
