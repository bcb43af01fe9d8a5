package scenario

import (
	"fmt"
	"time"

	"futarchy/internal/storage"
)

// Checkpoint tracks the last step whose effects are in the stored snapshot.
// Aliases bound by earlier steps travel with it so later steps still resolve.
type Checkpoint struct {
	Scenario          string            `json:"scenario"`
	LastProcessedStep int               `json:"last_processed_step"`
	Aliases           map[string]string `json:"aliases,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// CheckpointStore persists checkpoints to disk. A disabled store loads
// nothing and saves nothing.
type CheckpointStore struct {
	path    string
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled && path != ""}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	var cp Checkpoint
	if !c.enabled {
		return cp, false, nil
	}
	ok, err := storage.ReadJSON(c.path, &cp)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("load checkpoint: %w", err)
	}
	return cp, ok, nil
}

func (c *CheckpointStore) Save(cp Checkpoint) error {
	if !c.enabled {
		return nil
	}
	cp.UpdatedAt = time.Now().UTC()
	if err := storage.WriteJSON(c.path, cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
