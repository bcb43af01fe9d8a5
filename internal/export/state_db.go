package export

import (
	"context"
	"fmt"
	"strconv"
)

// CursorTable is the slice of postgres.Store that keeps named export cursors.
type CursorTable interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, slot uint64) error
}

// DBStateStore keeps one export cursor per journal and window width, so
// exports at different granularities resume independently.
type DBStateStore struct {
	table CursorTable
	key   string
}

func NewDBStateStore(table CursorTable, name string, windowSlots uint64) (*DBStateStore, error) {
	if table == nil {
		return nil, fmt.Errorf("cursor table is nil")
	}
	if name == "" || windowSlots == 0 {
		return nil, fmt.Errorf("cursor %q/%d: name and window required", name, windowSlots)
	}
	return &DBStateStore{table: table, key: name + ":" + strconv.FormatUint(windowSlots, 10)}, nil
}

func (s *DBStateStore) Key() string { return s.key }

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	slot, ok, err := s.table.LoadState(ctx, s.key)
	if err != nil {
		return 0, false, fmt.Errorf("load cursor %s: %w", s.key, err)
	}
	return slot, ok, nil
}

func (s *DBStateStore) Save(ctx context.Context, slot uint64) error {
	if err := s.table.SaveState(ctx, s.key, slot); err != nil {
		return fmt.Errorf("save cursor %s: %w", s.key, err)
	}
	return nil
}
