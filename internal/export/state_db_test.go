package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryCursors struct {
	slots map[string]uint64
	err   error
}

func (m *memoryCursors) LoadState(_ context.Context, name string) (uint64, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	slot, ok := m.slots[name]
	return slot, ok, nil
}

func (m *memoryCursors) SaveState(_ context.Context, name string, slot uint64) error {
	if m.err != nil {
		return m.err
	}
	m.slots[name] = slot
	return nil
}

func TestDBStateStoreKeysByWindow(t *testing.T) {
	ctx := context.Background()
	table := &memoryCursors{slots: map[string]uint64{}}
	hourly, err := NewDBStateStore(table, "futarchy", 9_000)
	require.NoError(t, err)
	daily, err := NewDBStateStore(table, "futarchy", 216_000)
	require.NoError(t, err)
	require.Equal(t, "futarchy:9000", hourly.Key())

	_, ok, err := hourly.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, hourly.Save(ctx, 42))
	slot, ok, err := hourly.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), slot)

	_, ok, err = daily.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	table.err = errors.New("connection reset")
	require.ErrorContains(t, daily.Save(ctx, 1), "futarchy:216000")
}

func TestNewDBStateStoreRejects(t *testing.T) {
	_, err := NewDBStateStore(nil, "futarchy", 10)
	require.Error(t, err)
	_, err = NewDBStateStore(&memoryCursors{}, "", 10)
	require.Error(t, err)
	_, err = NewDBStateStore(&memoryCursors{}, "futarchy", 0)
	require.Error(t, err)
}
