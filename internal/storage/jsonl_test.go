package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"futarchy/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	s := NewJsonlStorage(path)

	require.NoError(t, s.PutEvents(nil))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, s.PutEvents([]model.TypedEvent{
		{Seq: 1, Slot: 10, EventName: model.EventSwap, Decoded: model.SwapEventData{InputAmount: 5}},
	}))
	require.NoError(t, s.PutEvents([]model.TypedEvent{
		{Seq: 2, Slot: 11, EventName: model.EventLtwapUpdate, Decoded: model.LtwapEventData{Latest: 7}},
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []model.TypedEventRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec model.TypedEventRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		got = append(got, rec)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, got, 2)
	require.Equal(t, uint64(2), got[1].Seq)
	require.Equal(t, model.EventLtwapUpdate, got[1].EventName)

	var data model.LtwapEventData
	require.NoError(t, json.Unmarshal(got[1].Decoded, &data))
	require.Equal(t, uint64(7), data.Latest)
}
