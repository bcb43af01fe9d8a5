package export

import (
	"context"
	"path/filepath"

	"futarchy/internal/model"
	"futarchy/internal/storage"
)

// FileSink writes exported rows to JSONL files in a directory.
type FileSink struct {
	pools     *storage.JsonlStorage
	proposals *storage.JsonlStorage
	windows   *storage.JsonlStorage
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{
		pools:     storage.NewJsonlStorage(filepath.Join(dir, "pools.jsonl")),
		proposals: storage.NewJsonlStorage(filepath.Join(dir, "proposals.jsonl")),
		windows:   storage.NewJsonlStorage(filepath.Join(dir, "pool_window_metrics.jsonl")),
	}
}

func (s *FileSink) UpsertPools(ctx context.Context, pools []model.PoolSummary) error {
	return storage.Append(s.pools, pools)
}

func (s *FileSink) UpsertProposals(ctx context.Context, proposals []model.ProposalSummary) error {
	return storage.Append(s.proposals, proposals)
}

func (s *FileSink) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	return storage.Append(s.windows, metrics)
}
