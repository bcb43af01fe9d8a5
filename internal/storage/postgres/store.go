// Package postgres persists exported pool, proposal and window metrics.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"futarchy/internal/model"
)

// Store provides Postgres persistence for export output.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	pool_address TEXT PRIMARY KEY,
	base_mint TEXT NOT NULL,
	quote_mint TEXT NOT NULL,
	base_decimals SMALLINT NOT NULL,
	quote_decimals SMALLINT NOT NULL,
	swap_fee_bps BIGINT NOT NULL,
	first_seen_slot BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS proposals (
	proposal_number BIGINT PRIMARY KEY,
	proposal_address TEXT NOT NULL,
	proposer TEXT NOT NULL,
	state TEXT NOT NULL,
	pass_ltwap NUMERIC NOT NULL,
	fail_ltwap NUMERIC NOT NULL,
	threshold NUMERIC,
	expired BOOLEAN NOT NULL,
	last_slot BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool_address TEXT NOT NULL,
	window_size_slots BIGINT NOT NULL,
	window_start_slot BIGINT NOT NULL,
	window_end_slot BIGINT NOT NULL,
	swap_count BIGINT NOT NULL,
	volume_base NUMERIC NOT NULL,
	volume_quote NUMERIC NOT NULL,
	fee_base NUMERIC NOT NULL,
	fee_quote NUMERIC NOT NULL,
	close_base_reserve NUMERIC NOT NULL,
	close_quote_reserve NUMERIC NOT NULL,
	close_price NUMERIC,
	ltwap_close NUMERIC,
	fee_rate NUMERIC,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (pool_address, window_size_slots, window_start_slot)
);
CREATE TABLE IF NOT EXISTS export_state (
	name TEXT PRIMARY KEY,
	last_processed_slot BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the export tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSummary) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, base_mint, quote_mint, base_decimals, quote_decimals, swap_fee_bps,
				first_seen_slot, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				base_mint = EXCLUDED.base_mint,
				quote_mint = EXCLUDED.quote_mint,
				base_decimals = EXCLUDED.base_decimals,
				quote_decimals = EXCLUDED.quote_decimals,
				swap_fee_bps = EXCLUDED.swap_fee_bps,
				first_seen_slot = LEAST(pools.first_seen_slot, EXCLUDED.first_seen_slot),
				updated_at = now()
		`,
			pool.Address,
			pool.Meta.BaseMint.Hex(),
			pool.Meta.QuoteMint.Hex(),
			int16(pool.Meta.BaseDecimals),
			int16(pool.Meta.QuoteDecimals),
			int64(pool.Meta.SwapFeeBps),
			int64(pool.FirstSeenSlot),
		)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertProposals inserts or updates proposal outcomes.
func (s *Store) UpsertProposals(ctx context.Context, proposals []model.ProposalSummary) error {
	if len(proposals) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range proposals {
		var threshold *string
		if p.Threshold != "" {
			th := p.Threshold
			threshold = &th
		}
		batch.Queue(`
			INSERT INTO proposals (
				proposal_number, proposal_address, proposer, state, pass_ltwap, fail_ltwap,
				threshold, expired, last_slot, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			ON CONFLICT (proposal_number)
			DO UPDATE SET
				state = EXCLUDED.state,
				pass_ltwap = EXCLUDED.pass_ltwap,
				fail_ltwap = EXCLUDED.fail_ltwap,
				threshold = EXCLUDED.threshold,
				expired = EXCLUDED.expired,
				last_slot = GREATEST(proposals.last_slot, EXCLUDED.last_slot),
				updated_at = now()
		`,
			int64(p.Number),
			p.Address,
			p.Proposer.Hex(),
			p.State.String(),
			strconv.FormatUint(p.PassLtwap, 10),
			strconv.FormatUint(p.FailLtwap, 10),
			threshold,
			p.Expired,
			int64(p.LastSlot),
		)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_address, window_size_slots, window_start_slot, window_end_slot,
				swap_count, volume_base, volume_quote, fee_base, fee_quote,
				close_base_reserve, close_quote_reserve, close_price, ltwap_close, fee_rate,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
			ON CONFLICT (pool_address, window_size_slots, window_start_slot)
			DO UPDATE SET
				window_end_slot = EXCLUDED.window_end_slot,
				swap_count = EXCLUDED.swap_count,
				volume_base = EXCLUDED.volume_base,
				volume_quote = EXCLUDED.volume_quote,
				fee_base = EXCLUDED.fee_base,
				fee_quote = EXCLUDED.fee_quote,
				close_base_reserve = EXCLUDED.close_base_reserve,
				close_quote_reserve = EXCLUDED.close_quote_reserve,
				close_price = EXCLUDED.close_price,
				ltwap_close = EXCLUDED.ltwap_close,
				fee_rate = EXCLUDED.fee_rate,
				updated_at = now()
		`,
			m.PoolAddress,
			m.WindowSizeSlots,
			int64(m.WindowStart),
			int64(m.WindowEnd),
			int64(m.SwapCount),
			m.VolumeBase,
			m.VolumeQuote,
			m.FeeBase,
			m.FeeQuote,
			m.CloseBaseRes,
			m.CloseQuoteRes,
			m.ClosePrice,
			m.LtwapClose,
			m.FeeRate,
		)
	}
	return s.sendBatch(ctx, batch)
}

// LoadState returns the last exported slot for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var slot int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_slot FROM export_state WHERE name=$1`, name)
	if err := row.Scan(&slot); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(slot), true, nil
}

// SaveState upserts the last exported slot for a name.
func (s *Store) SaveState(ctx context.Context, name string, slot uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO export_state (name, last_processed_slot, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_slot = EXCLUDED.last_processed_slot, updated_at = now()
	`, name, int64(slot))
	return err
}
