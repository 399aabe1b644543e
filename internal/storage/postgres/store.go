package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapscope/internal/model"
)

// Store provides Postgres persistence for the trade journal and pool
// snapshots.
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

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutTransactions inserts or updates transaction records keyed by tx hash.
// Re-submitting a record after a status change updates it in place.
func (s *Store) PutTransactions(ctx context.Context, records []model.TransactionRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(`
			INSERT INTO trade_transactions (
				chain_id, kind, tx_hash, token_in, token_out, pool_index, amount, status, error, submitted_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
			ON CONFLICT (chain_id, tx_hash)
			DO UPDATE SET
				status = EXCLUDED.status,
				error = EXCLUDED.error,
				updated_at = now()
		`,
			int64(record.ChainID),
			record.Kind,
			record.TxHash,
			record.TokenIn,
			record.TokenOut,
			int64(record.PoolIndex),
			record.Amount,
			record.Status,
			record.Error,
			record.SubmittedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPools inserts or updates pool snapshots as read from the pool
// manager.
func (s *Store) UpsertPools(ctx context.Context, chainID uint64, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				chain_id, pool_index, pool_address, token0, token1, fee,
				tick_lower, tick_upper, current_tick, sqrt_price_x96, liquidity, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
			ON CONFLICT (chain_id, pool_index)
			DO UPDATE SET
				pool_address = EXCLUDED.pool_address,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee = EXCLUDED.fee,
				tick_lower = EXCLUDED.tick_lower,
				tick_upper = EXCLUDED.tick_upper,
				current_tick = EXCLUDED.current_tick,
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				liquidity = EXCLUDED.liquidity,
				updated_at = now()
		`,
			int64(chainID),
			int64(pool.PoolIndex),
			pool.Address.Hex(),
			pool.Token0.Hex(),
			pool.Token1.Hex(),
			int64(pool.Fee),
			pool.TickLower,
			pool.TickUpper,
			pool.CurrentTick,
			pool.SqrtPriceX96.String(),
			pool.Liquidity.String(),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
