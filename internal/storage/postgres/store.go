// Package postgres stores feed events in a pool_events table.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"

	"swapDesk/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schema = `
CREATE TABLE IF NOT EXISTS pool_events (
	deployment   TEXT        NOT NULL,
	chain_id     BIGINT      NOT NULL,
	tx_hash      TEXT        NOT NULL,
	log_index    BIGINT      NOT NULL,
	block_number BIGINT      NOT NULL,
	block_hash   TEXT        NOT NULL,
	address      TEXT        NOT NULL,
	event_name   TEXT        NOT NULL,
	args         JSONB,
	decoded      JSONB,
	raw          JSONB,
	received_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, tx_hash, log_index)
)`

// Store provides Postgres persistence for feed events.
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

// EnsureSchema creates the pool_events table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// PutEvents inserts events. Events already stored are left untouched.
func (s *Store) PutEvents(ctx context.Context, events []model.PoolEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		args, err := jsonColumn(event.Args)
		if err != nil {
			return fmt.Errorf("encode args for %s: %w", event.Key(), err)
		}
		decoded, err := jsonColumn(event.Decoded)
		if err != nil {
			return fmt.Errorf("encode payload for %s: %w", event.Key(), err)
		}
		raw, err := jsonColumn(event.Raw)
		if err != nil {
			return fmt.Errorf("encode raw log for %s: %w", event.Key(), err)
		}
		batch.Queue(`
			INSERT INTO pool_events (
				deployment, chain_id, tx_hash, log_index, block_number, block_hash,
				address, event_name, args, decoded, raw, received_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		`,
			event.Deployment,
			int64(event.ChainID),
			event.TxHash,
			int64(event.LogIndex),
			int64(event.BlockNumber),
			event.BlockHash,
			event.Address,
			event.EventName,
			args,
			decoded,
			raw,
			event.ReceivedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// jsonColumn encodes v for a JSONB column; nil values become SQL NULL.
func jsonColumn(v interface{}) (interface{}, error) {
	switch typed := v.(type) {
	case nil:
		return nil, nil
	case map[string]string:
		if len(typed) == 0 {
			return nil, nil
		}
	case *model.RawLogRef:
		if typed == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
