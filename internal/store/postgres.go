package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/whimapp/discovery-cli/internal/db"
	"github.com/whimapp/discovery-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_search":      `SELECT candidates FROM search_cache WHERE cache_key = $1 AND expires_at > now()`,
	"set_search":      `INSERT INTO search_cache (cache_key, candidates, fetched_at, expires_at) VALUES ($1, $2, $3, $4) ON CONFLICT (cache_key) DO UPDATE SET candidates = $2, fetched_at = $3, expires_at = $4`,
	"delete_expired":  `DELETE FROM search_cache WHERE expires_at <= now()`,
	"insert_batch":    `INSERT INTO batches (session_id, signature, state, radius_m, expansion_count, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"list_batches":    `SELECT session_id, signature, state, radius_m, expansion_count, created_at FROM batches WHERE signature = $1 ORDER BY created_at DESC LIMIT $2`,
	"batch_place_ids": `SELECT place_id FROM batch_places WHERE session_id = $1 ORDER BY position`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS search_cache (
	cache_key  TEXT PRIMARY KEY,
	candidates JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS batches (
	session_id      TEXT PRIMARY KEY,
	signature       TEXT NOT NULL,
	state           TEXT NOT NULL,
	radius_m        DOUBLE PRECISION NOT NULL,
	expansion_count INTEGER NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS batch_places (
	session_id TEXT NOT NULL REFERENCES batches(session_id),
	place_id   TEXT NOT NULL,
	position   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_batches_signature ON batches(signature);
CREATE INDEX IF NOT EXISTS idx_batch_places_session_id ON batch_places(session_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetSearch(ctx context.Context, key string) ([]model.Candidate, bool, error) {
	var candidatesJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT candidates FROM search_cache WHERE cache_key = $1 AND expires_at > now()`,
		key,
	).Scan(&candidatesJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, eris.Wrap(err, "postgres: get search")
	}

	var candidates []model.Candidate
	if err := json.Unmarshal(candidatesJSON, &candidates); err != nil {
		return nil, false, eris.Wrap(err, "postgres: unmarshal cached candidates")
	}
	return candidates, true, nil
}

func (s *PostgresStore) SetSearch(ctx context.Context, key string, candidates []model.Candidate, ttl time.Duration) error {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal candidates")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO search_cache (cache_key, candidates, fetched_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cache_key) DO UPDATE SET candidates = $2, fetched_at = $3, expires_at = $4`,
		key, candidatesJSON, now, expiresAt,
	)
	return eris.Wrap(err, "postgres: set search")
}

func (s *PostgresStore) DeleteExpiredSearches(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM search_cache WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired searches")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) RecordBatch(ctx context.Context, rec model.BatchRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO batches (session_id, signature, state, radius_m, expansion_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.SessionID, rec.Signature, string(rec.State), rec.RadiusMeters, rec.ExpansionCount, createdAt,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert batch")
	}

	rows := make([][]any, len(rec.PlaceIDs))
	for i, placeID := range rec.PlaceIDs {
		rows[i] = []any{rec.SessionID, placeID, i}
	}
	_, err = db.CopyFrom(ctx, s.pool, "batch_places", []string{"session_id", "place_id", "position"}, rows)
	return eris.Wrap(err, "postgres: insert batch places")
}

func (s *PostgresStore) ListBatches(ctx context.Context, signature string, limit int) ([]model.BatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT session_id, signature, state, radius_m, expansion_count, created_at
		 FROM batches WHERE signature = $1
		 ORDER BY created_at DESC LIMIT $2`,
		signature, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	var out []model.BatchRecord
	for rows.Next() {
		var rec model.BatchRecord
		var state string
		if err := rows.Scan(&rec.SessionID, &rec.Signature, &state, &rec.RadiusMeters, &rec.ExpansionCount, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch")
		}
		rec.State = model.LoadingState(state)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list batches rows")
	}

	for i := range out {
		out[i].PlaceIDs, err = s.batchPlaces(ctx, out[i].SessionID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) batchPlaces(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT place_id FROM batch_places WHERE session_id = $1 ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: batch places")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch place")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: batch places rows")
}
