package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/whimapp/discovery-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS search_cache (
	cache_key  TEXT PRIMARY KEY,
	candidates TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS batches (
	session_id      TEXT PRIMARY KEY,
	signature       TEXT NOT NULL,
	state           TEXT NOT NULL,
	radius_m        REAL NOT NULL,
	expansion_count INTEGER NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetSearch(ctx context.Context, key string) ([]model.Candidate, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT candidates FROM search_cache
		 WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().UTC(),
	)

	var candidatesJSON string
	err := row.Scan(&candidatesJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get search")
	}

	var candidates []model.Candidate
	if err := json.Unmarshal([]byte(candidatesJSON), &candidates); err != nil {
		return nil, false, eris.Wrap(err, "sqlite: unmarshal cached candidates")
	}
	return candidates, true, nil
}

func (s *SQLiteStore) SetSearch(ctx context.Context, key string, candidates []model.Candidate, ttl time.Duration) error {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal candidates")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_cache (cache_key, candidates, fetched_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (cache_key) DO UPDATE SET candidates = ?, fetched_at = ?, expires_at = ?`,
		key, string(candidatesJSON), now, expiresAt,
		string(candidatesJSON), now, expiresAt,
	)
	return eris.Wrap(err, "sqlite: set search")
}

func (s *SQLiteStore) DeleteExpiredSearches(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM search_cache WHERE expires_at <= ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired searches")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) RecordBatch(ctx context.Context, rec model.BatchRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin batch tx")
	}
	defer tx.Rollback()

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (session_id, signature, state, radius_m, expansion_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Signature, string(rec.State), rec.RadiusMeters, rec.ExpansionCount, createdAt,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert batch")
	}

	for i, placeID := range rec.PlaceIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO batch_places (session_id, place_id, position) VALUES (?, ?, ?)`,
			rec.SessionID, placeID, i,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert batch place")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit batch tx")
}

func (s *SQLiteStore) ListBatches(ctx context.Context, signature string, limit int) ([]model.BatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, signature, state, radius_m, expansion_count, created_at
		 FROM batches WHERE signature = ?
		 ORDER BY created_at DESC LIMIT ?`,
		signature, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close()

	var out []model.BatchRecord
	for rows.Next() {
		var rec model.BatchRecord
		var state string
		if err := rows.Scan(&rec.SessionID, &rec.Signature, &state, &rec.RadiusMeters, &rec.ExpansionCount, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch")
		}
		rec.State = model.LoadingState(state)

		rec.PlaceIDs, err = s.batchPlaces(ctx, rec.SessionID)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list batches rows")
}

func (s *SQLiteStore) batchPlaces(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT place_id FROM batch_places WHERE session_id = ? ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: batch places")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch place")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: batch places rows")
}
