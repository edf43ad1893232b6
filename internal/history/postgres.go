package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/trustgate/internal/model"
	"github.com/sells-group/trustgate/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the Postgres store uses; pgxmock
// satisfies it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore implements Store on a shared Postgres database, for CI
// fleets where many runners append to one durable history.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool and ensures
// the schema exists.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	// Shared CI databases come up slower than the runners that use them.
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("postgres ping")
	if err := resilience.Do(ctx, retryCfg, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	s := &PostgresStore{pool: pool, closeFn: pool.Close}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS trust_history (
	id                 TEXT PRIMARY KEY,
	fingerprint        TEXT NOT NULL,
	score              INTEGER NOT NULL,
	verdict            TEXT NOT NULL,
	recorded_at        TIMESTAMPTZ NOT NULL,
	category_scores    JSONB NOT NULL,
	evidence_breakdown JSONB NOT NULL,
	counts             JSONB NOT NULL,
	commit_hash        TEXT
);

CREATE INDEX IF NOT EXISTS idx_trust_history_fingerprint
	ON trust_history(fingerprint, recorded_at);
`

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Append inserts one entry. Rows are never updated or deleted.
func (s *PostgresStore) Append(ctx context.Context, entry model.TrustHistoryEntry) error {
	categories, err := json.Marshal(entry.CategoryScores)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal category scores")
	}
	breakdown, err := json.Marshal(entry.EvidenceBreakdown)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evidence breakdown")
	}
	counts, err := json.Marshal(entry.Counts)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counts")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO trust_history
			(id, fingerprint, score, verdict, recorded_at, category_scores, evidence_breakdown, counts, commit_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.New().String(), entry.Fingerprint, entry.Score, string(entry.Verdict),
		entry.Timestamp.UTC(), categories, breakdown, counts, entry.CommitHash)
	return eris.Wrap(err, "postgres: insert entry")
}

// Load returns entries for the fingerprint, oldest first.
func (s *PostgresStore) Load(ctx context.Context, fingerprint string) ([]model.TrustHistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT fingerprint, score, verdict, recorded_at, category_scores, evidence_breakdown, counts, commit_hash
		FROM trust_history
		WHERE fingerprint = $1
		ORDER BY recorded_at ASC
	`, fingerprint)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query history")
	}
	defer rows.Close()

	var out []model.TrustHistoryEntry
	for rows.Next() {
		var e model.TrustHistoryEntry
		var verdict string
		var categories, breakdown, counts []byte
		var commitHash *string
		if err := rows.Scan(&e.Fingerprint, &e.Score, &verdict, &e.Timestamp,
			&categories, &breakdown, &counts, &commitHash); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}
		e.Verdict = model.Verdict(verdict)
		if commitHash != nil {
			e.CommitHash = *commitHash
		}
		if err := json.Unmarshal(categories, &e.CategoryScores); err != nil {
			return nil, eris.Wrap(err, "postgres: parse category scores")
		}
		if err := json.Unmarshal(breakdown, &e.EvidenceBreakdown); err != nil {
			return nil, eris.Wrap(err, "postgres: parse evidence breakdown")
		}
		if err := json.Unmarshal(counts, &e.Counts); err != nil {
			return nil, eris.Wrap(err, "postgres: parse counts")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate history")
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
