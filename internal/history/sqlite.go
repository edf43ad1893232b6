package history

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/trustgate/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for teams that
// prefer a queryable local history over the flat JSON file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path, configures WAL mode,
// and ensures the schema exists.
func NewSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
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
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS trust_history (
	id                 TEXT PRIMARY KEY,
	fingerprint        TEXT NOT NULL,
	score              INTEGER NOT NULL,
	verdict            TEXT NOT NULL,
	recorded_at        DATETIME NOT NULL,
	category_scores    TEXT NOT NULL,
	evidence_breakdown TEXT NOT NULL,
	counts             TEXT NOT NULL,
	commit_hash        TEXT
);

CREATE INDEX IF NOT EXISTS idx_trust_history_fingerprint
	ON trust_history(fingerprint, recorded_at);
`

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Append inserts one entry. Rows are never updated or deleted.
func (s *SQLiteStore) Append(ctx context.Context, entry model.TrustHistoryEntry) error {
	categories, err := json.Marshal(entry.CategoryScores)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal category scores")
	}
	breakdown, err := json.Marshal(entry.EvidenceBreakdown)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evidence breakdown")
	}
	counts, err := json.Marshal(entry.Counts)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counts")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trust_history
			(id, fingerprint, score, verdict, recorded_at, category_scores, evidence_breakdown, counts, commit_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), entry.Fingerprint, entry.Score, string(entry.Verdict),
		entry.Timestamp.UTC(), string(categories), string(breakdown), string(counts), entry.CommitHash)
	return eris.Wrap(err, "sqlite: insert entry")
}

// Load returns entries for the fingerprint, oldest first.
func (s *SQLiteStore) Load(ctx context.Context, fingerprint string) ([]model.TrustHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, score, verdict, recorded_at, category_scores, evidence_breakdown, counts, commit_hash
		FROM trust_history
		WHERE fingerprint = ?
		ORDER BY recorded_at ASC
	`, fingerprint)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query history")
	}
	defer rows.Close()

	var out []model.TrustHistoryEntry
	for rows.Next() {
		var e model.TrustHistoryEntry
		var verdict, categories, breakdown, counts string
		var commitHash sql.NullString
		if err := rows.Scan(&e.Fingerprint, &e.Score, &verdict, &e.Timestamp,
			&categories, &breakdown, &counts, &commitHash); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}
		e.Verdict = model.Verdict(verdict)
		e.CommitHash = commitHash.String
		if err := json.Unmarshal([]byte(categories), &e.CategoryScores); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse category scores")
		}
		if err := json.Unmarshal([]byte(breakdown), &e.EvidenceBreakdown); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse evidence breakdown")
		}
		if err := json.Unmarshal([]byte(counts), &e.Counts); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse counts")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate history")
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
