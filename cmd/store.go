package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/trustgate/internal/config"
	"github.com/sells-group/trustgate/internal/history"
)

// openHistoryStore builds the configured history backend.
func openHistoryStore(ctx context.Context, hc config.HistoryConfig) (history.Store, error) {
	switch hc.Driver {
	case "", "file":
		if hc.Path == "" {
			return nil, eris.New("history: file driver requires history.path")
		}
		return history.NewJSONFile(hc.Path), nil
	case "sqlite":
		if hc.Path == "" {
			return nil, eris.New("history: sqlite driver requires history.path")
		}
		return history.NewSQLite(ctx, hc.Path)
	case "postgres":
		if hc.DatabaseURL == "" {
			return nil, eris.New("history: postgres driver requires history.database_url")
		}
		return history.NewPostgres(ctx, hc.DatabaseURL)
	default:
		return nil, eris.Errorf("history: unknown driver %q", hc.Driver)
	}
}
