package ledger

import (
	"database/sql"

	"github.com/modelmux/modelmux/pkg/plugin"
)

// migrations returns the ledger module's database migrations.
func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create model stats and feedback tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS model_stats (
						model             TEXT PRIMARY KEY,
						avg_score         REAL NOT NULL DEFAULT 0,
						score_trend       REAL NOT NULL DEFAULT 0,
						avg_latency_ms    REAL NOT NULL DEFAULT 0,
						invocations       INTEGER NOT NULL DEFAULT 0,
						selections        INTEGER NOT NULL DEFAULT 0,
						positive_feedback INTEGER NOT NULL DEFAULT 0,
						negative_feedback INTEGER NOT NULL DEFAULT 0,
						updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,

					`CREATE TABLE IF NOT EXISTS feedback_events (
						id         TEXT PRIMARY KEY,
						message_id TEXT NOT NULL,
						model      TEXT NOT NULL,
						positive   INTEGER NOT NULL,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_feedback_events_model ON feedback_events(model)`,
					`CREATE INDEX IF NOT EXISTS idx_feedback_events_message ON feedback_events(message_id)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
