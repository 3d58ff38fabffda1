package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/modelmux/modelmux/pkg/ensemble"
)

// store persists ledger state in the shared SQLite database. In-memory
// stats remain authoritative; persistence exists so stats survive restarts.
type store struct {
	db *sql.DB
}

// loadAll reads every persisted model stats row.
func (s *store) loadAll(ctx context.Context) ([]ensemble.ModelStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, avg_score, score_trend, avg_latency_ms,
		       invocations, selections, positive_feedback, negative_feedback,
		       updated_at
		FROM model_stats`)
	if err != nil {
		return nil, fmt.Errorf("query model stats: %w", err)
	}
	defer rows.Close()

	var all []ensemble.ModelStats
	for rows.Next() {
		var st ensemble.ModelStats
		if err := rows.Scan(
			&st.Model, &st.AvgScore, &st.ScoreTrend, &st.AvgLatencyMS,
			&st.Invocations, &st.Selections, &st.PositiveFeedback, &st.NegativeFeedback,
			&st.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan model stats: %w", err)
		}
		all = append(all, st)
	}
	return all, rows.Err()
}

// upsertStats writes one model's stats row.
func (s *store) upsertStats(ctx context.Context, st ensemble.ModelStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO model_stats (
			model, avg_score, score_trend, avg_latency_ms,
			invocations, selections, positive_feedback, negative_feedback,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(model) DO UPDATE SET
			avg_score         = excluded.avg_score,
			score_trend       = excluded.score_trend,
			avg_latency_ms    = excluded.avg_latency_ms,
			invocations       = excluded.invocations,
			selections        = excluded.selections,
			positive_feedback = excluded.positive_feedback,
			negative_feedback = excluded.negative_feedback,
			updated_at        = excluded.updated_at`,
		st.Model, st.AvgScore, st.ScoreTrend, st.AvgLatencyMS,
		st.Invocations, st.Selections, st.PositiveFeedback, st.NegativeFeedback,
		st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert model stats %s: %w", st.Model, err)
	}
	return nil
}

// insertFeedbackEvent appends one row to the feedback audit trail.
func (s *store) insertFeedbackEvent(ctx context.Context, id, messageID, model string, positive bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_events (id, message_id, model, positive)
		VALUES (?, ?, ?, ?)`,
		id, messageID, model, boolToInt(positive),
	)
	if err != nil {
		return fmt.Errorf("insert feedback event: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
