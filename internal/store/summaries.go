package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sukoon/backend/internal/companion"
)

func (s *Store) InsertSummary(ctx context.Context, summary Summary) (Summary, error) {
	if !summary.Bot.Valid() {
		return Summary{}, fmt.Errorf("insert summary: unknown bot %q", summary.Bot)
	}
	summary.ID = uuid.NewString()
	err := s.db.QueryRow(
		ctx,
		`INSERT INTO summaries (id, user_id, bot, summary_text, created_at)
		 VALUES ($1, $2, $3, $4, clock_timestamp())
		 RETURNING created_at`,
		summary.ID,
		summary.UserID,
		string(summary.Bot),
		summary.SummaryText,
	).Scan(&summary.CreatedAt)
	if err != nil {
		return Summary{}, fmt.Errorf("insert summary: %w", err)
	}
	return summary, nil
}

// RecentSummaries returns up to limit latest summaries, oldest first.
func (s *Store) RecentSummaries(ctx context.Context, userID string, bot companion.Bot, limit int) ([]Summary, error) {
	if limit <= 0 {
		return []Summary{}, nil
	}
	rows, err := s.db.Query(
		ctx,
		`SELECT id, user_id, bot, summary_text, created_at
		 FROM summaries
		 WHERE user_id = $1 AND bot = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID,
		string(bot),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0, limit)
	for rows.Next() {
		var summary Summary
		var botValue string
		if err := rows.Scan(&summary.ID, &summary.UserID, &botValue, &summary.SummaryText, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summary.Bot = companion.Bot(botValue)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	reverse(summaries)
	return summaries, nil
}
