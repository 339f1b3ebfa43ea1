package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sukoon/backend/internal/companion"
)

// InsertChatTurn persists one completed exchange.
func (s *Store) InsertChatTurn(ctx context.Context, turn ChatTurn) (ChatTurn, error) {
	if !turn.Bot.Valid() {
		return ChatTurn{}, fmt.Errorf("insert chat: unknown bot %q", turn.Bot)
	}
	turn.ID = uuid.NewString()
	err := s.db.QueryRow(
		ctx,
		`INSERT INTO chats (id, user_id, bot, message, reply, via_call, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, clock_timestamp())
		 RETURNING created_at`,
		turn.ID,
		turn.UserID,
		string(turn.Bot),
		turn.Message,
		turn.Reply,
		turn.ViaCall,
	).Scan(&turn.CreatedAt)
	if err != nil {
		return ChatTurn{}, fmt.Errorf("insert chat: %w", err)
	}
	return turn, nil
}

// RecentChatTurns returns up to limit latest turns, oldest first.
func (s *Store) RecentChatTurns(ctx context.Context, userID string, bot companion.Bot, limit int) ([]ChatTurn, error) {
	if limit <= 0 {
		return []ChatTurn{}, nil
	}
	turns, err := s.queryChatTurns(
		ctx,
		`SELECT id, user_id, bot, message, reply, created_at, via_call
		 FROM chats
		 WHERE user_id = $1 AND bot = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		userID,
		string(bot),
		limit,
	)
	if err != nil {
		return nil, err
	}
	reverse(turns)
	return turns, nil
}

// ListChatTurns returns the full conversation with one persona, oldest first.
func (s *Store) ListChatTurns(ctx context.Context, userID string, bot companion.Bot) ([]ChatTurn, error) {
	return s.queryChatTurns(
		ctx,
		`SELECT id, user_id, bot, message, reply, created_at, via_call
		 FROM chats
		 WHERE user_id = $1 AND bot = $2
		 ORDER BY created_at ASC`,
		userID,
		string(bot),
	)
}

func (s *Store) CountChatTurns(ctx context.Context, userID string, bot companion.Bot) (int, error) {
	var count int
	if err := s.db.QueryRow(
		ctx,
		`SELECT COUNT(*)::int FROM chats WHERE user_id = $1 AND bot = $2`,
		userID,
		string(bot),
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chats: %w", err)
	}
	return count, nil
}

func (s *Store) queryChatTurns(ctx context.Context, query string, args ...any) ([]ChatTurn, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load chats: %w", err)
	}
	defer rows.Close()

	turns := make([]ChatTurn, 0)
	for rows.Next() {
		var turn ChatTurn
		var bot string
		if err := rows.Scan(&turn.ID, &turn.UserID, &bot, &turn.Message, &turn.Reply, &turn.CreatedAt, &turn.ViaCall); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		turn.Bot = companion.Bot(bot)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load chats: %w", err)
	}
	return turns, nil
}

// DeleteConversation removes chats and summaries for one persona atomically.
func (s *Store) DeleteConversation(ctx context.Context, userID string, bot companion.Bot) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chats WHERE user_id = $1 AND bot = $2`, userID, string(bot)); err != nil {
			return fmt.Errorf("delete chats: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM summaries WHERE user_id = $1 AND bot = $2`, userID, string(bot)); err != nil {
			return fmt.Errorf("delete summaries: %w", err)
		}
		return nil
	})
}

// DeleteAllConversations removes every chat and summary of the user atomically.
func (s *Store) DeleteAllConversations(ctx context.Context, userID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chats WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete chats: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM summaries WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete summaries: %w", err)
		}
		return nil
	})
}
