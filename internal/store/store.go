// Package store persists users, chat turns and summaries in Postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sukoon/backend/internal/companion"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already exists")
)

const uniqueViolationCode = "23505"

type dbQuerier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Assessment is the intake questionnaire attached to a user.
type Assessment map[string]string

// AssessmentKeys are the recognised assessment fields.
var AssessmentKeys = []string{"mood", "anxiety", "sleep", "interest", "support", "self_harm", "timestamp"}

type User struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	Age          int
	Gender       string
	PasswordHash string
	CreatedAt    time.Time
	Assessment   Assessment
}

func (u User) HasAssessment() bool {
	return len(u.Assessment) > 0
}

type NewUser struct {
	Email        string
	FullName     string
	Age          int
	Gender       string
	PasswordHash string
}

type ChatTurn struct {
	ID        string
	UserID    string
	Bot       companion.Bot
	Message   string
	Reply     string
	CreatedAt time.Time
	ViaCall   bool
}

type Summary struct {
	ID          string
	UserID      string
	Bot         companion.Bot
	SummaryText string
	CreatedAt   time.Time
}

type Store struct {
	db dbQuerier
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// inTx runs fn in one transaction; any error rolls every statement back.
func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Turns converts persisted rows into the history shape the companion expects.
func Turns(chats []ChatTurn) []companion.Turn {
	turns := make([]companion.Turn, 0, len(chats))
	for _, chat := range chats {
		turns = append(turns, companion.Turn{Message: chat.Message, Reply: chat.Reply})
	}
	return turns
}

// SummaryTexts returns the summary bodies in the given order.
func SummaryTexts(summaries []Summary) []string {
	texts := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		texts = append(texts, summary.SummaryText)
	}
	return texts
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func decodeAssessment(raw []byte) Assessment {
	if len(raw) == 0 {
		return nil
	}
	var result Assessment
	if err := json.Unmarshal(raw, &result); err != nil || len(result) == 0 {
		return nil
	}
	return result
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
