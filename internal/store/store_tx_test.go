package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sukoon/backend/internal/companion"
)

var errSummariesLocked = errors.New("summaries table locked")

// recordingDB keeps per-table row counts and applies deletes only on commit.
type recordingDB struct {
	dbQuerier
	rows       map[string]int
	failOn     string
	commits    int
	rollbacks  int
	statements []string
	beginErr   error
}

func newRecordingDB(failOn string) *recordingDB {
	return &recordingDB{rows: map[string]int{"chats": 4, "summaries": 2}, failOn: failOn}
}

func (d *recordingDB) Begin(context.Context) (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return &recordingTx{db: d}, nil
}

type recordingTx struct {
	pgx.Tx
	db      *recordingDB
	pending []string
	done    bool
}

func (tx *recordingTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	tx.db.statements = append(tx.db.statements, sql)
	if tx.db.failOn != "" && strings.Contains(sql, tx.db.failOn) {
		return pgconn.CommandTag{}, errSummariesLocked
	}
	for table := range tx.db.rows {
		if strings.Contains(sql, "FROM "+table) {
			tx.pending = append(tx.pending, table)
		}
	}
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (tx *recordingTx) Commit(context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.db.commits++
	for _, table := range tx.pending {
		tx.db.rows[table] = 0
	}
	return nil
}

func (tx *recordingTx) Rollback(context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	tx.db.rollbacks++
	return nil
}

func TestDeleteConversationRollsBackWhenSummariesFail(t *testing.T) {
	db := newRecordingDB("FROM summaries")
	st := &Store{db: db}

	err := st.DeleteConversation(context.Background(), "user-1", companion.BotMeera)
	if !errors.Is(err, errSummariesLocked) || !strings.Contains(err.Error(), "delete summaries") {
		t.Fatalf("expected wrapped summaries failure, got %v", err)
	}
	if len(db.statements) != 2 {
		t.Fatalf("expected both deletes attempted, got %v", db.statements)
	}
	if db.commits != 0 || db.rollbacks != 1 {
		t.Fatalf("expected rollback only, commits=%d rollbacks=%d", db.commits, db.rollbacks)
	}
	if db.rows["chats"] != 4 || db.rows["summaries"] != 2 {
		t.Fatalf("expected nothing deleted, got %v", db.rows)
	}
}

func TestDeleteAllConversationsRollsBackWhenSummariesFail(t *testing.T) {
	db := newRecordingDB("FROM summaries")
	st := &Store{db: db}

	if err := st.DeleteAllConversations(context.Background(), "user-1"); !errors.Is(err, errSummariesLocked) {
		t.Fatalf("expected summaries failure, got %v", err)
	}
	if db.commits != 0 || db.rows["chats"] != 4 || db.rows["summaries"] != 2 {
		t.Fatalf("expected nothing deleted, commits=%d rows=%v", db.commits, db.rows)
	}
}

func TestDeleteConversationCommitsBothDeletes(t *testing.T) {
	db := newRecordingDB("")
	st := &Store{db: db}

	if err := st.DeleteConversation(context.Background(), "user-1", companion.BotAarav); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	if db.commits != 1 || db.rollbacks != 0 {
		t.Fatalf("expected a single commit, commits=%d rollbacks=%d", db.commits, db.rollbacks)
	}
	if db.rows["chats"] != 0 || db.rows["summaries"] != 0 {
		t.Fatalf("expected both tables cleared, got %v", db.rows)
	}
}

func TestDeleteAllConversationsBeginFailure(t *testing.T) {
	db := newRecordingDB("")
	db.beginErr = errors.New("pool exhausted")
	st := &Store{db: db}

	err := st.DeleteAllConversations(context.Background(), "user-1")
	if err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("expected begin failure, got %v", err)
	}
	if len(db.statements) != 0 {
		t.Fatalf("expected no statements, got %v", db.statements)
	}
}
