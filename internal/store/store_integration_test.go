package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sukoon/backend/internal/companion"
	"sukoon/backend/internal/db"
)

var (
	testPool              *pgxpool.Pool
	integrationDBReady    bool
	integrationSkipReason string
)

func TestMain(m *testing.M) {
	testDatabaseURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if testDatabaseURL == "" {
		integrationSkipReason = "integration tests skipped: TEST_DATABASE_URL is not set"
		fmt.Fprintln(os.Stderr, integrationSkipReason)
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.Connect(ctx, testDatabaseURL, 4)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration test setup failed: cannot connect TEST_DATABASE_URL: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	err = EnsureSchema(ctx, pool)
	cancel()
	if err != nil {
		pool.Close()
		fmt.Fprintf(os.Stderr, "integration test setup failed: %v\n", err)
		os.Exit(1)
	}

	testPool = pool
	integrationDBReady = true

	exitCode := m.Run()
	testPool.Close()
	os.Exit(exitCode)
}

func requireIntegration(t *testing.T) *Store {
	t.Helper()
	if !integrationDBReady {
		t.Skip(integrationSkipReason)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := testPool.Exec(ctx, `TRUNCATE TABLE summaries, chats, users CASCADE`); err != nil {
		t.Fatalf("failed to reset database: %v", err)
	}
	return New(testPool)
}

func createTestUser(t *testing.T, s *Store, email string) User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), NewUser{
		Email:        email,
		FullName:     "Test User",
		Age:          29,
		Gender:       "female",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestSchemaIsValidAfterEnsure(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	if err := EnsureSchema(ctx, testPool); err != nil {
		t.Fatalf("rerunning schema should be a no-op, got %v", err)
	}
	if err := ValidateRuntimeSchema(ctx, testPool); err != nil {
		t.Fatalf("expected valid schema, got %v", err)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := requireIntegration(t)
	createTestUser(t, s, "Asha@Example.com")

	_, err := s.CreateUser(context.Background(), NewUser{Email: "asha@example.com", PasswordHash: "x"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	user, err := s.UserByEmail(context.Background(), "ASHA@example.com")
	if err != nil {
		t.Fatalf("lookup by email: %v", err)
	}
	if user.Username != "asha@example.com" || user.Email != "asha@example.com" {
		t.Fatalf("expected lowercased identity, got username=%q email=%q", user.Username, user.Email)
	}
	if user.HasAssessment() {
		t.Fatalf("new user must not have an assessment")
	}
}

func TestUserByUsernameMissing(t *testing.T) {
	s := requireIntegration(t)
	if _, err := s.UserByUsername(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveAssessmentRoundTrip(t *testing.T) {
	s := requireIntegration(t)
	ctx := context.Background()
	user := createTestUser(t, s, "ravi@example.com")

	answers := Assessment{"mood": "low", "self_harm": "not_at_all"}
	if err := s.SaveAssessment(ctx, user.ID, answers); err != nil {
		t.Fatalf("save assessment: %v", err)
	}
	loaded, err := s.UserByUsername(ctx, user.Username)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if loaded.Assessment["mood"] != "low" || !loaded.HasAssessment() {
		t.Fatalf("assessment not persisted: %#v", loaded.Assessment)
	}

	if err := s.SaveAssessment(ctx, uuid.NewString(), answers); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestChatTurnsOrderingAndCounts(t *testing.T) {
	s := requireIntegration(t)
	ctx := context.Background()
	user := createTestUser(t, s, "meera.fan@example.com")

	for i := 1; i <= 8; i++ {
		if _, err := s.InsertChatTurn(ctx, ChatTurn{
			UserID:  user.ID,
			Bot:     companion.BotMeera,
			Message: fmt.Sprintf("m%d", i),
			Reply:   fmt.Sprintf("r%d", i),
		}); err != nil {
			t.Fatalf("insert turn %d: %v", i, err)
		}
	}
	if _, err := s.InsertChatTurn(ctx, ChatTurn{UserID: user.ID, Bot: companion.BotAarav, Message: "other", Reply: "bot"}); err != nil {
		t.Fatalf("insert aarav turn: %v", err)
	}

	count, err := s.CountChatTurns(ctx, user.ID, companion.BotMeera)
	if err != nil || count != 8 {
		t.Fatalf("expected 8 meera turns, got %d err=%v", count, err)
	}

	recent, err := s.RecentChatTurns(ctx, user.ID, companion.BotMeera, 6)
	if err != nil {
		t.Fatalf("recent turns: %v", err)
	}
	if len(recent) != 6 || recent[0].Message != "m3" || recent[5].Message != "m8" {
		t.Fatalf("expected m3..m8 oldest first, got %#v", recent)
	}

	all, err := s.ListChatTurns(ctx, user.ID, companion.BotMeera)
	if err != nil || len(all) != 8 || all[0].Message != "m1" {
		t.Fatalf("expected full ascending history, got %d err=%v", len(all), err)
	}
}

func TestSummariesAndDeletion(t *testing.T) {
	s := requireIntegration(t)
	ctx := context.Background()
	user := createTestUser(t, s, "aarav.fan@example.com")

	for i := 1; i <= 4; i++ {
		if _, err := s.InsertSummary(ctx, Summary{UserID: user.ID, Bot: companion.BotAarav, SummaryText: fmt.Sprintf("s%d", i)}); err != nil {
			t.Fatalf("insert summary: %v", err)
		}
	}
	if _, err := s.InsertChatTurn(ctx, ChatTurn{UserID: user.ID, Bot: companion.BotAarav, Message: "hi", Reply: "hello"}); err != nil {
		t.Fatalf("insert turn: %v", err)
	}
	if _, err := s.InsertChatTurn(ctx, ChatTurn{UserID: user.ID, Bot: companion.BotMeera, Message: "hi", Reply: "hello"}); err != nil {
		t.Fatalf("insert turn: %v", err)
	}

	recent, err := s.RecentSummaries(ctx, user.ID, companion.BotAarav, 3)
	if err != nil {
		t.Fatalf("recent summaries: %v", err)
	}
	if got := SummaryTexts(recent); strings.Join(got, ",") != "s2,s3,s4" {
		t.Fatalf("expected s2,s3,s4, got %v", got)
	}

	if err := s.DeleteConversation(ctx, user.ID, companion.BotAarav); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	if count, _ := s.CountChatTurns(ctx, user.ID, companion.BotAarav); count != 0 {
		t.Fatalf("expected aarav chats deleted, got %d", count)
	}
	if count, _ := s.CountChatTurns(ctx, user.ID, companion.BotMeera); count != 1 {
		t.Fatalf("meera chats must survive, got %d", count)
	}
	if left, _ := s.RecentSummaries(ctx, user.ID, companion.BotAarav, 3); len(left) != 0 {
		t.Fatalf("expected aarav summaries deleted, got %d", len(left))
	}

	if err := s.DeleteAllConversations(ctx, user.ID); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if count, _ := s.CountChatTurns(ctx, user.ID, companion.BotMeera); count != 0 {
		t.Fatalf("expected every chat deleted, got %d", count)
	}
}

func TestInsertChatTurnRejectsUnknownBot(t *testing.T) {
	s := &Store{}
	if _, err := s.InsertChatTurn(context.Background(), ChatTurn{Bot: companion.Bot("zara")}); err == nil {
		t.Fatalf("expected error for unknown bot")
	}
}
