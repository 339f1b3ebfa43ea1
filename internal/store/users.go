package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, COALESCE(email, username), COALESCE(full_name, ''), COALESCE(age, 0),
	COALESCE(gender, ''), password_hash, created_at, assessment_data`

// CreateUser inserts a user whose username is the normalised email.
func (s *Store) CreateUser(ctx context.Context, input NewUser) (User, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return User{}, errors.New("email is required")
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     email,
		Email:        email,
		FullName:     strings.TrimSpace(input.FullName),
		Age:          input.Age,
		Gender:       strings.TrimSpace(input.Gender),
		PasswordHash: input.PasswordHash,
	}
	err := s.db.QueryRow(
		ctx,
		`INSERT INTO users (id, username, email, full_name, age, gender, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 RETURNING created_at`,
		user.ID,
		user.Username,
		user.Email,
		user.FullName,
		user.Age,
		user.Gender,
		user.PasswordHash,
	).Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
}

// UserByUsername resolves the subject of a session token.
func (s *Store) UserByUsername(ctx context.Context, username string) (User, error) {
	return s.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, strings.TrimSpace(username))
}

func (s *Store) scanUser(ctx context.Context, query string, arg string) (User, error) {
	var user User
	var assessmentRaw []byte
	err := s.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.Age,
		&user.Gender,
		&user.PasswordHash,
		&user.CreatedAt,
		&assessmentRaw,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("load user: %w", err)
	}
	user.Assessment = decodeAssessment(assessmentRaw)
	return user, nil
}

// SaveAssessment replaces the user's assessment.
func (s *Store) SaveAssessment(ctx context.Context, userID string, assessment Assessment) error {
	encoded, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("encode assessment: %w", err)
	}
	tag, err := s.db.Exec(
		ctx,
		`UPDATE users SET assessment_data = $2::jsonb WHERE id = $1`,
		userID,
		string(encoded),
	)
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
