package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"auth-service/internal/domain"
	"auth-service/internal/hash"
)

const uniqueViolationCode = "23505"

// PgUserStore implementa UserStore usando pgxpool. Esquema:
// users(email TEXT PRIMARY KEY, password_hash TEXT, requires_2fa BOOLEAN).
type PgUserStore struct {
	pool   *pgxpool.Pool
	hasher hash.Hasher
}

func NewPgUserStore(pool *pgxpool.Pool, hasher hash.Hasher) *PgUserStore {
	return &PgUserStore{pool: pool, hasher: hasher}
}

func (s *PgUserStore) Add(ctx context.Context, user domain.User) error {
	passwordHash, err := s.hasher.Hash(ctx, user.Password)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO users (email, password_hash, requires_2fa)
		VALUES ($1, $2, $3)
	`
	_, err = s.pool.Exec(ctx, query,
		user.Email.Expose(),
		passwordHash,
		user.Requires2FA,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *PgUserStore) Get(ctx context.Context, email domain.Email) (domain.UserRecord, error) {
	const query = `
		SELECT email, password_hash, requires_2fa
		FROM users
		WHERE email = $1
	`
	var (
		rawEmail     string
		passwordHash string
		requires2FA  bool
	)
	err := s.pool.QueryRow(ctx, query, email.Expose()).Scan(
		&rawEmail,
		&passwordHash,
		&requires2FA,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserRecord{}, ErrUserNotFound
	}
	if err != nil {
		return domain.UserRecord{}, fmt.Errorf("fetching user: %w", err)
	}

	storedEmail, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return domain.UserRecord{}, fmt.Errorf("stored email is invalid: %w", err)
	}
	return domain.UserRecord{
		Email:        storedEmail,
		PasswordHash: passwordHash,
		Requires2FA:  requires2FA,
	}, nil
}

func (s *PgUserStore) Validate(ctx context.Context, email domain.Email, password domain.Password) error {
	record, err := s.Get(ctx, email)
	if err != nil {
		return err
	}
	if err := s.hasher.Verify(ctx, record.PasswordHash, password); err != nil {
		if errors.Is(err, hash.ErrMismatch) {
			return ErrInvalidUserCredentials
		}
		return err
	}
	return nil
}

func (s *PgUserStore) Delete(ctx context.Context, email domain.Email) error {
	const query = `DELETE FROM users WHERE email = $1`
	tag, err := s.pool.Exec(ctx, query, email.Expose())
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
