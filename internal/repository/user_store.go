package repository

import (
	"context"
	"errors"
	"sync"

	"auth-service/internal/domain"
	"auth-service/internal/hash"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	// ErrInvalidUserCredentials indica contraseña incorrecta para un
	// usuario que si existe.
	ErrInvalidUserCredentials = errors.New("invalid user credentials")
)

// UserStore define el contrato de persistencia para usuarios. La clave
// es el email; un email solo puede existir una vez.
type UserStore interface {
	Add(ctx context.Context, user domain.User) error
	Get(ctx context.Context, email domain.Email) (domain.UserRecord, error)
	Validate(ctx context.Context, email domain.Email, password domain.Password) error
	Delete(ctx context.Context, email domain.Email) error
}

// MemoryUserStore implementa UserStore sobre un mapa en memoria.
// Sirve para tests y desarrollo en un solo proceso.
type MemoryUserStore struct {
	mu     sync.RWMutex
	hasher hash.Hasher
	users  map[string]domain.UserRecord
}

func NewMemoryUserStore(hasher hash.Hasher) *MemoryUserStore {
	return &MemoryUserStore{
		hasher: hasher,
		users:  make(map[string]domain.UserRecord),
	}
}

func (s *MemoryUserStore) Add(ctx context.Context, user domain.User) error {
	// El hash se calcula fuera del lock: es trabajo CPU-bound y no
	// necesita estado compartido.
	passwordHash, err := s.hasher.Hash(ctx, user.Password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := user.Email.Expose()
	if _, ok := s.users[key]; ok {
		return ErrUserAlreadyExists
	}
	s.users[key] = domain.UserRecord{
		Email:        user.Email,
		PasswordHash: passwordHash,
		Requires2FA:  user.Requires2FA,
	}
	return nil
}

func (s *MemoryUserStore) Get(_ context.Context, email domain.Email) (domain.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.users[email.Expose()]
	if !ok {
		return domain.UserRecord{}, ErrUserNotFound
	}
	return record, nil
}

func (s *MemoryUserStore) Validate(ctx context.Context, email domain.Email, password domain.Password) error {
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

func (s *MemoryUserStore) Delete(_ context.Context, email domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := email.Expose()
	if _, ok := s.users[key]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, key)
	return nil
}
