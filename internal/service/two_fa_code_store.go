package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-service/internal/domain"
)

// ErrCodeNotFound indica que no hay desafio 2FA pendiente para el email.
var ErrCodeNotFound = errors.New("two fa code not found")

// TwoFACodeTTL es la vida util de un desafio 2FA pendiente.
const TwoFACodeTTL = 10 * time.Minute

const twoFACodeKeyPrefix = "two_fa_code:"

// TwoFACodeStore guarda a lo sumo un desafio pendiente por email.
// AddCode es un upsert: un intento nuevo pisa al anterior.
type TwoFACodeStore interface {
	AddCode(ctx context.Context, email domain.Email, attemptID domain.LoginAttemptID, code domain.TwoFACode) error
	GetCode(ctx context.Context, email domain.Email) (domain.LoginAttemptID, domain.TwoFACode, error)
	RemoveCode(ctx context.Context, email domain.Email) error
}

type twoFAEntry struct {
	attemptID domain.LoginAttemptID
	code      domain.TwoFACode
	expiresAt time.Time
}

type memoryTwoFACodeStore struct {
	mu    sync.RWMutex
	items map[string]twoFAEntry
}

// NewMemoryTwoFACodeStore crea un store en memoria para un proceso.
func NewMemoryTwoFACodeStore() TwoFACodeStore {
	return &memoryTwoFACodeStore{
		items: make(map[string]twoFAEntry),
	}
}

func (s *memoryTwoFACodeStore) AddCode(_ context.Context, email domain.Email, attemptID domain.LoginAttemptID, code domain.TwoFACode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[email.Expose()] = twoFAEntry{
		attemptID: attemptID,
		code:      code,
		expiresAt: time.Now().UTC().Add(TwoFACodeTTL),
	}
	return nil
}

func (s *memoryTwoFACodeStore) GetCode(_ context.Context, email domain.Email) (domain.LoginAttemptID, domain.TwoFACode, error) {
	s.mu.RLock()
	entry, ok := s.items[email.Expose()]
	s.mu.RUnlock()
	if !ok || time.Now().UTC().After(entry.expiresAt) {
		return domain.LoginAttemptID{}, domain.TwoFACode{}, ErrCodeNotFound
	}
	return entry.attemptID, entry.code, nil
}

func (s *memoryTwoFACodeStore) RemoveCode(_ context.Context, email domain.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, email.Expose())
	return nil
}

// twoFAPair es la forma serializada del desafio en redis.
type twoFAPair struct {
	LoginAttemptID string `json:"loginAttemptId"`
	Code           string `json:"code"`
}

type redisTwoFACodeStore struct {
	client *redis.Client
}

// NewRedisTwoFACodeStore crea un store respaldado en redis con TTL
// automatico, visible para todas las replicas.
func NewRedisTwoFACodeStore(client *redis.Client) TwoFACodeStore {
	if client == nil {
		return nil
	}
	return &redisTwoFACodeStore{client: client}
}

func (s *redisTwoFACodeStore) AddCode(ctx context.Context, email domain.Email, attemptID domain.LoginAttemptID, code domain.TwoFACode) error {
	payload, err := json.Marshal(twoFAPair{
		LoginAttemptID: attemptID.Expose(),
		Code:           code.Expose(),
	})
	if err != nil {
		return fmt.Errorf("serializing two fa pair: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	key := twoFACodeKeyPrefix + email.Expose()
	if err := s.client.Set(ctx, key, payload, TwoFACodeTTL).Err(); err != nil {
		return fmt.Errorf("storing two fa pair: %w", err)
	}
	return nil
}

func (s *redisTwoFACodeStore) GetCode(ctx context.Context, email domain.Email) (domain.LoginAttemptID, domain.TwoFACode, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	key := twoFACodeKeyPrefix + email.Expose()
	payload, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.LoginAttemptID{}, domain.TwoFACode{}, ErrCodeNotFound
	}
	if err != nil {
		return domain.LoginAttemptID{}, domain.TwoFACode{}, fmt.Errorf("fetching two fa pair: %w", err)
	}

	var pair twoFAPair
	if err := json.Unmarshal([]byte(payload), &pair); err != nil {
		return domain.LoginAttemptID{}, domain.TwoFACode{}, fmt.Errorf("deserializing two fa pair: %w", err)
	}
	attemptID, err := domain.ParseLoginAttemptID(pair.LoginAttemptID)
	if err != nil {
		return domain.LoginAttemptID{}, domain.TwoFACode{}, fmt.Errorf("stored attempt id is invalid: %w", err)
	}
	code, err := domain.ParseTwoFACode(pair.Code)
	if err != nil {
		return domain.LoginAttemptID{}, domain.TwoFACode{}, fmt.Errorf("stored code is invalid: %w", err)
	}
	return attemptID, code, nil
}

func (s *redisTwoFACodeStore) RemoveCode(ctx context.Context, email domain.Email) error {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	key := twoFACodeKeyPrefix + email.Expose()
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("removing two fa pair: %w", err)
	}
	return nil
}
