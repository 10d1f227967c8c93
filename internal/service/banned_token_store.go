package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenTTL es la vida util de un token de sesion. Las entradas de
// tokens baneados usan el mismo TTL: una vez que el token expiraria
// solo, el registro del baneo puede desaparecer sin riesgo.
const TokenTTL = 600 * time.Second

const bannedTokenKeyPrefix = "banned_token:"

// BannedTokenStore registra tokens revocados antes de su expiracion
// natural. IsBanned falla abierto: ante un error de backend responde
// false y deja pasar la validacion de firma.
type BannedTokenStore interface {
	Store(ctx context.Context, token string) bool
	IsBanned(ctx context.Context, token string) bool
}

type memoryBannedTokenStore struct {
	mu    sync.RWMutex
	items map[string]time.Time
}

// NewMemoryBannedTokenStore crea un store en memoria para un proceso.
func NewMemoryBannedTokenStore() BannedTokenStore {
	return &memoryBannedTokenStore{
		items: make(map[string]time.Time),
	}
}

func (s *memoryBannedTokenStore) Store(_ context.Context, token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[token] = time.Now().UTC().Add(TokenTTL)
	return true
}

func (s *memoryBannedTokenStore) IsBanned(_ context.Context, token string) bool {
	s.mu.RLock()
	exp, ok := s.items[token]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().UTC().After(exp) {
		s.mu.Lock()
		delete(s.items, token)
		s.mu.Unlock()
		return false
	}
	return true
}

type redisBannedTokenStore struct {
	client *redis.Client
}

// NewRedisBannedTokenStore crea un store respaldado en redis, visible
// para todas las replicas del servicio.
func NewRedisBannedTokenStore(client *redis.Client) BannedTokenStore {
	if client == nil {
		return nil
	}
	return &redisBannedTokenStore{client: client}
}

func (s *redisBannedTokenStore) Store(ctx context.Context, token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, bannedTokenKeyPrefix+token, true, TokenTTL).Err() == nil
}

func (s *redisBannedTokenStore) IsBanned(ctx context.Context, token string) bool {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Exists(ctx, bannedTokenKeyPrefix+token).Result()
	if err != nil {
		return false
	}
	return n > 0
}
