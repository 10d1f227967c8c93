package hash

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"

	"auth-service/internal/domain"
)

var (
	// ErrMismatch indica que la contraseña candidata no coincide con el hash.
	ErrMismatch = errors.New("password mismatch")
	// ErrInvalidHash indica que el hash almacenado no tiene formato PHC valido.
	ErrInvalidHash = errors.New("invalid password hash")
)

// Hasher hashea y verifica contraseñas.
type Hasher interface {
	Hash(ctx context.Context, password domain.Password) (string, error)
	Verify(ctx context.Context, encodedHash string, candidate domain.Password) error
}

// Params son los factores de trabajo de argon2id. El hash resultante
// los describe a si mismo, asi que pueden subirse sin migrar hashes.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams replica los factores usados en produccion.
func DefaultParams() Params {
	return Params{
		Memory:      15000,
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2Hasher implementa Hasher con argon2id. El trabajo es CPU-bound,
// asi que se limita la cantidad de derivaciones simultaneas con un
// semaforo para no monopolizar el scheduler que atiende requests.
type Argon2Hasher struct {
	params Params
	sem    chan struct{}
}

// NewArgon2Hasher crea un hasher con los parametros dados y hasta
// maxConcurrent derivaciones en paralelo.
func NewArgon2Hasher(params Params, maxConcurrent int) *Argon2Hasher {
	if params.SaltLength == 0 || params.KeyLength == 0 {
		params = DefaultParams()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &Argon2Hasher{
		params: params,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

func (h *Argon2Hasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Argon2Hasher) release() {
	<-h.sem
}

// Hash deriva un hash argon2id con salt aleatorio y lo codifica en
// formato PHC: $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>.
func (h *Argon2Hasher) Hash(ctx context.Context, password domain.Password) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey(
		[]byte(password.Expose()),
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify rehashea la candidata con los parametros embebidos en el hash
// almacenado y compara en tiempo constante.
func (h *Argon2Hasher) Verify(ctx context.Context, encodedHash string, candidate domain.Password) error {
	if err := h.acquire(ctx); err != nil {
		return err
	}
	defer h.release()

	salt, expected, params, err := decodeHash(encodedHash)
	if err != nil {
		return err
	}

	computed := argon2.IDKey(
		[]byte(candidate.Expose()),
		salt,
		params.Iterations,
		params.Memory,
		params.Parallelism,
		params.KeyLength,
	)

	if subtle.ConstantTimeCompare(computed, expected) != 1 {
		return ErrMismatch
	}
	return nil
}

func decodeHash(encodedHash string) ([]byte, []byte, Params, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, Params{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, Params{}, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, nil, Params{}, ErrInvalidHash
	}

	var memory, iterations uint32
	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return nil, nil, Params{}, ErrInvalidHash
	}
	if parallelism == 0 || parallelism > 255 {
		return nil, nil, Params{}, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, Params{}, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, Params{}, ErrInvalidHash
	}

	params := Params{
		Memory:      memory,
		Iterations:  iterations,
		Parallelism: uint8(parallelism),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}
	return salt, key, params, nil
}
