package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

var (
	// ErrInvalidAttemptID indica que el valor no es un UUID valido.
	ErrInvalidAttemptID = errors.New("invalid login attempt id")
	// ErrInvalidCode indica que el codigo no son exactamente 6 digitos.
	ErrInvalidCode = errors.New("invalid two fa code")
)

// LoginAttemptID es el identificador opaco de un intento de login que
// requiere segundo factor. El cliente debe devolverlo al verificar.
type LoginAttemptID struct {
	raw string
}

// NewLoginAttemptID genera un identificador fresco por intento.
func NewLoginAttemptID() LoginAttemptID {
	return LoginAttemptID{raw: uuid.NewString()}
}

// ParseLoginAttemptID valida un identificador con formato UUID.
func ParseLoginAttemptID(raw string) (LoginAttemptID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return LoginAttemptID{}, ErrInvalidAttemptID
	}
	return LoginAttemptID{raw: id.String()}, nil
}

// Expose devuelve el valor crudo.
func (id LoginAttemptID) Expose() string {
	return id.raw
}

func (id LoginAttemptID) String() string {
	return "[REDACTED]"
}

// TwoFACode es un codigo de un solo uso de exactamente 6 digitos ASCII.
type TwoFACode struct {
	raw string
}

// NewTwoFACode genera un codigo aleatorio de 6 digitos usando una
// fuente criptografica.
func NewTwoFACode() (TwoFACode, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return TwoFACode{}, err
	}
	return TwoFACode{raw: fmt.Sprintf("%06d", n.Int64())}, nil
}

// ParseTwoFACode valida que el valor sean exactamente 6 digitos.
func ParseTwoFACode(raw string) (TwoFACode, error) {
	if len(raw) != 6 {
		return TwoFACode{}, ErrInvalidCode
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return TwoFACode{}, ErrInvalidCode
		}
	}
	return TwoFACode{raw: raw}, nil
}

// Expose devuelve el valor crudo.
func (c TwoFACode) Expose() string {
	return c.raw
}

func (c TwoFACode) String() string {
	return "[REDACTED]"
}
