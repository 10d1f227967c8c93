package domain

import (
	"errors"
	"net/mail"
	"strings"
)

// ErrInvalidEmail indica que el valor no cumple la gramatica de un email.
var ErrInvalidEmail = errors.New("invalid email")

// Email es una direccion de correo validada. El valor crudo es privado
// para que nunca termine en logs por accidente; usar Expose para leerlo.
type Email struct {
	raw string
}

// ParseEmail valida y normaliza una direccion de correo.
func ParseEmail(raw string) (Email, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return Email{}, ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return Email{}, ErrInvalidEmail
	}
	return Email{raw: raw}, nil
}

// Expose devuelve el valor crudo. Es el unico punto de acceso.
func (e Email) Expose() string {
	return e.raw
}

func (e Email) IsZero() bool {
	return e.raw == ""
}

func (e Email) String() string {
	return "[REDACTED]"
}
