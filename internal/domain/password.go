package domain

import "errors"

// ErrInvalidPassword indica que la contraseña no cumple el largo minimo.
var ErrInvalidPassword = errors.New("invalid password")

const minPasswordLength = 8

// Password es una contraseña validada en texto plano. Nunca se persiste
// en esta forma: siempre pasa por el hasher antes de almacenarse.
type Password struct {
	raw string
}

// ParsePassword valida el largo minimo de 8 bytes. No hay reglas de
// complejidad adicionales.
func ParsePassword(raw string) (Password, error) {
	if len(raw) < minPasswordLength {
		return Password{}, ErrInvalidPassword
	}
	return Password{raw: raw}, nil
}

// Expose devuelve el valor crudo. Es el unico punto de acceso.
func (p Password) Expose() string {
	return p.raw
}

func (p Password) String() string {
	return "[REDACTED]"
}
