package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"auth-service/internal/domain"
)

// SessionCookieName es el nombre de la cookie que transporta el token.
const SessionCookieName = "jwt"

var (
	// ErrInvalidToken cubre firma invalida, token malformado, expirado
	// o baneado. El caller no distingue la causa.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingToken indica que el request no trae cookie de sesion.
	ErrMissingToken = errors.New("missing token")
	// ErrRevokeFailed indica que el backend de baneos no acepto el token.
	ErrRevokeFailed = errors.New("could not revoke token")
)

// Claims es el payload firmado: {sub, exp}.
type Claims struct {
	jwt.RegisteredClaims
}

// SessionService emite, valida y revoca tokens de sesion firmados.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	banned BannedTokenStore
}

func NewSessionService(secret string, banned BannedTokenStore) *SessionService {
	if banned == nil {
		banned = NewMemoryBannedTokenStore()
	}
	return &SessionService{
		secret: []byte(secret),
		ttl:    TokenTTL,
		banned: banned,
	}
}

// Issue firma un token HS256 con sub = email y exp = ahora + 10 minutos.
func (s *SessionService) Issue(email domain.Email) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrInvalidToken
	}
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email.Expose(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate rechaza primero tokens baneados y despues verifica firma y
// expiracion. Cualquier falla colapsa en ErrInvalidToken.
func (s *SessionService) Validate(ctx context.Context, token string) (Claims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(token) == "" {
		return Claims{}, ErrInvalidToken
	}
	if s.banned.IsBanned(ctx, token) {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Revoke inserta el token crudo en el store de baneados. La entrada
// vive lo mismo que viviria el token, despues puede expirar sola.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if !s.banned.Store(ctx, token) {
		return ErrRevokeFailed
	}
	return nil
}

// Cookie envuelve el token para transporte: HTTP-only, SameSite=Lax,
// path /. Sin expiry explicito; manda el claim exp del token.
func (s *SessionService) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie devuelve una cookie que borra la de sesion en el cliente.
func (s *SessionService) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}
