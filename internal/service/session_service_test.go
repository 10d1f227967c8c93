package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionService_IssueAndValidate(t *testing.T) {
	svc := NewSessionService("secret", NewMemoryBannedTokenStore())
	ctx := context.Background()
	email := mustEmail(t, "hey@test.com")

	token, err := svc.Issue(email)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected jwt shaped token, got %q", token)
	}

	claims, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "hey@test.com" {
		t.Fatalf("unexpected sub claim: %q", claims.Subject)
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(time.Now().UTC().Add(9*time.Minute)) {
		t.Fatalf("expected exp around 10 minutes out")
	}
}

func TestSessionService_RejectsMalformedToken(t *testing.T) {
	svc := NewSessionService("secret", NewMemoryBannedTokenStore())
	if _, err := svc.Validate(context.Background(), "invalid_token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := svc.Validate(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestSessionService_RejectsWrongSecret(t *testing.T) {
	issuer := NewSessionService("secret", NewMemoryBannedTokenStore())
	validator := NewSessionService("other-secret", NewMemoryBannedTokenStore())

	token, err := issuer.Issue(mustEmail(t, "hey@test.com"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := validator.Validate(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestSessionService_RejectsExpiredToken(t *testing.T) {
	svc := NewSessionService("secret", NewMemoryBannedTokenStore())

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "hey@test.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(-time.Minute)),
	})
	token, err := expired.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Validate(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestSessionService_RejectsBannedToken(t *testing.T) {
	banned := NewMemoryBannedTokenStore()
	svc := NewSessionService("secret", banned)
	ctx := context.Background()

	token, err := svc.Issue(mustEmail(t, "hey@test.com"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Validate(ctx, token); err != nil {
		t.Fatalf("validate before revoke: %v", err)
	}

	if err := svc.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.Validate(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after revoke, got %v", err)
	}
}

func TestSessionService_RejectsEmptySecret(t *testing.T) {
	svc := NewSessionService("", NewMemoryBannedTokenStore())
	if _, err := svc.Issue(mustEmail(t, "hey@test.com")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on empty secret, got %v", err)
	}
}

func TestSessionService_Cookie(t *testing.T) {
	svc := NewSessionService("secret", NewMemoryBannedTokenStore())

	cookie := svc.Cookie("token-value")
	if cookie.Name != SessionCookieName {
		t.Fatalf("unexpected cookie name %q", cookie.Name)
	}
	if cookie.Value != "token-value" || cookie.Path != "/" {
		t.Fatalf("unexpected cookie shape: %+v", cookie)
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected http-only SameSite=Lax cookie")
	}

	cleared := svc.ClearCookie()
	if cleared.Value != "" || cleared.MaxAge != -1 {
		t.Fatalf("expected clearing cookie, got %+v", cleared)
	}
}
