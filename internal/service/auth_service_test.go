package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"auth-service/internal/domain"
	"auth-service/internal/email"
	"auth-service/internal/repository"
)

type mockUserStore struct {
	users map[string]domain.UserRecord
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]domain.UserRecord)}
}

func (m *mockUserStore) Add(_ context.Context, user domain.User) error {
	key := user.Email.Expose()
	if _, ok := m.users[key]; ok {
		return repository.ErrUserAlreadyExists
	}
	m.users[key] = domain.UserRecord{
		Email:        user.Email,
		PasswordHash: "hashed:" + user.Password.Expose(),
		Requires2FA:  user.Requires2FA,
	}
	return nil
}

func (m *mockUserStore) Get(_ context.Context, userEmail domain.Email) (domain.UserRecord, error) {
	record, ok := m.users[userEmail.Expose()]
	if !ok {
		return domain.UserRecord{}, repository.ErrUserNotFound
	}
	return record, nil
}

func (m *mockUserStore) Validate(ctx context.Context, userEmail domain.Email, password domain.Password) error {
	record, err := m.Get(ctx, userEmail)
	if err != nil {
		return err
	}
	if record.PasswordHash != "hashed:"+password.Expose() {
		return repository.ErrInvalidUserCredentials
	}
	return nil
}

func (m *mockUserStore) Delete(_ context.Context, userEmail domain.Email) error {
	key := userEmail.Expose()
	if _, ok := m.users[key]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, key)
	return nil
}

type sentMail struct {
	to      domain.Email
	subject string
	body    string
}

type mockEmailSender struct {
	sent []sentMail
	err  error
}

func (m *mockEmailSender) Send(_ context.Context, to domain.Email, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

var _ email.Sender = (*mockEmailSender)(nil)

type authFixture struct {
	svc      *AuthService
	users    *mockUserStore
	codes    TwoFACodeStore
	sessions *SessionService
	mails    *mockEmailSender
}

func newAuthFixture() *authFixture {
	users := newMockUserStore()
	codes := NewMemoryTwoFACodeStore()
	sessions := NewSessionService("secret", NewMemoryBannedTokenStore())
	mails := &mockEmailSender{}
	svc := NewAuthService(zap.NewNop(), users, codes, sessions, mails)
	return &authFixture{svc: svc, users: users, codes: codes, sessions: sessions, mails: mails}
}

func TestAuthService_SignUp(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", false); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", false); !errors.Is(err, repository.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}

	if err := f.svc.SignUp(ctx, "not-an-email", "password123", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad email, got %v", err)
	}
	if err := f.svc.SignUp(ctx, "ok@test.com", "short", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for short password, got %v", err)
	}
}

func TestAuthService_LoginWithout2FA(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", false); err != nil {
		t.Fatalf("signup: %v", err)
	}

	result, err := f.svc.Login(ctx, "hey@test.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.TwoFactor {
		t.Fatalf("expected immediate session")
	}
	if result.Token == "" {
		t.Fatalf("expected session token")
	}
	if _, err := f.sessions.Validate(ctx, result.Token); err != nil {
		t.Fatalf("issued token should validate: %v", err)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", false); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := f.svc.Login(ctx, "not-an-email", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "hey@test.com", "short"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// Contraseña erronea y usuario inexistente responden igual.
	if _, err := f.svc.Login(ctx, "hey@test.com", "wrongpassword"); !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatalf("expected ErrIncorrectCredentials, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "nobody@test.com", "password123"); !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatalf("expected ErrIncorrectCredentials, got %v", err)
	}
}

func TestAuthService_LoginWith2FA(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", true); err != nil {
		t.Fatalf("signup: %v", err)
	}

	result, err := f.svc.Login(ctx, "hey@test.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.TwoFactor {
		t.Fatalf("expected pending 2fa challenge")
	}
	if result.Token != "" {
		t.Fatalf("expected no session before verification")
	}
	if result.LoginAttemptID.Expose() == "" {
		t.Fatalf("expected login attempt id")
	}

	if len(f.mails.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(f.mails.sent))
	}

	userEmail := mustEmail(t, "hey@test.com")
	storedAttemptID, storedCode, err := f.codes.GetCode(ctx, userEmail)
	if err != nil {
		t.Fatalf("get code: %v", err)
	}
	if storedAttemptID != result.LoginAttemptID {
		t.Fatalf("stored attempt id should match the response")
	}
	if !strings.Contains(f.mails.sent[0].body, storedCode.Expose()) {
		t.Fatalf("expected code in mail body")
	}
}

func TestAuthService_LoginWith2FA_EmailFailure(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	f.mails.err = errors.New("smtp down")

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", true); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := f.svc.Login(ctx, "hey@test.com", "password123"); err == nil {
		t.Fatalf("expected error when mail delivery fails")
	}
}

func TestAuthService_Verify2FA(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", true); err != nil {
		t.Fatalf("signup: %v", err)
	}
	result, err := f.svc.Login(ctx, "hey@test.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	userEmail := mustEmail(t, "hey@test.com")
	_, storedCode, err := f.codes.GetCode(ctx, userEmail)
	if err != nil {
		t.Fatalf("get code: %v", err)
	}

	token, err := f.svc.Verify2FA(ctx, "hey@test.com", result.LoginAttemptID.Expose(), storedCode.Expose())
	if err != nil {
		t.Fatalf("verify 2fa: %v", err)
	}
	if _, err := f.sessions.Validate(ctx, token); err != nil {
		t.Fatalf("issued token should validate: %v", err)
	}

	// El desafio es de un solo uso: el mismo par ya no sirve.
	if _, err := f.svc.Verify2FA(ctx, "hey@test.com", result.LoginAttemptID.Expose(), storedCode.Expose()); !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestAuthService_Verify2FA_Mismatch(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", true); err != nil {
		t.Fatalf("signup: %v", err)
	}
	result, err := f.svc.Login(ctx, "hey@test.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	userEmail := mustEmail(t, "hey@test.com")
	_, storedCode, err := f.codes.GetCode(ctx, userEmail)
	if err != nil {
		t.Fatalf("get code: %v", err)
	}

	otherAttempt := domain.NewLoginAttemptID()
	if _, err := f.svc.Verify2FA(ctx, "hey@test.com", otherAttempt.Expose(), storedCode.Expose()); !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatalf("expected attempt id mismatch to fail, got %v", err)
	}

	wrongCode := "000000"
	if wrongCode == storedCode.Expose() {
		wrongCode = "000001"
	}
	if _, err := f.svc.Verify2FA(ctx, "hey@test.com", result.LoginAttemptID.Expose(), wrongCode); !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatalf("expected code mismatch to fail, got %v", err)
	}

	// Un par valido pero malformado en el request es error de input.
	if _, err := f.svc.Verify2FA(ctx, "hey@test.com", "not-a-uuid", storedCode.Expose()); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_SecondLoginSupersedesChallenge(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", true); err != nil {
		t.Fatalf("signup: %v", err)
	}

	first, err := f.svc.Login(ctx, "hey@test.com", "password123")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	userEmail := mustEmail(t, "hey@test.com")
	_, firstCode, err := f.codes.GetCode(ctx, userEmail)
	if err != nil {
		t.Fatalf("get code: %v", err)
	}

	if _, err := f.svc.Login(ctx, "hey@test.com", "password123"); err != nil {
		t.Fatalf("second login: %v", err)
	}

	// El par del primer intento quedo pisado y debe fallar.
	if _, err := f.svc.Verify2FA(ctx, "hey@test.com", first.LoginAttemptID.Expose(), firstCode.Expose()); !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatalf("expected superseded challenge to fail, got %v", err)
	}
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", false); err != nil {
		t.Fatalf("signup: %v", err)
	}
	result, err := f.svc.Login(ctx, "hey@test.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.svc.Logout(ctx, result.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := f.svc.VerifyToken(ctx, result.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to be invalid, got %v", err)
	}
	if err := f.svc.Logout(ctx, result.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected second logout to fail, got %v", err)
	}
}

func TestAuthService_DeleteAccount(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if err := f.svc.SignUp(ctx, "hey@test.com", "password123", false); err != nil {
		t.Fatalf("signup: %v", err)
	}
	result, err := f.svc.Login(ctx, "hey@test.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := f.svc.DeleteAccount(ctx, result.Token); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	userEmail := mustEmail(t, "hey@test.com")
	if _, err := f.users.Get(ctx, userEmail); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected user to be gone, got %v", err)
	}
	// El token de la cuenta borrada queda baneado en el mismo paso.
	if err := f.svc.VerifyToken(ctx, result.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token to be revoked, got %v", err)
	}
}
