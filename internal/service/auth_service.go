package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"auth-service/internal/domain"
	"auth-service/internal/email"
	"auth-service/internal/repository"
)

var (
	// ErrInvalidCredentials indica input malformado (email, contraseña,
	// attempt id o codigo que no parsean).
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIncorrectCredentials indica input bien formado pero incorrecto.
	// Cubre usuario inexistente, contraseña erronea y mismatch de 2FA
	// para no permitir enumerar cuentas.
	ErrIncorrectCredentials = errors.New("incorrect credentials")
)

// LoginResult es el resultado de un login exitoso: o una sesion
// inmediata, o un desafio 2FA pendiente con su attempt id. El codigo
// nunca viaja en la respuesta, solo por email.
type LoginResult struct {
	Token          string
	TwoFactor      bool
	LoginAttemptID domain.LoginAttemptID
}

// AuthService orquesta signup, login, 2FA y revocacion de sesiones.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserStore
	twoFACodes  TwoFACodeStore
	sessions    *SessionService
	emailSender email.Sender
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserStore,
	twoFACodes TwoFACodeStore,
	sessions *SessionService,
	emailSender email.Sender,
) *AuthService {
	return &AuthService{
		logger:      logger,
		users:       users,
		twoFACodes:  twoFACodes,
		sessions:    sessions,
		emailSender: emailSender,
	}
}

// SignUp registra un usuario nuevo. El email es unico.
func (s *AuthService) SignUp(ctx context.Context, rawEmail, rawPassword string, requires2FA bool) error {
	user, err := domain.NewUser(rawEmail, rawPassword, requires2FA)
	if err != nil {
		return ErrInvalidCredentials
	}
	return s.users.Add(ctx, user)
}

// Login verifica primer factor y, segun el usuario, emite una sesion o
// deja pendiente un desafio 2FA y manda el codigo por email.
func (s *AuthService) Login(ctx context.Context, rawEmail, rawPassword string) (LoginResult, error) {
	userEmail, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	password, err := domain.ParsePassword(rawPassword)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.users.Validate(ctx, userEmail, password); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, repository.ErrInvalidUserCredentials) {
			return LoginResult{}, ErrIncorrectCredentials
		}
		return LoginResult{}, err
	}

	record, err := s.users.Get(ctx, userEmail)
	if err != nil {
		return LoginResult{}, err
	}

	if !record.Requires2FA {
		token, err := s.sessions.Issue(userEmail)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{Token: token}, nil
	}

	attemptID := domain.NewLoginAttemptID()
	code, err := domain.NewTwoFACode()
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.twoFACodes.AddCode(ctx, userEmail, attemptID, code); err != nil {
		return LoginResult{}, err
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code.Expose())
	if err := s.emailSender.Send(ctx, userEmail, "Verification code", body); err != nil {
		// El desafio ya quedo guardado; si el correo no sale, expira
		// solo por TTL y el usuario reintenta el login.
		s.logger.Warn("send two fa code failed", zap.Error(err))
		return LoginResult{}, err
	}

	return LoginResult{TwoFactor: true, LoginAttemptID: attemptID}, nil
}

// Verify2FA completa el login: exige match exacto del par pendiente,
// lo consume y recien ahi emite la sesion. Un par ya consumido o
// pisado por otro intento falla como credenciales incorrectas.
func (s *AuthService) Verify2FA(ctx context.Context, rawEmail, rawAttemptID, rawCode string) (string, error) {
	userEmail, err := domain.ParseEmail(rawEmail)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	attemptID, err := domain.ParseLoginAttemptID(rawAttemptID)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	code, err := domain.ParseTwoFACode(rawCode)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	storedAttemptID, storedCode, err := s.twoFACodes.GetCode(ctx, userEmail)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return "", ErrIncorrectCredentials
		}
		return "", err
	}
	if storedAttemptID != attemptID || storedCode != code {
		return "", ErrIncorrectCredentials
	}

	if err := s.twoFACodes.RemoveCode(ctx, userEmail); err != nil {
		return "", err
	}
	return s.sessions.Issue(userEmail)
}

// Logout valida el token presentado y lo banea por el resto de su vida.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if _, err := s.sessions.Validate(ctx, token); err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, token)
}

// VerifyToken responde si un token sigue siendo una sesion valida.
func (s *AuthService) VerifyToken(ctx context.Context, token string) error {
	_, err := s.sessions.Validate(ctx, token)
	return err
}

// DeleteAccount borra la cuenta nombrada por el claim sub del token y
// revoca el token en el mismo paso.
func (s *AuthService) DeleteAccount(ctx context.Context, token string) error {
	claims, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return err
	}
	userEmail, err := domain.ParseEmail(claims.Subject)
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.users.Delete(ctx, userEmail); err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, token)
}
