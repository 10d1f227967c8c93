package email

import (
	"context"
	"errors"

	"auth-service/internal/domain"
)

// Sender define la interfaz para envio de correos salientes.
type Sender interface {
	Send(ctx context.Context, to domain.Email, subject, body string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _ domain.Email, _ string, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
