package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Service interface {
	SendVerification(ctx context.Context, to, name string) error
}

type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewService returns an SMTP sender, or a logging no-op when no host is set.
func NewService(cfg Config, logger *zap.Logger) Service {
	if cfg.Host == "" {
		return &noopService{logger: logger}
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *smtpService) SendVerification(ctx context.Context, to, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Verify your Health First account")
	m.SetBody("text/plain", verificationBody(name))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	s.logger.Info("verification email sent", zap.String("to", to))
	return nil
}

type noopService struct {
	logger *zap.Logger
}

func (s *noopService) SendVerification(_ context.Context, to, name string) error {
	s.logger.Info("verification email skipped, no SMTP host configured",
		zap.String("to", to),
		zap.String("name", name),
	)
	return nil
}

func verificationBody(name string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s,\n\nThanks for registering with Health First. "+
		"Please verify your email address to activate your account.\n\nHealth First", name)
}
