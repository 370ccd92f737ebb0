package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/authguard/internal/models"
	logctx "github.com/pribylovaa/authguard/internal/pkg/log"
	"github.com/pribylovaa/authguard/internal/pkg/redact"
	"github.com/pribylovaa/authguard/internal/storage"
)

// Register регистрирует принципала с ролью из списка self_register_roles
// и сразу выдаёт пару токенов.
func (s *Service) Register(ctx context.Context, email, password string, role models.Role) (models.TokenPair, string, error) {
	const op = "service.auth.Register"

	normEmail, err := validateEmail(email)
	if err != nil {
		return models.TokenPair{}, "", fmt.Errorf("%s: %w: %w", op, ErrInvalidArgument, err)
	}

	if err := validatePassword(password); err != nil {
		return models.TokenPair{}, "", fmt.Errorf("%s: %w: %w", op, ErrInvalidArgument, err)
	}

	if role == "" && len(s.selfRegister) > 0 {
		role = s.selfRegister[0]
	}

	if !role.In(s.selfRegister) {
		return models.TokenPair{}, "", fmt.Errorf("%s: %w: %w", op, ErrInvalidArgument, ErrRoleNotAllowed)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return models.TokenPair{}, "", fmt.Errorf("%s: %w", op, err)
	}

	now := s.opts.now().UTC()
	p := &models.Principal{
		ID:             uuid.NewString(),
		Email:          normEmail,
		Role:           role,
		CredentialHash: hash,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.principals.SavePrincipal(ctx, p); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.TokenPair{}, "", fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return models.TokenPair{}, "", fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issuer.Issue(p.ID, p.Role, now)
	if err != nil {
		return models.TokenPair{}, "", fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("principal_registered",
		slog.String("op", op),
		slog.String("principal_id", p.ID),
		slog.String("email", redact.Email(normEmail)),
		slog.String("role", role.String()),
	)

	return pair, p.ID, nil
}

// Login выполняет вход по email+пароль. Любая неудача (нет такого email,
// неверный пароль, неактивен, удалён) даёт одну и ту же ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "service.auth.Login"

	normEmail, err := validateEmail(email)
	if err != nil || password == "" {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	p, err := s.principals.PrincipalByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Выравниваем время ответа с веткой «email существует».
			checkPassword(dummyHash(), password)
			return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(p.CredentialHash, password) || !p.Qualifies() {
		logctx.From(ctx).Info("login_rejected",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
		)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issuer.Issue(p.ID, p.Role, s.opts.now())
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// Refresh делегирует Refresher.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	return s.refresher.Refresh(ctx, refreshToken)
}

// Revoke (logout) помечает refresh-токен использованным.
// Уже использованный токен - тоже успех: ответ не раскрывает его историю.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	const op = "service.auth.Revoke"

	if s.revocations == nil {
		return fmt.Errorf("%s: %w", op, ErrRevocationUnsupported)
	}

	st, err := s.codec.Verify(refreshToken, s.opts.now())
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	if st.Kind != models.KindRefresh {
		return fmt.Errorf("%s: %w: %s token presented", op, ErrUnauthorized, st.Kind)
	}

	if _, err := s.revocations.MarkSpent(ctx, st.ID, st.ExpiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("refresh_token_revoked",
		slog.String("op", op),
		slog.String("principal_id", st.PrincipalID),
		slog.String("token_id", redact.TokenID(st.ID)),
	)

	return nil
}

// Me возвращает текущего принципала по результату Guard.
func (s *Service) Me(ctx context.Context, ac models.AuthContext) (*models.Principal, error) {
	const op = "service.auth.Me"

	p, err := s.principals.FindPrincipal(ctx, ac.PrincipalID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !p.Qualifies() {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	return p, nil
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

func dummyHash() string {
	dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("authguard-timing-equalizer"), bcrypt.DefaultCost)
		if err == nil {
			dummy = string(h)
		}
	})

	return dummy
}

// validateEmail проверяет базовый формат email и приводит его к нижнему регистру.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrInvalidEmail
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(email), nil
}

// validatePassword: длина >= 8, хотя бы одна строчная, заглавная, цифра и спецсимвол.
func validatePassword(pw string) error {
	if pw == "" {
		return ErrEmptyPassword
	}

	if len([]rune(pw)) < 8 {
		return ErrWeakPassword
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasLower || !hasUpper || !hasDigit || !hasSpecial {
		return ErrWeakPassword
	}

	return nil
}
