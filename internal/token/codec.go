// Package token реализует кодек сессионных токенов: выпуск и проверку
// компактных подписанных строк (JWT, HS256) с идентификатором принципала,
// ролью и видом токена (access/refresh).
//
// Кодек чистый: не делает I/O, не хранит состояние запроса и безопасен для
// конкурентного использования. Секрет задаётся один раз при старте.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/pribylovaa/authguard/internal/config"
	"github.com/pribylovaa/authguard/internal/models"
)

var (
	// ErrMalformedToken - строку нельзя разобрать/декодировать или claims не проходят проверку формата.
	ErrMalformedToken = errors.New("malformed token")
	// ErrBadSignature - подпись не совпадает (или алгоритм отличается от HS256).
	ErrBadSignature = errors.New("bad signature")
	// ErrExpired - now >= exp.
	ErrExpired = errors.New("token expired")
	// ErrInvalidClaims - на выпуск переданы некорректные данные (пустой id, неизвестная роль/вид).
	ErrInvalidClaims = errors.New("invalid claims")
)

type sessionClaims struct {
	Role string `json:"role"`
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// Codec выпускает и проверяет токены одним секретом процесса.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	leeway     time.Duration
	method     *jwt.SigningMethodHMAC
}

// New создаёт кодек из конфигурации auth-секции.
func New(cfg config.AuthConfig) (*Codec, error) {
	const op = "token.codec.New"

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("%s: empty jwt secret", op)
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, fmt.Errorf("%s: token ttl must be positive", op)
	}

	if cfg.Leeway < 0 {
		return nil, fmt.Errorf("%s: negative leeway", op)
	}

	return &Codec{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		leeway:     cfg.Leeway,
		method:     jwt.SigningMethodHS256,
	}, nil
}

// TTL возвращает время жизни токена указанного вида.
func (c *Codec) TTL(kind models.TokenKind) time.Duration {
	if kind == models.KindRefresh {
		return c.refreshTTL
	}

	return c.accessTTL
}

// Issue подписывает новый токен.
// IssuedAt усечён до секунды (точность NumericDate), ExpiresAt = IssuedAt + TTL(kind).
func (c *Codec) Issue(principalID string, role models.Role, kind models.TokenKind, now time.Time) (string, models.SessionToken, error) {
	const op = "token.codec.Issue"

	principalID = strings.TrimSpace(principalID)
	if principalID == "" || !role.Valid() || !kind.Valid() {
		return "", models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrInvalidClaims)
	}

	issuedAt := now.UTC().Truncate(time.Second)
	st := models.SessionToken{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		PrincipalID: principalID,
		Role:        role,
		Kind:        kind,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(c.TTL(kind)),
	}

	claims := sessionClaims{
		Role: string(role),
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        st.ID,
			Issuer:    c.issuer,
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(st.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(st.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", models.SessionToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, st, nil
}

// Verify проверяет токен на момент now.
//
// Порядок проверок:
//  1. структура: ровно три непустых сегмента, иначе ErrMalformedToken;
//  2. HMAC по сырым байтам "header.payload" до разбора claims: любая мутация
//     байта (кроме разделителей) даёт ErrBadSignature;
//  3. claims: exp (строго now < exp + leeway) -> ErrExpired, остальное -> ErrMalformedToken.
func (c *Codec) Verify(tokenStr string, now time.Time) (models.SessionToken, error) {
	const op = "token.codec.Verify"

	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	parser := jwt.NewParser(
		jwt.WithStrictDecoding(),
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(c.issuer),
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	sig, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrBadSignature)
	}

	if err := c.method.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrBadSignature)
	}

	var claims sessionClaims
	parsed, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrBadSignature)
		default:
			return models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrMalformedToken)
		}
	}

	if !parsed.Valid {
		return models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	return claimsToToken(&claims)
}

func claimsToToken(claims *sessionClaims) (models.SessionToken, error) {
	const op = "token.codec.claimsToToken"

	role, ok := models.ParseRole(claims.Role)
	kind := models.TokenKind(claims.Kind)
	subject := strings.TrimSpace(claims.Subject)

	if !ok || !kind.Valid() || subject == "" || claims.ID == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	if !claims.ExpiresAt.Time.After(claims.IssuedAt.Time) {
		return models.SessionToken{}, fmt.Errorf("%s: %w", op, ErrMalformedToken)
	}

	return models.SessionToken{
		ID:          claims.ID,
		PrincipalID: subject,
		Role:        role,
		Kind:        kind,
		IssuedAt:    claims.IssuedAt.Time.UTC(),
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
	}, nil
}
