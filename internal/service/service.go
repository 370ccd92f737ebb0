// service содержит ядро авторизации authguard:
// Guard (проверка предъявленного access-токена и статуса принципала),
// Issuer (выпуск пары токенов), Refresher (обмен refresh-токена на новую пару),
// CheckOwnership (владение ресурсом и мягкое удаление), а также
// регистрацию/вход/отзыв поверх хранилища принципалов.
//
// Основные аспекты:
//   - Экземпляры безопасны для конкурентного использования при условии,
//     что переданные хранилища потокобезопасны.
//   - Ошибки возвращаются как sentinel-значения ниже (errors.Is) и далее
//     маппятся транспортом на HTTP-статусы и gRPC-коды. Истинная причина
//     отказа (истёк/подделан, удалён/не найден) остаётся в цепочке для логов.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/authguard/internal/config"
	"github.com/pribylovaa/authguard/internal/metrics"
	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/storage"
	"github.com/pribylovaa/authguard/internal/token"
)

var (
	// ErrMissingCredential - токен не предъявлен. Транспорт: 401.
	ErrMissingCredential = errors.New("missing credential")

	// ErrUnauthorized - токен некорректен, подделан, истёк, не того вида
	// или уже использован. Транспорт: 401 / codes.Unauthenticated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden - личность установлена, но доступ запрещён: роль не подходит,
	// принципал неактивен/удалён/не найден, роль в токене устарела или
	// ресурс принадлежит другому. Транспорт: 403 / codes.PermissionDenied.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound - ресурс отсутствует или мягко удалён. Транспорт: 404.
	ErrNotFound = errors.New("not found")

	// ErrTokenSpent - refresh-токен уже обменян ранее. Всегда оборачивается в ErrUnauthorized.
	ErrTokenSpent = errors.New("token already spent")

	// ErrInvalidCredentials - пара email/пароль неверна (без уточнения причины). Транспорт: 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidArgument - входные данные не проходят валидацию. Транспорт: 400.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmailTaken - e-mail уже занят. Транспорт: 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrRevocationUnsupported - хранилище отзыва не сконфигурировано. Транспорт: 501.
	ErrRevocationUnsupported = errors.New("revocation is not configured")
)

// Уточнения ErrInvalidArgument.
var (
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrWeakPassword    = errors.New("password is too weak")
	ErrEmptyPassword   = errors.New("password is empty")
	ErrRoleNotAllowed  = errors.New("role is not allowed for self-registration")
	ErrInvalidResource = errors.New("invalid resource payload")
)

// Option настраивает компоненты пакета.
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *metrics.Metrics
}

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics включает учёт решений в Prometheus.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Service объединяет Guard, Issuer и Refresher с регистрацией/входом.
type Service struct {
	principals   storage.PrincipalStorage
	revocations  storage.RevocationStorage // nil, если отзыв не сконфигурирован
	codec        *token.Codec
	guard        *Guard
	issuer       *Issuer
	refresher    *Refresher
	selfRegister []models.Role
	opts         options
}

// New собирает сервис. revocations может быть nil (revocation.backend: none):
// тогда повторное использование refresh-токена не отслеживается, а Revoke
// возвращает ErrRevocationUnsupported.
func New(
	codec *token.Codec,
	principals storage.PrincipalStorage,
	revocations storage.RevocationStorage,
	authCfg config.AuthConfig,
	storeCfg config.StoreConfig,
	opts ...Option,
) (*Service, error) {
	const op = "service.New"

	roles, bad, ok := models.ParseRoles(authCfg.SelfRegisterRoles)
	if !ok {
		return nil, fmt.Errorf("%s: unknown self-register role %q", op, bad)
	}

	o := buildOptions(opts)
	issuer := NewIssuer(codec)

	return &Service{
		principals:   principals,
		revocations:  revocations,
		codec:        codec,
		guard:        NewGuard(codec, principals, storeCfg, opts...),
		issuer:       issuer,
		refresher:    NewRefresher(codec, issuer, principals, revocations, storeCfg, opts...),
		selfRegister: roles,
		opts:         o,
	}, nil
}

// Guard возвращает Guard для транспортных мидлваров/интерсепторов.
func (s *Service) Guard() *Guard { return s.guard }

// RevocationEnabled сообщает, сконфигурировано ли хранилище отзыва.
func (s *Service) RevocationEnabled() bool { return s.revocations != nil }
