package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/authguard/internal/config"
	"github.com/pribylovaa/authguard/internal/metrics"
	"github.com/pribylovaa/authguard/internal/models"
	logctx "github.com/pribylovaa/authguard/internal/pkg/log"
	"github.com/pribylovaa/authguard/internal/storage"
	"github.com/pribylovaa/authguard/internal/token"
)

// Guard проверяет предъявленный access-токен на каждом защищённом запросе.
type Guard struct {
	codec   *token.Codec
	lookup  *principalLookup
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewGuard создаёт Guard.
func NewGuard(codec *token.Codec, principals storage.PrincipalStorage, cfg config.StoreConfig, opts ...Option) *Guard {
	o := buildOptions(opts)

	return &Guard{
		codec:   codec,
		lookup:  newPrincipalLookup(principals, cfg, o.metrics),
		metrics: o.metrics,
		now:     o.now,
	}
}

// Authorize устанавливает личность и права вызывающего.
//
// Шаги выполняются строго по порядку:
//  1. пустой credential -> ErrMissingCredential;
//  2. ошибка проверки токена -> ErrUnauthorized;
//  3. вид токена не access -> ErrUnauthorized;
//  4. роль не входит в accepted -> ErrForbidden (пустой accepted не пускает никого,
//     "любая роль" задаётся явно через models.AllRoles());
//  5. принципал не найден, неактивен, удалён, сменил роль или хранилище
//     недоступно -> ErrForbidden;
//  6. AuthContext{PrincipalID, Role}.
//
// До шага 5 обращений к хранилищу нет.
func (g *Guard) Authorize(ctx context.Context, credential string, accepted ...models.Role) (models.AuthContext, error) {
	const op = "service.guard.Authorize"

	log := logctx.From(ctx)

	if strings.TrimSpace(credential) == "" {
		g.metrics.Decision("guard", metrics.OutcomeMissing)
		return models.AuthContext{}, fmt.Errorf("%s: %w", op, ErrMissingCredential)
	}

	st, err := g.codec.Verify(credential, g.now())
	if err != nil {
		g.metrics.Decision("guard", metrics.OutcomeUnauthorized)
		log.Debug("authorization_denied", slog.String("op", op), slog.String("err", err.Error()))
		return models.AuthContext{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	if st.Kind != models.KindAccess {
		g.metrics.Decision("guard", metrics.OutcomeUnauthorized)
		log.Debug("authorization_denied", slog.String("op", op), slog.String("reason", "wrong_token_kind"))
		return models.AuthContext{}, fmt.Errorf("%s: %w: %s token presented", op, ErrUnauthorized, st.Kind)
	}

	if !st.Role.In(accepted) {
		g.metrics.Decision("guard", metrics.OutcomeForbidden)
		log.Debug("authorization_denied",
			slog.String("op", op),
			slog.String("reason", "role_not_accepted"),
			slog.String("role", st.Role.String()),
		)
		return models.AuthContext{}, fmt.Errorf("%s: %w: role %q not accepted", op, ErrForbidden, st.Role)
	}

	if err := g.lookup.check(ctx, st); err != nil {
		g.metrics.Decision("guard", metrics.OutcomeForbidden)
		log.Warn("authorization_denied",
			slog.String("op", op),
			slog.String("principal_id", st.PrincipalID),
			slog.String("err", err.Error()),
		)
		return models.AuthContext{}, fmt.Errorf("%s: %w: %w", op, ErrForbidden, err)
	}

	g.metrics.Decision("guard", metrics.OutcomeAllow)

	return models.AuthContext{PrincipalID: st.PrincipalID, Role: st.Role}, nil
}
