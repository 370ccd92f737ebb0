package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pribylovaa/authguard/internal/config"
	"github.com/pribylovaa/authguard/internal/metrics"
	"github.com/pribylovaa/authguard/internal/models"
	logctx "github.com/pribylovaa/authguard/internal/pkg/log"
	"github.com/pribylovaa/authguard/internal/pkg/redact"
	"github.com/pribylovaa/authguard/internal/storage"
	"github.com/pribylovaa/authguard/internal/token"
)

// Refresher обменивает refresh-токен на новую пару.
type Refresher struct {
	codec       *token.Codec
	issuer      *Issuer
	lookup      *principalLookup
	revocations storage.RevocationStorage
	metrics     *metrics.Metrics
	now         func() time.Time
	warnOnce    sync.Once
}

// NewRefresher создаёт Refresher. revocations может быть nil.
func NewRefresher(
	codec *token.Codec,
	issuer *Issuer,
	principals storage.PrincipalStorage,
	revocations storage.RevocationStorage,
	cfg config.StoreConfig,
	opts ...Option,
) *Refresher {
	o := buildOptions(opts)

	return &Refresher{
		codec:       codec,
		issuer:      issuer,
		lookup:      newPrincipalLookup(principals, cfg, o.metrics),
		revocations: revocations,
		metrics:     o.metrics,
		now:         o.now,
	}
}

// Refresh:
//  1. проверяет токен и требует вид refresh, иначе ErrUnauthorized;
//  2. перепроверяет принципала как Guard, иначе ErrForbidden;
//  3. при наличии хранилища отзыва атомарно помечает токен использованным
//     до выпуска новой пары: повтор -> ErrUnauthorized (+ErrTokenSpent),
//     сбой хранилища -> ErrUnauthorized;
//  4. выпускает новую пару с id/ролью из проверенного токена.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "service.refresh.Refresh"

	log := logctx.From(ctx)

	if strings.TrimSpace(refreshToken) == "" {
		r.metrics.Refresh(metrics.OutcomeMissing)
		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, ErrMissingCredential)
	}

	now := r.now()

	st, err := r.codec.Verify(refreshToken, now)
	if err != nil {
		r.metrics.Refresh(metrics.OutcomeUnauthorized)
		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	if st.Kind != models.KindRefresh {
		r.metrics.Refresh(metrics.OutcomeUnauthorized)
		return models.TokenPair{}, fmt.Errorf("%s: %w: %s token presented", op, ErrUnauthorized, st.Kind)
	}

	if err := r.lookup.check(ctx, st); err != nil {
		r.metrics.Refresh(metrics.OutcomeForbidden)
		log.Warn("refresh_denied", slog.String("op", op), slog.String("principal_id", st.PrincipalID), slog.String("err", err.Error()))
		return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrForbidden, err)
	}

	if r.revocations == nil {
		r.warnOnce.Do(func() {
			log.Warn("refresh_replay_protection_disabled", slog.String("op", op))
		})
	} else {
		fresh, err := r.revocations.MarkSpent(ctx, st.ID, st.ExpiresAt)
		if err != nil {
			r.metrics.Refresh(metrics.OutcomeStoreFailures)
			log.Error("refresh_mark_spent_failed", slog.String("op", op), slog.String("err", err.Error()))
			return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		}

		if !fresh {
			r.metrics.Refresh(metrics.OutcomeReplay)
			log.Warn("refresh_replay_detected",
				slog.String("op", op),
				slog.String("principal_id", st.PrincipalID),
				slog.String("token_id", redact.TokenID(st.ID)),
			)
			return models.TokenPair{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, ErrTokenSpent)
		}
	}

	pair, err := r.issuer.Issue(st.PrincipalID, st.Role, now)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	r.metrics.Refresh(metrics.OutcomeAllow)

	return pair, nil
}
