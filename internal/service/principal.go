package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pribylovaa/authguard/internal/config"
	"github.com/pribylovaa/authguard/internal/metrics"
	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/storage"
)

var (
	errPrincipalDisqualified = errors.New("principal inactive or deleted")
	errRoleMismatch          = errors.New("token role differs from stored role")
)

// principalLookup - повторная проверка принципала по токену (Guard и Refresher).
// Поиск ограничен LookupTimeout; транзиентные ошибки хранилища повторяются
// LookupRetries раз с экспоненциальной задержкой.
type principalLookup struct {
	principals storage.PrincipalStorage
	timeout    time.Duration
	retries    int
	metrics    *metrics.Metrics
}

func newPrincipalLookup(principals storage.PrincipalStorage, cfg config.StoreConfig, m *metrics.Metrics) *principalLookup {
	return &principalLookup{
		principals: principals,
		timeout:    cfg.LookupTimeout,
		retries:    cfg.LookupRetries,
		metrics:    m,
	}
}

// check возвращает nil, только если принципал существует, активен,
// не удалён и его текущая роль совпадает с ролью в токене.
func (l *principalLookup) check(ctx context.Context, st models.SessionToken) error {
	const op = "service.principal.check"

	p, err := l.find(ctx, st.PrincipalID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !p.Qualifies() {
		return fmt.Errorf("%s: %w", op, errPrincipalDisqualified)
	}

	if p.Role != st.Role {
		return fmt.Errorf("%s: %w", op, errRoleMismatch)
	}

	return nil
}

func (l *principalLookup) find(ctx context.Context, id string) (*models.Principal, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0

	var policy backoff.BackOff = backoff.WithMaxRetries(b, uint64(max(l.retries, 0)))
	policy = backoff.WithContext(policy, ctx)

	var p *models.Principal
	operation := func() error {
		found, err := l.principals.FindPrincipal(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}

			return err
		}

		if found == nil {
			return backoff.Permanent(storage.ErrNotFound)
		}

		p = found
		return nil
	}

	notify := func(error, time.Duration) { l.metrics.LookupRetry() }

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}

	return p, nil
}
