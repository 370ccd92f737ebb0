package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/authguard/internal/metrics"
	"github.com/pribylovaa/authguard/internal/models"
	logctx "github.com/pribylovaa/authguard/internal/pkg/log"
	"github.com/pribylovaa/authguard/internal/storage"
)

// Виды ресурсов демонстрационных приложений.
const (
	KindTodos  = "todos"
	KindOrders = "orders"
	KindPosts  = "posts"
)

const maxTitleLen = 200

// ResourcePolicy - кто может обращаться к ресурсу вида Kind и кто видит чужие строки.
type ResourcePolicy struct {
	Kind       string
	Accepted   []models.Role
	Privileged []models.Role
}

// DefaultPolicies - политики todos (список дел), orders (магазин) и posts (доска обсуждений).
func DefaultPolicies() []ResourcePolicy {
	return []ResourcePolicy{
		{
			Kind:       KindTodos,
			Accepted:   []models.Role{models.RoleMember, models.RoleUser, models.RoleAdmin},
			Privileged: []models.Role{models.RoleAdmin},
		},
		{
			Kind:       KindOrders,
			Accepted:   []models.Role{models.RoleCustomer, models.RoleSeller, models.RoleAdmin},
			Privileged: []models.Role{models.RoleAdmin},
		},
		{
			Kind:       KindPosts,
			Accepted:   []models.Role{models.RoleMember, models.RoleModerator, models.RoleAdmin},
			Privileged: []models.Role{models.RoleModerator, models.RoleAdmin},
		},
	}
}

// Resources применяет одинаковую проверку владения ко всем видам ресурсов.
type Resources struct {
	stores   map[string]storage.ResourceStorage
	policies map[string]ResourcePolicy
	order    []string
	opts     options
}

// NewResources связывает политики с хранилищами. Политика без хранилища
// (например, posts без MongoDB) пропускается.
func NewResources(policies []ResourcePolicy, stores map[string]storage.ResourceStorage, opts ...Option) *Resources {
	r := &Resources{
		stores:   make(map[string]storage.ResourceStorage, len(stores)),
		policies: make(map[string]ResourcePolicy, len(policies)),
		opts:     buildOptions(opts),
	}

	for _, p := range policies {
		st, ok := stores[p.Kind]
		if !ok || st == nil {
			continue
		}

		if _, dup := r.policies[p.Kind]; !dup {
			r.order = append(r.order, p.Kind)
		}

		r.stores[p.Kind] = st
		r.policies[p.Kind] = p
	}

	return r
}

// Policies возвращает активные политики в порядке регистрации.
func (r *Resources) Policies() []ResourcePolicy {
	out := make([]ResourcePolicy, 0, len(r.order))
	for _, kind := range r.order {
		out = append(out, r.policies[kind])
	}

	return out
}

func (r *Resources) resolve(ac models.AuthContext, kind string) (ResourcePolicy, storage.ResourceStorage, error) {
	p, ok := r.policies[kind]
	if !ok {
		return ResourcePolicy{}, nil, ErrNotFound
	}

	if !ac.Role.In(p.Accepted) {
		return ResourcePolicy{}, nil, ErrForbidden
	}

	return p, r.stores[kind], nil
}

func (r *Resources) load(ctx context.Context, ac models.AuthContext, kind, id string) (*models.OwnedResource, ResourcePolicy, storage.ResourceStorage, error) {
	p, st, err := r.resolve(ac, kind)
	if err != nil {
		return nil, ResourcePolicy{}, nil, err
	}

	res, err := st.Resource(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ResourcePolicy{}, nil, ErrNotFound
		}

		return nil, ResourcePolicy{}, nil, err
	}

	if err := CheckOwnership(ac, *res, p.Privileged...); err != nil {
		outcome := metrics.OutcomeForbidden
		if errors.Is(err, ErrNotFound) {
			outcome = metrics.OutcomeNotFound
		}
		r.opts.metrics.Decision("ownership", outcome)

		logctx.From(ctx).Debug("ownership_denied",
			slog.String("kind", kind),
			slog.String("id", id),
			slog.String("principal_id", ac.PrincipalID),
			slog.String("err", err.Error()),
		)
		return nil, ResourcePolicy{}, nil, err
	}

	r.opts.metrics.Decision("ownership", metrics.OutcomeAllow)

	return res, p, st, nil
}

// Get возвращает ресурс, если он жив и принадлежит вызывающему
// (или вызывающий привилегирован).
func (r *Resources) Get(ctx context.Context, ac models.AuthContext, kind, id string) (*models.OwnedResource, error) {
	const op = "service.resources.Get"

	res, _, _, err := r.load(ctx, ac, kind, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// Delete мягко удаляет ресурс. Повторное удаление даёт ErrNotFound.
func (r *Resources) Delete(ctx context.Context, ac models.AuthContext, kind, id string) error {
	const op = "service.resources.Delete"

	_, _, st, err := r.load(ctx, ac, kind, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := st.SoftDeleteResource(ctx, id, r.opts.now().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	logctx.From(ctx).Info("resource_deleted",
		slog.String("op", op),
		slog.String("kind", kind),
		slog.String("id", id),
		slog.String("principal_id", ac.PrincipalID),
	)

	return nil
}

// Create создаёт ресурс, владельцем которого становится вызывающий.
func (r *Resources) Create(ctx context.Context, ac models.AuthContext, kind, title string) (*models.OwnedResource, error) {
	const op = "service.resources.Create"

	_, st, err := r.resolve(ac, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLen {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidArgument, ErrInvalidResource)
	}

	now := r.opts.now().UTC()
	res := &models.OwnedResource{
		Kind:      kind,
		OwnerID:   ac.PrincipalID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := st.SaveResource(ctx, res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}
