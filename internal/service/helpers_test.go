package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/authguard/internal/config"
	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/storage"
	"github.com/pribylovaa/authguard/internal/token"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:         "unit-secret",
		AccessTokenTTL:    time.Hour,
		RefreshTokenTTL:   168 * time.Hour,
		Issuer:            "authguard",
		SelfRegisterRoles: []string{"member", "customer"},
	}
}

func testStoreCfg() config.StoreConfig {
	return config.StoreConfig{LookupTimeout: time.Second, LookupRetries: 2}
}

func newCodec(t *testing.T) *token.Codec {
	t.Helper()

	c, err := token.New(testAuthCfg())
	require.NoError(t, err)

	return c
}

// clock - управляемое время для тестов.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(at time.Time) *clock { return &clock{now: at} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func activePrincipal(id string, role models.Role) *models.Principal {
	return &models.Principal{ID: id, Email: id + "@example.com", Role: role, Active: true, CreatedAt: t0, UpdatedAt: t0}
}

// memPrincipals - потокобезопасное in-memory хранилище принципалов для сценарных тестов.
type memPrincipals struct {
	mu   sync.Mutex
	byID map[string]models.Principal
}

func newMemPrincipals(ps ...*models.Principal) *memPrincipals {
	m := &memPrincipals{byID: map[string]models.Principal{}}
	for _, p := range ps {
		m.byID[p.ID] = *p
	}

	return m
}

func (m *memPrincipals) FindPrincipal(_ context.Context, id string) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return &p, nil
}

func (m *memPrincipals) PrincipalByEmail(_ context.Context, email string) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.byID {
		if p.Email == email {
			cp := p
			return &cp, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (m *memPrincipals) SavePrincipal(_ context.Context, p *models.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.byID {
		if existing.Email == p.Email {
			return storage.ErrAlreadyExists
		}
	}

	m.byID[p.ID] = *p

	return nil
}

func (m *memPrincipals) update(id string, fn func(p *models.Principal)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.byID[id]
	fn(&p)
	m.byID[id] = p
}

// memRevocations - in-memory RevocationStorage с атомарным MarkSpent.
type memRevocations struct {
	mu    sync.Mutex
	spent map[string]time.Time
}

func newMemRevocations() *memRevocations {
	return &memRevocations{spent: map[string]time.Time{}}
}

func (m *memRevocations) MarkSpent(_ context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.spent[tokenID]; ok {
		return false, nil
	}

	m.spent[tokenID] = expiresAt

	return true, nil
}
