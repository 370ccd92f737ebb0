package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/storage"
	"github.com/pribylovaa/authguard/internal/token"
	"github.com/pribylovaa/authguard/mocks"
)

type refreshFixture struct {
	codec       *token.Codec
	clock       *clock
	principals  *mocks.MockPrincipalStorage
	revocations *mocks.MockRevocationStorage
	refresher   *Refresher
}

func newRefreshFixture(t *testing.T) *refreshFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &refreshFixture{
		codec:       newCodec(t),
		clock:       newClock(t0),
		principals:  mocks.NewMockPrincipalStorage(ctrl),
		revocations: mocks.NewMockRevocationStorage(ctrl),
	}
	f.refresher = NewRefresher(f.codec, NewIssuer(f.codec), f.principals, f.revocations, testStoreCfg(), WithClock(f.clock.Now))

	return f
}

func TestRefresh_OK_IndependentPair(t *testing.T) {
	t.Parallel()

	f := newRefreshFixture(t)

	raw, presented, err := f.codec.Issue("u1", models.RoleCustomer, models.KindRefresh, t0)
	require.NoError(t, err)

	f.clock.Advance(3 * time.Hour)
	refreshedAt := f.clock.Now()

	gomock.InOrder(
		f.principals.EXPECT().FindPrincipal(gomock.Any(), "u1").Return(activePrincipal("u1", models.RoleCustomer), nil),
		f.revocations.EXPECT().MarkSpent(gomock.Any(), presented.ID, presented.ExpiresAt).Return(true, nil),
	)

	pair, err := f.refresher.Refresh(context.Background(), raw)
	require.NoError(t, err)
	require.NotEqual(t, raw, pair.RefreshToken)
	require.True(t, pair.AccessExpiresAt.After(refreshedAt))
	require.Equal(t, refreshedAt.Add(time.Hour), pair.AccessExpiresAt)
	require.Equal(t, refreshedAt.Add(168*time.Hour), pair.RefreshExpiresAt)

	access, err := f.codec.Verify(pair.AccessToken, refreshedAt)
	require.NoError(t, err)
	require.Equal(t, models.KindAccess, access.Kind)
	require.Equal(t, "u1", access.PrincipalID)
	require.Equal(t, models.RoleCustomer, access.Role)

	next, err := f.codec.Verify(pair.RefreshToken, refreshedAt)
	require.NoError(t, err)
	require.Equal(t, models.KindRefresh, next.Kind)
	require.NotEqual(t, presented.ID, next.ID)
}

func TestRefresh_Replay(t *testing.T) {
	t.Parallel()

	f := newRefreshFixture(t)
	raw := issue(t, f.codec, "u1", models.RoleMember, models.KindRefresh)

	f.principals.EXPECT().FindPrincipal(gomock.Any(), "u1").Return(activePrincipal("u1", models.RoleMember), nil)
	f.revocations.EXPECT().MarkSpent(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)

	_, err := f.refresher.Refresh(context.Background(), raw)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, ErrTokenSpent)
}

func TestRefresh_RevocationStoreFailure(t *testing.T) {
	t.Parallel()

	f := newRefreshFixture(t)
	raw := issue(t, f.codec, "u1", models.RoleMember, models.KindRefresh)
	down := errors.New("redis: connection refused")

	f.principals.EXPECT().FindPrincipal(gomock.Any(), "u1").Return(activePrincipal("u1", models.RoleMember), nil)
	f.revocations.EXPECT().MarkSpent(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, down)

	_, err := f.refresher.Refresh(context.Background(), raw)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, down)
}

func TestRefresh_RejectsBeforeStoreIO(t *testing.T) {
	t.Parallel()

	f := newRefreshFixture(t)

	_, err := f.refresher.Refresh(context.Background(), "")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, ErrMissingCredential)

	_, err = f.refresher.Refresh(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, token.ErrMalformedToken)

	_, err = f.refresher.Refresh(context.Background(), issue(t, f.codec, "u1", models.RoleMember, models.KindAccess))
	require.ErrorIs(t, err, ErrUnauthorized)

	raw := issue(t, f.codec, "u1", models.RoleMember, models.KindRefresh)
	f.clock.Advance(168 * time.Hour)
	_, err = f.refresher.Refresh(context.Background(), raw)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, token.ErrExpired)
}

func TestRefresh_PrincipalGone(t *testing.T) {
	t.Parallel()

	f := newRefreshFixture(t)
	raw := issue(t, f.codec, "u1", models.RoleMember, models.KindRefresh)

	f.principals.EXPECT().FindPrincipal(gomock.Any(), "u1").Return(nil, storage.ErrNotFound)

	_, err := f.refresher.Refresh(context.Background(), raw)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRefresh_WithoutRevocationStore(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)
	principals := newMemPrincipals(activePrincipal("u1", models.RoleMember))
	r := NewRefresher(codec, NewIssuer(codec), principals, nil, testStoreCfg(), WithClock(func() time.Time { return t0 }))

	raw := issue(t, codec, "u1", models.RoleMember, models.KindRefresh)

	// Без хранилища отзыва повтор не обнаруживается.
	for i := 0; i < 2; i++ {
		_, err := r.Refresh(context.Background(), raw)
		require.NoError(t, err)
	}
}

func TestRefresh_ConcurrentReplay_SingleWinner(t *testing.T) {
	t.Parallel()

	codec := newCodec(t)
	principals := newMemPrincipals(activePrincipal("u1", models.RoleMember))
	r := NewRefresher(codec, NewIssuer(codec), principals, newMemRevocations(), testStoreCfg(), WithClock(func() time.Time { return t0 }))

	raw := issue(t, codec, "u1", models.RoleMember, models.KindRefresh)

	const workers = 16
	var (
		wg     sync.WaitGroup
		wins   atomic.Int32
		spent  atomic.Int32
		others atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := r.Refresh(context.Background(), raw)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrTokenSpent):
				spent.Add(1)
			default:
				others.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, wins.Load())
	require.EqualValues(t, workers-1, spent.Load())
	require.Zero(t, others.Load())
}
