package postgres

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/storage"
)

// Интеграционные тесты пакета postgres:
// - поднимают PostgreSQL через testcontainers-go (postgres:16-alpine);
// - применяют все *.up.sql из ./migrations по порядку;
// - проверяют принципалов, spent_tokens и таблицы ресурсов.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

// repoRootFromThisFile - корень репозитория относительно файла тестов.
func repoRootFromThisFile() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", ".."))
}

func applyMigrations(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(repoRootFromThisFile(), "migrations", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	for _, f := range files {
		b, err := os.ReadFile(f)
		require.NoError(t, err, "read migration %s", f)

		_, err = pool.Exec(context.Background(), string(b))
		require.NoError(t, err, "apply migration %s", f)
	}
}

// startPostgres поднимает временный PostgreSQL и возвращает хранилище.
// Без GO_TEST_INTEGRATION тест пропускается.
func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	applyMigrations(t, pool)

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func seedPrincipal(t *testing.T, st *Storage, email string, role models.Role) *models.Principal {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	p := &models.Principal{
		ID:             uuid.NewString(),
		Email:          email,
		Role:           role,
		CredentialHash: "hash",
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, st.SavePrincipal(context.Background(), p))

	return p
}

func TestIntegration_Principals(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	p := seedPrincipal(t, st, "alice@example.com", models.RoleMember)

	got, err := st.FindPrincipal(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
	require.Equal(t, models.RoleMember, got.Role)
	require.True(t, got.Active)
	require.Nil(t, got.DeletedAt)
	require.WithinDuration(t, p.CreatedAt, got.CreatedAt, time.Second)

	byEmail, err := st.PrincipalByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, p.ID, byEmail.ID)

	_, err = st.FindPrincipal(ctx, uuid.NewString())
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.PrincipalByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)

	dup := *p
	dup.ID = uuid.NewString()
	dup.Email = "Alice@Example.com"
	err = st.SavePrincipal(ctx, &dup)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_Principals_ContextCanceled(t *testing.T) {
	st := startPostgres(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.FindPrincipal(ctx, uuid.NewString())
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIntegration_MarkSpent_ExactlyOnce(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	const workers = 16
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.MarkSpent(ctx, "jti-1", exp)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, wins.Load())

	ok, err := st.MarkSpent(ctx, "jti-2", exp)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIntegration_DeleteExpiredSpent(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.MarkSpent(ctx, "old", now.Add(-time.Minute))
	require.NoError(t, err)
	_, err = st.MarkSpent(ctx, "fresh", now.Add(time.Hour))
	require.NoError(t, err)

	n, err := st.DeleteExpiredSpent(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// "fresh" остаётся помеченным, "old" снова свободен.
	ok, err := st.MarkSpent(ctx, "fresh", now.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestIntegration_Resources(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	owner := seedPrincipal(t, st, "owner@example.com", models.RoleCustomer)

	_, err := st.Resources("users")
	require.Error(t, err)

	for _, table := range []string{TableTodos, TableOrders} {
		t.Run(table, func(t *testing.T) {
			rs, err := st.Resources(table)
			require.NoError(t, err)

			now := time.Now().UTC().Truncate(time.Microsecond)
			res := &models.OwnedResource{
				ID:        uuid.NewString(),
				OwnerID:   owner.ID,
				Title:     "first",
				CreatedAt: now,
				UpdatedAt: now,
			}
			require.NoError(t, rs.SaveResource(ctx, res))
			require.ErrorIs(t, rs.SaveResource(ctx, res), storage.ErrAlreadyExists)

			got, err := rs.Resource(ctx, res.ID)
			require.NoError(t, err)
			require.Equal(t, table, got.Kind)
			require.Equal(t, owner.ID, got.OwnerID)
			require.Nil(t, got.DeletedAt)

			require.NoError(t, rs.SoftDeleteResource(ctx, res.ID, now.Add(time.Minute)))

			got, err = rs.Resource(ctx, res.ID)
			require.NoError(t, err)
			require.NotNil(t, got.DeletedAt)

			// Повторное удаление и удаление несуществующего - not found.
			require.ErrorIs(t, rs.SoftDeleteResource(ctx, res.ID, now), storage.ErrNotFound)
			require.ErrorIs(t, rs.SoftDeleteResource(ctx, uuid.NewString(), now), storage.ErrNotFound)

			_, err = rs.Resource(ctx, uuid.NewString())
			require.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}
