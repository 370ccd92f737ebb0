package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/storage"
)

// Таблицы ресурсов с колонкой owner_id.
const (
	TableTodos  = "todos"
	TableOrders = "orders"
)

// ResourceTable - ResourceStorage поверх одной таблицы ресурсов.
type ResourceTable struct {
	db    *Storage
	table string
}

// Resources возвращает хранилище ресурсов для таблицы todos или orders.
func (s *Storage) Resources(table string) (*ResourceTable, error) {
	const op = "storage.postgres.Resources"

	switch table {
	case TableTodos, TableOrders:
		return &ResourceTable{db: s, table: table}, nil
	default:
		return nil, fmt.Errorf("%s: unknown resource table %q", op, table)
	}
}

// Resource возвращает строку ресурса вместе с deleted_at.
func (r *ResourceTable) Resource(ctx context.Context, id string) (*models.OwnedResource, error) {
	const op = "storage.postgres.Resource"

	// Имя таблицы берётся только из закрытого списка в Resources.
	query := `
		SELECT id, owner_id, title, deleted_at, created_at, updated_at
		FROM ` + r.table + `
		WHERE id = $1
	`

	res := models.OwnedResource{Kind: r.table}
	err := r.db.db.QueryRow(ctx, query, id).Scan(
		&res.ID,
		&res.OwnerID,
		&res.Title,
		&res.DeletedAt,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &res, nil
}

// SaveResource создаёт строку ресурса.
func (r *ResourceTable) SaveResource(ctx context.Context, res *models.OwnedResource) error {
	const op = "storage.postgres.SaveResource"

	if res.ID == "" {
		res.ID = uuid.NewString()
	}

	query := `
		INSERT INTO ` + r.table + `(id, owner_id, title, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.db.Exec(ctx, query,
		res.ID,
		res.OwnerID,
		res.Title,
		res.DeletedAt,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SoftDeleteResource проставляет deleted_at только живой строке.
func (r *ResourceTable) SoftDeleteResource(ctx context.Context, id string, now time.Time) error {
	const op = "storage.postgres.SoftDeleteResource"

	query := `
		UPDATE ` + r.table + `
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.db.db.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

var _ storage.ResourceStorage = (*ResourceTable)(nil)
