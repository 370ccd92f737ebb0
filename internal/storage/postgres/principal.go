package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/storage"
)

const principalColumns = `id, email, role, credential_hash, active, deleted_at, created_at, updated_at`

// SavePrincipal создает нового принципала в БД.
func (s *Storage) SavePrincipal(ctx context.Context, p *models.Principal) error {
	const op = "storage.postgres.SavePrincipal"

	query := `
		INSERT INTO principals(` + principalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		p.ID,
		p.Email,
		string(p.Role),
		p.CredentialHash,
		p.Active,
		p.DeletedAt,
		p.CreatedAt,
		p.UpdatedAt,
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

// FindPrincipal находит принципала по ID.
func (s *Storage) FindPrincipal(ctx context.Context, id string) (*models.Principal, error) {
	const op = "storage.postgres.FindPrincipal"

	query := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1`

	p, err := scanPrincipal(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// PrincipalByEmail находит принципала по email (CITEXT, регистр не важен).
func (s *Storage) PrincipalByEmail(ctx context.Context, email string) (*models.Principal, error) {
	const op = "storage.postgres.PrincipalByEmail"

	query := `SELECT ` + principalColumns + ` FROM principals WHERE email = $1`

	p, err := scanPrincipal(s.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func scanPrincipal(row pgx.Row) (*models.Principal, error) {
	var (
		p    models.Principal
		role string
	)

	err := row.Scan(
		&p.ID,
		&p.Email,
		&role,
		&p.CredentialHash,
		&p.Active,
		&p.DeletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, err
	}

	p.Role = models.Role(role)

	return &p, nil
}
