package postgres

import (
	"context"
	"fmt"
	"time"
)

// MarkSpent атомарно помечает refresh-токен использованным.
// Первый вызов для tokenID возвращает true, все последующие - false.
func (s *Storage) MarkSpent(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	const op = "storage.postgres.MarkSpent"

	query := `
		INSERT INTO spent_tokens(token_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_id) DO NOTHING
	`

	tag, err := s.db.Exec(ctx, query, tokenID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteExpiredSpent удаляет записи, чей токен уже истёк сам по себе.
func (s *Storage) DeleteExpiredSpent(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.DeleteExpiredSpent"

	query := `
		DELETE FROM spent_tokens
		WHERE expires_at <= $1
	`

	tag, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
