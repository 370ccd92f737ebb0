package storage

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/authguard/internal/models"
)

var (
	// ErrNotFound - запись не найдена (принципал/ресурс) или ресурс уже удалён.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists - нарушение уникальности (email/id).
	ErrAlreadyExists = errors.New("already exists")
)

// PrincipalStorage выполняет операции над принципалами.
type PrincipalStorage interface {
	// FindPrincipal находит принципала по ID, включая неактивных и удалённых:
	// решение о допуске принимает вызывающая сторона.
	FindPrincipal(ctx context.Context, id string) (*models.Principal, error)
	// PrincipalByEmail находит принципала по нормализованному email.
	PrincipalByEmail(ctx context.Context, email string) (*models.Principal, error)
	// SavePrincipal создаёт нового принципала.
	SavePrincipal(ctx context.Context, p *models.Principal) error
}

// RevocationStorage хранит идентификаторы использованных refresh-токенов.
type RevocationStorage interface {
	// MarkSpent атомарно помечает токен использованным.
	// Возвращает false, если токен уже был помечен ранее.
	// Запись нужна только до expiresAt: после него токен отвергается по сроку.
	MarkSpent(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
}

// SpentSweeper удаляет просроченные записи об использованных токенах.
// Реализуется бэкендами без собственного TTL (Postgres).
type SpentSweeper interface {
	DeleteExpiredSpent(ctx context.Context, now time.Time) (int64, error)
}

// ResourceStorage - хранилище одного вида ресурсов с владельцем.
type ResourceStorage interface {
	// Resource возвращает ресурс, включая мягко удалённые (DeletedAt != nil).
	Resource(ctx context.Context, id string) (*models.OwnedResource, error)
	// SaveResource создаёт ресурс. Пустой res.ID заполняется хранилищем.
	SaveResource(ctx context.Context, res *models.OwnedResource) error
	// SoftDeleteResource проставляет deleted_at; уже удалённый или
	// отсутствующий ресурс даёт ErrNotFound.
	SoftDeleteResource(ctx context.Context, id string, now time.Time) error
}

// Pinger - проверка доступности бэкенда для /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}
