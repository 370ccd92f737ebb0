package models

import "time"

// OwnedResource - проекция любой строки хранилища, у которой есть внешний ключ
// владельца и необязательная метка мягкого удаления.
type OwnedResource struct {
	Kind      string
	ID        string
	OwnerID   string
	Title     string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deleted сообщает, помечен ли ресурс как удалённый.
func (r *OwnedResource) Deleted() bool {
	return r.DeletedAt != nil
}
