package models

import "time"

// Principal - любой аутентифицируемый субъект (admin, moderator, member, ...).
//
// Описание:
//   - ID - непрозрачный уникальный идентификатор;
//   - CredentialHash - хэш секрета; ядро авторизации его не интерпретирует;
//   - Active=false и DeletedAt!=nil означают, что принципал для авторизации
//     не существует, даже если он предъявляет валидный токен.
type Principal struct {
	ID             string
	Email          string
	Role           Role
	CredentialHash string
	Active         bool
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Qualifies сообщает, может ли принципал проходить авторизацию.
func (p *Principal) Qualifies() bool {
	return p != nil && p.Active && p.DeletedAt == nil
}
