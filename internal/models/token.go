package models

import "time"

// TokenKind - вид сессионного токена.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// Valid сообщает, является ли вид токена известным.
func (k TokenKind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// SessionToken - разобранное содержимое выпущенного токена.
// Подпись хранится только внутри компактной строки и сюда не попадает.
type SessionToken struct {
	// ID - уникальный идентификатор токена (jti, ULID).
	ID          string
	PrincipalID string
	Role        Role
	Kind        TokenKind
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// TokenPair - пара токенов, выдаваемая при входе/регистрации/обновлении.
//
// Описание:
//   - AccessToken - короткоживущий токен для обычных операций;
//   - RefreshToken - долгоживущий токен, годный только для выпуска новой пары;
//   - *ExpiresAt - абсолютные моменты истечения (UTC).
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
