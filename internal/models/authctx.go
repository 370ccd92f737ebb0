package models

// AuthContext - результат успешной авторизации запроса.
// Создаётся заново на каждый запрос и нигде не сохраняется.
type AuthContext struct {
	PrincipalID string
	Role        Role
}
