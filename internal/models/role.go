// Package models содержит доменные сущности authguard: принципалов, роли,
// сессионные токены и абстрактные записи ресурсов с владельцем.
package models

import "strings"

// Role - дискриминатор роли принципала. Набор значений закрыт.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
	RoleGuest     Role = "guest"
	RoleSeller    Role = "seller"
	RoleCustomer  Role = "customer"
	RoleUser      Role = "user"
)

var allRoles = []Role{
	RoleAdmin,
	RoleModerator,
	RoleMember,
	RoleGuest,
	RoleSeller,
	RoleCustomer,
	RoleUser,
}

// AllRoles возвращает копию полного перечня ролей.
// Используется там, где операция допускает любого аутентифицированного принципала.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Valid сообщает, входит ли роль в закрытое перечисление.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}

	return false
}

// In сообщает, содержится ли роль в наборе roles.
func (r Role) In(roles []Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}

	return false
}

func (r Role) String() string { return string(r) }

// ParseRole нормализует строку (trim + lower) и проверяет её по перечислению.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", false
	}

	return r, true
}

// ParseRoles разбирает список строк; первая неизвестная роль возвращается как bad.
func ParseRoles(in []string) (roles []Role, bad string, ok bool) {
	roles = make([]Role, 0, len(in))
	for _, s := range in {
		r, valid := ParseRole(s)
		if !valid {
			return nil, s, false
		}
		roles = append(roles, r)
	}

	return roles, "", true
}
