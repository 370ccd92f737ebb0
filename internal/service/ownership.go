package service

import (
	"fmt"

	"github.com/pribylovaa/authguard/internal/models"
)

// Decision - результат проверки владения.
type Decision int

const (
	Allow Decision = iota
	DenyNotFound
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyNotFound:
		return "deny_not_found"
	case DenyForbidden:
		return "deny_forbidden"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Decide применяет правила к уже загруженной строке ресурса:
//  1. мягко удалённый ресурс не существует ни для кого, включая привилегированных;
//  2. привилегированная роль проходит без проверки владельца;
//  3. владелец проходит;
//  4. остальные получают отказ.
func Decide(ac models.AuthContext, res models.OwnedResource, privileged ...models.Role) Decision {
	if res.Deleted() {
		return DenyNotFound
	}

	if ac.Role.In(privileged) {
		return Allow
	}

	if ac.PrincipalID != "" && res.OwnerID == ac.PrincipalID {
		return Allow
	}

	return DenyForbidden
}

// CheckOwnership - Decide в виде ошибки: nil, ErrNotFound или ErrForbidden.
func CheckOwnership(ac models.AuthContext, res models.OwnedResource, privileged ...models.Role) error {
	const op = "service.ownership.CheckOwnership"

	switch Decide(ac, res, privileged...) {
	case Allow:
		return nil
	case DenyNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	default:
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}
}
