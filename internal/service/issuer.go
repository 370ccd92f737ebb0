package service

import (
	"fmt"
	"time"

	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/token"
)

// Issuer выпускает пару access/refresh. Вызывающая сторона уже
// проверила учётные данные; сам Issuer I/O не делает.
type Issuer struct {
	codec *token.Codec
}

func NewIssuer(codec *token.Codec) *Issuer {
	return &Issuer{codec: codec}
}

// Issue возвращает два независимых токена с независимыми сроками.
func (i *Issuer) Issue(principalID string, role models.Role, now time.Time) (models.TokenPair, error) {
	const op = "service.issuer.Issue"

	access, at, err := i.codec.Issue(principalID, role, models.KindAccess, now)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, rt, err := i.codec.Issue(principalID, role, models.KindRefresh, now)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  at.ExpiresAt,
		RefreshExpiresAt: rt.ExpiresAt,
	}, nil
}
