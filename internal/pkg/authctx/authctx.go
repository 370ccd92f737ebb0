// Package authctx хранит результат авторизации запроса в context.Context.
package authctx

import (
	"context"

	"github.com/pribylovaa/authguard/internal/models"
)

type ctxKey struct{}

// Into кладёт AuthContext в контекст.
func Into(ctx context.Context, ac models.AuthContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// From возвращает AuthContext и признак того, что запрос прошёл Guard.
func From(ctx context.Context) (models.AuthContext, bool) {
	ac, ok := ctx.Value(ctxKey{}).(models.AuthContext)
	if !ok || ac.PrincipalID == "" {
		return models.AuthContext{}, false
	}

	return ac, true
}
