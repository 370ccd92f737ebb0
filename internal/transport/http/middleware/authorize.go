package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/pkg/authctx"
	logctx "github.com/pribylovaa/authguard/internal/pkg/log"
	apierrors "github.com/pribylovaa/authguard/internal/transport/http/errors"
)

// Authorizer - то, что умеет проверить предъявленный токен (service.Guard).
type Authorizer interface {
	Authorize(ctx context.Context, credential string, accepted ...models.Role) (models.AuthContext, error)
}

// Authorize пропускает запрос дальше только с действующим access-токеном
// одной из ролей accepted. AuthContext кладётся в контекст (authctx.From),
// principal_id добавляется к request-scoped логгеру.
func Authorize(guard Authorizer, accepted ...models.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, err := guard.Authorize(r.Context(), BearerToken(r), accepted...)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := authctx.Into(r.Context(), ac)
			ctx = logctx.With(ctx, slog.String("principal_id", ac.PrincipalID))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken извлекает токен из "Authorization: Bearer <token>".
// Схема сравнивается без учёта регистра; иной заголовок даёт пустую строку.
func BearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))

	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
