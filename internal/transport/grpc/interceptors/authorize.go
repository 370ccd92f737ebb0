package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/pkg/authctx"
	logctx "github.com/pribylovaa/authguard/internal/pkg/log"
	"github.com/pribylovaa/authguard/internal/service"
	apierrors "github.com/pribylovaa/authguard/internal/transport/http/errors"
)

// Authorizer - то, что умеет проверить предъявленный токен (service.Guard).
type Authorizer interface {
	Authorize(ctx context.Context, credential string, accepted ...models.Role) (models.AuthContext, error)
}

// Policy описывает доступ к методам сервера.
// Methods - полный метод ("/pkg.Service/Method") -> допустимые роли.
// Public - префиксы методов без авторизации (health, reflection).
// Метод, не попавший ни туда, ни туда, отклоняется с PermissionDenied.
type Policy struct {
	Methods map[string][]models.Role
	Public  []string
}

func (p Policy) resolve(method string) (roles []models.Role, public, known bool) {
	for _, prefix := range p.Public {
		if strings.HasPrefix(method, prefix) {
			return nil, true, true
		}
	}

	roles, known = p.Methods[method]

	return roles, false, known
}

// UnaryAuthorize проверяет access-токен из metadata "authorization"
// ("Bearer <token>") через Guard и кладёт AuthContext в контекст обработчика.
func UnaryAuthorize(guard Authorizer, policy Policy) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authorize(ctx, guard, policy, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(ctx, req)
	}
}

// StreamAuthorize - то же для потоковых методов.
func StreamAuthorize(guard Authorizer, policy Policy) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authorize(ss.Context(), guard, policy, info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &authorizedStream{ServerStream: ss, ctx: ctx})
	}
}

func authorize(ctx context.Context, guard Authorizer, policy Policy, method string) (context.Context, error) {
	roles, public, known := policy.resolve(method)
	if public {
		return ctx, nil
	}

	if !known {
		logctx.From(ctx).Warn("grpc_method_not_in_policy", slog.String("method", method))
		return ctx, apierrors.ToStatus(fmt.Errorf("method %s: %w", method, service.ErrForbidden))
	}

	ac, err := guard.Authorize(ctx, bearerFromMetadata(ctx), roles...)
	if err != nil {
		logctx.From(ctx).Debug("grpc_authorization_denied",
			slog.String("method", method),
			slog.String("err", err.Error()),
		)
		return ctx, apierrors.ToStatus(err)
	}

	return authctx.Into(ctx, ac), nil
}

func bearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	v := md.Get("authorization")
	if len(v) == 0 {
		return ""
	}

	scheme, token, ok := strings.Cut(strings.TrimSpace(v[0]), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

type authorizedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authorizedStream) Context() context.Context { return s.ctx }
