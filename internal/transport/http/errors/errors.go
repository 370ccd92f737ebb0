// errors стандартизирует ответы об ошибках транспортного слоя authguard.
// На вход он принимает ошибку сервиса (sentinel из internal/service,
// ошибку контекста или готовый gRPC-статус), а на выход даёт:
//   - gRPC-код (Code/ToStatus) для интерсепторов;
//   - HTTP-статус и краткое безопасное message (ToHTTP/WriteError) для REST.
//
// Одна таблица обслуживает оба транспорта: сначала ошибка приводится
// к codes.Code, затем код переводится в HTTP через baseFromGRPC.
// Истинная причина отказа наружу не попадает, её видно только в логах.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/authguard/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrRateLimited - запрос отклонён ограничителем частоты. Транспорт: 429.
var ErrRateLimited = errors.New("rate limited")

// APIError - единый формат ошибки для клиентов.
// Code - короткий стабильный код для машиночитаемой обработки.
// Message - безопасное человекочитаемое описание.
// RequestID - из X-Request-Id (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Code приводит ошибку к gRPC-коду.
//
// Sentinel-ошибки сервиса проверяются раньше ошибок контекста: отказ Guard
// из-за таймаута хранилища остаётся PermissionDenied, а не DeadlineExceeded.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.Internal
	case errors.Is(err, service.ErrMissingCredential),
		errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials):
		return codes.Unauthenticated
	case errors.Is(err, service.ErrForbidden):
		return codes.PermissionDenied
	case errors.Is(err, service.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, service.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, service.ErrEmailTaken):
		return codes.AlreadyExists
	case errors.Is(err, service.ErrRevocationUnsupported):
		return codes.Unimplemented
	case errors.Is(err, ErrRateLimited):
		return codes.ResourceExhausted
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}

	if st, ok := status.FromError(err); ok {
		return st.Code()
	}

	return codes.Internal
}

// ToStatus превращает ошибку в gRPC-статус с фиксированным сообщением.
func ToStatus(err error) error {
	c := Code(err)
	_, _, msg := baseFromGRPC(c)

	return status.Error(c, msg)
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500/internal,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг.
//   - неизвестная ошибка - 500/internal (без утечки деталей).
//   - иначе код из Code() маппится через baseFromGRPC().
func ToHTTP(err error) (int, ErrorResponse) {
	httpStatus, code, msg := baseFromGRPC(Code(err))

	return httpStatus, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError - хелпер для HTTP-хендлеров и мидлваров.
// Пишет статус/тело, добавляет request_id из заголовка и
// WWW-Authenticate: Bearer для 401.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="authguard"`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// baseFromGRPC - базовый маппинг gRPC -> HTTP/код/сообщение:
//   - InvalidArgument -> 400
//   - Unauthenticated -> 401 (нет токена, токен битый/истёк/использован, неверный пароль)
//   - PermissionDenied -> 403 (роль, статус принципала, чужой ресурс)
//   - NotFound -> 404 (нет ресурса или он мягко удалён)
//   - AlreadyExists -> 409 (email занят)
//   - ResourceExhausted -> 429
//   - Canceled -> 499
//   - Unimplemented -> 501 (отзыв не сконфигурирован)
//   - Unavailable -> 503
//   - DeadlineExceeded -> 504
//   - прочее -> 500/internal
func baseFromGRPC(c codes.Code) (int, string, string) {
	switch c {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case codes.PermissionDenied:
		return http.StatusForbidden, "permission_denied", "permission denied"
	case codes.NotFound:
		return http.StatusNotFound, "not_found", "not found"
	case codes.AlreadyExists:
		return http.StatusConflict, "already_exists", "already exists"
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests, "resource_exhausted", "resource exhausted"
	case codes.Canceled:
		return StatusClientClosedRequest, "canceled", "canceled"
	case codes.Unimplemented:
		return http.StatusNotImplemented, "unimplemented", "unimplemented"
	case codes.Unavailable:
		return http.StatusServiceUnavailable, "unavailable", "service unavailable"
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
