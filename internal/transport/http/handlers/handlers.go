// handlers - REST-обработчики authguard поверх service.Service и service.Resources.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pribylovaa/authguard/internal/models"
	"github.com/pribylovaa/authguard/internal/service"
)

// maxBodyBytes - предел тела запроса.
const maxBodyBytes = 1 << 20

// AuthService - операции с учётными данными и токенами.
type AuthService interface {
	Register(ctx context.Context, email, password string, role models.Role) (models.TokenPair, string, error)
	Login(ctx context.Context, email, password string) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, ac models.AuthContext) (*models.Principal, error)
}

// ResourceService - защищённые операции над ресурсами с владельцем.
type ResourceService interface {
	Get(ctx context.Context, ac models.AuthContext, kind, id string) (*models.OwnedResource, error)
	Delete(ctx context.Context, ac models.AuthContext, kind, id string) error
	Create(ctx context.Context, ac models.AuthContext, kind, title string) (*models.OwnedResource, error)
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	Auth      AuthService
	Resources ResourceService
}

func New(auth AuthService, resources ResourceService) *Handlers {
	return &Handlers{Auth: auth, Resources: resources}
}

var errBadBody = fmt.Errorf("%w: malformed request body", service.ErrInvalidArgument)

// writeJSON - единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict - строгий JSON-декодер: неизвестные поля, лишние данные
// после объекта и тело больше maxBodyBytes дают ErrInvalidArgument.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(value); err != nil {
		return errBadBody
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errBadBody
	}

	return nil
}
