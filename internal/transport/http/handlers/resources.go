package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/authguard/internal/pkg/authctx"
	"github.com/pribylovaa/authguard/internal/service"
	apierrors "github.com/pribylovaa/authguard/internal/transport/http/errors"
)

// Обработчики ресурсов привязаны к виду при регистрации маршрута
// и требуют middleware.Authorize перед собой.

func (h *Handlers) GetResource(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := authctx.From(r.Context())
		if !ok {
			apierrors.WriteError(w, r, fmt.Errorf("handlers.GetResource: %w", service.ErrMissingCredential))
			return
		}

		res, err := h.Resources.Get(r.Context(), ac, kind, chi.URLParam(r, "id"))
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, resourceFromModel(res))
	}
}

func (h *Handlers) DeleteResource(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := authctx.From(r.Context())
		if !ok {
			apierrors.WriteError(w, r, fmt.Errorf("handlers.DeleteResource: %w", service.ErrMissingCredential))
			return
		}

		if err := h.Resources.Delete(r.Context(), ac, kind, chi.URLParam(r, "id")); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handlers) CreateResource(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := authctx.From(r.Context())
		if !ok {
			apierrors.WriteError(w, r, fmt.Errorf("handlers.CreateResource: %w", service.ErrMissingCredential))
			return
		}

		var in createResourceRequest
		if err := decodeStrict(w, r, &in); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		res, err := h.Resources.Create(r.Context(), ac, kind, in.Title)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, resourceFromModel(res))
	}
}
