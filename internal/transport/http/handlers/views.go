package handlers

import (
	"time"

	"github.com/pribylovaa/authguard/internal/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type createResourceRequest struct {
	Title string `json:"title"`
}

type tokenPairView struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type registerResponse struct {
	PrincipalID string `json:"principal_id"`
	tokenPairView
}

type okResponse struct {
	OK bool `json:"ok"`
}

type principalView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type resourceView struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func tokenPairFromModel(p models.TokenPair) tokenPairView {
	return tokenPairView{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt.UTC(),
		RefreshExpiresAt: p.RefreshExpiresAt.UTC(),
	}
}

func principalFromModel(p *models.Principal) principalView {
	return principalView{
		ID:        p.ID,
		Email:     p.Email,
		Role:      p.Role.String(),
		Active:    p.Active,
		CreatedAt: p.CreatedAt.UTC(),
	}
}

func resourceFromModel(r *models.OwnedResource) resourceView {
	return resourceView{
		Kind:      r.Kind,
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		Title:     r.Title,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}
