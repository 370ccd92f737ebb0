package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/authguard/internal/models"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	deletedAt := t0
	live := models.OwnedResource{Kind: KindTodos, ID: "r1", OwnerID: "owner"}
	gone := live
	gone.DeletedAt = &deletedAt

	owner := models.AuthContext{PrincipalID: "owner", Role: models.RoleMember}
	stranger := models.AuthContext{PrincipalID: "stranger", Role: models.RoleMember}
	admin := models.AuthContext{PrincipalID: "root", Role: models.RoleAdmin}
	anonymous := models.AuthContext{Role: models.RoleMember}

	cases := []struct {
		name       string
		ac         models.AuthContext
		res        models.OwnedResource
		privileged []models.Role
		want       Decision
	}{
		{"owner live", owner, live, nil, Allow},
		{"owner deleted", owner, gone, nil, DenyNotFound},
		{"stranger live", stranger, live, nil, DenyForbidden},
		{"stranger deleted", stranger, gone, nil, DenyNotFound},
		{"privileged live", admin, live, []models.Role{models.RoleAdmin}, Allow},
		{"privileged deleted", admin, gone, []models.Role{models.RoleAdmin}, DenyNotFound},
		{"admin without privilege", admin, live, nil, DenyForbidden},
		{"empty principal vs empty owner", anonymous, models.OwnedResource{ID: "r2"}, nil, DenyForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Decide(tc.ac, tc.res, tc.privileged...))
		})
	}
}

func TestCheckOwnership_Errors(t *testing.T) {
	t.Parallel()

	deletedAt := t0
	res := models.OwnedResource{ID: "r1", OwnerID: "owner"}

	require.NoError(t, CheckOwnership(models.AuthContext{PrincipalID: "owner", Role: models.RoleUser}, res))
	require.ErrorIs(t, CheckOwnership(models.AuthContext{PrincipalID: "x", Role: models.RoleUser}, res), ErrForbidden)

	res.DeletedAt = &deletedAt
	err := CheckOwnership(models.AuthContext{PrincipalID: "x", Role: models.RoleUser}, res)
	require.ErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrForbidden)
}

func TestDecision_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "allow", Allow.String())
	require.Equal(t, "deny_not_found", DenyNotFound.String())
	require.Equal(t, "deny_forbidden", DenyForbidden.String())
	require.Equal(t, "decision(9)", Decision(9).String())
}
