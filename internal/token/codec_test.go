package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/authguard/internal/config"
	"github.com/pribylovaa/authguard/internal/models"
)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 168 * time.Hour,
		Issuer:          "authguard",
	}
}

func newCodec(t *testing.T) *Codec {
	t.Helper()

	c, err := New(testAuthCfg())
	require.NoError(t, err)

	return c
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	cfg := testAuthCfg()
	cfg.JWTSecret = "  "
	_, err := New(cfg)
	require.Error(t, err)

	cfg = testAuthCfg()
	cfg.AccessTokenTTL = 0
	_, err = New(cfg)
	require.Error(t, err)

	cfg = testAuthCfg()
	cfg.Leeway = -time.Second
	_, err = New(cfg)
	require.Error(t, err)
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	c := newCodec(t)

	for _, kind := range []models.TokenKind{models.KindAccess, models.KindRefresh} {
		for _, role := range models.AllRoles() {
			raw, issued, err := c.Issue("p-1", role, kind, fixedNow)
			require.NoError(t, err)
			require.NotEmpty(t, issued.ID)

			got, err := c.Verify(raw, fixedNow.Add(time.Second))
			require.NoError(t, err)
			require.Equal(t, issued, got)
			require.Equal(t, "p-1", got.PrincipalID)
			require.Equal(t, role, got.Role)
			require.Equal(t, kind, got.Kind)
		}
	}
}

func TestIssue_Lifetimes(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	now := fixedNow.Add(750 * time.Millisecond)

	_, access, err := c.Issue("p-1", models.RoleMember, models.KindAccess, now)
	require.NoError(t, err)
	require.Equal(t, fixedNow, access.IssuedAt)
	require.Equal(t, fixedNow.Add(time.Hour), access.ExpiresAt)

	_, refresh, err := c.Issue("p-1", models.RoleMember, models.KindRefresh, now)
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(168*time.Hour), refresh.ExpiresAt)
	require.NotEqual(t, access.ID, refresh.ID)
}

func TestIssue_InvalidClaims(t *testing.T) {
	t.Parallel()

	c := newCodec(t)

	_, _, err := c.Issue("", models.RoleMember, models.KindAccess, fixedNow)
	require.ErrorIs(t, err, ErrInvalidClaims)

	_, _, err = c.Issue("p-1", models.Role("root"), models.KindAccess, fixedNow)
	require.ErrorIs(t, err, ErrInvalidClaims)

	_, _, err = c.Issue("p-1", models.RoleMember, models.TokenKind("id"), fixedNow)
	require.ErrorIs(t, err, ErrInvalidClaims)
}

func TestVerify_Expiry(t *testing.T) {
	t.Parallel()

	c := newCodec(t)

	raw, issued, err := c.Issue("p-1", models.RoleAdmin, models.KindAccess, fixedNow)
	require.NoError(t, err)

	_, err = c.Verify(raw, issued.ExpiresAt.Add(-time.Second))
	require.NoError(t, err)

	_, err = c.Verify(raw, issued.ExpiresAt)
	require.ErrorIs(t, err, ErrExpired)

	_, err = c.Verify(raw, issued.ExpiresAt.Add(time.Second))
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_Leeway(t *testing.T) {
	t.Parallel()

	cfg := testAuthCfg()
	cfg.Leeway = 30 * time.Second
	c, err := New(cfg)
	require.NoError(t, err)

	raw, issued, err := c.Issue("p-1", models.RoleAdmin, models.KindAccess, fixedNow)
	require.NoError(t, err)

	_, err = c.Verify(raw, issued.ExpiresAt.Add(10*time.Second))
	require.NoError(t, err)

	_, err = c.Verify(raw, issued.ExpiresAt.Add(30*time.Second))
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_TamperAnyByte(t *testing.T) {
	t.Parallel()

	c := newCodec(t)

	raw, _, err := c.Issue("p-1", models.RoleMember, models.KindAccess, fixedNow)
	require.NoError(t, err)

	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' {
			continue
		}

		b := []byte(raw)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}

		_, err := c.Verify(string(b), fixedNow)
		require.ErrorIs(t, err, ErrBadSignature, "byte %d", i)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	c := newCodec(t)

	cfg := testAuthCfg()
	cfg.JWTSecret = "another-secret"
	other, err := New(cfg)
	require.NoError(t, err)

	raw, _, err := other.Issue("p-1", models.RoleAdmin, models.KindAccess, fixedNow)
	require.NoError(t, err)

	_, err = c.Verify(raw, fixedNow)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerify_WrongAlg(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	cfg := testAuthCfg()

	claims := jwt.MapClaims{
		"sub":  "p-1",
		"role": "admin",
		"kind": "access",
		"iss":  cfg.Issuer,
		"iat":  fixedNow.Unix(),
		"exp":  fixedNow.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	_, err = c.Verify(signed, fixedNow)
	require.ErrorIs(t, err, ErrBadSignature)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.Verify(unsigned, fixedNow)
	require.Error(t, err)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	c := newCodec(t)

	for _, raw := range []string{"", "abc", "a.b", "a..c", ".b.c", "a.b.", "a.b.c.d"} {
		_, err := c.Verify(raw, fixedNow)
		require.ErrorIs(t, err, ErrMalformedToken, "input %q", raw)
	}
}

func TestVerify_ForeignClaimsRejected(t *testing.T) {
	t.Parallel()

	c := newCodec(t)
	cfg := testAuthCfg()

	sign := func(claims jwt.MapClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		require.NoError(t, err)
		return s
	}

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"jti":  "01HZY3QK7M0000000000000000",
			"sub":  "p-1",
			"role": "member",
			"kind": "access",
			"iss":  cfg.Issuer,
			"iat":  fixedNow.Unix(),
			"exp":  fixedNow.Add(time.Hour).Unix(),
		}
	}

	_, err := c.Verify(sign(base()), fixedNow)
	require.NoError(t, err)

	cases := map[string]func(jwt.MapClaims){
		"unknown role":  func(m jwt.MapClaims) { m["role"] = "root" },
		"unknown kind":  func(m jwt.MapClaims) { m["kind"] = "id" },
		"empty subject": func(m jwt.MapClaims) { m["sub"] = " " },
		"wrong issuer":  func(m jwt.MapClaims) { m["iss"] = "someone-else" },
		"no exp":        func(m jwt.MapClaims) { delete(m, "exp") },
		"no jti":        func(m jwt.MapClaims) { delete(m, "jti") },
		"exp before iat": func(m jwt.MapClaims) {
			m["iat"] = fixedNow.Add(2 * time.Hour).Unix()
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			claims := base()
			mutate(claims)

			_, err := c.Verify(sign(claims), fixedNow)
			require.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func TestVerify_SignatureCheckedBeforeClaims(t *testing.T) {
	t.Parallel()

	c := newCodec(t)

	raw, _, err := c.Issue("p-1", models.RoleMember, models.KindAccess, fixedNow)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	garbage := parts[0] + ".!!!not-base64!!!." + parts[2]

	_, err = c.Verify(garbage, fixedNow)
	require.ErrorIs(t, err, ErrBadSignature)
}
