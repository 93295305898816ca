package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GarageDesk/GarageDesk/internal/common/auth"
	"github.com/GarageDesk/GarageDesk/internal/common/config"
	"github.com/GarageDesk/GarageDesk/internal/common/errs"
	"github.com/GarageDesk/GarageDesk/internal/rbac"
)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		Enabled:     true,
		JWTSecret:   "test-secret",
		Issuer:      "garagedesk",
		Audience:    "garagedesk-api",
		TokenTTL:    config.Duration(time.Hour),
		PublicPaths: []string{"/healthz", "/api/v1/auth/login"},
	}
}

func doRequest(t *testing.T, cfg config.AuthConfig, path, authorization string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	e.Use(JWTAuth(cfg, nil))

	var gotUserID string
	handler := func(c echo.Context) error {
		gotUserID, _ = c.Get(rbac.ContextKeyUserID).(string)
		return c.NoContent(http.StatusOK)
	}
	e.GET("/healthz", handler)
	e.GET("/api/v1/customers", handler)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, gotUserID
}

func TestJWTAuthAllowsPublicPaths(t *testing.T) {
	rec, _ := doRequest(t, testAuthCfg(), "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	rec, _ := doRequest(t, testAuthCfg(), "/api/v1/customers", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	cfg := testAuthCfg()
	token, _, err := auth.GenerateAccessToken(cfg, "u-1", "admin", time.Hour)
	require.NoError(t, err)

	rec, userID := doRequest(t, cfg, "/api/v1/customers", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", userID)
}

func TestJWTAuthRejectsGarbageToken(t *testing.T) {
	rec, _ := doRequest(t, testAuthCfg(), "/api/v1/customers", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthDisabledPassesThrough(t *testing.T) {
	cfg := testAuthCfg()
	cfg.Enabled = false
	rec, _ := doRequest(t, cfg, "/api/v1/customers", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.Invalidf("bad"), http.StatusBadRequest},
		{errs.ErrUnauthorized, http.StatusUnauthorized},
		{errs.ErrForbidden, http.StatusForbidden},
		{errs.ErrTimeout, http.StatusGatewayTimeout},
		{errs.ErrSuperseded, http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, RespondError(c, tc.err))
		assert.Equal(t, tc.code, rec.Code, "err=%v", tc.err)
	}
}

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	e := echo.New()
	e.Use(Recovery(nil))
	e.GET("/boom", func(c echo.Context) error { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
