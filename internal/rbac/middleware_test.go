package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestResolvePermissionsSetsCapabilities(t *testing.T) {
	c, _ := newTestContext(t)
	c.Set(ContextKeyUserID, "u-1")

	mw := ResolvePermissions(func(ctx context.Context, userID string) Role {
		require.Equal(t, "u-1", userID)
		return RoleSecretary
	})

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		p := FromEchoContext(c)
		assert.Equal(t, RoleSecretary, p.Role)
		assert.True(t, p.CanViewCustomers)
		assert.False(t, p.CanEditCustomers)
		return c.NoContent(http.StatusOK)
	})(c)

	require.NoError(t, err)
	assert.True(t, called)
}

func TestResolvePermissionsWithoutIdentityIsLeastPrivileged(t *testing.T) {
	c, _ := newTestContext(t)

	roleFnCalled := false
	mw := ResolvePermissions(func(ctx context.Context, userID string) Role {
		roleFnCalled = true
		return RoleAdmin
	})

	err := mw(func(c echo.Context) error {
		p := FromEchoContext(c)
		assert.Equal(t, RoleNone, p.Role)
		assert.False(t, p.CanViewDashboard)
		return nil
	})(c)

	require.NoError(t, err)
	assert.False(t, roleFnCalled, "role lookup must not run without an identity")
}

func TestRequireRejectsWithForbidden(t *testing.T) {
	c, rec := newTestContext(t)
	c.Set(contextKeyPermissions, Resolve(RoleMechanic))

	called := false
	err := Require(func(p Permissions) bool { return p.CanViewFinancials })(func(c echo.Context) error {
		called = true
		return nil
	})(c)

	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAllows(t *testing.T) {
	c, _ := newTestContext(t)
	c.Set(contextKeyPermissions, Resolve(RoleAdmin))

	called := false
	err := Require(func(p Permissions) bool { return p.CanManageUsers })(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)

	require.NoError(t, err)
	assert.True(t, called)
}

func TestFromEchoContextDefault(t *testing.T) {
	c, _ := newTestContext(t)
	p := FromEchoContext(c)
	assert.Equal(t, Resolve(RoleNone), p)
}
