package rbac

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
)

const (
	// ContextKeyUserID 鉴权中间件写入的用户 ID key。
	ContextKeyUserID = "user_id"
	// contextKeyPermissions 本包写入的能力集 key。
	contextKeyPermissions = "permissions"
)

// RoleFunc 按用户 ID 取角色（通常由 profile.Service 提供，带缓存与降级）。
type RoleFunc func(ctx context.Context, userID string) Role

// ResolvePermissions 每个请求解析一次能力集并写入 echo context。
// 能力集在此统一算出后显式向下传递，各 handler 不再自行拼装角色判断。
func ResolvePermissions(roleFor RoleFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleNone
			if userID, ok := c.Get(ContextKeyUserID).(string); ok && userID != "" && roleFor != nil {
				role = roleFor(c.Request().Context(), userID)
			}
			c.Set(contextKeyPermissions, Resolve(role))
			return next(c)
		}
	}
}

// UserIDFromEchoContext 取出鉴权中间件写入的用户 ID；匿名请求为空串。
func UserIDFromEchoContext(c echo.Context) string {
	id, _ := c.Get(ContextKeyUserID).(string)
	return id
}

// FromEchoContext 取出当前请求的能力集；缺失时返回最小权限。
func FromEchoContext(c echo.Context) Permissions {
	if p, ok := c.Get(contextKeyPermissions).(Permissions); ok {
		return p
	}
	return Resolve(RoleNone)
}

// Require 按单个能力开关做路由守卫。
// 绕过 UI 直接调用被拒绝的动作时返回 403，绝不静默降级为空操作。
func Require(pick func(Permissions) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !pick(FromEchoContext(c)) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": errs.ErrForbidden.Error()})
			}
			return next(c)
		}
	}
}
