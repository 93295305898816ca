package server

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/GarageDesk/GarageDesk/internal/common/auth"
	"github.com/GarageDesk/GarageDesk/internal/common/config"
	"github.com/GarageDesk/GarageDesk/internal/common/logger"
	"github.com/GarageDesk/GarageDesk/internal/common/tracing"
	"github.com/GarageDesk/GarageDesk/internal/rbac"
)

// Recovery 防止 panic 直接把进程打崩，并记录栈信息。
func Recovery(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					if log != nil {
						log.Errorf("panic in %s %s err=%v stack=%s",
							c.Request().Method, c.Request().URL.Path, r, string(debug.Stack()))
					}
					err = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
				}
			}()
			return next(c)
		}
	}
}

// AccessLog 记录每个 HTTP 请求的耗时/状态码。
func AccessLog(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			cost := time.Since(start)

			if log != nil {
				fields := map[string]interface{}{
					"method": c.Request().Method,
					"path":   c.Request().URL.Path,
					"status": c.Response().Status,
					"cost":   cost.String(),
				}
				if err != nil {
					fields["error"] = err.Error()
					log.WithFields(fields).Warn("http request failed")
				} else {
					log.WithFields(fields).Info("http request ok")
				}
			}
			return err
		}
	}
}

// Tracing 基于 OpenTracing 的 server 中间件：从请求头提取上游 span，
// 创建 server span 并注入到请求 ctx。
func Tracing(serviceName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			span := tracing.StartSpanFromRequest(serviceName, r)
			defer span.Finish()

			ext.HTTPMethod.Set(span, r.Method)
			ext.HTTPUrl.Set(span, r.URL.Path)

			ctx := opentracing.ContextWithSpan(r.Context(), span)
			c.SetRequest(r.WithContext(ctx))

			err := next(c)
			ext.HTTPStatusCode.Set(span, uint16(c.Response().Status))
			if err != nil {
				ext.Error.Set(span, true)
			}
			return err
		}
	}
}

// isPublicPath 前缀匹配免鉴权路径（登录 / 健康检查）。
func isPublicPath(public []string, path string) bool {
	if path == "" || len(public) == 0 {
		return false
	}
	for _, p := range public {
		p = strings.TrimSpace(p)
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// JWTAuth JWT 鉴权中间件：
// - 从 `Authorization: Bearer <token>` 读取并校验 token
// - 校验通过后把用户 ID 写入 echo context，供权限解析使用
// - 身份（你是谁）在这里定；能力（你能干什么）由 rbac 中间件逐请求解析
func JWTAuth(cfg config.AuthConfig, log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled {
				return next(c)
			}
			if isPublicPath(cfg.PublicPaths, c.Request().URL.Path) {
				return next(c)
			}
			if strings.TrimSpace(cfg.JWTSecret) == "" {
				if log != nil {
					log.Warn("auth enabled but jwt_secret is empty")
				}
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "auth not configured"})
			}

			raw := strings.TrimSpace(c.Request().Header.Get("Authorization"))
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing authorization"})
			}
			tokenStr := raw
			if strings.HasPrefix(strings.ToLower(tokenStr), "bearer ") {
				tokenStr = strings.TrimSpace(tokenStr[len("bearer "):])
			}
			if tokenStr == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization"})
			}

			claims, err := auth.ParseAccessToken(cfg, tokenStr)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			c.Set(rbac.ContextKeyUserID, claims.Subject)
			return next(c)
		}
	}
}

// RequestID 给每个请求分配 ID，贯穿访问日志与错误响应。
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}
