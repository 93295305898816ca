package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/GarageDesk/GarageDesk/internal/common/errs"
)

// RespondError 把领域错误统一映射为 HTTP 状态码与 {"error": "..."} 响应体。
func RespondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errs.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, errs.ErrSuperseded):
		// 被新请求接替的查询：客户端应忽略该响应
		status = http.StatusConflict
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
