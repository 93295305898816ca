package report

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/GarageDesk/GarageDesk/internal/common/server"
	"github.com/GarageDesk/GarageDesk/internal/rbac"
)

// Handler 报表模块的 HTTP 接入层。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register 挂载路由。报表全部由 canViewFinancials 守卫。
func (h *Handler) Register(g *echo.Group) {
	fin := rbac.Require(func(p rbac.Permissions) bool { return p.CanViewFinancials })

	g.GET("/reports/summary", h.summary, fin)
	g.GET("/reports/monthly", h.monthly, fin)
}

func (h *Handler) summary(c echo.Context) error {
	sum, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) monthly(c echo.Context) error {
	buckets, err := h.svc.MonthlyBreakdown(c.Request().Context())
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, buckets)
}
