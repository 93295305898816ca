package customer

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/GarageDesk/GarageDesk/internal/common/server"
	"github.com/GarageDesk/GarageDesk/internal/query"
	"github.com/GarageDesk/GarageDesk/internal/rbac"
	"github.com/GarageDesk/GarageDesk/internal/vehicle"
)

// Handler 客户模块的 HTTP 接入层。
type Handler struct {
	svc *Service
	seq *query.SequencerGroup
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, seq: query.NewSequencerGroup()}
}

// Register 挂载路由。查看与编辑分别由 canViewCustomers / canEditCustomers 守卫。
func (h *Handler) Register(g *echo.Group) {
	view := rbac.Require(func(p rbac.Permissions) bool { return p.CanViewCustomers })
	edit := rbac.Require(func(p rbac.Permissions) bool { return p.CanEditCustomers })

	g.GET("/customers", h.list, view)
	g.GET("/customers/stats", h.stats, view)
	g.GET("/customers/:id", h.get, view)
	g.POST("/customers", h.create, edit)
	g.PUT("/customers/:id", h.update, edit)
	g.DELETE("/customers/:id", h.remove, edit)
	g.POST("/customers/:id/vehicles", h.addVehicle, edit)
	g.DELETE("/vehicles/:id", h.removeVehicle, edit)
}

func paramsFromRequest(c echo.Context) query.Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	return query.Params{
		Term:     c.QueryParam("term"),
		Field:    query.ParseSearchField(c.QueryParam("field")),
		Filter:   query.Filter(c.QueryParam("filter")),
		Page:     page,
		PageSize: pageSize,
	}
}

func (h *Handler) list(c echo.Context) error {
	p := paramsFromRequest(c)

	// 同一用户同一视图上的新请求接替旧请求；不同用户互不干扰
	key := query.ViewKey(rbac.UserIDFromEchoContext(c), "customers", c.Request().Header.Get("X-View-ID"))
	ctx, seq := h.seq.Begin(c.Request().Context(), key)
	defer h.seq.Finish(key, seq)

	res, err := h.svc.List(ctx, p)
	if err != nil {
		return server.RespondError(c, err)
	}
	if h.seq.Stale(key, seq) {
		return c.NoContent(http.StatusConflict)
	}
	p = p.Normalize()
	return c.JSON(http.StatusOK, echo.Map{
		"items":       res.Items,
		"total":       res.Total,
		"page":        p.Page,
		"page_size":   p.PageSize,
		"total_pages": res.TotalPages(p.PageSize),
	})
}

func (h *Handler) stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) get(c echo.Context) error {
	d, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (r customerRequest) toInput() CreateInput {
	return CreateInput{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
		Notes:   r.Notes,
	}
}

func (h *Handler) create(c echo.Context) error {
	var req customerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in := req.toInput()
	// 建档人取当前登录账号
	in.UserID = rbac.UserIDFromEchoContext(c)
	cust, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, cust)
}

func (h *Handler) update(c echo.Context) error {
	var req customerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	cust, err := h.svc.Update(c.Request().Context(), c.Param("id"), req.toInput())
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, cust)
}

func (h *Handler) remove(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return server.RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type vehicleRequest struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	LicensePlate string `json:"license_plate"`
	VIN          string `json:"vin"`
}

func (h *Handler) addVehicle(c echo.Context) error {
	var req vehicleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	v, err := h.svc.AddVehicle(c.Request().Context(), c.Param("id"), vehicle.Vehicle{
		Make:         req.Make,
		Model:        req.Model,
		Year:         req.Year,
		LicensePlate: req.LicensePlate,
		VIN:          req.VIN,
	})
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) removeVehicle(c echo.Context) error {
	if err := h.svc.RemoveVehicle(c.Request().Context(), c.Param("id")); err != nil {
		return server.RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
