package workorder

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/GarageDesk/GarageDesk/internal/common/server"
	"github.com/GarageDesk/GarageDesk/internal/money"
	"github.com/GarageDesk/GarageDesk/internal/query"
	"github.com/GarageDesk/GarageDesk/internal/rbac"
)

// Handler 工单模块的 HTTP 接入层。
type Handler struct {
	svc      *Service
	exporter Exporter
	seq      *query.SequencerGroup
}

func NewHandler(svc *Service, exporter Exporter) *Handler {
	if exporter == nil {
		exporter = PlainTextExporter{}
	}
	return &Handler{svc: svc, exporter: exporter, seq: query.NewSequencerGroup()}
}

// Register 挂载路由。营收汇总单独由 canViewFinancials 守卫。
func (h *Handler) Register(g *echo.Group) {
	view := rbac.Require(func(p rbac.Permissions) bool { return p.CanViewServices })
	edit := rbac.Require(func(p rbac.Permissions) bool { return p.CanEditServices })
	fin := rbac.Require(func(p rbac.Permissions) bool { return p.CanViewFinancials })

	g.GET("/services", h.search, view)
	g.GET("/services/revenue", h.revenue, fin)
	g.GET("/services/:id", h.get, view)
	g.POST("/services", h.create, edit)
	g.PUT("/services/:id", h.update, edit)
	g.DELETE("/services/:id", h.remove, edit)
	g.GET("/services/:id/export", h.export, view)
	g.GET("/customers/:id/services", h.customerHistory, view)
	g.GET("/vehicles/:id/services", h.vehicleHistory, view)
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

// redactFinancials 没有财务权限的用户能看工单，但看不到金额：
// 金额三元组与行单价一律清零，描述保留。
func redactFinancials(rec *ServiceRecord) {
	rec.SubtotalCents = 0
	rec.VATCents = 0
	rec.TotalCents = 0
	rec.VATRateBasisPoints = 0
	for i := range rec.Lines {
		rec.Lines[i].UnitPriceCents = 0
	}
}

func (h *Handler) search(c echo.Context) error {
	p := paramsFromRequest(c)

	// 同一用户同一视图上的新请求接替仍在途的旧请求，旧结果永不触达
	// 客户端；不同用户之间互不干扰
	key := query.ViewKey(rbac.UserIDFromEchoContext(c), "services", c.Request().Header.Get("X-View-ID"))
	ctx, seq := h.seq.Begin(c.Request().Context(), key)
	defer h.seq.Finish(key, seq)

	res, err := h.svc.Search(ctx, p)
	if err != nil {
		return server.RespondError(c, err)
	}
	if h.seq.Stale(key, seq) {
		return c.NoContent(http.StatusConflict)
	}
	if !rbac.FromEchoContext(c).CanViewFinancials {
		for i := range res.Items {
			redactFinancials(&res.Items[i].ServiceRecord)
		}
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

func (h *Handler) revenue(c echo.Context) error {
	sum, err := h.svc.Revenue(c.Request().Context(), paramsFromRequest(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *Handler) get(c echo.Context) error {
	rec, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return server.RespondError(c, err)
	}
	if !rbac.FromEchoContext(c).CanViewFinancials {
		redactFinancials(rec)
	}
	return c.JSON(http.StatusOK, rec)
}

type recordRequest struct {
	CustomerID string       `json:"customer_id"`
	VehicleID  string       `json:"vehicle_id"`
	Date       string       `json:"date"`
	Lines      []money.Line `json:"lines"`
	Notes      string       `json:"notes"`
	Mileage    int64        `json:"mileage"`
}

func (r recordRequest) toInput() (CreateInput, error) {
	in := CreateInput{
		CustomerID: r.CustomerID,
		VehicleID:  r.VehicleID,
		Lines:      r.Lines,
		Notes:      r.Notes,
		Mileage:    r.Mileage,
	}
	if r.Date != "" {
		d, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return in, err
		}
		in.Date = d
	}
	return in, nil
}

func (h *Handler) create(c echo.Context) error {
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, err := req.toInput()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
	}
	rec, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) update(c echo.Context) error {
	var req recordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in, err := req.toInput()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
	}
	rec, err := h.svc.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) remove(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return server.RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) export(c echo.Context) error {
	ctx := c.Request().Context()
	inv, err := h.svc.BuildInvoice(ctx, c.Param("id"))
	if err != nil {
		return server.RespondError(c, err)
	}
	body, contentType, err := h.exporter.Export(ctx, *inv)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.Blob(http.StatusOK, contentType, body)
}

func (h *Handler) customerHistory(c echo.Context) error {
	recs, err := h.svc.CustomerHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, h.redactAll(c, recs))
}

func (h *Handler) vehicleHistory(c echo.Context) error {
	recs, err := h.svc.VehicleHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, h.redactAll(c, recs))
}

func (h *Handler) redactAll(c echo.Context, recs []ServiceRecord) []ServiceRecord {
	if rbac.FromEchoContext(c).CanViewFinancials {
		return recs
	}
	for i := range recs {
		redactFinancials(&recs[i])
	}
	return recs
}
