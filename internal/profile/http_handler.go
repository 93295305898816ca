package profile

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/GarageDesk/GarageDesk/internal/common/server"
	"github.com/GarageDesk/GarageDesk/internal/rbac"
)

// Handler 账号模块的 HTTP 接入层。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register 挂载路由。登录是免鉴权路径；账号管理由 canManageUsers 守卫。
func (h *Handler) Register(g *echo.Group) {
	manage := rbac.Require(func(p rbac.Permissions) bool { return p.CanManageUsers })

	g.POST("/auth/login", h.login)
	g.POST("/auth/register", h.selfRegister)
	g.GET("/profile", h.me)
	g.GET("/me", h.me)

	g.GET("/users", h.list, manage)
	g.POST("/users", h.create, manage)
	g.PUT("/users/:id/role", h.updateRole, manage)
	g.DELETE("/users/:id", h.remove, manage)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// me 当前登录账号 + 解析好的能力集，前端据此渲染导航与按钮。
func (h *Handler) me(c echo.Context) error {
	perms := rbac.FromEchoContext(c)
	userID, _ := c.Get(rbac.ContextKeyUserID).(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	u, err := h.svc.Get(c.Request().Context(), userID)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u, "permissions": perms})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// selfRegister 公开注册：新账号没有角色，等管理员分配。
func (h *Handler) selfRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	u, err := h.svc.SelfRegister(c.Request().Context(), RegisterInput{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func (h *Handler) create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	u, err := h.svc.Register(c.Request().Context(), RegisterInput(req))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) list(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize <= 0 {
		pageSize = 50
	}
	users, total, err := h.svc.List(c.Request().Context(), (page-1)*pageSize, pageSize)
	if err != nil {
		return server.RespondError(c, err)
	}
	if users == nil {
		users = []User{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": users, "total": total, "page": page, "page_size": pageSize})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) updateRole(c echo.Context) error {
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	u, err := h.svc.UpdateRole(c.Request().Context(), c.Param("id"), req.Role)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) remove(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return server.RespondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
