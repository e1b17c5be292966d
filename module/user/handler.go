package user

import (
	"net/http"

	"TripChat/middleware"
	"TripChat/middleware/security"
	"TripChat/module/user/service"
	"TripChat/tools/apiresp"
	"TripChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc          *service.Service
	cookieSecure bool
}

func NewHandler(svc *service.Service, cookieSecure bool) *Handler {
	return &Handler{svc: svc, cookieSecure: cookieSecure}
}

// AuthRoutes mounts /api/auth.
func (h *Handler) AuthRoutes(r *middleware.Router) {
	r.POST("/register", h.Register, middleware.RouteOpt{})
	r.POST("/login", h.Login, middleware.RouteOpt{})
	r.POST("/logout", h.Logout, middleware.RouteOpt{})
	r.PUT("/update", h.Update, middleware.RouteOpt{IsAuth: true})
	r.GET("/check", h.Check, middleware.RouteOpt{IsAuth: true})
}

// SidebarRoutes mounts the user list next to the message API.
func (h *Handler) SidebarRoutes(r *middleware.Router) {
	r.GET("/users", h.Sidebar, middleware.RouteOpt{IsAuth: true})
}

func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	u, token, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	h.setToken(c, token)
	c.JSON(http.StatusCreated, gin.H{"message": "user created", "user": u.Public()})
}

func (h *Handler) Login(c *gin.Context) {
	var req service.LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	u, token, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	h.setToken(c, token)
	c.JSON(http.StatusOK, gin.H{"message": "logged in", "user": u.Public()})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(security.CookieToken, "", -1, "/", "", h.cookieSecure, true)
	apiresp.Message(c, http.StatusOK, "logged out")
}

func (h *Handler) Update(c *gin.Context) {
	var req service.UpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	u, err := h.svc.Update(c.Request.Context(), security.UserID(c), req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, u)
}

func (h *Handler) Check(c *gin.Context) {
	u, err := h.svc.Get(c.Request.Context(), security.UserID(c))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, u)
}

func (h *Handler) Sidebar(c *gin.Context) {
	users, err := h.svc.Sidebar(c.Request.Context(), security.UserID(c))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, users)
}

func (h *Handler) setToken(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(security.CookieToken, token, int(h.svc.TokenTTL().Seconds()), "/", "", h.cookieSecure, true)
}
