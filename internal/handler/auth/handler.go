package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/healthfirst/portal-api/internal/flow"
	"github.com/healthfirst/portal-api/internal/handler"
	"github.com/healthfirst/portal-api/internal/middleware"
	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/internal/session"
)

// Handler exposes one role's login/registration flow over HTTP. Each call
// answers with the flow snapshot so the client can render the current view.
type Handler struct {
	role     model.Role
	flows    *flow.Registry
	sessions *session.Manager
	drafts   Drafts
}

// Drafts holds per-session state that must not outlive a login. It may be nil.
type Drafts interface {
	Discard(sessionID string)
}

func NewHandler(role model.Role, flows *flow.Registry, sessions *session.Manager, drafts Drafts) *Handler {
	return &Handler{role: role, flows: flows, sessions: sessions, drafts: drafts}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/" + string(h.role))
	{
		g.GET("/state", h.State)
		g.POST("/login", h.Login)
		g.POST("/register", h.Register)
		g.POST("/view/registration", h.ShowRegistration)
		g.POST("/view/login", h.BackToLogin)
		g.POST("/fields/:name/edit", h.EditField)
		g.POST("/logout", h.Logout)
		g.GET("/session", h.Session)
		g.DELETE("/flow", h.Release)
	}
}

func (h *Handler) flow(c *gin.Context) (*flow.Flow, bool) {
	f, err := h.flows.Get(c.Request.Context(), middleware.SessionID(c), h.role)
	if err != nil {
		handler.Error(c, err, nil)
		return nil, false
	}
	return f, true
}

func (h *Handler) respond(c *gin.Context, snap flow.Snapshot, err error) {
	if err != nil {
		handler.Error(c, err, snap)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(snap))
}

func (h *Handler) State(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(f.Snapshot()))
}

func (h *Handler) Login(c *gin.Context) {
	var form model.LoginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		handler.BindError(c, err)
		return
	}

	f, ok := h.flow(c)
	if !ok {
		return
	}
	snap, err := f.Login(c.Request.Context(), form)
	h.respond(c, snap, err)
}

func (h *Handler) Register(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}

	var (
		snap flow.Snapshot
		err  error
	)
	switch h.role {
	case model.RolePatient:
		var form model.PatientRegistrationForm
		if err := c.ShouldBindJSON(&form); err != nil {
			handler.BindError(c, err)
			return
		}
		snap, err = f.RegisterPatient(c.Request.Context(), form)
	default:
		var form model.ProviderRegistrationForm
		if err := c.ShouldBindJSON(&form); err != nil {
			handler.BindError(c, err)
			return
		}
		snap, err = f.RegisterProvider(c.Request.Context(), form)
	}
	h.respond(c, snap, err)
}

func (h *Handler) ShowRegistration(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}
	snap, err := f.ShowRegistration()
	h.respond(c, snap, err)
}

func (h *Handler) BackToLogin(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}
	snap, err := f.BackToLogin()
	h.respond(c, snap, err)
}

func (h *Handler) EditField(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(f.EditField(c.Param("name"))))
}

func (h *Handler) Logout(c *gin.Context) {
	f, ok := h.flow(c)
	if !ok {
		return
	}
	snap, err := f.Logout(c.Request.Context())
	if err == nil && h.drafts != nil {
		h.drafts.Discard(middleware.SessionID(c))
	}
	h.respond(c, snap, err)
}

// Session reports whether this portal session is logged in for the role,
// along with the name the dashboard greets the user with.
func (h *Handler) Session(c *gin.Context) {
	sid := middleware.SessionID(c)
	state, err := h.sessions.Load(c.Request.Context(), sid, h.role)
	if err != nil {
		handler.Error(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"loggedIn":    state.LoggedIn(),
		"displayName": h.sessions.DisplayName(c.Request.Context(), sid, h.role),
	}))
}

// Release drops the flow for this session, as when the screen is closed.
func (h *Handler) Release(c *gin.Context) {
	h.flows.Release(middleware.SessionID(c), h.role)
	c.Status(http.StatusNoContent)
}
