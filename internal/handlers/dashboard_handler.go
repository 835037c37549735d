package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-order-dashboard/internal/auth"
	"github.com/imrishuroy/go-order-dashboard/internal/dashboard"
	"github.com/imrishuroy/go-order-dashboard/internal/logging"
	"github.com/imrishuroy/go-order-dashboard/internal/orders"
	"github.com/imrishuroy/go-order-dashboard/internal/validation"
	"github.com/imrishuroy/go-order-dashboard/internal/view"
)

// HandlerConfig groups dependencies for the dashboard routes.
type HandlerConfig struct {
	Service   *dashboard.Service
	Views     *view.Builder
	Templates *template.Template
	Guard     *auth.Guard
}

type dashboardHandler struct {
	svc       *dashboard.Service
	views     *view.Builder
	templates *template.Template
	validate  *validatorv10.Validate
}

// RegisterDashboardRoutes registers the guarded dashboard page and its JSON API.
func RegisterDashboardRoutes(r *gin.Engine, cfg HandlerConfig) {
	h := &dashboardHandler{
		svc:       cfg.Service,
		views:     cfg.Views,
		templates: cfg.Templates,
		validate:  validation.New(),
	}
	r.SetHTMLTemplate(cfg.Templates)

	admin := r.Group("/admin", cfg.Guard.Middleware())
	admin.GET("/dashboard", h.page)

	api := admin.Group("/api/orders")
	api.GET("", h.list)
	api.POST("/reload", h.reload)
	api.POST("/:id/toggle", h.toggle)
	api.PATCH("/:id/status", h.changeStatus)
	api.DELETE("/:id", h.delete)
}

// RegisterHealthRoutes registers the unauthenticated liveness probe.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// page mounts the dashboard: the session starts over and orders are fetched.
// A failed fetch still renders the page, with the error shown as a modal.
func (h *dashboardHandler) page(c *gin.Context) {
	out := h.svc.Mount(c.Request.Context(), auth.Subject(c))
	if out.State == nil {
		h.fail(c, http.StatusInternalServerError, "state_unavailable", out.Err)
		return
	}
	page := h.views.Page(out.State, locale(c))
	page.Notification = out.Notification
	c.HTML(http.StatusOK, view.PageTemplate, page)
}

func (h *dashboardHandler) list(c *gin.Context) {
	var q validation.ListQuery
	if err := validation.BindQueryAndValidate(c, &q, h.validate); err != nil {
		return
	}
	var filter *dashboard.Filter
	if q.Filter != nil {
		f := dashboard.Filter(*q.Filter)
		filter = &f
	}

	st, err := h.svc.SetView(c.Request.Context(), auth.Subject(c), filter, q.Search)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "state_unavailable", err)
		return
	}
	h.respond(c, http.StatusOK, st, nil, nil)
}

func (h *dashboardHandler) reload(c *gin.Context) {
	h.outcome(c, h.svc.Load(c.Request.Context(), auth.Subject(c)))
}

func (h *dashboardHandler) toggle(c *gin.Context) {
	st, err := h.svc.ToggleExpanded(c.Request.Context(), auth.Subject(c), c.Param("id"))
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "state_unavailable", err)
		return
	}
	h.respond(c, http.StatusOK, st, nil, nil)
}

func (h *dashboardHandler) changeStatus(c *gin.Context) {
	var req validation.StatusChangeRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}
	h.outcome(c, h.svc.ChangeStatus(c.Request.Context(), auth.Subject(c), c.Param("id"), orders.Status(req.Status)))
}

// delete answers 428 with the confirmation dialog unless confirm=true is set.
func (h *dashboardHandler) delete(c *gin.Context) {
	confirmed := c.Query("confirm") == "true"
	h.outcome(c, h.svc.Delete(c.Request.Context(), auth.Subject(c), c.Param("id"), dashboard.Confirmed(confirmed)))
}

func (h *dashboardHandler) outcome(c *gin.Context, out dashboard.Outcome) {
	switch {
	case errors.Is(out.Err, dashboard.ErrOrderNotLoaded):
		h.fail(c, http.StatusNotFound, "order_not_loaded", out.Err)
	case errors.Is(out.Err, dashboard.ErrInvalidStatus):
		h.fail(c, http.StatusBadRequest, "invalid_status", out.Err)
	case out.State == nil && out.Err != nil && out.Notification != nil:
		// upstream failed and the session state could not be read back
		_ = c.Error(out.Err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":        "upstream_failed",
			"detail":       out.Err.Error(),
			"notification": out.Notification,
		})
	case out.State == nil:
		h.fail(c, http.StatusInternalServerError, "state_unavailable", out.Err)
	case out.Err != nil:
		_ = c.Error(out.Err)
		h.respond(c, http.StatusBadGateway, out.State, out.Notification, gin.H{
			"error":  "upstream_failed",
			"detail": out.Err.Error(),
		})
	case out.Dialog != nil:
		h.respond(c, http.StatusPreconditionRequired, out.State, nil, gin.H{
			"error":  "confirmation_required",
			"dialog": out.Dialog,
		})
	default:
		h.respond(c, http.StatusOK, out.State, out.Notification, nil)
	}
}

// respond writes the visible rows both as data and as a rendered table.
func (h *dashboardHandler) respond(c *gin.Context, code int, st *dashboard.State, n *dashboard.Notification, extra gin.H) {
	page := h.views.Page(st, locale(c))
	table, err := view.RenderTable(h.templates, page)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, "render_failed", err)
		return
	}
	body := gin.H{"page": page, "table_html": table}
	if n != nil {
		body["notification"] = n
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}

func (h *dashboardHandler) fail(c *gin.Context, code int, errCode string, err error) {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
		_ = c.Error(err)
	}
	if code >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("request failed", zap.String("error_code", errCode), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": errCode, "detail": detail})
}

func locale(c *gin.Context) view.Locale {
	return view.MatchLocale(c.GetHeader("Accept-Language"))
}
