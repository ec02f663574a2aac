package template

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/service/template"
	apperrors "github.com/carehospital/admin-api/pkg/errors"
	"github.com/carehospital/admin-api/pkg/httputil"
)

// AppointmentLookup resolves the appointment a template is rendered against.
type AppointmentLookup interface {
	Get(ctx context.Context, id string) (*model.Appointment, error)
}

// PreviewRequest names a stored appointment or carries one inline.
type PreviewRequest struct {
	AppointmentID string             `json:"appointmentId"`
	Appointment   *model.Appointment `json:"appointment"`
}

type Handler struct {
	service      *template.Service
	appointments AppointmentLookup
}

func NewHandler(service *template.Service, appointments AppointmentLookup) *Handler {
	return &Handler{service: service, appointments: appointments}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	templates := r.Group("/templates")
	{
		templates.GET("", h.ListTemplates)
		templates.POST("", h.CreateTemplate)
		templates.POST("/defaults", h.AddDefaults)
		templates.GET("/:id", h.GetTemplate)
		templates.PUT("/:id", h.UpdateTemplate)
		templates.DELETE("/:id", h.DeleteTemplate)
		templates.POST("/:id/toggle", h.ToggleTemplate)
		templates.POST("/:id/render", h.RenderTemplate)
		templates.POST("/:id/dispatch", h.DispatchTemplate)
	}
}

func (h *Handler) ListTemplates(c *gin.Context) {
	tpls, err := h.service.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, tpls)
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req model.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return
	}

	tpl, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, tpl)
}

func (h *Handler) AddDefaults(c *gin.Context) {
	tpls, err := h.service.AddDefaults(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithNotice(c, http.StatusCreated, "Default templates added", tpls)
}

func (h *Handler) GetTemplate(c *gin.Context) {
	tpl, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, tpl)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	var req model.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return
	}

	tpl, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, tpl)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithNotice(c, http.StatusOK, "Template deleted", nil)
}

func (h *Handler) ToggleTemplate(c *gin.Context) {
	tpl, err := h.service.Toggle(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, tpl)
}

func (h *Handler) RenderTemplate(c *gin.Context) {
	apt, ok := h.bindAppointment(c)
	if !ok {
		return
	}

	rendered, err := h.service.Render(c.Request.Context(), c.Param("id"), *apt)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, rendered)
}

func (h *Handler) DispatchTemplate(c *gin.Context) {
	apt, ok := h.bindAppointment(c)
	if !ok {
		return
	}

	delivery, err := h.service.Dispatch(c.Request.Context(), c.Param("id"), *apt)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithNotice(c, http.StatusOK, "Notification sent via "+string(delivery.Channel), delivery)
}

func (h *Handler) bindAppointment(c *gin.Context) (*model.Appointment, bool) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return nil, false
	}

	switch {
	case req.AppointmentID != "":
		apt, err := h.appointments.Get(c.Request.Context(), req.AppointmentID)
		if err != nil {
			httputil.RespondWithError(c, err)
			return nil, false
		}
		if apt == nil {
			httputil.RespondWithError(c, apperrors.NotFound("appointment", nil))
			return nil, false
		}
		return apt, true
	case req.Appointment != nil:
		return req.Appointment, true
	default:
		httputil.RespondWithError(c, apperrors.BadRequest("appointmentId or appointment is required", nil))
		return nil, false
	}
}
