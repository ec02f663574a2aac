package appointment

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/repository"
	"github.com/carehospital/admin-api/internal/service/appointment"
	"github.com/carehospital/admin-api/pkg/httputil"
)

// NotFoundNotice is returned when a status action names an unknown appointment.
const NotFoundNotice = "Appointment not found"

type Handler struct {
	service *appointment.Service
	watcher *appointment.Watcher
}

// NewHandler builds the appointment endpoints. Without a watcher the
// stream endpoint is not mounted.
func NewHandler(service *appointment.Service, watcher *appointment.Watcher) *Handler {
	return &Handler{service: service, watcher: watcher}
}

// RegisterRoutes mounts booking on public and the admin workflow on admin.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.POST("/appointments", h.BookAppointment)

	appointments := admin.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/stats", h.GetStats)
		if h.watcher != nil {
			appointments.GET("/stream", h.StreamAppointments)
		}
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.PATCH("/:id", h.UpdateAppointment)
	}
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return
	}

	apt, err := h.service.Book(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, apt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	var filter model.AppointmentFilters
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.BindError(c, err)
		return
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, items)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, stats)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	apt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if apt == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, httputil.NewErrorResponse(NotFoundNotice))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

// UpdateStatus answers with the composed message, the hand-off link and the
// notice the admin UI shows. A failed hand-off keeps the new status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req model.UpdateAppointmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return
	}

	result, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	if result == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, httputil.NewErrorResponse(NotFoundNotice))
		return
	}

	httputil.RespondWithNotice(c, http.StatusOK, result.Notice, result)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return
	}

	apt, err := h.service.UpdateDetails(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if apt == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, httputil.NewErrorResponse(NotFoundNotice))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

// StreamAppointments pushes the admin view's snapshot as server-sent events:
// the current list first, then every refreshed list until the client leaves.
func (h *Handler) StreamAppointments(c *gin.Context) {
	ctx := c.Request.Context()
	updates := h.watcher.Subscribe(ctx)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("appointments", h.watcher.Current())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case items, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("appointments", items)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appointment.ErrInvalidStatus), errors.Is(err, appointment.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, httputil.NewErrorResponse(err.Error()))
	case errors.Is(err, appointment.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, httputil.NewErrorResponse(err.Error()))
	case errors.Is(err, repository.ErrVersionConflict):
		c.AbortWithStatusJSON(http.StatusConflict, httputil.NewErrorResponse("appointments were changed concurrently, please retry"))
	default:
		httputil.RespondWithError(c, err)
	}
}
