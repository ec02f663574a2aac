package healthrecord

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/service/healthrecord"
	"github.com/carehospital/admin-api/pkg/httputil"
)

type Handler struct {
	service *healthrecord.Service
}

func NewHandler(service *healthrecord.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	records := r.Group("/health-records")
	{
		records.GET("", h.ListRecords)
		records.POST("", h.CreateRecord)
		records.DELETE("/:id", h.DeleteRecord)
	}
}

// ListRecords lists every record, or one patient's with ?patientId=.
func (h *Handler) ListRecords(c *gin.Context) {
	records, err := h.service.List(c.Request.Context(), c.Query("patientId"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, records)
}

func (h *Handler) CreateRecord(c *gin.Context) {
	var req model.HealthRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return
	}

	rec, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, rec)
}

func (h *Handler) DeleteRecord(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithNotice(c, http.StatusOK, "Health record deleted", nil)
}
