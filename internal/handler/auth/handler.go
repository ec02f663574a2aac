package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/service/auth"
	"github.com/carehospital/admin-api/pkg/httputil"
	"github.com/carehospital/admin-api/pkg/logger"
)

type Handler struct {
	svc *auth.Service
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		logger.FromContext(c.Request.Context()).Warn().Str("username", req.Username).Msg("admin login rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.NewErrorResponse("invalid username or password"))
		return
	case errors.Is(err, auth.ErrLoginDisabled):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, httputil.NewErrorResponse(err.Error()))
		return
	case err != nil:
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, token)
}
