package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carehospital/admin-api/internal/model"
	"github.com/carehospital/admin-api/internal/service/chat"
	"github.com/carehospital/admin-api/pkg/httputil"
)

type Handler struct {
	service *chat.Service
}

func NewHandler(service *chat.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the visitor widget on public and the inbox on admin.
func (h *Handler) RegisterRoutes(public, admin *gin.RouterGroup) {
	public.POST("/chat/sessions", h.StartSession)
	public.POST("/chat/sessions/:id/messages", h.SendMessage)

	sessions := admin.Group("/chat/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.GET("/:id", h.GetSession)
		sessions.POST("/:id/close", h.CloseSession)
	}
}

func (h *Handler) StartSession(c *gin.Context) {
	var req model.StartChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return
	}

	session, err := h.service.Start(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, session)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req model.SendChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BindError(c, err)
		return
	}

	msg, err := h.service.Send(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, msg)
}

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, sessions)
}

func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, session)
}

func (h *Handler) CloseSession(c *gin.Context) {
	session, err := h.service.CloseSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithNotice(c, http.StatusOK, "Chat session closed", session)
}
