package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/biodash/vitals-api/internal/handler"
	"github.com/biodash/vitals-api/internal/model"
	authsvc "github.com/biodash/vitals-api/internal/service/auth"
)

type Handler struct {
	service *authsvc.Service
}

func NewHandler(service *authsvc.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/token", h.Token)
}

// Token exchanges form-encoded credentials for a bearer token.
func (h *Handler) Token(c *gin.Context) {
	var req model.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("username and password are required"))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
