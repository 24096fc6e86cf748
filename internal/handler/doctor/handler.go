package doctor

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/biodash/vitals-api/internal/handler"
	"github.com/biodash/vitals-api/internal/middleware"
	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/service/access"
	doctorsvc "github.com/biodash/vitals-api/internal/service/doctor"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
)

// maxPhotoSize bounds portrait uploads.
const maxPhotoSize = 10 << 20

type Handler struct {
	service   *doctorsvc.Service
	accessSvc *access.Service
}

func NewHandler(service *doctorsvc.Service, accessSvc *access.Service) *Handler {
	return &Handler{service: service, accessSvc: accessSvc}
}

// RegisterPublicRoutes mounts the unauthenticated registration endpoint.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/doctor", h.Register)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/doctor", h.Get)
	r.PUT("/doctor", h.Update)
	r.DELETE("/doctor", h.Delete)
	r.POST("/doctor/email_verification/:code", h.Verify)
	r.GET("/doctor/email_verification", h.ResendCode)
	r.POST("/doctor/photo", h.UploadPhoto)
	r.GET("/doctor/photo", h.Photo)
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}

	out, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(out))
}

func (h *Handler) Get(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	out, err := h.service.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(out))
}

func (h *Handler) Update(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	var patch model.DoctorPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}

	out, err := h.service.Update(c.Request.Context(), claims.Subject, &patch)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(out))
}

func (h *Handler) Delete(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.Subject); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Verify(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	code, err := strconv.Atoi(c.Param("code"))
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("verification code must be numeric", err))
		return
	}

	if err := h.service.Verify(c.Request.Context(), claims.Subject, code); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ResendCode(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.ResendCode(c.Request.Context(), claims.Subject); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) UploadPhoto(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		handler.RespondError(c, apperrors.BadRequest("photo file is required", err))
		return
	}
	defer file.Close()

	if header.Size > maxPhotoSize {
		handler.RespondError(c, apperrors.BadRequest("photo exceeds the size limit", nil))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoSize))
	if err != nil {
		handler.RespondError(c, apperrors.Internal(err))
		return
	}

	if err := h.service.SetPortrait(c.Request.Context(), claims.Subject, header.Filename, data); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Photo(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	path, err := h.service.PortraitPath(c.Request.Context(), claims.Subject)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.File(path)
}
