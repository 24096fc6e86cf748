package measurement

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/biodash/vitals-api/internal/handler"
	"github.com/biodash/vitals-api/internal/middleware"
	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/service/access"
	measurementsvc "github.com/biodash/vitals-api/internal/service/measurement"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
)

type Handler struct {
	service   *measurementsvc.Service
	accessSvc *access.Service
}

func NewHandler(service *measurementsvc.Service, accessSvc *access.Service) *Handler {
	return &Handler{service: service, accessSvc: accessSvc}
}

// RegisterRoutes mounts the doctor-scoped measurement endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/blood_pressure", h.AddBloodPressure)
	r.GET("/blood_pressure/:patient_id", h.ListBloodPressure)
	r.PATCH("/blood_pressure/:patient_id", h.UpdateBloodPressure)
	r.DELETE("/blood_pressure/:patient_id", h.DeleteBloodPressure)

	r.POST("/blood_sugar", h.AddBloodSugar)
	r.GET("/blood_sugar/:patient_id", h.ListBloodSugar)
	r.PATCH("/blood_sugar/:patient_id", h.UpdateBloodSugar)
	r.DELETE("/blood_sugar/:patient_id", h.DeleteBloodSugar)
}

// RegisterSelfRoutes mounts the patient-scoped mirrors that always address
// the authenticated patient's own series.
func (h *Handler) RegisterSelfRoutes(r *gin.RouterGroup) {
	r.POST("/patient/blood_pressure", h.AddOwnBloodPressure)
	r.GET("/patient/blood_pressure", h.ListOwnBloodPressure)
	r.PATCH("/patient/blood_pressure", h.UpdateOwnBloodPressure)
	r.DELETE("/patient/blood_pressure", h.DeleteOwnBloodPressure)
	r.POST("/patient/blood_sugar", h.AddOwnBloodSugar)
	r.GET("/patient/blood_sugar", h.ListOwnBloodSugar)
	r.PATCH("/patient/blood_sugar", h.UpdateOwnBloodSugar)
	r.DELETE("/patient/blood_sugar", h.DeleteOwnBloodSugar)
}

func (h *Handler) AddBloodPressure(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)

	var req model.AddBloodPressureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, req.PatientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	m, err := h.service.AddBloodPressure(c.Request.Context(), claims.Subject, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(m))
}

func (h *Handler) ListBloodPressure(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("patient_id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	readings, err := h.service.ListBloodPressure(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(readings))
}

func (h *Handler) UpdateBloodPressure(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("patient_id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	at, err := requiredTimestamp(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var patch model.BloodPressurePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}

	m, err := h.service.UpdateBloodPressure(c.Request.Context(), patientID, at, &patch)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) DeleteBloodPressure(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("patient_id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	at, err := optionalTimestamp(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.DeleteBloodPressure(c.Request.Context(), patientID, at); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) AddBloodSugar(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)

	var req model.AddBloodSugarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, req.PatientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	m, err := h.service.AddBloodSugar(c.Request.Context(), claims.Subject, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(m))
}

func (h *Handler) ListBloodSugar(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("patient_id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	readings, err := h.service.ListBloodSugar(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(readings))
}

func (h *Handler) UpdateBloodSugar(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("patient_id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	at, err := requiredTimestamp(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var patch model.BloodSugarPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}

	m, err := h.service.UpdateBloodSugar(c.Request.Context(), patientID, at, &patch)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) DeleteBloodSugar(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("patient_id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	at, err := optionalTimestamp(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.DeleteBloodSugar(c.Request.Context(), patientID, at); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) AddOwnBloodPressure(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	var req model.AddBloodPressureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}
	// Self-recorded readings always land on the subject's own series.
	req.PatientID = claims.Subject

	m, err := h.service.AddBloodPressure(c.Request.Context(), "", &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(m))
}

func (h *Handler) ListOwnBloodPressure(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	readings, err := h.service.ListBloodPressure(c.Request.Context(), claims.Subject)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(readings))
}

func (h *Handler) AddOwnBloodSugar(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	var req model.AddBloodSugarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}
	req.PatientID = claims.Subject

	m, err := h.service.AddBloodSugar(c.Request.Context(), "", &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(m))
}

func (h *Handler) ListOwnBloodSugar(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	readings, err := h.service.ListBloodSugar(c.Request.Context(), claims.Subject)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(readings))
}

func (h *Handler) UpdateOwnBloodPressure(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	at, err := requiredTimestamp(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var patch model.BloodPressurePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}

	m, err := h.service.UpdateBloodPressure(c.Request.Context(), claims.Subject, at, &patch)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) DeleteOwnBloodPressure(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	at, err := optionalTimestamp(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.DeleteBloodPressure(c.Request.Context(), claims.Subject, at); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) UpdateOwnBloodSugar(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	at, err := requiredTimestamp(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var patch model.BloodSugarPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}

	m, err := h.service.UpdateBloodSugar(c.Request.Context(), claims.Subject, at, &patch)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) DeleteOwnBloodSugar(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	at, err := optionalTimestamp(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.DeleteBloodSugar(c.Request.Context(), claims.Subject, at); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func requiredTimestamp(c *gin.Context) (time.Time, error) {
	s := c.Query("recorded_at")
	if s == "" {
		return time.Time{}, apperrors.BadRequest("recorded_at query parameter is required", nil)
	}
	at, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("recorded_at must be RFC 3339", err)
	}
	return at, nil
}

func optionalTimestamp(c *gin.Context) (*time.Time, error) {
	s := c.Query("recorded_at")
	if s == "" {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperrors.BadRequest("recorded_at must be RFC 3339", err)
	}
	return &at, nil
}
