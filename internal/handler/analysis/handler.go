package analysis

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/biodash/vitals-api/internal/handler"
	"github.com/biodash/vitals-api/internal/middleware"
	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/service/access"
	analysissvc "github.com/biodash/vitals-api/internal/service/analysis"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
)

type Handler struct {
	service   *analysissvc.Service
	accessSvc *access.Service
}

func NewHandler(service *analysissvc.Service, accessSvc *access.Service) *Handler {
	return &Handler{service: service, accessSvc: accessSvc}
}

// RegisterRoutes mounts the doctor-scoped analysis endpoints. The /analize
// prefix is kept for compatibility with existing clients.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/analize/blood_pressure/:patient_id", h.CardioReport)
	r.GET("/analize/blood_sugar/:patient_id", h.SugarReport)
	r.GET("/analize/warning_blood_pressure", h.CardioWarnings)
	r.GET("/analize/warning_blood_sugar", h.SugarWarnings)
}

// RegisterSelfRoutes mounts patient-scoped report mirrors.
func (h *Handler) RegisterSelfRoutes(r *gin.RouterGroup) {
	r.GET("/patient/analize/blood_pressure", h.OwnCardioReport)
	r.GET("/patient/analize/blood_sugar", h.OwnSugarReport)
}

func (h *Handler) CardioReport(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("patient_id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	report, err := h.service.CardioReport(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func (h *Handler) SugarReport(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("patient_id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	report, err := h.service.SugarReport(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func (h *Handler) CardioWarnings(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	th := model.DefaultCardioThresholds()
	var err error
	if th.Systolic, err = intQuery(c, "systolic", th.Systolic); err != nil {
		handler.RespondError(c, err)
		return
	}
	if th.Diastolic, err = intQuery(c, "diastolic", th.Diastolic); err != nil {
		handler.RespondError(c, err)
		return
	}
	if th.HeartRate, err = intQuery(c, "heart_rate", th.HeartRate); err != nil {
		handler.RespondError(c, err)
		return
	}

	window, err := parseWindow(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	warnings, err := h.service.ScanCardioWarnings(c.Request.Context(), claims.Subject, th, window)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(warnings))
}

func (h *Handler) SugarWarnings(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	threshold := model.DefaultSugarThreshold
	if s := c.Query("value"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			handler.RespondError(c, apperrors.BadRequest("value must be a positive number", err))
			return
		}
		threshold = v
	}

	window, err := parseWindow(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	warnings, err := h.service.ScanSugarWarnings(c.Request.Context(), claims.Subject, threshold, window)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(warnings))
}

func (h *Handler) OwnCardioReport(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	report, err := h.service.CardioReport(c.Request.Context(), claims.Subject)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

func (h *Handler) OwnSugarReport(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	report, err := h.service.SugarReport(c.Request.Context(), claims.Subject)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(report))
}

// parseWindow reads the scan window, one day when unspecified. An explicit
// zero window is allowed and yields an empty scan.
func parseWindow(c *gin.Context) (model.Window, error) {
	w := model.DefaultWindow()
	var err error
	if w.Days, err = intQuery(c, "days", w.Days); err != nil {
		return w, err
	}
	if w.Hours, err = intQuery(c, "hours", w.Hours); err != nil {
		return w, err
	}
	return w, nil
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	s := c.Query(name)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, apperrors.BadRequest(name+" must be a non-negative integer", err)
	}
	return v, nil
}
