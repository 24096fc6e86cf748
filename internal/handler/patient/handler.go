package patient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/biodash/vitals-api/internal/handler"
	"github.com/biodash/vitals-api/internal/middleware"
	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/service/access"
	patientsvc "github.com/biodash/vitals-api/internal/service/patient"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Handler struct {
	service   *patientsvc.Service
	accessSvc *access.Service
}

func NewHandler(service *patientsvc.Service, accessSvc *access.Service) *Handler {
	return &Handler{service: service, accessSvc: accessSvc}
}

// RegisterRoutes mounts the doctor-scoped roster endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/patients", h.Create)
	r.GET("/patients", h.List)
	r.GET("/patients/:id", h.Get)
	r.PATCH("/patients/:id", h.Update)
	r.DELETE("/patients/:id", h.Delete)
}

// RegisterSelfRoutes mounts the patient-scoped self endpoints.
func (h *Handler) RegisterSelfRoutes(r *gin.RouterGroup) {
	r.GET("/patient", h.GetSelf)
	r.PATCH("/patient", h.UpdateSelf)
}

func (h *Handler) Create(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}

	confirmAttach := c.Query("is_exist") == "true"
	result, err := h.service.Create(c.Request.Context(), claims.Subject, &req, confirmAttach)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) List(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	q, err := parseQuery(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	list, err := h.service.List(c.Request.Context(), claims.Subject, q)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) Get(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	out, err := h.service.Get(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(out))
}

func (h *Handler) Update(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	patientID := c.Param("id")
	if err := h.accessSvc.AuthorizeDoctorForPatient(c.Request.Context(), claims, patientID); err != nil {
		handler.RespondError(c, err)
		return
	}

	var patch model.PatientPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}

	if err := h.service.Update(c.Request.Context(), patientID, &patch); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// Delete removes the patient from the caller's roster; the record itself is
// only deleted when no other roster still references it.
func (h *Handler) Delete(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.RequireScope(claims, model.ScopeDoctor); err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.service.Unlink(c.Request.Context(), claims.Subject, c.Param("id")); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) GetSelf(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
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

// UpdateSelf applies a patch to the authenticated patient's own record.
// Identity stays doctor-managed: a patient may change their password and
// profile details but never their id or first_name.
func (h *Handler) UpdateSelf(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if err := h.accessSvc.AuthorizePatientSelf(claims, ""); err != nil {
		handler.RespondError(c, err)
		return
	}

	var patch model.PatientPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}
	if patch.ID.Present() {
		handler.RespondError(c, apperrors.Validation("id may not be changed", nil))
		return
	}
	if patch.FirstName.Present() {
		handler.RespondError(c, apperrors.Validation("first_name may not be changed", nil))
		return
	}

	if err := h.service.Update(c.Request.Context(), claims.Subject, &patch); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// parseQuery assembles the roster listing parameters. Filter and sort fields
// are validated against the known set before they reach SQL.
func parseQuery(c *gin.Context) (*model.PatientQuery, error) {
	q := &model.PatientQuery{
		Order: model.OrderAsc,
		Limit: defaultListLimit,
	}

	if s := c.Query("filter_by"); s != "" {
		field, err := model.ParsePatientField(s)
		if err != nil {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		q.FilterBy = field
		q.Value = c.Query("value")

		if s := c.Query("min"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, apperrors.BadRequest("min must be numeric", err)
			}
			q.RangeMin = &v
		}
		if s := c.Query("max"); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, apperrors.BadRequest("max must be numeric", err)
			}
			q.RangeMax = &v
		}
		if s := c.Query("date_min"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, apperrors.BadRequest("date_min must be RFC 3339", err)
			}
			q.DateMin = &t
		}
		if s := c.Query("date_max"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return nil, apperrors.BadRequest("date_max must be RFC 3339", err)
			}
			q.DateMax = &t
		}
	}

	if s := c.Query("order_by"); s != "" {
		field, err := model.ParsePatientField(s)
		if err != nil {
			return nil, apperrors.BadRequest(err.Error(), err)
		}
		q.OrderBy = field
		if c.Query("order") == string(model.OrderDesc) {
			q.Order = model.OrderDesc
		}
	}

	if s := c.Query("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			return nil, apperrors.BadRequest("limit must be a positive integer", err)
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		q.Limit = limit
	}
	if s := c.Query("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			return nil, apperrors.BadRequest("offset must be a non-negative integer", err)
		}
		q.Offset = offset
	}

	return q, nil
}
