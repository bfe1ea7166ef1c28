package prescription

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/prescription-api/internal/handler"
	"github.com/jwalitptl/prescription-api/internal/model"
	"github.com/jwalitptl/prescription-api/internal/service/prescription"
)

type Handler struct {
	service prescription.PrescriptionService
	now     func() time.Time
}

func NewHandler(service prescription.PrescriptionService, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{service: service, now: now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prescriptions := r.Group("/prescriptions")
	{
		prescriptions.POST("", h.CreatePrescription)
		prescriptions.GET("/:id", h.GetPrescription)
		prescriptions.GET("/patient/:patientId", h.GetPrescriptionsByPatient)
		prescriptions.PUT("/:id", h.UpdatePrescription)
		prescriptions.DELETE("/:id", h.DeletePrescription)
		prescriptions.GET("/filter/doctor", h.GetPrescriptionsByDoctor)
		prescriptions.GET("/filter/date-range", h.GetPrescriptionsByDateRange)
	}
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(resp))
}

func (h *Handler) GetPrescription(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) GetPrescriptionsByPatient(c *gin.Context) {
	patientID, ok := parseID(c, "patientId")
	if !ok {
		return
	}

	resp, err := h.service.GetByPatientID(c.Request.Context(), patientID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) UpdatePrescription(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	resp, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) DeletePrescription(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetPrescriptionsByDoctor(c *gin.Context) {
	doctorName := c.Query("doctorName")
	if doctorName == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("doctorName is required"))
		return
	}

	resp, err := h.service.GetByDoctorName(c.Request.Context(), doctorName)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) GetPrescriptionsByDateRange(c *gin.Context) {
	start, err := model.ParseDate(c.Query("startDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("startDate must be a valid date (yyyy-MM-dd)"))
		return
	}
	end, err := model.ParseDate(c.Query("endDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("endDate must be a valid date (yyyy-MM-dd)"))
		return
	}

	resp, err := h.service.GetByDateRange(c.Request.Context(), start, end)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

// bindRequest decodes and validates the create/update payload. Date
// presence and the issue-date-not-in-future rule are checked here; the
// cross-field invariants belong to the service.
func (h *Handler) bindRequest(c *gin.Context) (*model.PrescriptionRequest, bool) {
	var req model.PrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return nil, false
	}

	if req.IssueDate.IsZero() {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("Issue date is required"))
		return nil, false
	}
	if req.ValidUntil.IsZero() {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("Valid until date is required"))
		return nil, false
	}
	if req.IssueDate.After(model.DateOf(h.now())) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("Issue date cannot be in the future"))
		return nil, false
	}

	return &req, true
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid "+param))
		return 0, false
	}
	return id, true
}
