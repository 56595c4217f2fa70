package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"participium/database"
	"participium/middleware"
	"participium/models"
	"participium/services"
)

const apiVersion = "2.0"

// ReportsHandler exposes the report lifecycle over HTTP.
type ReportsHandler struct {
	lifecycle *services.LifecycleService
	router    *services.CategoryRouter
	store     *database.ReportService
}

// NewReportsHandler creates the HTTP handler set.
func NewReportsHandler(lifecycle *services.LifecycleService, router *services.CategoryRouter, store *database.ReportService) *ReportsHandler {
	return &ReportsHandler{
		lifecycle: lifecycle,
		router:    router,
		store:     store,
	}
}

// HealthCheck returns a simple health status.
func (h *ReportsHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "participium",
	})
}

// CreateReport handles citizen report submission.
func (h *ReportsHandler) CreateReport(c *gin.Context) {
	args := &models.CreateReportRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /create_report call: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	if args.Version != apiVersion {
		c.JSON(http.StatusNotAcceptable, gin.H{"error": "bad API version, expecting " + apiVersion})
		return
	}

	if n := utf8.RuneCountInString(args.Title); n < 5 || n > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must be 5-200 characters"})
		return
	}
	if n := utf8.RuneCountInString(args.Description); n < 10 || n > 2000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "description must be 10-2000 characters"})
		return
	}

	var reporterID *int64
	if id, ok := middleware.UserID(c); ok {
		reporterID = &id
	} else if !args.IsAnonymous {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required for non-anonymous reports"})
		return
	}

	report, err := h.lifecycle.CreateReport(c.Request.Context(), args, reporterID)
	if err != nil {
		log.Errorf("Error creating report: %v", err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, &models.ReportResponse{Report: report.Anonymized()})
}

// ChangeStatus handles a status transition request.
func (h *ReportsHandler) ChangeStatus(c *gin.Context) {
	args := &models.ChangeStatusRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /change_status call: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	if args.Version != apiVersion {
		c.JSON(http.StatusNotAcceptable, gin.H{"error": "bad API version, expecting " + apiVersion})
		return
	}

	requested, err := models.ParseReportStatus(args.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	actor, err := h.store.ResolveActor(c.Request.Context(), userID)
	if err != nil {
		log.Errorf("Error resolving actor %d: %v", userID, err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	report, err := h.lifecycle.ChangeStatus(c.Request.Context(), args.ReportID, requested, actor.UserID, actor.Classification, args.Reason)
	if err != nil {
		log.Errorf("Error changing status of report %d: %v", args.ReportID, err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, &models.ReportResponse{Report: report.Anonymized()})
}

// GetReport returns a single report by id.
func (h *ReportsHandler) GetReport(c *gin.Context) {
	idStr, has := c.GetQuery("report_id")
	if !has {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing report_id param"})
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report_id param"})
		return
	}

	report, err := h.store.GetReport(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, &models.ReportResponse{Report: report.Anonymized()})
}

// GetReports lists reports, optionally filtered by status.
func (h *ReportsHandler) GetReports(c *gin.Context) {
	var status *models.ReportStatus
	if statusStr, has := c.GetQuery("status"); has {
		parsed, err := models.ParseReportStatus(statusStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status = &parsed
	}

	reports, err := h.store.ListReports(c.Request.Context(), status)
	if err != nil {
		log.Errorf("Error listing reports: %v", err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	anonymized := make([]*models.Report, len(reports))
	for i, report := range reports {
		anonymized[i] = report.Anonymized()
	}

	c.IndentedJSON(http.StatusOK, &models.ReportsResponse{Reports: anonymized})
}

// MapCategoryRole updates the category routing table. Administrators only;
// they manage configuration, never report state.
func (h *ReportsHandler) MapCategoryRole(c *gin.Context) {
	args := &models.MapCategoryRoleRequest{}
	if err := c.BindJSON(args); err != nil {
		log.Errorf("Failed to get the argument in /map_category_role call: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read JSON input"})
		return
	}

	if args.Version != apiVersion {
		c.JSON(http.StatusNotAcceptable, gin.H{"error": "bad API version, expecting " + apiVersion})
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	actor, err := h.store.ResolveActor(c.Request.Context(), userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	if actor.Classification != models.ClassificationAdministrator {
		c.JSON(http.StatusForbidden, gin.H{"error": "administrator role required"})
		return
	}

	category, err := models.ParseCategory(args.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.router.MapCategoryRole(c.Request.Context(), category, args.RoleID); err != nil {
		log.Errorf("Error mapping category %s to role %d: %v", category, args.RoleID, err)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusOK)
}

// statusForError maps the domain error taxonomy to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientRights):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrNoStaffAvailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrCategoryNotConfigured):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
