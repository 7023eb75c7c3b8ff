package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/estatedesk/backend/internal/db"
	"github.com/estatedesk/backend/internal/service"
)

type Handler struct {
	Store     *db.Store
	Engine    *service.Engine
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Run the maintenance engine for an organization
// @Description Materializes missing maintenance tasks, then converts due tasks into work orders
// @Tags maintenance
// @Produce json
// @Param org_id query string true "organization id"
// @Success 200 {object} map[string]any
// @Router /api/maintenance/run [post]
func (h *Handler) MaintenanceRun(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "org_id is required", nil)
		return
	}

	runID, err := h.Store.CreateRun(c.Request.Context(), "RUNNING")
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to create run")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to create run", err.Error())
		return
	}

	var materialized service.MaterializeSummary
	var processed service.ProcessSummary
	err = h.Store.WithOrgLock(c.Request.Context(), orgID, func() error {
		var runErr error
		materialized, runErr = h.Engine.GenerateMaintenanceTasks(c.Request.Context(), orgID)
		if runErr != nil {
			return runErr
		}
		processed, runErr = h.Engine.ProcessDueMaintenanceTasks(c.Request.Context(), orgID, "scheduler")
		return runErr
	})

	summary := gin.H{
		"org_id":      orgID,
		"materialize": materialized,
		"process":     processed,
	}
	status := "SUCCESS"
	if err != nil {
		status = "FAILED"
		summary["error"] = err.Error()
	}
	b, _ := json.Marshal(summary)
	if finishErr := h.Store.FinishRun(c.Request.Context(), runID, status, b); finishErr != nil {
		h.Logger.Error().Err(finishErr).Msg("failed to finish run")
	}

	if err != nil {
		h.Logger.Error().Err(err).Str("org_id", orgID).Msg("maintenance run failed")
		writeError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Maintenance run failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Latest engine run
// @Tags maintenance
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	run, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handler) AssetsList(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "org_id is required", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	assets, err := h.Store.ListAssets(c.Request.Context(), orgID, c.Query("building_id"), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list assets", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": assets})
}

// @Summary Asset details with open tasks and recent history
// @Tags assets
// @Produce json
// @Param id path string true "asset id"
// @Success 200 {object} map[string]any
// @Router /api/assets/{id} [get]
func (h *Handler) AssetDetails(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "org_id is required", nil)
		return
	}

	asset, err := h.Store.GetAsset(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "Failed to get asset")
		return
	}
	tasks, err := h.Store.ListOpenTasksByAsset(c.Request.Context(), asset.ID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list tasks", err.Error())
		return
	}
	history, err := h.Store.ListHistoryByAsset(c.Request.Context(), asset.ID, 20)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list history", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"asset":   asset,
		"tasks":   tasks,
		"history": history,
	})
}

func (h *Handler) TasksList(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "org_id is required", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	tasks, err := h.Store.ListTasks(c.Request.Context(), orgID, c.Query("status"), c.Query("building_id"), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list tasks", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": tasks})
}

func (h *Handler) WorkOrdersList(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "org_id is required", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.Store.ListWorkOrders(c.Request.Context(), orgID, c.Query("status"), c.Query("category"), limit, offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list work orders", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": orders})
}

func (h *Handler) WorkOrderDetails(c *gin.Context) {
	orgID := c.Query("org_id")
	if orgID == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "org_id is required", nil)
		return
	}
	wo, err := h.Store.GetWorkOrder(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "Failed to get work order")
		return
	}
	c.JSON(http.StatusOK, wo)
}

type convertPayload struct {
	OrganizationID string     `json:"organization_id" validate:"required"`
	AssignedTo     *string    `json:"assigned_to"`
	ScheduledDate  *time.Time `json:"scheduled_date"`
	TimeWindow     string     `json:"time_window"`
	CreatedBy      string     `json:"created_by" validate:"required"`
}

// @Summary Convert a complaint into a work order
// @Tags complaints
// @Accept json
// @Produce json
// @Param id path string true "complaint id"
// @Success 200 {object} models.WorkOrder
// @Failure 400 {object} map[string]any
// @Router /api/complaints/{id}/convert [post]
func (h *Handler) ConvertComplaint(c *gin.Context) {
	var payload convertPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(payload); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	wo, err := h.Engine.ConvertComplaintToWorkOrder(c.Request.Context(), c.Param("id"), payload.OrganizationID, service.ConvertRequest{
		AssignedTo:    payload.AssignedTo,
		ScheduledDate: payload.ScheduledDate,
		TimeWindow:    payload.TimeWindow,
		CreatedBy:     payload.CreatedBy,
	})
	if err != nil {
		h.writeServiceError(c, err, "Failed to convert complaint")
		return
	}
	c.JSON(http.StatusOK, wo)
}

type completePayload struct {
	OrganizationID     string     `json:"organization_id" validate:"required"`
	Description        string     `json:"description" validate:"required"`
	MaintenanceType    string     `json:"maintenance_type"`
	PerformedDate      *time.Time `json:"performed_date"`
	Cost               *float64   `json:"cost"`
	NextMaintenanceDue *time.Time `json:"next_maintenance_due"`
}

// @Summary Complete a work order
// @Description Marks the work order completed and, for asset-linked work, records maintenance history and rolls the asset schedule forward
// @Tags work-orders
// @Accept json
// @Produce json
// @Param id path string true "work order id"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/work-orders/{id}/complete [post]
func (h *Handler) CompleteWorkOrder(c *gin.Context) {
	var payload completePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(payload); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	wo, entry, err := h.Engine.CompleteWorkOrder(c.Request.Context(), service.CompleteWorkOrderInput{
		OrganizationID:     payload.OrganizationID,
		WorkOrderID:        c.Param("id"),
		Description:        payload.Description,
		MaintenanceType:    payload.MaintenanceType,
		PerformedDate:      payload.PerformedDate,
		Cost:               payload.Cost,
		NextMaintenanceDue: payload.NextMaintenanceDue,
	})
	if err != nil {
		h.writeServiceError(c, err, "Failed to complete work order")
		return
	}

	result := gin.H{"work_order_id": wo.ID, "status": wo.Status}
	if entry != nil {
		result["history"] = entry
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) writeServiceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(c, http.StatusNotFound, "NOT_FOUND", message, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		writeError(c, http.StatusBadRequest, "INVALID_STATE", message, err.Error())
	case errors.Is(err, service.ErrValidation):
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", message, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "DB_ERROR", message, err.Error())
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
