package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/estatedesk/backend/internal/models"
	"github.com/estatedesk/backend/internal/notify"
)

type ProcessSummary struct {
	Processed         int `json:"processed"`
	WorkOrdersCreated int `json:"work_orders_created"`
	Errors            int `json:"errors"`
}

// ConvertRequest carries staff-supplied overrides for a complaint
// conversion. Explicit scheduling beats the complaint's own preferred
// time window.
type ConvertRequest struct {
	AssignedTo    *string    `json:"assigned_to"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	TimeWindow    string     `json:"time_window"`
	CreatedBy     string     `json:"created_by"`
}

// CategoryForAssetType maps an asset type to a coarse work-order
// category. The taxonomy is intentionally lossy.
func CategoryForAssetType(assetType string) string {
	switch strings.ToLower(strings.TrimSpace(assetType)) {
	case models.AssetTypeEquipment, models.AssetTypeAppliance:
		return "hvac"
	case models.AssetTypeInfrastructure:
		return "plumbing"
	default:
		return "other"
	}
}

// PriorityForTaskState derives work-order priority from the task's
// classification at conversion time.
func PriorityForTaskState(state string) string {
	switch state {
	case models.TaskStatusOverdue:
		return models.PriorityHigh
	case models.TaskStatusDue:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// CategoryForComplaint resolves the work-order category. A maintenance
// sub-category wins over the complaint's coarse category; appliance and
// structural collapse into other.
func CategoryForComplaint(c models.Complaint) string {
	if c.MaintenanceCategory != nil {
		switch strings.ToLower(strings.TrimSpace(*c.MaintenanceCategory)) {
		case "plumbing":
			return "plumbing"
		case "electrical":
			return "electrical"
		case "hvac":
			return "hvac"
		default:
			return "other"
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Category)) {
	case "security":
		return "security"
	case "cleanliness":
		return "cleaning"
	default:
		return "other"
	}
}

// PriorityForComplaint resolves priority: an urgency field overrides the
// complaint's own priority, with emergency escalating to urgent.
func PriorityForComplaint(c models.Complaint) string {
	if c.Urgency != nil {
		switch strings.ToLower(strings.TrimSpace(*c.Urgency)) {
		case "emergency":
			return models.PriorityUrgent
		case "high":
			return models.PriorityHigh
		case "medium":
			return models.PriorityMedium
		case "low":
			return models.PriorityLow
		}
	}
	if c.Priority != "" {
		return c.Priority
	}
	return models.PriorityMedium
}

// CreateWorkOrderFromTask turns a live maintenance task into a work
// order. The task keeps a link to the created work order so due
// selection will not convert it twice while the work order is active.
func (e *Engine) CreateWorkOrderFromTask(ctx context.Context, taskID, orgID, createdBy string) (models.WorkOrder, error) {
	task, err := e.Store.GetTask(ctx, orgID, taskID)
	if err != nil {
		return models.WorkOrder{}, fmt.Errorf("get task %s: %w", taskID, err)
	}
	if task.Status == models.TaskStatusCompleted || task.Status == models.TaskStatusCancelled {
		return models.WorkOrder{}, fmt.Errorf("task %s is %s: %w", taskID, task.Status, ErrInvalidState)
	}

	asset, err := e.Store.GetAsset(ctx, orgID, task.AssetID)
	if err != nil {
		return models.WorkOrder{}, fmt.Errorf("get asset %s: %w", task.AssetID, err)
	}

	now := e.now()
	state := ClassifyTask(task, now)

	status := models.WorkOrderStatusOpen
	if task.AssignedTo != nil && *task.AssignedTo != "" {
		status = models.WorkOrderStatusAssigned
	}

	wo := models.WorkOrder{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		BuildingID:     asset.BuildingID,
		UnitID:         asset.UnitID,
		AssetID:        &asset.ID,
		Title:          task.TaskName,
		Description:    task.Description,
		Category:       CategoryForAssetType(asset.AssetType),
		Priority:       PriorityForTaskState(state),
		Status:         status,
		AssignedTo:     task.AssignedTo,
		CreatedBy:      createdBy,
		ScheduledDate:  &task.NextDueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.Store.CreateWorkOrder(ctx, wo); err != nil {
		return models.WorkOrder{}, fmt.Errorf("create work order: %w", err)
	}

	taskStatus := state
	if taskStatus != models.TaskStatusOverdue {
		taskStatus = models.TaskStatusDue
	}
	if err := e.Store.LinkTaskWorkOrder(ctx, task.ID, wo.ID, taskStatus); err != nil {
		return models.WorkOrder{}, fmt.Errorf("link task %s: %w", task.ID, err)
	}

	return wo, nil
}

// ConvertComplaintToWorkOrder escalates a tenant complaint into a work
// order. A complaint converts at most once, must still be open, and must
// resolve to a unit so the work order is locatable within a building.
func (e *Engine) ConvertComplaintToWorkOrder(ctx context.Context, complaintID, orgID string, req ConvertRequest) (models.WorkOrder, error) {
	complaint, err := e.Store.GetComplaint(ctx, orgID, complaintID)
	if err != nil {
		return models.WorkOrder{}, fmt.Errorf("get complaint %s: %w", complaintID, err)
	}
	if complaint.LinkedWorkOrderID != nil {
		return models.WorkOrder{}, fmt.Errorf("complaint %s already has work order %s: %w", complaintID, *complaint.LinkedWorkOrderID, ErrInvalidState)
	}
	if complaint.Status == models.ComplaintStatusClosed || complaint.Status == models.ComplaintStatusResolved {
		return models.WorkOrder{}, fmt.Errorf("complaint %s is %s: %w", complaintID, complaint.Status, ErrInvalidState)
	}
	if complaint.UnitID == nil || *complaint.UnitID == "" {
		return models.WorkOrder{}, fmt.Errorf("complaint %s has no unit: %w", complaintID, ErrInvalidState)
	}

	unit, err := e.Store.GetUnit(ctx, orgID, *complaint.UnitID)
	if err != nil {
		return models.WorkOrder{}, fmt.Errorf("resolve unit %s: %w", *complaint.UnitID, err)
	}

	now := e.now()

	status := models.WorkOrderStatusOpen
	if req.AssignedTo != nil && *req.AssignedTo != "" {
		status = models.WorkOrderStatusAssigned
	}

	timeWindow := req.TimeWindow
	if timeWindow == "" && req.ScheduledDate == nil {
		timeWindow = complaint.PreferredTimeWindow
	}

	wo := models.WorkOrder{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		BuildingID:     unit.BuildingID,
		UnitID:         complaint.UnitID,
		ComplaintID:    &complaint.ID,
		Title:          fmt.Sprintf("Complaint follow-up: %s", complaint.Category),
		Description:    complaint.Description,
		Category:       CategoryForComplaint(complaint),
		Priority:       PriorityForComplaint(complaint),
		Status:         status,
		AssignedTo:     req.AssignedTo,
		CreatedBy:      req.CreatedBy,
		ScheduledDate:  req.ScheduledDate,
		TimeWindow:     timeWindow,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.Store.CreateWorkOrder(ctx, wo); err != nil {
		return models.WorkOrder{}, fmt.Errorf("create work order: %w", err)
	}

	// Linking moves the complaint out of raw intake even before dispatch.
	complaintStatus := models.ComplaintStatusInProgress
	if status == models.WorkOrderStatusAssigned {
		complaintStatus = models.ComplaintStatusAssigned
	}
	if err := e.Store.LinkComplaintWorkOrder(ctx, complaint.ID, wo.ID, complaintStatus); err != nil {
		return models.WorkOrder{}, fmt.Errorf("link complaint %s: %w", complaint.ID, err)
	}

	return wo, nil
}

// ProcessDueMaintenanceTasks converts every due auto-generate task into
// a work order. Per-task failures are counted and processing continues.
func (e *Engine) ProcessDueMaintenanceTasks(ctx context.Context, orgID, createdBy string) (ProcessSummary, error) {
	tasks, err := e.FindDueMaintenanceTasks(ctx, orgID, true)
	if err != nil {
		return ProcessSummary{}, err
	}

	summary := ProcessSummary{}
	now := e.now()

	for _, task := range tasks {
		if !task.AutoGenerateWorkOrder {
			continue
		}
		summary.Processed++

		wo, err := e.CreateWorkOrderFromTask(ctx, task.ID, orgID, createdBy)
		if err != nil {
			summary.Errors++
			e.Logger.Error().Err(err).Str("task_id", task.ID).Msg("work order generation failed")
			continue
		}
		summary.WorkOrdersCreated++

		if e.Notifier != nil && ClassifyTask(task, now) == models.TaskStatusOverdue {
			event := notify.Event{
				OrganizationID: orgID,
				WorkOrderID:    wo.ID,
				TaskID:         task.ID,
				Priority:       wo.Priority,
				Message:        fmt.Sprintf("Overdue maintenance converted to work order: %s", wo.Title),
			}
			if err := e.Notifier.Notify(ctx, event); err != nil {
				e.Logger.Warn().Err(err).Str("work_order_id", wo.ID).Msg("notification failed")
			}
		}
	}

	e.Logger.Info().
		Str("org_id", orgID).
		Int("processed", summary.Processed).
		Int("work_orders_created", summary.WorkOrdersCreated).
		Int("errors", summary.Errors).
		Msg("due maintenance tasks processed")
	return summary, nil
}
