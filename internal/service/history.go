package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/estatedesk/backend/internal/models"
)

type HistoryInput struct {
	OrganizationID     string
	AssetID            string
	WorkOrderID        *string
	MaintenanceType    string
	Description        string
	PerformedDate      time.Time
	Cost               *float64
	NextMaintenanceDue *time.Time
}

// RecordCompletedMaintenance closes one maintenance cycle: it appends an
// immutable history entry and rolls the asset's schedule forward. The
// last maintenance date becomes the performed date; the next date is set
// to the supplied due date or cleared so the resolver falls back to
// last + interval for the following cycle. A linked task, if any, is
// marked completed.
func (e *Engine) RecordCompletedMaintenance(ctx context.Context, in HistoryInput) (models.MaintenanceHistory, error) {
	if strings.TrimSpace(in.Description) == "" {
		return models.MaintenanceHistory{}, fmt.Errorf("description is required: %w", ErrValidation)
	}

	asset, err := e.Store.GetAsset(ctx, in.OrganizationID, in.AssetID)
	if err != nil {
		return models.MaintenanceHistory{}, fmt.Errorf("get asset %s: %w", in.AssetID, err)
	}

	maintenanceType := strings.TrimSpace(in.MaintenanceType)
	if maintenanceType == "" {
		maintenanceType = "scheduled"
	}

	entry := models.MaintenanceHistory{
		ID:                 uuid.NewString(),
		OrganizationID:     in.OrganizationID,
		AssetID:            asset.ID,
		WorkOrderID:        in.WorkOrderID,
		MaintenanceType:    maintenanceType,
		Description:        in.Description,
		PerformedDate:      in.PerformedDate,
		Cost:               in.Cost,
		NextMaintenanceDue: in.NextMaintenanceDue,
		CreatedAt:          e.now(),
	}
	if err := e.Store.InsertHistory(ctx, entry); err != nil {
		return models.MaintenanceHistory{}, fmt.Errorf("insert history: %w", err)
	}

	performed := in.PerformedDate
	if err := e.Store.UpdateAssetSchedule(ctx, asset.ID, &performed, in.NextMaintenanceDue); err != nil {
		return models.MaintenanceHistory{}, fmt.Errorf("update asset schedule: %w", err)
	}

	if in.WorkOrderID != nil {
		if err := e.Store.CompleteTaskForWorkOrder(ctx, *in.WorkOrderID); err != nil {
			return models.MaintenanceHistory{}, fmt.Errorf("complete linked task: %w", err)
		}
	}

	return entry, nil
}

type CompleteWorkOrderInput struct {
	OrganizationID     string
	WorkOrderID        string
	Description        string
	MaintenanceType    string
	PerformedDate      *time.Time
	Cost               *float64
	NextMaintenanceDue *time.Time
}

// CompleteWorkOrder records the maintenance feedback and then marks the
// work order completed, in that order: a failed history write leaves the
// work order in its prior state so the caller can retry. Returns the
// history entry when the work order is asset-linked, nil otherwise.
func (e *Engine) CompleteWorkOrder(ctx context.Context, in CompleteWorkOrderInput) (models.WorkOrder, *models.MaintenanceHistory, error) {
	wo, err := e.Store.GetWorkOrder(ctx, in.OrganizationID, in.WorkOrderID)
	if err != nil {
		return models.WorkOrder{}, nil, fmt.Errorf("get work order %s: %w", in.WorkOrderID, err)
	}
	if wo.Status == models.WorkOrderStatusCompleted || wo.Status == models.WorkOrderStatusCancelled {
		return models.WorkOrder{}, nil, fmt.Errorf("work order is already %s: %w", wo.Status, ErrInvalidState)
	}

	performed := e.now()
	if in.PerformedDate != nil {
		performed = *in.PerformedDate
	}

	var entry *models.MaintenanceHistory
	if wo.AssetID != nil {
		rec, err := e.RecordCompletedMaintenance(ctx, HistoryInput{
			OrganizationID:     in.OrganizationID,
			AssetID:            *wo.AssetID,
			WorkOrderID:        &wo.ID,
			MaintenanceType:    in.MaintenanceType,
			Description:        in.Description,
			PerformedDate:      performed,
			Cost:               in.Cost,
			NextMaintenanceDue: in.NextMaintenanceDue,
		})
		if err != nil {
			return models.WorkOrder{}, nil, err
		}
		entry = &rec
	}

	if err := e.Store.UpdateWorkOrderStatus(ctx, wo.ID, models.WorkOrderStatusCompleted); err != nil {
		return models.WorkOrder{}, nil, fmt.Errorf("update work order: %w", err)
	}
	wo.Status = models.WorkOrderStatusCompleted
	return wo, entry, nil
}
