package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/estatedesk/backend/internal/models"
)

type MaterializeSummary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// GenerateMaintenanceTasks ensures every active asset with a maintenance
// schedule has exactly one live task. Assets without a frequency label
// are skipped. An asset that already has a live task is counted as
// updated; no field reconciliation against a changed schedule happens on
// that path. Per-asset failures are counted and do not abort the batch;
// only the initial asset listing is fatal.
func (e *Engine) GenerateMaintenanceTasks(ctx context.Context, orgID string) (MaterializeSummary, error) {
	assets, err := e.Store.ListActiveAssets(ctx, orgID)
	if err != nil {
		return MaterializeSummary{}, fmt.Errorf("list active assets: %w", err)
	}

	summary := MaterializeSummary{}
	now := e.now()

	for _, asset := range assets {
		if asset.Schedule == nil || strings.TrimSpace(asset.Schedule.Frequency) == "" {
			continue
		}

		existing, err := e.Store.ListOpenTasksByAsset(ctx, asset.ID)
		if err != nil {
			summary.Errors++
			e.Logger.Error().Err(err).Str("asset_id", asset.ID).Msg("list open tasks failed")
			continue
		}
		if len(existing) > 0 {
			summary.Updated++
			continue
		}

		freq := ResolveFrequency(asset.Schedule.Frequency)
		task := models.MaintenanceTask{
			ID:                    uuid.NewString(),
			OrganizationID:        asset.OrganizationID,
			AssetID:               asset.ID,
			BuildingID:            asset.BuildingID,
			TaskName:              taskName(asset),
			Description:           fmt.Sprintf("Recurring %s maintenance for %s", strings.TrimSpace(asset.Schedule.Frequency), asset.Name),
			ScheduleType:          "time_based",
			FrequencyInterval:     freq.Interval,
			FrequencyUnit:         freq.Unit,
			NextDueDate:           ComputeNextDue(asset.Schedule, freq, now),
			Status:                models.TaskStatusScheduled,
			AutoGenerateWorkOrder: true,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := e.Store.CreateTask(ctx, task); err != nil {
			summary.Errors++
			e.Logger.Error().Err(err).Str("asset_id", asset.ID).Msg("create task failed")
			continue
		}
		summary.Created++
	}

	e.Logger.Info().
		Str("org_id", orgID).
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("errors", summary.Errors).
		Msg("maintenance tasks materialized")
	return summary, nil
}

func taskName(asset models.Asset) string {
	label := strings.ToLower(strings.TrimSpace(asset.Schedule.Frequency))
	if label == "" {
		label = "scheduled"
	}
	return fmt.Sprintf("%s maintenance - %s", label, asset.Name)
}

// FindDueMaintenanceTasks returns the tasks whose due date has arrived,
// earliest first, excluding completed and cancelled tasks and tasks
// whose generated work order is still active.
func (e *Engine) FindDueMaintenanceTasks(ctx context.Context, orgID string, includeOverdue bool) ([]models.MaintenanceTask, error) {
	tasks, err := e.Store.ListDueTasks(ctx, orgID, e.now())
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}
	if includeOverdue {
		return tasks, nil
	}
	now := e.now()
	out := make([]models.MaintenanceTask, 0, len(tasks))
	for _, t := range tasks {
		if ClassifyTask(t, now) == models.TaskStatusDue {
			out = append(out, t)
		}
	}
	return out, nil
}
