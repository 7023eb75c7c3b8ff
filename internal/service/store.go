package service

import (
	"context"
	"time"

	"github.com/estatedesk/backend/internal/models"
)

// Store is the persistence contract the engine runs against. The pgx
// implementation lives in internal/db; tests use an in-memory fake.
// Lookup methods wrap ErrNotFound when the row is missing.
type Store interface {
	ListActiveAssets(ctx context.Context, orgID string) ([]models.Asset, error)
	GetAsset(ctx context.Context, orgID, assetID string) (models.Asset, error)
	UpdateAssetSchedule(ctx context.Context, assetID string, last, next *time.Time) error

	ListOpenTasksByAsset(ctx context.Context, assetID string) ([]models.MaintenanceTask, error)
	ListDueTasks(ctx context.Context, orgID string, asOf time.Time) ([]models.MaintenanceTask, error)
	GetTask(ctx context.Context, orgID, taskID string) (models.MaintenanceTask, error)
	CreateTask(ctx context.Context, task models.MaintenanceTask) error
	LinkTaskWorkOrder(ctx context.Context, taskID, workOrderID, status string) error
	CompleteTaskForWorkOrder(ctx context.Context, workOrderID string) error

	CreateWorkOrder(ctx context.Context, wo models.WorkOrder) error
	GetWorkOrder(ctx context.Context, orgID, workOrderID string) (models.WorkOrder, error)
	UpdateWorkOrderStatus(ctx context.Context, workOrderID, status string) error

	GetComplaint(ctx context.Context, orgID, complaintID string) (models.Complaint, error)
	GetUnit(ctx context.Context, orgID, unitID string) (models.Unit, error)
	LinkComplaintWorkOrder(ctx context.Context, complaintID, workOrderID, status string) error

	InsertHistory(ctx context.Context, entry models.MaintenanceHistory) error
}
