package models

import "time"

const (
	AssetTypeEquipment      = "equipment"
	AssetTypeAppliance      = "appliance"
	AssetTypeInfrastructure = "infrastructure"
	AssetTypeVehicle        = "vehicle"
	AssetTypeOther          = "other"
)

const (
	TaskStatusScheduled = "scheduled"
	TaskStatusDue       = "due"
	TaskStatusOverdue   = "overdue"
	TaskStatusCompleted = "completed"
	TaskStatusCancelled = "cancelled"
)

const (
	WorkOrderStatusOpen       = "open"
	WorkOrderStatusAssigned   = "assigned"
	WorkOrderStatusInProgress = "in_progress"
	WorkOrderStatusCompleted  = "completed"
	WorkOrderStatusCancelled  = "cancelled"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	ComplaintStatusOpen       = "open"
	ComplaintStatusInProgress = "in_progress"
	ComplaintStatusAssigned   = "assigned"
	ComplaintStatusResolved   = "resolved"
	ComplaintStatusClosed     = "closed"
)

type MaintenanceSchedule struct {
	Frequency           string     `json:"frequency"`
	LastMaintenanceDate *time.Time `json:"last_maintenance_date,omitempty"`
	NextMaintenanceDate *time.Time `json:"next_maintenance_date,omitempty"`
}

type Asset struct {
	ID             string               `json:"id"`
	OrganizationID string               `json:"organization_id"`
	BuildingID     string               `json:"building_id"`
	UnitID         *string              `json:"unit_id,omitempty"`
	Name           string               `json:"name"`
	AssetType      string               `json:"asset_type"`
	Status         string               `json:"status"`
	Schedule       *MaintenanceSchedule `json:"maintenance_schedule,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type MaintenanceTask struct {
	ID                    string     `json:"id"`
	OrganizationID        string     `json:"organization_id"`
	AssetID               string     `json:"asset_id"`
	BuildingID            string     `json:"building_id"`
	TaskName              string     `json:"task_name"`
	Description           string     `json:"description"`
	ScheduleType          string     `json:"schedule_type"`
	FrequencyInterval     int        `json:"frequency_interval"`
	FrequencyUnit         string     `json:"frequency_unit"`
	NextDueDate           time.Time  `json:"next_due_date"`
	Status                string     `json:"status"`
	AutoGenerateWorkOrder bool       `json:"auto_generate_work_order"`
	AssignedTo            *string    `json:"assigned_to,omitempty"`
	EstimatedCost         *float64   `json:"estimated_cost,omitempty"`
	LinkedWorkOrderID     *string    `json:"linked_work_order_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type WorkOrder struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	BuildingID     string     `json:"building_id"`
	UnitID         *string    `json:"unit_id,omitempty"`
	AssetID        *string    `json:"asset_id,omitempty"`
	ComplaintID    *string    `json:"complaint_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	AssignedTo     *string    `json:"assigned_to,omitempty"`
	CreatedBy      string     `json:"created_by"`
	ScheduledDate  *time.Time `json:"scheduled_date,omitempty"`
	TimeWindow     string     `json:"time_window,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type Complaint struct {
	ID                  string    `json:"id"`
	OrganizationID      string    `json:"organization_id"`
	UnitID              *string   `json:"unit_id,omitempty"`
	Category            string    `json:"category"`
	MaintenanceCategory *string   `json:"maintenance_category,omitempty"`
	Priority            string    `json:"priority"`
	Urgency             *string   `json:"urgency,omitempty"`
	PreferredTimeWindow string    `json:"preferred_time_window,omitempty"`
	LinkedWorkOrderID   *string   `json:"linked_work_order_id,omitempty"`
	Status              string    `json:"status"`
	Description         string    `json:"description"`
	CreatedAt           time.Time `json:"created_at"`
}

type Unit struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	BuildingID     string `json:"building_id"`
	Label          string `json:"label"`
}

type MaintenanceHistory struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	AssetID            string     `json:"asset_id"`
	WorkOrderID        *string    `json:"work_order_id,omitempty"`
	MaintenanceType    string     `json:"maintenance_type"`
	Description        string     `json:"description"`
	PerformedDate      time.Time  `json:"performed_date"`
	Cost               *float64   `json:"cost,omitempty"`
	NextMaintenanceDue *time.Time `json:"next_maintenance_due,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Summary    []byte    `json:"summary"`
}
