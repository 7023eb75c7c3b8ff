package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/estatedesk/backend/internal/models"
)

// memStore is an in-memory Store used to exercise the engine without a
// database. Due-selection mirrors the SQL in internal/db: tasks whose
// linked work order is still active are excluded.
type memStore struct {
	assets     map[string]models.Asset
	tasks      map[string]models.MaintenanceTask
	workOrders map[string]models.WorkOrder
	complaints map[string]models.Complaint
	units      map[string]models.Unit
	history    []models.MaintenanceHistory

	failCreateTaskFor map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		assets:            map[string]models.Asset{},
		tasks:             map[string]models.MaintenanceTask{},
		workOrders:        map[string]models.WorkOrder{},
		complaints:        map[string]models.Complaint{},
		units:             map[string]models.Unit{},
		failCreateTaskFor: map[string]bool{},
	}
}

func (m *memStore) ListActiveAssets(ctx context.Context, orgID string) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range m.assets {
		if a.OrganizationID == orgID && a.Status == "active" {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetAsset(ctx context.Context, orgID, assetID string) (models.Asset, error) {
	a, ok := m.assets[assetID]
	if !ok || a.OrganizationID != orgID {
		return models.Asset{}, ErrNotFound
	}
	return a, nil
}

func (m *memStore) UpdateAssetSchedule(ctx context.Context, assetID string, last, next *time.Time) error {
	a, ok := m.assets[assetID]
	if !ok {
		return ErrNotFound
	}
	if a.Schedule == nil {
		a.Schedule = &models.MaintenanceSchedule{}
	}
	a.Schedule.LastMaintenanceDate = last
	a.Schedule.NextMaintenanceDate = next
	m.assets[assetID] = a
	return nil
}

func (m *memStore) ListOpenTasksByAsset(ctx context.Context, assetID string) ([]models.MaintenanceTask, error) {
	var out []models.MaintenanceTask
	for _, t := range m.tasks {
		if t.AssetID == assetID && t.Status != models.TaskStatusCancelled && t.Status != models.TaskStatusCompleted {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) ListDueTasks(ctx context.Context, orgID string, asOf time.Time) ([]models.MaintenanceTask, error) {
	var out []models.MaintenanceTask
	for _, t := range m.tasks {
		if t.OrganizationID != orgID || t.NextDueDate.After(asOf) {
			continue
		}
		if t.Status == models.TaskStatusCancelled || t.Status == models.TaskStatusCompleted {
			continue
		}
		if t.LinkedWorkOrderID != nil {
			wo, ok := m.workOrders[*t.LinkedWorkOrderID]
			if ok && wo.Status != models.WorkOrderStatusCompleted && wo.Status != models.WorkOrderStatusCancelled {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextDueDate.Before(out[j].NextDueDate) })
	return out, nil
}

func (m *memStore) GetTask(ctx context.Context, orgID, taskID string) (models.MaintenanceTask, error) {
	t, ok := m.tasks[taskID]
	if !ok || t.OrganizationID != orgID {
		return models.MaintenanceTask{}, ErrNotFound
	}
	return t, nil
}

func (m *memStore) CreateTask(ctx context.Context, task models.MaintenanceTask) error {
	if m.failCreateTaskFor[task.AssetID] {
		return errors.New("insert failed")
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *memStore) LinkTaskWorkOrder(ctx context.Context, taskID, workOrderID, status string) error {
	t, ok := m.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	t.LinkedWorkOrderID = &workOrderID
	t.Status = status
	m.tasks[taskID] = t
	return nil
}

func (m *memStore) CompleteTaskForWorkOrder(ctx context.Context, workOrderID string) error {
	for id, t := range m.tasks {
		if t.LinkedWorkOrderID != nil && *t.LinkedWorkOrderID == workOrderID &&
			t.Status != models.TaskStatusCancelled && t.Status != models.TaskStatusCompleted {
			t.Status = models.TaskStatusCompleted
			m.tasks[id] = t
		}
	}
	return nil
}

func (m *memStore) CreateWorkOrder(ctx context.Context, wo models.WorkOrder) error {
	m.workOrders[wo.ID] = wo
	return nil
}

func (m *memStore) GetWorkOrder(ctx context.Context, orgID, workOrderID string) (models.WorkOrder, error) {
	wo, ok := m.workOrders[workOrderID]
	if !ok || wo.OrganizationID != orgID {
		return models.WorkOrder{}, ErrNotFound
	}
	return wo, nil
}

func (m *memStore) UpdateWorkOrderStatus(ctx context.Context, workOrderID, status string) error {
	wo, ok := m.workOrders[workOrderID]
	if !ok {
		return ErrNotFound
	}
	wo.Status = status
	m.workOrders[workOrderID] = wo
	return nil
}

func (m *memStore) GetComplaint(ctx context.Context, orgID, complaintID string) (models.Complaint, error) {
	c, ok := m.complaints[complaintID]
	if !ok || c.OrganizationID != orgID {
		return models.Complaint{}, ErrNotFound
	}
	return c, nil
}

func (m *memStore) GetUnit(ctx context.Context, orgID, unitID string) (models.Unit, error) {
	u, ok := m.units[unitID]
	if !ok || u.OrganizationID != orgID {
		return models.Unit{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) LinkComplaintWorkOrder(ctx context.Context, complaintID, workOrderID, status string) error {
	c, ok := m.complaints[complaintID]
	if !ok {
		return ErrNotFound
	}
	c.LinkedWorkOrderID = &workOrderID
	c.Status = status
	m.complaints[complaintID] = c
	return nil
}

func (m *memStore) InsertHistory(ctx context.Context, entry models.MaintenanceHistory) error {
	m.history = append(m.history, entry)
	return nil
}

func testEngine(store Store, now time.Time) *Engine {
	return &Engine{
		Store:  store,
		Logger: zerolog.Nop(),
		Clock:  func() time.Time { return now },
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateMaintenanceTasksCreatesOnePerAsset(t *testing.T) {
	store := newMemStore()
	last := date(2024, 1, 1)
	store.assets["a1"] = models.Asset{
		ID: "a1", OrganizationID: "org1", BuildingID: "b1", Name: "Boiler",
		AssetType: models.AssetTypeEquipment, Status: "active",
		Schedule: &models.MaintenanceSchedule{Frequency: "quarterly", LastMaintenanceDate: &last},
	}

	engine := testEngine(store, date(2024, 3, 15))
	summary, err := engine.GenerateMaintenanceTasks(context.Background(), "org1")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Created)
	require.Equal(t, 0, summary.Updated)
	require.Equal(t, 0, summary.Errors)
	require.Len(t, store.tasks, 1)

	for _, task := range store.tasks {
		require.Equal(t, "a1", task.AssetID)
		require.Equal(t, 3, task.FrequencyInterval)
		require.Equal(t, UnitMonths, task.FrequencyUnit)
		require.True(t, task.NextDueDate.Equal(date(2024, 4, 1)))
		require.Equal(t, models.TaskStatusScheduled, task.Status)
		require.True(t, task.AutoGenerateWorkOrder)
	}
}

func TestGenerateMaintenanceTasksIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.assets["a1"] = models.Asset{
		ID: "a1", OrganizationID: "org1", BuildingID: "b1", Status: "active",
		Schedule: &models.MaintenanceSchedule{Frequency: "monthly"},
	}

	engine := testEngine(store, date(2024, 3, 15))
	first, err := engine.GenerateMaintenanceTasks(context.Background(), "org1")
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	second, err := engine.GenerateMaintenanceTasks(context.Background(), "org1")
	require.NoError(t, err)
	require.Equal(t, 0, second.Created)
	require.Equal(t, 1, second.Updated)
	require.Len(t, store.tasks, 1)
}

func TestGenerateMaintenanceTasksSkipsUnscheduledAssets(t *testing.T) {
	store := newMemStore()
	store.assets["a1"] = models.Asset{ID: "a1", OrganizationID: "org1", BuildingID: "b1", Status: "active"}
	store.assets["a2"] = models.Asset{
		ID: "a2", OrganizationID: "org1", BuildingID: "b1", Status: "active",
		Schedule: &models.MaintenanceSchedule{Frequency: "  "},
	}

	engine := testEngine(store, date(2024, 3, 15))
	summary, err := engine.GenerateMaintenanceTasks(context.Background(), "org1")
	require.NoError(t, err)
	require.Equal(t, MaterializeSummary{}, summary)
	require.Empty(t, store.tasks)
}

func TestGenerateMaintenanceTasksIsolatesFailures(t *testing.T) {
	store := newMemStore()
	store.assets["a1"] = models.Asset{
		ID: "a1", OrganizationID: "org1", BuildingID: "b1", Status: "active",
		Schedule: &models.MaintenanceSchedule{Frequency: "monthly"},
	}
	store.assets["a2"] = models.Asset{
		ID: "a2", OrganizationID: "org1", BuildingID: "b1", Status: "active",
		Schedule: &models.MaintenanceSchedule{Frequency: "weekly"},
	}
	store.failCreateTaskFor["a1"] = true

	engine := testEngine(store, date(2024, 3, 15))
	summary, err := engine.GenerateMaintenanceTasks(context.Background(), "org1")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Created)
	require.Equal(t, 1, summary.Errors)
}

func TestFindDueTasksOrderingAndLinkExclusion(t *testing.T) {
	store := newMemStore()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	openWO := "wo-open"
	store.workOrders[openWO] = models.WorkOrder{ID: openWO, OrganizationID: "org1", Status: models.WorkOrderStatusOpen}

	store.tasks["t1"] = models.MaintenanceTask{ID: "t1", OrganizationID: "org1", AssetID: "a1", Status: models.TaskStatusScheduled, NextDueDate: date(2024, 3, 1)}
	store.tasks["t2"] = models.MaintenanceTask{ID: "t2", OrganizationID: "org1", AssetID: "a2", Status: models.TaskStatusScheduled, NextDueDate: date(2024, 2, 1)}
	store.tasks["t3"] = models.MaintenanceTask{ID: "t3", OrganizationID: "org1", AssetID: "a3", Status: models.TaskStatusScheduled, NextDueDate: date(2024, 6, 1)}
	store.tasks["t4"] = models.MaintenanceTask{ID: "t4", OrganizationID: "org1", AssetID: "a4", Status: models.TaskStatusDue, NextDueDate: date(2024, 1, 1), LinkedWorkOrderID: &openWO}

	engine := testEngine(store, now)
	tasks, err := engine.FindDueMaintenanceTasks(context.Background(), "org1", true)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, "t2", tasks[0].ID)
	require.Equal(t, "t1", tasks[1].ID)
}

func TestCreateWorkOrderFromTaskOverdue(t *testing.T) {
	store := newMemStore()
	unitID := "u1"
	store.assets["a1"] = models.Asset{ID: "a1", OrganizationID: "org1", BuildingID: "b1", UnitID: &unitID, AssetType: models.AssetTypeEquipment, Status: "active"}
	store.tasks["t1"] = models.MaintenanceTask{
		ID: "t1", OrganizationID: "org1", AssetID: "a1", BuildingID: "b1",
		TaskName: "quarterly maintenance - Boiler", Status: models.TaskStatusScheduled,
		NextDueDate: date(2024, 3, 1),
	}

	engine := testEngine(store, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	wo, err := engine.CreateWorkOrderFromTask(context.Background(), "t1", "org1", "tester")
	require.NoError(t, err)
	require.Equal(t, models.PriorityHigh, wo.Priority)
	require.Equal(t, "hvac", wo.Category)
	require.Equal(t, models.WorkOrderStatusOpen, wo.Status)
	require.Equal(t, "b1", wo.BuildingID)
	require.Equal(t, &unitID, wo.UnitID)
	require.NotNil(t, wo.AssetID)
	require.Equal(t, "a1", *wo.AssetID)

	task := store.tasks["t1"]
	require.NotNil(t, task.LinkedWorkOrderID)
	require.Equal(t, wo.ID, *task.LinkedWorkOrderID)
	require.Equal(t, models.TaskStatusOverdue, task.Status)
}

func TestCreateWorkOrderFromTaskDueToday(t *testing.T) {
	store := newMemStore()
	assignee := "tech-7"
	store.assets["a1"] = models.Asset{ID: "a1", OrganizationID: "org1", BuildingID: "b1", AssetType: models.AssetTypeInfrastructure, Status: "active"}
	store.tasks["t1"] = models.MaintenanceTask{
		ID: "t1", OrganizationID: "org1", AssetID: "a1", BuildingID: "b1",
		Status: models.TaskStatusScheduled, AssignedTo: &assignee,
		NextDueDate: time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
	}

	engine := testEngine(store, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	wo, err := engine.CreateWorkOrderFromTask(context.Background(), "t1", "org1", "tester")
	require.NoError(t, err)
	require.Equal(t, models.PriorityMedium, wo.Priority)
	require.Equal(t, "plumbing", wo.Category)
	require.Equal(t, models.WorkOrderStatusAssigned, wo.Status)
	require.Equal(t, models.TaskStatusDue, store.tasks["t1"].Status)
}

func TestCreateWorkOrderFromTaskRejections(t *testing.T) {
	store := newMemStore()
	store.tasks["done"] = models.MaintenanceTask{ID: "done", OrganizationID: "org1", AssetID: "a1", Status: models.TaskStatusCompleted}

	engine := testEngine(store, date(2024, 3, 15))

	_, err := engine.CreateWorkOrderFromTask(context.Background(), "missing", "org1", "tester")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = engine.CreateWorkOrderFromTask(context.Background(), "done", "org1", "tester")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Empty(t, store.workOrders)
}

func TestProcessDueTasksDoesNotDuplicate(t *testing.T) {
	store := newMemStore()
	store.assets["a1"] = models.Asset{ID: "a1", OrganizationID: "org1", BuildingID: "b1", AssetType: models.AssetTypeEquipment, Status: "active"}
	store.tasks["t1"] = models.MaintenanceTask{
		ID: "t1", OrganizationID: "org1", AssetID: "a1", BuildingID: "b1",
		Status: models.TaskStatusScheduled, AutoGenerateWorkOrder: true,
		NextDueDate: date(2024, 3, 1),
	}

	engine := testEngine(store, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	first, err := engine.ProcessDueMaintenanceTasks(context.Background(), "org1", "scheduler")
	require.NoError(t, err)
	require.Equal(t, 1, first.WorkOrdersCreated)
	require.Len(t, store.workOrders, 1)

	// The open work order keeps the task out of the selection set.
	second, err := engine.ProcessDueMaintenanceTasks(context.Background(), "org1", "scheduler")
	require.NoError(t, err)
	require.Equal(t, 0, second.Processed)
	require.Len(t, store.workOrders, 1)
}

func TestProcessDueTasksSkipsManualTasks(t *testing.T) {
	store := newMemStore()
	store.assets["a1"] = models.Asset{ID: "a1", OrganizationID: "org1", BuildingID: "b1", Status: "active"}
	store.tasks["t1"] = models.MaintenanceTask{
		ID: "t1", OrganizationID: "org1", AssetID: "a1", BuildingID: "b1",
		Status: models.TaskStatusScheduled, AutoGenerateWorkOrder: false,
		NextDueDate: date(2024, 3, 1),
	}

	engine := testEngine(store, date(2024, 3, 15))
	summary, err := engine.ProcessDueMaintenanceTasks(context.Background(), "org1", "scheduler")
	require.NoError(t, err)
	require.Equal(t, ProcessSummary{}, summary)
	require.Empty(t, store.workOrders)
}

func newConvertibleComplaint() (*memStore, models.Complaint) {
	store := newMemStore()
	unitID := "u1"
	store.units["u1"] = models.Unit{ID: "u1", OrganizationID: "org1", BuildingID: "b1"}
	plumbing := "plumbing"
	complaint := models.Complaint{
		ID: "c1", OrganizationID: "org1", UnitID: &unitID,
		Category: "maintenance", MaintenanceCategory: &plumbing,
		Priority: models.PriorityMedium, Status: models.ComplaintStatusOpen,
		Description: "Leaking pipe under the sink",
	}
	store.complaints["c1"] = complaint
	return store, complaint
}

func TestConvertComplaintToWorkOrder(t *testing.T) {
	store, _ := newConvertibleComplaint()
	engine := testEngine(store, date(2024, 3, 15))

	wo, err := engine.ConvertComplaintToWorkOrder(context.Background(), "c1", "org1", ConvertRequest{CreatedBy: "staff-1"})
	require.NoError(t, err)
	require.Equal(t, "plumbing", wo.Category)
	require.Equal(t, models.PriorityMedium, wo.Priority)
	require.Equal(t, models.WorkOrderStatusOpen, wo.Status)
	require.Equal(t, "b1", wo.BuildingID)
	require.NotNil(t, wo.ComplaintID)

	c := store.complaints["c1"]
	require.NotNil(t, c.LinkedWorkOrderID)
	require.Equal(t, wo.ID, *c.LinkedWorkOrderID)
	require.Equal(t, models.ComplaintStatusInProgress, c.Status)
}

func TestConvertComplaintWithAssigneeMarksAssigned(t *testing.T) {
	store, _ := newConvertibleComplaint()
	engine := testEngine(store, date(2024, 3, 15))

	assignee := "tech-2"
	wo, err := engine.ConvertComplaintToWorkOrder(context.Background(), "c1", "org1", ConvertRequest{AssignedTo: &assignee, CreatedBy: "staff-1"})
	require.NoError(t, err)
	require.Equal(t, models.WorkOrderStatusAssigned, wo.Status)
	require.Equal(t, models.ComplaintStatusAssigned, store.complaints["c1"].Status)
}

func TestConvertComplaintUrgencyOverride(t *testing.T) {
	store, complaint := newConvertibleComplaint()
	emergency := "emergency"
	complaint.Priority = models.PriorityLow
	complaint.Urgency = &emergency
	store.complaints["c1"] = complaint

	engine := testEngine(store, date(2024, 3, 15))
	wo, err := engine.ConvertComplaintToWorkOrder(context.Background(), "c1", "org1", ConvertRequest{CreatedBy: "staff-1"})
	require.NoError(t, err)
	require.Equal(t, models.PriorityUrgent, wo.Priority)
}

func TestConvertComplaintTimeWindowPrecedence(t *testing.T) {
	store, complaint := newConvertibleComplaint()
	complaint.PreferredTimeWindow = "morning"
	store.complaints["c1"] = complaint

	engine := testEngine(store, date(2024, 3, 15))
	wo, err := engine.ConvertComplaintToWorkOrder(context.Background(), "c1", "org1", ConvertRequest{CreatedBy: "staff-1"})
	require.NoError(t, err)
	require.Equal(t, "morning", wo.TimeWindow)

	// An explicit override suppresses the complaint's preference.
	store2, complaint2 := newConvertibleComplaint()
	complaint2.PreferredTimeWindow = "morning"
	store2.complaints["c1"] = complaint2
	engine2 := testEngine(store2, date(2024, 3, 15))

	scheduled := date(2024, 3, 20)
	wo, err = engine2.ConvertComplaintToWorkOrder(context.Background(), "c1", "org1", ConvertRequest{ScheduledDate: &scheduled, CreatedBy: "staff-1"})
	require.NoError(t, err)
	require.Empty(t, wo.TimeWindow)
	require.NotNil(t, wo.ScheduledDate)
}

func TestConvertComplaintRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Complaint)
	}{
		{"closed", func(c *models.Complaint) { c.Status = models.ComplaintStatusClosed }},
		{"resolved", func(c *models.Complaint) { c.Status = models.ComplaintStatusResolved }},
		{"already linked", func(c *models.Complaint) { existing := "wo-9"; c.LinkedWorkOrderID = &existing }},
		{"no unit", func(c *models.Complaint) { c.UnitID = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, complaint := newConvertibleComplaint()
			tc.mutate(&complaint)
			store.complaints["c1"] = complaint

			engine := testEngine(store, date(2024, 3, 15))
			_, err := engine.ConvertComplaintToWorkOrder(context.Background(), "c1", "org1", ConvertRequest{CreatedBy: "staff-1"})
			require.ErrorIs(t, err, ErrInvalidState)
			require.Empty(t, store.workOrders)
			require.Equal(t, complaint, store.complaints["c1"])
		})
	}
}

func TestConvertComplaintNotFound(t *testing.T) {
	store := newMemStore()
	engine := testEngine(store, date(2024, 3, 15))
	_, err := engine.ConvertComplaintToWorkOrder(context.Background(), "nope", "org1", ConvertRequest{CreatedBy: "staff-1"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordCompletedMaintenanceRoundTrip(t *testing.T) {
	store := newMemStore()
	last := date(2024, 1, 1)
	store.assets["a1"] = models.Asset{
		ID: "a1", OrganizationID: "org1", BuildingID: "b1", Status: "active",
		Schedule: &models.MaintenanceSchedule{Frequency: "quarterly", LastMaintenanceDate: &last},
	}
	woID := "wo-1"
	store.workOrders[woID] = models.WorkOrder{ID: woID, OrganizationID: "org1", Status: models.WorkOrderStatusCompleted}
	store.tasks["t1"] = models.MaintenanceTask{ID: "t1", OrganizationID: "org1", AssetID: "a1", Status: models.TaskStatusDue, LinkedWorkOrderID: &woID}

	engine := testEngine(store, date(2024, 4, 2))
	performed := date(2024, 4, 1)
	nextDue := date(2024, 7, 1)

	entry, err := engine.RecordCompletedMaintenance(context.Background(), HistoryInput{
		OrganizationID:     "org1",
		AssetID:            "a1",
		WorkOrderID:        &woID,
		MaintenanceType:    "scheduled",
		Description:        "Replaced filters and inspected burners",
		PerformedDate:      performed,
		NextMaintenanceDue: &nextDue,
	})
	require.NoError(t, err)
	require.Len(t, store.history, 1)
	require.Equal(t, "a1", entry.AssetID)

	asset := store.assets["a1"]
	require.NotNil(t, asset.Schedule.LastMaintenanceDate)
	require.True(t, asset.Schedule.LastMaintenanceDate.Equal(performed))
	require.NotNil(t, asset.Schedule.NextMaintenanceDate)
	require.True(t, asset.Schedule.NextMaintenanceDate.Equal(nextDue))

	// The linked task closes out, so the next materialization opens a
	// fresh cycle against the rolled-forward schedule.
	require.Equal(t, models.TaskStatusCompleted, store.tasks["t1"].Status)

	summary, err := engine.GenerateMaintenanceTasks(context.Background(), "org1")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Created)
	for _, task := range store.tasks {
		if task.ID == "t1" {
			continue
		}
		require.True(t, task.NextDueDate.Equal(nextDue))
	}
}

func TestRecordCompletedMaintenanceClearsNextWhenAbsent(t *testing.T) {
	store := newMemStore()
	next := date(2024, 4, 1)
	store.assets["a1"] = models.Asset{
		ID: "a1", OrganizationID: "org1", BuildingID: "b1", Status: "active",
		Schedule: &models.MaintenanceSchedule{Frequency: "monthly", NextMaintenanceDate: &next},
	}

	engine := testEngine(store, date(2024, 4, 2))
	_, err := engine.RecordCompletedMaintenance(context.Background(), HistoryInput{
		OrganizationID: "org1",
		AssetID:        "a1",
		Description:    "Routine service",
		PerformedDate:  date(2024, 4, 1),
	})
	require.NoError(t, err)

	asset := store.assets["a1"]
	require.Nil(t, asset.Schedule.NextMaintenanceDate)
	require.NotNil(t, asset.Schedule.LastMaintenanceDate)
}

func TestRecordCompletedMaintenanceValidation(t *testing.T) {
	store := newMemStore()
	store.assets["a1"] = models.Asset{ID: "a1", OrganizationID: "org1", Status: "active"}

	engine := testEngine(store, date(2024, 4, 2))

	_, err := engine.RecordCompletedMaintenance(context.Background(), HistoryInput{
		OrganizationID: "org1", AssetID: "a1", Description: "   ", PerformedDate: date(2024, 4, 1),
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, store.history)

	_, err = engine.RecordCompletedMaintenance(context.Background(), HistoryInput{
		OrganizationID: "org1", AssetID: "missing", Description: "ok", PerformedDate: date(2024, 4, 1),
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteWorkOrderRecordsHistoryBeforeClosing(t *testing.T) {
	store := newMemStore()
	last := date(2024, 1, 1)
	store.assets["a1"] = models.Asset{
		ID: "a1", OrganizationID: "org1", BuildingID: "b1", Status: "active",
		Schedule: &models.MaintenanceSchedule{Frequency: "quarterly", LastMaintenanceDate: &last},
	}
	woID := "wo-1"
	assetID := "a1"
	store.workOrders[woID] = models.WorkOrder{ID: woID, OrganizationID: "org1", AssetID: &assetID, Status: models.WorkOrderStatusAssigned}
	store.tasks["t1"] = models.MaintenanceTask{ID: "t1", OrganizationID: "org1", AssetID: "a1", Status: models.TaskStatusDue, LinkedWorkOrderID: &woID}

	engine := testEngine(store, date(2024, 4, 2))
	performed := date(2024, 4, 1)
	nextDue := date(2024, 7, 1)

	wo, entry, err := engine.CompleteWorkOrder(context.Background(), CompleteWorkOrderInput{
		OrganizationID:     "org1",
		WorkOrderID:        woID,
		Description:        "Replaced filters and inspected burners",
		PerformedDate:      &performed,
		NextMaintenanceDue: &nextDue,
	})
	require.NoError(t, err)
	require.Equal(t, models.WorkOrderStatusCompleted, wo.Status)
	require.Equal(t, models.WorkOrderStatusCompleted, store.workOrders[woID].Status)
	require.NotNil(t, entry)
	require.Len(t, store.history, 1)
	require.Equal(t, models.TaskStatusCompleted, store.tasks["t1"].Status)

	asset := store.assets["a1"]
	require.True(t, asset.Schedule.LastMaintenanceDate.Equal(performed))
	require.True(t, asset.Schedule.NextMaintenanceDate.Equal(nextDue))
}

func TestCompleteWorkOrderKeepsStatusWhenHistoryFails(t *testing.T) {
	store := newMemStore()
	store.assets["a1"] = models.Asset{ID: "a1", OrganizationID: "org1", Status: "active"}
	woID := "wo-1"
	assetID := "a1"
	store.workOrders[woID] = models.WorkOrder{ID: woID, OrganizationID: "org1", AssetID: &assetID, Status: models.WorkOrderStatusAssigned}

	engine := testEngine(store, date(2024, 4, 2))

	// A whitespace description fails the feedback write; the work order
	// must stay open so the caller can retry with a valid payload.
	_, _, err := engine.CompleteWorkOrder(context.Background(), CompleteWorkOrderInput{
		OrganizationID: "org1",
		WorkOrderID:    woID,
		Description:    "   ",
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, models.WorkOrderStatusAssigned, store.workOrders[woID].Status)
	require.Empty(t, store.history)

	_, entry, err := engine.CompleteWorkOrder(context.Background(), CompleteWorkOrderInput{
		OrganizationID: "org1",
		WorkOrderID:    woID,
		Description:    "Tightened the valve",
	})
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, models.WorkOrderStatusCompleted, store.workOrders[woID].Status)
}

func TestCompleteWorkOrderRejections(t *testing.T) {
	store := newMemStore()
	store.workOrders["wo-done"] = models.WorkOrder{ID: "wo-done", OrganizationID: "org1", Status: models.WorkOrderStatusCompleted}

	engine := testEngine(store, date(2024, 4, 2))

	_, _, err := engine.CompleteWorkOrder(context.Background(), CompleteWorkOrderInput{
		OrganizationID: "org1", WorkOrderID: "wo-done", Description: "again",
	})
	require.ErrorIs(t, err, ErrInvalidState)

	_, _, err = engine.CompleteWorkOrder(context.Background(), CompleteWorkOrderInput{
		OrganizationID: "org1", WorkOrderID: "missing", Description: "x",
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteWorkOrderWithoutAsset(t *testing.T) {
	store := newMemStore()
	store.workOrders["wo-1"] = models.WorkOrder{ID: "wo-1", OrganizationID: "org1", Status: models.WorkOrderStatusOpen}

	engine := testEngine(store, date(2024, 4, 2))

	wo, entry, err := engine.CompleteWorkOrder(context.Background(), CompleteWorkOrderInput{
		OrganizationID: "org1", WorkOrderID: "wo-1", Description: "Swept the stairwell",
	})
	require.NoError(t, err)
	require.Nil(t, entry)
	require.Equal(t, models.WorkOrderStatusCompleted, wo.Status)
	require.Empty(t, store.history)
}
