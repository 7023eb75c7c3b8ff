package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estatedesk/backend/internal/models"
	"github.com/estatedesk/backend/internal/service"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// WithOrgLock serializes engine runs for one organization. The advisory
// lock is transaction-scoped and releases when fn returns; overlapping
// invocations for the same organization queue instead of duplicating
// tasks or work orders.
func (s *Store) WithOrgLock(ctx context.Context, orgID string, fn func() error) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, orgID); err != nil {
			return err
		}
		return fn()
	})
}

func (s *Store) ListOrganizations(ctx context.Context) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `SELECT DISTINCT organization_id FROM assets ORDER BY organization_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const assetColumns = `id, organization_id, building_id, unit_id, name, asset_type, status,
	schedule_frequency, last_maintenance_date, next_maintenance_date, created_at, updated_at`

func scanAsset(row pgx.Row) (models.Asset, error) {
	var a models.Asset
	var frequency *string
	var last, next *time.Time
	if err := row.Scan(&a.ID, &a.OrganizationID, &a.BuildingID, &a.UnitID, &a.Name, &a.AssetType, &a.Status,
		&frequency, &last, &next, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Asset{}, err
	}
	if frequency != nil && strings.TrimSpace(*frequency) != "" {
		a.Schedule = &models.MaintenanceSchedule{
			Frequency:           *frequency,
			LastMaintenanceDate: last,
			NextMaintenanceDate: next,
		}
	}
	return a, nil
}

func (s *Store) ListActiveAssets(ctx context.Context, orgID string) ([]models.Asset, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+assetColumns+` FROM assets WHERE organization_id = $1 AND status = 'active' ORDER BY created_at ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListAssets(ctx context.Context, orgID, buildingID string, limit, offset int) ([]models.Asset, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + assetColumns + ` FROM assets WHERE organization_id = $1`
	args := []any{orgID}
	if buildingID != "" {
		args = append(args, buildingID)
		query += fmt.Sprintf(" AND building_id = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAsset(ctx context.Context, orgID, assetID string) (models.Asset, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE organization_id = $1 AND id = $2`, orgID, assetID)
	a, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Asset{}, fmt.Errorf("asset %s: %w", assetID, service.ErrNotFound)
		}
		return models.Asset{}, err
	}
	return a, nil
}

func (s *Store) UpdateAssetSchedule(ctx context.Context, assetID string, last, next *time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE assets
		SET last_maintenance_date = $1, next_maintenance_date = $2, updated_at = NOW()
		WHERE id = $3
	`, last, next, assetID)
	return err
}

const taskColumns = `id, organization_id, asset_id, building_id, task_name, description, schedule_type,
	frequency_interval, frequency_unit, next_due_date, status, auto_generate_work_order,
	assigned_to, estimated_cost, linked_work_order_id, created_at, updated_at`

func scanTask(row pgx.Row) (models.MaintenanceTask, error) {
	var t models.MaintenanceTask
	err := row.Scan(&t.ID, &t.OrganizationID, &t.AssetID, &t.BuildingID, &t.TaskName, &t.Description, &t.ScheduleType,
		&t.FrequencyInterval, &t.FrequencyUnit, &t.NextDueDate, &t.Status, &t.AutoGenerateWorkOrder,
		&t.AssignedTo, &t.EstimatedCost, &t.LinkedWorkOrderID, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) ListOpenTasksByAsset(ctx context.Context, assetID string) ([]models.MaintenanceTask, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+taskColumns+` FROM maintenance_tasks
		WHERE asset_id = $1 AND status NOT IN ('cancelled', 'completed')
		ORDER BY next_due_date ASC
	`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MaintenanceTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListDueTasks selects tasks whose due date has arrived. Tasks whose
// generated work order is still active are excluded so a task converts
// at most once per cycle.
func (s *Store) ListDueTasks(ctx context.Context, orgID string, asOf time.Time) ([]models.MaintenanceTask, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+prefixColumns(taskColumns, "t.")+`
		FROM maintenance_tasks t
		LEFT JOIN work_orders wo ON wo.id = t.linked_work_order_id
		WHERE t.organization_id = $1
			AND t.next_due_date <= $2
			AND t.status NOT IN ('cancelled', 'completed')
			AND (t.linked_work_order_id IS NULL OR wo.status IN ('completed', 'cancelled'))
		ORDER BY t.next_due_date ASC
	`, orgID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MaintenanceTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListTasks(ctx context.Context, orgID, status, buildingID string, limit, offset int) ([]models.MaintenanceTask, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + taskColumns + ` FROM maintenance_tasks WHERE organization_id = $1`
	args := []any{orgID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if buildingID != "" {
		args = append(args, buildingID)
		query += fmt.Sprintf(" AND building_id = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY next_due_date ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MaintenanceTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, orgID, taskID string) (models.MaintenanceTask, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM maintenance_tasks WHERE organization_id = $1 AND id = $2`, orgID, taskID)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MaintenanceTask{}, fmt.Errorf("task %s: %w", taskID, service.ErrNotFound)
		}
		return models.MaintenanceTask{}, err
	}
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, t models.MaintenanceTask) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO maintenance_tasks (id, organization_id, asset_id, building_id, task_name, description, schedule_type,
			frequency_interval, frequency_unit, next_due_date, status, auto_generate_work_order,
			assigned_to, estimated_cost, linked_work_order_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, t.ID, t.OrganizationID, t.AssetID, t.BuildingID, t.TaskName, t.Description, t.ScheduleType,
		t.FrequencyInterval, t.FrequencyUnit, t.NextDueDate, t.Status, t.AutoGenerateWorkOrder,
		t.AssignedTo, t.EstimatedCost, t.LinkedWorkOrderID, t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *Store) LinkTaskWorkOrder(ctx context.Context, taskID, workOrderID, status string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE maintenance_tasks
		SET linked_work_order_id = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`, workOrderID, status, taskID)
	return err
}

func (s *Store) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE maintenance_tasks SET status = $1, updated_at = NOW() WHERE id = $2`, status, taskID)
	return err
}

func (s *Store) CompleteTaskForWorkOrder(ctx context.Context, workOrderID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE maintenance_tasks
		SET status = 'completed', updated_at = NOW()
		WHERE linked_work_order_id = $1 AND status NOT IN ('cancelled', 'completed')
	`, workOrderID)
	return err
}

const workOrderColumns = `id, organization_id, building_id, unit_id, asset_id, complaint_id, title, description,
	category, priority, status, assigned_to, created_by, scheduled_date, time_window, created_at, updated_at`

func scanWorkOrder(row pgx.Row) (models.WorkOrder, error) {
	var w models.WorkOrder
	var timeWindow *string
	err := row.Scan(&w.ID, &w.OrganizationID, &w.BuildingID, &w.UnitID, &w.AssetID, &w.ComplaintID, &w.Title, &w.Description,
		&w.Category, &w.Priority, &w.Status, &w.AssignedTo, &w.CreatedBy, &w.ScheduledDate, &timeWindow, &w.CreatedAt, &w.UpdatedAt)
	if timeWindow != nil {
		w.TimeWindow = *timeWindow
	}
	return w, err
}

func (s *Store) CreateWorkOrder(ctx context.Context, w models.WorkOrder) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO work_orders (id, organization_id, building_id, unit_id, asset_id, complaint_id, title, description,
			category, priority, status, assigned_to, created_by, scheduled_date, time_window, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, w.ID, w.OrganizationID, w.BuildingID, w.UnitID, w.AssetID, w.ComplaintID, w.Title, w.Description,
		w.Category, w.Priority, w.Status, w.AssignedTo, w.CreatedBy, w.ScheduledDate, w.TimeWindow, w.CreatedAt, w.UpdatedAt)
	return err
}

func (s *Store) GetWorkOrder(ctx context.Context, orgID, workOrderID string) (models.WorkOrder, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE organization_id = $1 AND id = $2`, orgID, workOrderID)
	w, err := scanWorkOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WorkOrder{}, fmt.Errorf("work order %s: %w", workOrderID, service.ErrNotFound)
		}
		return models.WorkOrder{}, err
	}
	return w, nil
}

func (s *Store) ListWorkOrders(ctx context.Context, orgID, status, category string, limit, offset int) ([]models.WorkOrder, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE organization_id = $1`
	args := []any{orgID}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WorkOrder
	for rows.Next() {
		w, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) UpdateWorkOrderStatus(ctx context.Context, workOrderID, status string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE work_orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, workOrderID)
	return err
}

func (s *Store) GetComplaint(ctx context.Context, orgID, complaintID string) (models.Complaint, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, organization_id, unit_id, category, maintenance_category, priority, urgency,
			preferred_time_window, linked_work_order_id, status, description, created_at
		FROM complaints WHERE organization_id = $1 AND id = $2
	`, orgID, complaintID)

	var c models.Complaint
	var timeWindow *string
	err := row.Scan(&c.ID, &c.OrganizationID, &c.UnitID, &c.Category, &c.MaintenanceCategory, &c.Priority, &c.Urgency,
		&timeWindow, &c.LinkedWorkOrderID, &c.Status, &c.Description, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Complaint{}, fmt.Errorf("complaint %s: %w", complaintID, service.ErrNotFound)
		}
		return models.Complaint{}, err
	}
	if timeWindow != nil {
		c.PreferredTimeWindow = *timeWindow
	}
	return c, nil
}

func (s *Store) GetUnit(ctx context.Context, orgID, unitID string) (models.Unit, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, organization_id, building_id, label FROM units WHERE organization_id = $1 AND id = $2`, orgID, unitID)

	var u models.Unit
	if err := row.Scan(&u.ID, &u.OrganizationID, &u.BuildingID, &u.Label); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Unit{}, fmt.Errorf("unit %s: %w", unitID, service.ErrNotFound)
		}
		return models.Unit{}, err
	}
	return u, nil
}

func (s *Store) LinkComplaintWorkOrder(ctx context.Context, complaintID, workOrderID, status string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE complaints
		SET linked_work_order_id = $1, status = $2
		WHERE id = $3
	`, workOrderID, status, complaintID)
	return err
}

func (s *Store) InsertHistory(ctx context.Context, h models.MaintenanceHistory) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO maintenance_history (id, organization_id, asset_id, work_order_id, maintenance_type,
			description, performed_date, cost, next_maintenance_due, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, h.ID, h.OrganizationID, h.AssetID, h.WorkOrderID, h.MaintenanceType,
		h.Description, h.PerformedDate, h.Cost, h.NextMaintenanceDue, h.CreatedAt)
	return err
}

func (s *Store) ListHistoryByAsset(ctx context.Context, assetID string, limit int) ([]models.MaintenanceHistory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, organization_id, asset_id, work_order_id, maintenance_type,
			description, performed_date, cost, next_maintenance_due, created_at
		FROM maintenance_history WHERE asset_id = $1 ORDER BY performed_date DESC LIMIT $2
	`, assetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MaintenanceHistory
	for rows.Next() {
		var h models.MaintenanceHistory
		if err := rows.Scan(&h.ID, &h.OrganizationID, &h.AssetID, &h.WorkOrderID, &h.MaintenanceType,
			&h.Description, &h.PerformedDate, &h.Cost, &h.NextMaintenanceDue, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) InsertUnits(ctx context.Context, units []models.Unit) (int64, error) {
	rows := make([][]any, 0, len(units))
	for _, u := range units {
		rows = append(rows, []any{u.ID, u.OrganizationID, u.BuildingID, u.Label})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"units"}, []string{"id", "organization_id", "building_id", "label"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertAssets(ctx context.Context, assets []models.Asset) (int64, error) {
	rows := make([][]any, 0, len(assets))
	for _, a := range assets {
		var frequency *string
		var last, next *time.Time
		if a.Schedule != nil {
			frequency = &a.Schedule.Frequency
			last = a.Schedule.LastMaintenanceDate
			next = a.Schedule.NextMaintenanceDate
		}
		rows = append(rows, []any{a.ID, a.OrganizationID, a.BuildingID, a.UnitID, a.Name, a.AssetType, a.Status,
			frequency, last, next, a.CreatedAt, a.UpdatedAt})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"assets"},
		[]string{"id", "organization_id", "building_id", "unit_id", "name", "asset_type", "status",
			"schedule_frequency", "last_maintenance_date", "next_maintenance_date", "created_at", "updated_at"},
		pgx.CopyFromRows(rows))
}

func (s *Store) InsertComplaints(ctx context.Context, complaints []models.Complaint) (int64, error) {
	rows := make([][]any, 0, len(complaints))
	for _, c := range complaints {
		rows = append(rows, []any{c.ID, c.OrganizationID, c.UnitID, c.Category, c.MaintenanceCategory, c.Priority,
			c.Urgency, c.PreferredTimeWindow, c.LinkedWorkOrderID, c.Status, c.Description, c.CreatedAt})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"complaints"},
		[]string{"id", "organization_id", "unit_id", "category", "maintenance_category", "priority",
			"urgency", "preferred_time_window", "linked_work_order_id", "status", "description", "created_at"},
		pgx.CopyFromRows(rows))
}

func (s *Store) CreateRun(ctx context.Context, status string) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `INSERT INTO runs (status, started_at) VALUES ($1, NOW()) RETURNING id`, status).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (map[string]any, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`)
	var (
		id       string
		started  time.Time
		finished *time.Time
		status   string
		summary  []byte
	)
	if err := row.Scan(&id, &started, &finished, &status, &summary); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          id,
		"started_at":  started,
		"finished_at": finished,
		"status":      status,
		"summary":     summary,
	}, nil
}

func prefixColumns(cols string, prefix string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
