package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"github.com/estatedesk/backend/internal/models"
)

type ImportSummary struct {
	Units struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"units"`
	Assets struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"assets"`
	Complaints struct {
		Parsed   int `json:"parsed"`
		Inserted int `json:"inserted"`
		Errors   int `json:"errors"`
	} `json:"complaints"`
	Errors []string `json:"errors"`
}

// @Summary Import CSV data
// @Description Upload units, assets, and complaints CSV files; replaces existing data
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param units formData file true "units.csv"
// @Param assets formData file true "assets.csv"
// @Param complaints formData file true "complaints.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	unitsFile, err := c.FormFile("units")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "units file required", nil)
		return
	}
	assetsFile, err := c.FormFile("assets")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "assets file required", nil)
		return
	}
	complaintsFile, err := c.FormFile("complaints")
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "complaints file required", nil)
		return
	}

	if !validateExt(unitsFile.Filename) || !validateExt(assetsFile.Filename) || !validateExt(complaintsFile.Filename) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "all files must be .csv", nil)
		return
	}

	summary := ImportSummary{Errors: []string{}}
	ctx := c.Request.Context()

	units, errs := parseUnitsCSV(unitsFile)
	summary.Units.Parsed = len(units)
	summary.Units.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	assets, errs := parseAssetsCSV(assetsFile)
	summary.Assets.Parsed = len(assets)
	summary.Assets.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	complaints, errs := parseComplaintsCSV(complaintsFile)
	summary.Complaints.Parsed = len(complaints)
	summary.Complaints.Errors = len(errs)
	summary.Errors = append(summary.Errors, errs...)

	if len(summary.Errors) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", summary.Errors)
		return
	}

	err = h.Store.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `TRUNCATE units, assets, complaints, maintenance_tasks, work_orders, maintenance_history RESTART IDENTITY`)
		return err
	})
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reset tables", err.Error())
		return
	}

	inserted, err := h.Store.InsertUnits(ctx, units)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert units", err.Error())
		return
	}
	summary.Units.Inserted = int(inserted)

	inserted, err = h.Store.InsertAssets(ctx, assets)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert assets", err.Error())
		return
	}
	summary.Assets.Inserted = int(inserted)

	inserted, err = h.Store.InsertComplaints(ctx, complaints)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert complaints", err.Error())
		return
	}
	summary.Complaints.Inserted = int(inserted)

	c.JSON(http.StatusOK, summary)
}

func validateExt(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

func readCSV(fh *multipart.FileHeader) ([][]string, map[string]int, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, rec)
	}
	return rows, cols, nil
}

func field(rec []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func optField(rec []string, cols map[string]int, name string) *string {
	v := field(rec, cols, name)
	if v == "" {
		return nil
	}
	return &v
}

func optDate(rec []string, cols map[string]int, name string) (*time.Time, error) {
	v := field(rec, cols, name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseUnitsCSV(fh *multipart.FileHeader) ([]models.Unit, []string) {
	rows, cols, err := readCSV(fh)
	if err != nil {
		return nil, []string{fmt.Sprintf("units: %v", err)}
	}

	var units []models.Unit
	var errs []string
	for i, rec := range rows {
		id := field(rec, cols, "unit_id")
		orgID := field(rec, cols, "organization_id")
		buildingID := field(rec, cols, "building_id")
		if id == "" || orgID == "" || buildingID == "" {
			errs = append(errs, fmt.Sprintf("units row %d: unit_id, organization_id and building_id are required", i+2))
			continue
		}
		units = append(units, models.Unit{
			ID:             id,
			OrganizationID: orgID,
			BuildingID:     buildingID,
			Label:          field(rec, cols, "label"),
		})
	}
	return units, errs
}

func parseAssetsCSV(fh *multipart.FileHeader) ([]models.Asset, []string) {
	rows, cols, err := readCSV(fh)
	if err != nil {
		return nil, []string{fmt.Sprintf("assets: %v", err)}
	}

	now := time.Now().UTC()
	var assets []models.Asset
	var errs []string
	for i, rec := range rows {
		id := field(rec, cols, "asset_id")
		orgID := field(rec, cols, "organization_id")
		buildingID := field(rec, cols, "building_id")
		if id == "" || orgID == "" || buildingID == "" {
			errs = append(errs, fmt.Sprintf("assets row %d: asset_id, organization_id and building_id are required", i+2))
			continue
		}

		status := field(rec, cols, "status")
		if status == "" {
			status = "active"
		}
		assetType := field(rec, cols, "asset_type")
		if assetType == "" {
			assetType = models.AssetTypeOther
		}

		asset := models.Asset{
			ID:             id,
			OrganizationID: orgID,
			BuildingID:     buildingID,
			UnitID:         optField(rec, cols, "unit_id"),
			Name:           field(rec, cols, "name"),
			AssetType:      assetType,
			Status:         status,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		if freq := field(rec, cols, "frequency"); freq != "" {
			last, lastErr := optDate(rec, cols, "last_maintenance_date")
			next, nextErr := optDate(rec, cols, "next_maintenance_date")
			if lastErr != nil || nextErr != nil {
				errs = append(errs, fmt.Sprintf("assets row %d: dates must be YYYY-MM-DD", i+2))
				continue
			}
			asset.Schedule = &models.MaintenanceSchedule{
				Frequency:           freq,
				LastMaintenanceDate: last,
				NextMaintenanceDate: next,
			}
		}
		assets = append(assets, asset)
	}
	return assets, errs
}

func parseComplaintsCSV(fh *multipart.FileHeader) ([]models.Complaint, []string) {
	rows, cols, err := readCSV(fh)
	if err != nil {
		return nil, []string{fmt.Sprintf("complaints: %v", err)}
	}

	now := time.Now().UTC()
	var complaints []models.Complaint
	var errs []string
	for i, rec := range rows {
		id := field(rec, cols, "complaint_id")
		orgID := field(rec, cols, "organization_id")
		if id == "" || orgID == "" {
			errs = append(errs, fmt.Sprintf("complaints row %d: complaint_id and organization_id are required", i+2))
			continue
		}

		status := field(rec, cols, "status")
		if status == "" {
			status = models.ComplaintStatusOpen
		}
		priority := field(rec, cols, "priority")
		if priority == "" {
			priority = models.PriorityMedium
		}
		category := field(rec, cols, "category")
		if category == "" {
			category = "other"
		}

		complaints = append(complaints, models.Complaint{
			ID:                  id,
			OrganizationID:      orgID,
			UnitID:              optField(rec, cols, "unit_id"),
			Category:            category,
			MaintenanceCategory: optField(rec, cols, "maintenance_category"),
			Priority:            priority,
			Urgency:             optField(rec, cols, "urgency"),
			PreferredTimeWindow: field(rec, cols, "preferred_time_window"),
			Status:              status,
			Description:         field(rec, cols, "description"),
			CreatedAt:           now,
		})
	}
	return complaints, errs
}
