package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// header maps column names to their position in the CSV header row.
type header map[string]int

func readCSV(path string, required []string) (header, [][]string, error) {
	f, err := os.Open(path) //nolint:gosec // expected dynamic path
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	h := make(header, len(rows[0]))
	for i, name := range rows[0] {
		h[strings.TrimSpace(name)] = i
	}
	// The original workbooks spell budget_limits without the "d"; accept
	// both so existing files keep loading.
	if _, ok := h["buget_limits"]; !ok {
		if i, ok := h["budget_limits"]; ok {
			h["buget_limits"] = i
		}
	}
	for _, name := range required {
		if _, ok := h[name]; !ok {
			return nil, nil, fmt.Errorf("%s is missing column %q", path, name)
		}
	}
	return h, rows[1:], nil
}

func (h header) str(row []string, name string) string {
	return strings.TrimSpace(row[h[name]])
}

func (h header) float(row []string, name string) (float64, error) {
	v, err := strconv.ParseFloat(h.str(row, name), 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

func (h header) int(row []string, name string) (int, error) {
	v, err := strconv.Atoi(h.str(row, name))
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

var analyticColumns = []string{
	"region_name", "region", "value", "percent_change",
	"budget_millions", "population_change", "details",
}

// LoadAnalytics reads and validates the analytics workbook. Any invalid
// row aborts the load with a row-numbered error.
func LoadAnalytics(path string) ([]AnalyticRecord, error) {
	h, rows, err := readCSV(path, analyticColumns)
	if err != nil {
		return nil, err
	}
	records := make([]AnalyticRecord, 0, len(rows))
	for i, row := range rows {
		rec := AnalyticRecord{
			RegionName: h.str(row, "region_name"),
			Region:     h.str(row, "region"),
			Details:    h.str(row, "details"),
		}
		var err error
		if rec.Value, err = h.float(row, "value"); err == nil {
			if rec.PercentChange, err = h.float(row, "percent_change"); err == nil {
				if rec.BudgetMillions, err = h.float(row, "budget_millions"); err == nil {
					rec.PopulationChange, err = h.float(row, "population_change")
				}
			}
		}
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

var organizationColumns = []string{
	"city", "region", "by_staff", "by_list", "buget_limits",
	"cash_execution", "equipment", "faulty_equipment",
}

// LoadOrganizations reads and validates the organizations workbook.
func LoadOrganizations(path string) ([]OrganizationRecord, error) {
	h, rows, err := readCSV(path, organizationColumns)
	if err != nil {
		return nil, err
	}
	records := make([]OrganizationRecord, 0, len(rows))
	for i, row := range rows {
		rec := OrganizationRecord{
			City:   h.str(row, "city"),
			Region: h.str(row, "region"),
		}
		fields := []struct {
			name string
			dst  *int
		}{
			{"by_staff", &rec.ByStaff},
			{"by_list", &rec.ByList},
			{"buget_limits", &rec.BudgetLimits},
			{"cash_execution", &rec.CashExecution},
			{"equipment", &rec.Equipment},
			{"faulty_equipment", &rec.FaultyEquipment},
		}
		var err error
		for _, f := range fields {
			if *f.dst, err = h.int(row, f.name); err != nil {
				break
			}
		}
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
