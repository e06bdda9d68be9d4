package dataset

import "fmt"

// Rating is the traffic-light classification of a composite indicator
// value.
type Rating int

const (
	RatingNoData Rating = iota
	RatingAlert
	RatingWarning
	RatingOK
)

func (r Rating) String() string {
	switch r {
	case RatingNoData:
		return "NO_DATA"
	case RatingAlert:
		return "ALERT"
	case RatingWarning:
		return "WARNING"
	case RatingOK:
		return "OK"
	default:
		return "INVALID"
	}
}

// Color returns the dashboard fill color for the rating.
func (r Rating) Color() string {
	switch r {
	case RatingAlert:
		return "red"
	case RatingWarning:
		return "yellow"
	case RatingOK:
		return "green"
	default:
		return "gray"
	}
}

// Thresholds are the rating cut points: value < Alert is ALERT,
// value < OK is WARNING, the rest is OK.
type Thresholds struct {
	Alert float64 `yaml:"alert"`
	OK    float64 `yaml:"ok"`
}

var DefaultThresholds = Thresholds{Alert: 0.70, OK: 0.85}

func (t Thresholds) Validate() error {
	if t.Alert <= 0 || t.OK <= t.Alert || t.OK > 1 {
		return fmt.Errorf("invalid thresholds: alert=%v ok=%v", t.Alert, t.OK)
	}
	return nil
}

func (t Thresholds) Rate(value float64) Rating {
	switch {
	case value < t.Alert:
		return RatingAlert
	case value < t.OK:
		return RatingWarning
	default:
		return RatingOK
	}
}

// AnalyticRecord is one row of the analytics workbook. Region is the join
// key against the region file name property.
type AnalyticRecord struct {
	RegionName       string  `json:"region_name"`
	Region           string  `json:"region"`
	Value            float64 `json:"value"`
	PercentChange    float64 `json:"percent_change"`
	BudgetMillions   float64 `json:"budget_millions"`
	PopulationChange float64 `json:"population_change"`
	Details          string  `json:"details"`
}

func (r *AnalyticRecord) Validate() error {
	if r.Region == "" {
		return fmt.Errorf("empty region")
	}
	return nil
}

// OrganizationRecord is one row of the organizations workbook. All counts
// are percentages reported in [0, 100].
type OrganizationRecord struct {
	City            string `json:"city"`
	Region          string `json:"region"`
	ByStaff         int    `json:"by_staff"`
	ByList          int    `json:"by_list"`
	BudgetLimits    int    `json:"buget_limits"`
	CashExecution   int    `json:"cash_execution"`
	Equipment       int    `json:"equipment"`
	FaultyEquipment int    `json:"faulty_equipment"`
}

func (r *OrganizationRecord) Validate() error {
	if r.Region == "" {
		return fmt.Errorf("empty region")
	}
	for _, f := range []struct {
		name  string
		value int
	}{
		{"by_staff", r.ByStaff},
		{"by_list", r.ByList},
		{"buget_limits", r.BudgetLimits},
		{"cash_execution", r.CashExecution},
		{"equipment", r.Equipment},
		{"faulty_equipment", r.FaultyEquipment},
	} {
		if f.value < 0 || f.value > 100 {
			return fmt.Errorf("%s must be in [0, 100], got %d", f.name, f.value)
		}
	}
	if r.ByList > r.ByStaff {
		return fmt.Errorf("by_list (%d) exceeds by_staff (%d)", r.ByList, r.ByStaff)
	}
	if r.CashExecution > r.BudgetLimits {
		return fmt.Errorf("cash_execution (%d) exceeds buget_limits (%d)", r.CashExecution, r.BudgetLimits)
	}
	if r.FaultyEquipment > r.Equipment {
		return fmt.Errorf("faulty_equipment (%d) exceeds equipment (%d)", r.FaultyEquipment, r.Equipment)
	}
	return nil
}

// Indicators are the derived per-organization ratios in [0, 1]. Value is
// the weakest of the three.
type Indicators struct {
	Staffing       float64 `json:"staffing"`
	CashUse        float64 `json:"cash_use"`
	Serviceability float64 `json:"serviceability"`
	Value          float64 `json:"value"`
}

// Indicators computes the derived ratios. Zero denominators yield a zero
// ratio rather than NaN.
func (r *OrganizationRecord) Indicators() Indicators {
	ratio := func(num, den int) float64 {
		if den == 0 {
			return 0
		}
		return float64(num) / float64(den)
	}
	ind := Indicators{
		Staffing:       ratio(r.ByList, r.ByStaff),
		CashUse:        ratio(r.CashExecution, r.BudgetLimits),
		Serviceability: ratio(r.Equipment-r.FaultyEquipment, r.Equipment),
	}
	ind.Value = min(ind.Staffing, ind.CashUse, ind.Serviceability)
	return ind
}
