package server

import (
	"github.com/regionatlas/atlasd/internal/dataset"
	"github.com/regionatlas/atlasd/internal/geo"
)

type Status int

const (
	StatusStarting Status = iota
	StatusReady
	StatusBusy
	StatusDefunct
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "STARTING"
	case StatusReady:
		return "READY"
	case StatusBusy:
		return "BUSY"
	case StatusDefunct:
		return "DEFUNCT"
	default:
		return "INVALID"
	}
}

type SetupStatus string

const (
	SetupSucceeded SetupStatus = "succeeded"
	SetupFailed    SetupStatus = "failed"
)

type SetupResult struct {
	StartedAt   string      `json:"started_at"`
	CompletedAt string      `json:"completed_at"`
	Status      SetupStatus `json:"status"`
	Logs        string      `json:"logs,omitempty"`
}

type HealthCheck struct {
	Status string       `json:"status"`
	Setup  *SetupResult `json:"setup,omitempty"`
}

type ServiceInfo struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	Status     string `json:"status"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	LoadedAt   string `json:"loaded_at,omitempty"`
}

// RegionProperties is the per-feature payload of the choropleth
// collection.
type RegionProperties struct {
	Name      string   `json:"name"`
	NameLatin string   `json:"name_latin,omitempty"`
	HasData   bool     `json:"has_data"`
	Value     *float64 `json:"value,omitempty"`
	Rating    string   `json:"rating"`
	Color     string   `json:"color"`
}

type RegionFeature struct {
	Type       string           `json:"type"`
	Properties RegionProperties `json:"properties"`
	Geometry   geo.Geometry     `json:"geometry"`
}

type RegionCollection struct {
	Type       string          `json:"type"`
	SnapshotID string          `json:"snapshot_id"`
	Features   []RegionFeature `json:"features"`
}

// IndicatorView is one indicator rendered for the dashboard: percentage
// plus its own traffic-light color.
type IndicatorView struct {
	Percent float64 `json:"percent"`
	Rating  string  `json:"rating"`
	Color   string  `json:"color"`
}

type RegionDetail struct {
	Name           string                   `json:"name"`
	NameLatin      string                   `json:"name_latin,omitempty"`
	Centroid       geo.Point                `json:"centroid"`
	HasData        bool                     `json:"has_data"`
	Value          *float64                 `json:"value,omitempty"`
	Rating         string                   `json:"rating"`
	Color          string                   `json:"color"`
	Staffing       *IndicatorView           `json:"staffing,omitempty"`
	CashUse        *IndicatorView           `json:"cash_use,omitempty"`
	Serviceability *IndicatorView           `json:"serviceability,omitempty"`
	Organizations  []dataset.Organization   `json:"organizations,omitempty"`
	Analytics      []dataset.AnalyticRecord `json:"analytics,omitempty"`
}

type ReloadResponse struct {
	SnapshotID    string `json:"snapshot_id"`
	LoadedAt      string `json:"loaded_at"`
	Regions       int    `json:"regions"`
	Organizations int    `json:"organizations"`
}

// Event is pushed to websocket subscribers and webhook receivers after a
// successful reload.
type Event struct {
	Event         string `json:"event"`
	SnapshotID    string `json:"snapshot_id"`
	LoadedAt      string `json:"loaded_at"`
	Regions       int    `json:"regions"`
	Organizations int    `json:"organizations"`
}
