package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/replicate/go/logging"

	"github.com/regionatlas/atlasd/internal/geo"
	"github.com/regionatlas/atlasd/internal/util"
)

var logger = logging.New("atlas-dataset")

// Paths are the resolved dataset file locations.
type Paths struct {
	Root          string
	RegionsDir    string
	Analytics     string
	Organizations string
}

// ResolvePaths applies manifest overrides and defaults relative to the
// dataset root.
func ResolvePaths(root string, m *util.Manifest) Paths {
	p := Paths{
		Root:          root,
		RegionsDir:    filepath.Join(root, "data", "regions"),
		Analytics:     filepath.Join(root, "data", "analytic", "data.csv"),
		Organizations: filepath.Join(root, "data", "analytic", "organizations.csv"),
	}
	if m == nil {
		return p
	}
	if m.Data.RegionsDir != "" {
		p.RegionsDir = filepath.Join(root, m.Data.RegionsDir)
	}
	if m.Data.Analytics != "" {
		p.Analytics = filepath.Join(root, m.Data.Analytics)
	}
	if m.Data.Organizations != "" {
		p.Organizations = filepath.Join(root, m.Data.Organizations)
	}
	return p
}

// Organization is an organization row with its derived indicators.
type Organization struct {
	OrganizationRecord
	Indicators Indicators `json:"indicators"`
}

// Region is one region in a snapshot: its geometry joined with whatever
// indicator and analytic rows share its name.
type Region struct {
	Feature       geo.Feature
	Centroid      geo.Point
	Organizations []Organization
	Analytics     []AnalyticRecord
	Indicators    *Indicators
	Rating        Rating
}

// Name returns the region join key.
func (r *Region) Name() string {
	return r.Feature.Properties.Name
}

// HasData reports whether any organization row joined onto the region.
func (r *Region) HasData() bool {
	return r.Indicators != nil
}

// Snapshot is one immutable, fully joined view of the dataset.
type Snapshot struct {
	ID            string
	LoadedAt      time.Time
	Thresholds    Thresholds
	Regions       []Region
	Organizations []Organization
	Analytics     []AnalyticRecord

	byName map[string]*Region
}

func (s *Snapshot) Region(name string) (*Region, bool) {
	r, ok := s.byName[name]
	return r, ok
}

// Counts returns the number of regions per rating.
func (s *Snapshot) Counts() map[string]int {
	counts := make(map[string]int)
	for i := range s.Regions {
		counts[s.Regions[i].Rating.String()]++
	}
	return counts
}

// Load builds a snapshot: regions loaded with at most workers files in
// parallel, both workbooks validated, organization rows left-joined onto
// regions by name.
func Load(ctx context.Context, paths Paths, thresholds Thresholds, workers int) (*Snapshot, error) {
	log := logger.Sugar()
	start := time.Now()

	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	features, err := LoadRegions(ctx, paths.RegionsDir, workers)
	if err != nil {
		return nil, err
	}
	analytics, err := LoadAnalytics(paths.Analytics)
	if err != nil {
		return nil, err
	}
	orgRecords, err := LoadOrganizations(paths.Organizations)
	if err != nil {
		return nil, err
	}

	organizations := make([]Organization, len(orgRecords))
	for i, rec := range orgRecords {
		organizations[i] = Organization{OrganizationRecord: rec, Indicators: rec.Indicators()}
	}
	orgsByRegion := indexByRegion(organizations, func(o Organization) string { return o.Region })
	analyticsByRegion := indexByRegion(analytics, func(a AnalyticRecord) string { return a.Region })

	snapshot := &Snapshot{
		ID:            util.SnapshotID(),
		LoadedAt:      time.Now(),
		Thresholds:    thresholds,
		Regions:       make([]Region, 0, len(features)),
		Organizations: organizations,
		Analytics:     analytics,
		byName:        make(map[string]*Region, len(features)),
	}
	for _, f := range features {
		centroid, err := f.Geometry.Centroid()
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", f.Properties.Name, err)
		}
		region := Region{
			Feature:       f,
			Centroid:      centroid,
			Organizations: orgsByRegion[f.Properties.Name],
			Analytics:     analyticsByRegion[f.Properties.Name],
		}
		if ind := aggregateIndicators(region.Organizations); ind != nil {
			region.Indicators = ind
			region.Rating = thresholds.Rate(ind.Value)
		}
		snapshot.Regions = append(snapshot.Regions, region)
	}
	sort.Slice(snapshot.Regions, func(i, j int) bool {
		return snapshot.Regions[i].Name() < snapshot.Regions[j].Name()
	})
	for i := range snapshot.Regions {
		snapshot.byName[snapshot.Regions[i].Name()] = &snapshot.Regions[i]
	}

	log.Infow("loaded dataset snapshot",
		"snapshot_id", snapshot.ID,
		"regions", len(snapshot.Regions),
		"organizations", len(organizations),
		"analytics", len(analytics),
		"elapsed", time.Since(start),
	)
	return snapshot, nil
}

// aggregateIndicators averages each ratio over a region's organizations.
// The composite value stays min-of-three so one weak indicator cannot hide
// behind the others.
func aggregateIndicators(orgs []Organization) *Indicators {
	if len(orgs) == 0 {
		return nil
	}
	var agg Indicators
	for _, o := range orgs {
		agg.Staffing += o.Indicators.Staffing
		agg.CashUse += o.Indicators.CashUse
		agg.Serviceability += o.Indicators.Serviceability
	}
	n := float64(len(orgs))
	agg.Staffing /= n
	agg.CashUse /= n
	agg.Serviceability /= n
	agg.Value = min(agg.Staffing, agg.CashUse, agg.Serviceability)
	return &agg
}
