// Package atlastest provides dataset fixtures shared by tests.
package atlastest

import (
	"os"
	"path/filepath"
	"testing"
)

const northFeature = `{
  "type": "Feature",
  "properties": {"name": "North", "cartodb_id": 1, "name_latin": "North"},
  "geometry": {"type": "Polygon", "coordinates": [[[0, 0], [4, 0], [4, 4], [0, 4], [0, 0]]]}
}`

// South is a FeatureCollection root with a single feature, which the
// loader accepts.
const southFeature = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {"name": "South"},
    "geometry": {"type": "MultiPolygon", "coordinates": [[[[10, 0], [12, 0], [12, 2], [10, 2], [10, 0]]]]}
  }]
}`

// East has no organization rows, so it ends up rated NO_DATA.
const eastFeature = `{
  "type": "Feature",
  "properties": {"name": "East"},
  "geometry": {"type": "Polygon", "coordinates": [[[20, 0], [22, 0], [22, 2], [20, 2], [20, 0]]]}
}`

const analyticsCSV = `region_name,region,value,percent_change,budget_millions,population_change,details
North region,North,0.9,1.5,120.5,0.2,stable
South region,South,0.5,-2.0,80.0,-1.1,declining
`

// North's single row rates OK (all ratios >= 0.85), South's rates ALERT
// (cash_use = 30/60 = 0.5).
const organizationsCSV = `city,region,by_staff,by_list,buget_limits,cash_execution,equipment,faulty_equipment
Northville,North,100,90,100,90,100,10
Southport,South,80,72,60,30,90,9
`

// WriteDataset lays out a valid dataset under root and returns root.
func WriteDataset(t *testing.T, root string) string {
	t.Helper()
	regions := filepath.Join(root, "data", "regions")
	analytic := filepath.Join(root, "data", "analytic")
	for _, dir := range []string{regions, analytic} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	files := map[string]string{
		filepath.Join(regions, "north.geojson"):      northFeature,
		filepath.Join(regions, "south.geojson"):      southFeature,
		filepath.Join(regions, "east.geojson"):       eastFeature,
		filepath.Join(analytic, "data.csv"):          analyticsCSV,
		filepath.Join(analytic, "organizations.csv"): organizationsCSV,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}
