package geo

import (
	"encoding/json"
	"fmt"
)

type GeometryType string

const (
	GeometryPolygon      GeometryType = "Polygon"
	GeometryMultiPolygon GeometryType = "MultiPolygon"
)

// Position is a GeoJSON position. Coordinates beyond lon/lat are accepted
// on the wire and discarded.
type Position struct {
	Lon float64
	Lat float64
}

func (p *Position) UnmarshalJSON(bs []byte) error {
	var coords []float64
	if err := json.Unmarshal(bs, &coords); err != nil {
		return err
	}
	if len(coords) < 2 {
		return fmt.Errorf("position needs at least 2 coordinates, got %d", len(coords))
	}
	p.Lon = coords[0]
	p.Lat = coords[1]
	return nil
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([]float64{p.Lon, p.Lat})
}

// Ring is a closed linear ring of positions.
type Ring []Position

// Polygon is a set of rings, exterior first.
type Polygon []Ring

type Geometry struct {
	Type GeometryType `json:"type"`
	// Coordinates is kept raw so features round-trip byte-exact through
	// the API; Polygons decodes it on demand.
	Coordinates json.RawMessage `json:"coordinates"`
}

func (g *Geometry) Validate() error {
	switch g.Type {
	case GeometryPolygon, GeometryMultiPolygon:
	default:
		return fmt.Errorf("unsupported geometry type %q", g.Type)
	}
	if len(g.Coordinates) == 0 {
		return fmt.Errorf("geometry has no coordinates")
	}
	if _, err := g.Polygons(); err != nil {
		return err
	}
	return nil
}

// Polygons decodes the raw coordinates into polygons. A Polygon geometry
// yields one element, a MultiPolygon one per member.
func (g *Geometry) Polygons() ([]Polygon, error) {
	switch g.Type {
	case GeometryPolygon:
		var p Polygon
		if err := json.Unmarshal(g.Coordinates, &p); err != nil {
			return nil, fmt.Errorf("invalid Polygon coordinates: %w", err)
		}
		if len(p) == 0 || len(p[0]) == 0 {
			return nil, fmt.Errorf("Polygon has no exterior ring")
		}
		return []Polygon{p}, nil
	case GeometryMultiPolygon:
		var ps []Polygon
		if err := json.Unmarshal(g.Coordinates, &ps); err != nil {
			return nil, fmt.Errorf("invalid MultiPolygon coordinates: %w", err)
		}
		if len(ps) == 0 {
			return nil, fmt.Errorf("MultiPolygon has no members")
		}
		for i, p := range ps {
			if len(p) == 0 || len(p[0]) == 0 {
				return nil, fmt.Errorf("MultiPolygon member %d has no exterior ring", i)
			}
		}
		return ps, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

// Properties holds the region file feature properties. Unknown keys are
// ignored on decode.
type Properties struct {
	Name      string `json:"name"`
	CartoDBID *int   `json:"cartodb_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	NameLatin string `json:"name_latin,omitempty"`
}

type Feature struct {
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Geometry   Geometry   `json:"geometry"`
}

func (f *Feature) Validate() error {
	if f.Type != "Feature" {
		return fmt.Errorf("expected type Feature, got %q", f.Type)
	}
	if f.Properties.Name == "" {
		return fmt.Errorf("feature has no name property")
	}
	if err := f.Geometry.Validate(); err != nil {
		return fmt.Errorf("feature %q: %w", f.Properties.Name, err)
	}
	return nil
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// DecodeFeature parses a region file. The root is normally a single
// Feature; a FeatureCollection root is accepted when it holds exactly one
// feature.
func DecodeFeature(bs []byte) (Feature, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(bs, &probe); err != nil {
		return Feature{}, fmt.Errorf("not a GeoJSON document: %w", err)
	}
	switch probe.Type {
	case "Feature":
		var f Feature
		if err := json.Unmarshal(bs, &f); err != nil {
			return Feature{}, err
		}
		return f, f.Validate()
	case "FeatureCollection":
		var fc FeatureCollection
		if err := json.Unmarshal(bs, &fc); err != nil {
			return Feature{}, err
		}
		if len(fc.Features) != 1 {
			return Feature{}, fmt.Errorf("expected exactly one feature, got %d", len(fc.Features))
		}
		f := fc.Features[0]
		return f, f.Validate()
	default:
		return Feature{}, fmt.Errorf("unsupported root type %q", probe.Type)
	}
}
