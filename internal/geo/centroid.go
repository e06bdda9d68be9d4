package geo

import "math"

// Point is a lon/lat pair in the geometry's native projection.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// ringArea returns the signed shoelace area of a ring.
func ringArea(r Ring) float64 {
	var a float64
	n := len(r)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a += r[i].Lon*r[j].Lat - r[j].Lon*r[i].Lat
	}
	return a / 2
}

// ringCentroid returns the area centroid of a ring along with its signed
// area. Degenerate rings fall back to the vertex average with zero area.
func ringCentroid(r Ring) (Point, float64) {
	var cx, cy float64
	n := len(r)
	a := ringArea(r)
	if math.Abs(a) < 1e-12 {
		for _, p := range r {
			cx += p.Lon
			cy += p.Lat
		}
		if n > 0 {
			cx /= float64(n)
			cy /= float64(n)
		}
		return Point{Lon: cx, Lat: cy}, 0
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		f := r[i].Lon*r[j].Lat - r[j].Lon*r[i].Lat
		cx += (r[i].Lon + r[j].Lon) * f
		cy += (r[i].Lat + r[j].Lat) * f
	}
	return Point{Lon: cx / (6 * a), Lat: cy / (6 * a)}, a
}

// Centroid returns the area-weighted centroid over the exterior rings of
// the geometry. Interior rings (holes) are small enough in the region
// dataset that they do not move the label point meaningfully.
func (g *Geometry) Centroid() (Point, error) {
	polygons, err := g.Polygons()
	if err != nil {
		return Point{}, err
	}
	var cx, cy, total float64
	for _, p := range polygons {
		c, a := ringCentroid(p[0])
		w := math.Abs(a)
		cx += c.Lon * w
		cy += c.Lat * w
		total += w
	}
	if total < 1e-12 {
		// All rings degenerate, average the fallback centroids.
		for _, p := range polygons {
			c, _ := ringCentroid(p[0])
			cx += c.Lon
			cy += c.Lat
		}
		n := float64(len(polygons))
		return Point{Lon: cx / n, Lat: cy / n}, nil
	}
	return Point{Lon: cx / total, Lat: cy / total}, nil
}
