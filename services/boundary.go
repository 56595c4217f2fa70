package services

import (
	"fmt"
	"math"
	"os"

	"github.com/apex/log"
	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"

	"participium/models"
)

// boundaryPart is one polygon part of the service area: an outer ring and
// its holes, each as an s2 loop on the unit sphere.
type boundaryPart struct {
	outer *s2.Loop
	holes []*s2.Loop
}

// Boundary answers point-in-service-area queries against the municipal
// boundary polygon. It is built once at startup and immutable afterwards,
// so queries need no locking.
type Boundary struct {
	parts []boundaryPart
}

// LoadBoundary reads and parses the boundary GeoJSON file.
func LoadBoundary(filePath string) (*Boundary, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read boundary file %s: %w", filePath, err)
	}
	b, err := NewBoundary(data)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded municipality boundary from %s (%d polygon parts)", filePath, len(b.parts))
	return b, nil
}

// NewBoundary builds a Boundary from GeoJSON bytes. The document may be a
// FeatureCollection, a single Feature or a bare geometry; the geometry must
// be a Polygon or MultiPolygon.
func NewBoundary(data []byte) (*Boundary, error) {
	geometry, err := extractGeometry(data)
	if err != nil {
		return nil, err
	}

	var polygons [][][][]float64
	switch {
	case geometry.IsPolygon():
		polygons = [][][][]float64{geometry.Polygon}
	case geometry.IsMultiPolygon():
		polygons = geometry.MultiPolygon
	default:
		return nil, fmt.Errorf("unsupported boundary geometry type: %s", geometry.Type)
	}

	b := &Boundary{}
	for _, poly := range polygons {
		if len(poly) == 0 {
			continue
		}
		part := boundaryPart{outer: ringToLoop(poly[0])}
		for _, hole := range poly[1:] {
			part.holes = append(part.holes, ringToLoop(hole))
		}
		b.parts = append(b.parts, part)
	}
	if len(b.parts) == 0 {
		return nil, fmt.Errorf("boundary geometry contains no polygon rings")
	}
	return b, nil
}

func extractGeometry(data []byte) (*geojson.Geometry, error) {
	if collection, err := geojson.UnmarshalFeatureCollection(data); err == nil && len(collection.Features) > 0 {
		return collection.Features[0].Geometry, nil
	}
	if feature, err := geojson.UnmarshalFeature(data); err == nil && feature.Geometry != nil {
		return feature.Geometry, nil
	}
	geometry, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse boundary GeoJSON: %w", err)
	}
	return geometry, nil
}

// ringToLoop converts one GeoJSON ring ([lon, lat] pairs, first point
// repeated at the end) to a normalized s2 loop.
func ringToLoop(ring [][]float64) *s2.Loop {
	points := make([]s2.Point, 0, len(ring))
	for i, coord := range ring {
		// GeoJSON closes rings by repeating the first vertex; s2 must not
		// see the duplicate.
		if i == len(ring)-1 && len(ring) > 1 &&
			coord[0] == ring[0][0] && coord[1] == ring[0][1] {
			break
		}
		points = append(points, s2.PointFromLatLng(s2.LatLngFromDegrees(coord[1], coord[0])))
	}
	loop := s2.LoopFromPoints(points)
	// GeoJSON ring winding is unreliable in the wild; normalize so the loop
	// encloses the smaller area.
	loop.Normalize()
	return loop
}

// Contains reports whether the point lies within the municipal service
// area. Non-finite or out-of-range coordinates return false; callers treat
// malformed coordinates and outside-boundary identically.
func (b *Boundary) Contains(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}

	p := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	for _, part := range b.parts {
		if !part.outer.ContainsPoint(p) {
			continue
		}
		inHole := false
		for _, hole := range part.holes {
			if hole.ContainsPoint(p) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// Validate is the creation gate: it wraps Contains into the domain error
// the orchestrator surfaces.
func (b *Boundary) Validate(lat, lon float64) error {
	if !b.Contains(lat, lon) {
		return fmt.Errorf("%w: (%f, %f)", models.ErrOutsideBoundary, lat, lon)
	}
	return nil
}
