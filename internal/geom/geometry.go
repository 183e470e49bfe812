// Package geom implements the C1 "geometry ops" capability: the OGC-simple-
// features operations the rest of the pipeline needs (area, intersects,
// intersection, union, difference, buffer(0) repair, validity, reprojection)
// over 2D polygon/multipolygon geometry with an attached CRS.
//
// Values are carried as github.com/paulmach/orb types (the lightweight,
// allocation-friendly representation already used elsewhere in this module
// tree), and bridged through GeoJSON to github.com/airbusgeo/godal's cgo
// OGR/GEOS bindings whenever a boolean operation, area computation, or
// reprojection is needed — orb itself has no such operations.
package geom

import (
	"encoding/json"
	"fmt"

	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Polygon is a possibly-multi polygon with an associated CRS. Internally it
// is always stored as an orb.MultiPolygon (a single polygon is a
// one-element multipolygon) so that union/intersection/difference, which
// can all produce multi-part results, share one representation.
type Polygon struct {
	CRS  CRS
	Geom orb.MultiPolygon
}

// NewPolygon wraps a single orb.Polygon.
func NewPolygon(crs CRS, p orb.Polygon) *Polygon {
	return &Polygon{CRS: crs, Geom: orb.MultiPolygon{p}}
}

// NewMultiPolygon wraps an orb.MultiPolygon directly.
func NewMultiPolygon(crs CRS, mp orb.MultiPolygon) *Polygon {
	return &Polygon{CRS: crs, Geom: mp}
}

// Empty reports whether the polygon has no rings at all.
func (p *Polygon) Empty() bool {
	if p == nil {
		return true
	}
	for _, poly := range p.Geom {
		if len(poly) > 0 {
			return false
		}
	}
	return true
}

func toGoDalGeometry(p *Polygon) (*godal.Geometry, error) {
	gj := geojson.NewGeometry(orb.Geometry(p.Geom))
	data, err := json.Marshal(gj)
	if err != nil {
		return nil, fmt.Errorf("marshal geometry to geojson: %w", err)
	}
	sr, err := spatialRef(p.CRS)
	if err != nil {
		return nil, err
	}
	g, err := godal.NewGeometryFromGeoJSON(string(data))
	if err != nil {
		return nil, fmt.Errorf("build ogr geometry: %w", err)
	}
	g.SetSpatialRef(sr)
	return g, nil
}

func fromGoDalGeometry(g *godal.Geometry, crs CRS) (*Polygon, error) {
	gjStr, err := g.GeoJSON()
	if err != nil {
		return nil, fmt.Errorf("export ogr geometry: %w", err)
	}
	parsed, err := geojson.UnmarshalGeometry([]byte(gjStr))
	if err != nil {
		return nil, fmt.Errorf("parse geojson back to orb: %w", err)
	}
	switch v := parsed.Geometry().(type) {
	case orb.MultiPolygon:
		return &Polygon{CRS: crs, Geom: v}, nil
	case orb.Polygon:
		return &Polygon{CRS: crs, Geom: orb.MultiPolygon{v}}, nil
	default:
		// Boolean ops occasionally degenerate to an empty/point/line
		// result (e.g. two polygons touching along an edge). Treat as
		// an empty area rather than erroring the whole computation.
		return &Polygon{CRS: crs, Geom: orb.MultiPolygon{}}, nil
	}
}

// Area returns the geometry's area in the units of its own CRS (square
// degrees for geographic CRSs, square metres for most projected ones).
func (p *Polygon) Area() (float64, error) {
	if p.Empty() {
		return 0, nil
	}
	g, err := toGoDalGeometry(p)
	if err != nil {
		return 0, err
	}
	defer g.Close()
	return g.Area(), nil
}

// Valid reports OGC validity.
func (p *Polygon) Valid() (bool, error) {
	if p.Empty() {
		return true, nil
	}
	g, err := toGoDalGeometry(p)
	if err != nil {
		return false, err
	}
	defer g.Close()
	return g.Valid(), nil
}

// Repair attempts to fix an invalid geometry via the standard buffer(0)
// trick. If the result is still invalid or has non-positive area, it
// returns occerr.ErrPolygonInvalid.
func (p *Polygon) Repair() (*Polygon, error) {
	valid, err := p.Valid()
	if err != nil {
		return nil, err
	}
	if valid {
		return p, nil
	}
	buffered, err := p.buffer0()
	if err != nil {
		return nil, occerr.Tag(occerr.ErrPolygonInvalid, "repair", err)
	}
	ok, err := buffered.Valid()
	if err != nil {
		return nil, err
	}
	area, err := buffered.Area()
	if err != nil {
		return nil, err
	}
	if !ok || area <= areaEpsilon {
		return nil, occerr.Tag(occerr.ErrPolygonInvalid, "repair", fmt.Errorf("still invalid or non-positive area after buffer(0)"))
	}
	return buffered, nil
}

// areaEpsilon is the 1e-9 tolerance spec §6 mandates for area-vs-zero
// comparisons.
const areaEpsilon = 1e-9

func (p *Polygon) buffer0() (*Polygon, error) {
	g, err := toGoDalGeometry(p)
	if err != nil {
		return nil, err
	}
	defer g.Close()
	buffered, err := g.Buffer(0, 0)
	if err != nil {
		return nil, fmt.Errorf("buffer(0): %w", err)
	}
	defer buffered.Close()
	return fromGoDalGeometry(buffered, p.CRS)
}

// Intersects reports whether the two geometries (assumed already in the
// same CRS) overlap.
func Intersects(a, b *Polygon) (bool, error) {
	if a.Empty() || b.Empty() {
		return false, nil
	}
	ga, err := toGoDalGeometry(a)
	if err != nil {
		return false, err
	}
	defer ga.Close()
	gb, err := toGoDalGeometry(b)
	if err != nil {
		return false, err
	}
	defer gb.Close()
	ok, err := ga.Intersects(gb)
	if err != nil {
		return false, fmt.Errorf("intersects: %w", err)
	}
	return ok, nil
}

// Intersection returns a ∩ b. godal's OGR binding exposes Difference and
// Union directly but not Intersection, so it is derived from the standard
// identity A∩B = A − (A−B).
func Intersection(a, b *Polygon) (*Polygon, error) {
	if a.Empty() || b.Empty() {
		return &Polygon{CRS: a.CRS, Geom: orb.MultiPolygon{}}, nil
	}
	aMinusB, err := Difference(a, b)
	if err != nil {
		return nil, err
	}
	return Difference(a, aMinusB)
}

// Union returns the n-ary union of geoms (all assumed to share one CRS).
func Union(geoms ...*Polygon) (*Polygon, error) {
	nonEmpty := make([]*Polygon, 0, len(geoms))
	for _, g := range geoms {
		if !g.Empty() {
			nonEmpty = append(nonEmpty, g)
		}
	}
	if len(nonEmpty) == 0 {
		return &Polygon{Geom: orb.MultiPolygon{}}, nil
	}
	acc, err := toGoDalGeometry(nonEmpty[0])
	if err != nil {
		return nil, err
	}
	defer acc.Close()
	for _, g := range nonEmpty[1:] {
		gg, err := toGoDalGeometry(g)
		if err != nil {
			return nil, err
		}
		merged, err := acc.Union(gg)
		gg.Close()
		if err != nil {
			return nil, fmt.Errorf("union: %w", err)
		}
		acc.Close()
		acc = merged
	}
	return fromGoDalGeometry(acc, nonEmpty[0].CRS)
}

// Difference returns a − b.
func Difference(a, b *Polygon) (*Polygon, error) {
	if a.Empty() {
		return &Polygon{CRS: a.CRS, Geom: orb.MultiPolygon{}}, nil
	}
	if b.Empty() {
		return a, nil
	}
	ga, err := toGoDalGeometry(a)
	if err != nil {
		return nil, err
	}
	defer ga.Close()
	gb, err := toGoDalGeometry(b)
	if err != nil {
		return nil, err
	}
	defer gb.Close()
	diff, err := ga.Difference(gb)
	if err != nil {
		return nil, fmt.Errorf("difference: %w", err)
	}
	defer diff.Close()
	return fromGoDalGeometry(diff, a.CRS)
}

// Reproject reprojects p into target, using "always-XY" axis ordering.
// If the reprojected geometry is invalid it is repaired via buffer(0);
// if it is still invalid or has non-positive area, ErrReproject is
// returned — the caller must never guess a substitute CRS.
func Reproject(p *Polygon, target CRS) (*Polygon, error) {
	if p.CRS == target {
		return p, nil
	}
	src, err := spatialRef(p.CRS)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrReproject, string(p.CRS), err)
	}
	dst, err := spatialRef(target)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrReproject, string(target), err)
	}

	g, err := toGoDalGeometry(p)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrReproject, string(p.CRS), err)
	}
	defer g.Close()

	trn, err := godal.NewTransform(src, dst)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrReproject, string(target), err)
	}
	defer trn.Close()

	if err := g.Transform(trn); err != nil {
		return nil, occerr.Tag(occerr.ErrReproject, string(target), err)
	}

	out, err := fromGoDalGeometry(g, target)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrReproject, string(target), err)
	}

	valid, err := out.Valid()
	if err != nil {
		return nil, occerr.Tag(occerr.ErrReproject, string(target), err)
	}
	if !valid {
		repaired, rerr := out.Repair()
		if rerr != nil {
			return nil, occerr.Tag(occerr.ErrReproject, string(target), rerr)
		}
		out = repaired
	}
	area, err := out.Area()
	if err != nil {
		return nil, occerr.Tag(occerr.ErrReproject, string(target), err)
	}
	if area <= areaEpsilon {
		return nil, occerr.Tag(occerr.ErrReproject, string(target), fmt.Errorf("non-positive area after reprojection"))
	}
	return out, nil
}
