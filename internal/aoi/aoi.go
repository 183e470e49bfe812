// Package aoi loads the Area of Interest polygon that anchors every stage
// of the pipeline. It decodes a standard GeoJSON vector file the same way
// the teacher's internal/geojson/converter.go bridges orb geometry to
// GeoJSON bytes, just in the opposite direction (file bytes -> orb.Geometry
// -> geom.Polygon).
package aoi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// crsMember mirrors the (deprecated but still widely produced, e.g. by
// QGIS) GeoJSON "crs" top-level member:
// {"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::31984"}}
type crsMember struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type envelope struct {
	CRS *crsMember `json:"crs"`
}

var epsgInName = regexp.MustCompile(`EPSG(?:::|:)(\d+)$`)

// Load reads path as GeoJSON and returns its geometry as a geom.Polygon.
// If the file carries no embedded CRS, fallbackCRS is used and a warning is
// logged — per spec §6, a missing CRS is never silently guessed at, it is
// an explicit, logged default.
func Load(path string, fallbackCRS geom.CRS) (*geom.Polygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrBadInput, path, err)
	}

	var env envelope
	crs := fallbackCRS
	embedded := false
	if err := json.Unmarshal(data, &env); err == nil && env.CRS != nil {
		if m := epsgInName.FindStringSubmatch(env.CRS.Properties.Name); m != nil {
			crs = geom.CRS("EPSG:" + m[1])
			embedded = true
		}
	}
	if !embedded {
		slog.Warn("AOI file has no embedded CRS, assuming configured default", "path", path, "crs", string(fallbackCRS))
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil && len(fc.Features) > 0 {
		return polygonFromGeometries(crs, collectGeometries(fc))
	}

	feat, err := geojson.UnmarshalFeature(data)
	if err == nil && feat.Geometry != nil {
		return polygonFromGeometries(crs, []orb.Geometry{feat.Geometry})
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrBadInput, path, fmt.Errorf("not a valid GeoJSON geometry/feature/collection: %w", err))
	}
	return polygonFromGeometries(crs, []orb.Geometry{g.Geometry()})
}

func collectGeometries(fc *geojson.FeatureCollection) []orb.Geometry {
	out := make([]orb.Geometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			out = append(out, f.Geometry)
		}
	}
	return out
}

func polygonFromGeometries(crs geom.CRS, geoms []orb.Geometry) (*geom.Polygon, error) {
	var mp orb.MultiPolygon
	for _, g := range geoms {
		switch v := g.(type) {
		case orb.Polygon:
			mp = append(mp, v)
		case orb.MultiPolygon:
			mp = append(mp, v...)
		default:
			return nil, occerr.Tag(occerr.ErrBadInput, "aoi", fmt.Errorf("unsupported AOI geometry type %T, expected polygon/multipolygon", g))
		}
	}
	if len(mp) == 0 {
		return nil, occerr.Tag(occerr.ErrBadInput, "aoi", fmt.Errorf("no polygon geometry found"))
	}
	return geom.NewMultiPolygon(crs, mp), nil
}
