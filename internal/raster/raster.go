// Package raster implements the C1 raster-access capability: opening
// Sentinel-2 rasters, masking a band by an AOI polygon, and the pixel
// statistics the ingestion and greedy-composition stages need.
//
// Rasters are opened through github.com/airbusgeo/godal's cgo GDAL
// bindings (the same family of dependency as the teacher's cgo-wrapped
// github.com/omniscale/go-mapnik/v2, and already exercised for this exact
// "open a satellite raster" concern by the wmo-raf-gsky and
// chuc92man-gsky worker/gdalprocess packages in the reference pack).
package raster

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/Delevati/occmosaic/internal/geom"
	"github.com/Delevati/occmosaic/internal/occerr"
	"github.com/airbusgeo/godal"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Handle is an opened raster: its georeferencing plus enough metadata to
// read bands against an AOI mask. Handles are single-use within a task and
// must be Close()d on every exit path (spec §5).
type Handle struct {
	path      string
	ds        *godal.Dataset
	Width     int
	Height    int
	BandCount int
	CRS       geom.CRS
	Transform [6]float64 // GDAL affine geotransform
	Bounds    geom.BBox
}

// authorityWKT pulls the trailing AUTHORITY["EPSG","code"] node out of a
// GDAL-exported WKT CRS definition. GDAL always appends one for any CRS it
// can resolve to an EPSG entry.
var authorityWKT = regexp.MustCompile(`AUTHORITY\["EPSG","(\d+)"\]\s*\]?\s*$`)

func crsFromWKT(wkt string) (geom.CRS, error) {
	m := authorityWKT.FindStringSubmatch(wkt)
	if m == nil {
		return "", fmt.Errorf("could not resolve an EPSG authority code from projection WKT")
	}
	return geom.CRS("EPSG:" + m[1]), nil
}

// Open opens path and reads its georeferencing. Per spec §4.1, a missing or
// corrupt file, or one whose CRS cannot be resolved, is fatal with
// occerr.ErrBadRaster — the caller must not guess a CRS.
func Open(path string) (*Handle, error) {
	register()
	ds, err := godal.Open(path)
	if err != nil {
		return nil, occerr.Tag(occerr.ErrBadRaster, path, err)
	}

	st := ds.Structure()
	wkt := ds.Projection()
	if wkt == "" {
		ds.Close()
		return nil, occerr.Tag(occerr.ErrBadRaster, path, fmt.Errorf("raster has no CRS"))
	}
	crs, err := crsFromWKT(wkt)
	if err != nil {
		ds.Close()
		return nil, occerr.Tag(occerr.ErrBadRaster, path, err)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		ds.Close()
		return nil, occerr.Tag(occerr.ErrBadRaster, path, fmt.Errorf("no geotransform: %w", err))
	}

	bounds, err := ds.Bounds()
	if err != nil {
		ds.Close()
		return nil, occerr.Tag(occerr.ErrBadRaster, path, fmt.Errorf("no bounds: %w", err))
	}

	return &Handle{
		path:      path,
		ds:        ds,
		Width:     st.SizeX,
		Height:    st.SizeY,
		BandCount: st.NBands,
		CRS:       crs,
		Transform: gt,
		Bounds: geom.BBox{
			Left: bounds[0], Bottom: bounds[1], Right: bounds[2], Top: bounds[3],
			CRS: crs,
		},
	}, nil
}

// Close releases the underlying GDAL dataset handle.
func (h *Handle) Close() error {
	if h.ds == nil {
		return nil
	}
	err := h.ds.Close()
	h.ds = nil
	return err
}

// pixelToWorld converts a pixel column/row to world coordinates in the
// raster's own CRS, using the affine geotransform convention GDAL exposes:
// x = gt[0] + col*gt[1] + row*gt[2]; y = gt[3] + col*gt[4] + row*gt[5].
func (h *Handle) pixelToWorld(col, row float64) (x, y float64) {
	gt := h.Transform
	x = gt[0] + col*gt[1] + row*gt[2]
	y = gt[3] + col*gt[4] + row*gt[5]
	return
}

// worldToPixel inverts pixelToWorld for the common case of an
// axis-aligned, non-rotated geotransform (gt[2] == gt[4] == 0), which is
// what every Sentinel-2 L2A JP2 product uses.
func (h *Handle) worldToPixel(x, y float64) (col, row float64) {
	gt := h.Transform
	col = (x - gt[0]) / gt[1]
	row = (y - gt[3]) / gt[5]
	return
}

// ReadBand reads the full band (band indices are 1-based, per GDAL
// convention) into a float32 slice in row-major order.
func (h *Handle) ReadBand(band int) ([]float32, error) {
	bands := h.ds.Bands()
	if band < 1 || band > len(bands) {
		return nil, occerr.Tag(occerr.ErrBadRaster, h.path, fmt.Errorf("band %d out of range (have %d)", band, len(bands)))
	}
	buf := make([]float32, h.Width*h.Height)
	if err := bands[band-1].Read(0, 0, buf, h.Width, h.Height); err != nil {
		return nil, occerr.Tag(occerr.ErrBadRaster, h.path, fmt.Errorf("read band %d: %w", band, err))
	}
	return buf, nil
}
