package raster

import (
	"image"
	"image/color"

	"github.com/Delevati/occmosaic/internal/geom"
	"golang.org/x/image/vector"
)

// MaskedBand is the result of read_masked_band: the band's values over its
// full grid plus a boolean mask that is true for cells the AOI polygon
// covers by more than half of the cell's area (anti-aliased scanline
// coverage); pixels outside the polygon are marked invalid. On the
// polygon's edge this is not a cell-center test: a cell whose center is
// inside but whose covered share is at most one half is marked invalid,
// and the reverse.
type MaskedBand struct {
	Values []float32
	Valid  []bool
	Width  int
	Height int
}

// ReadMaskedBand reads band and restricts it to the AOI polygon, which must
// already be expressed in the raster's own CRS (reproject first via
// geom.Reproject). It reuses the scanline polygon rasterization technique
// the teacher's internal/raster/raster.go used for map rendering
// (golang.org/x/image/vector.Rasterizer), repointed here at building an
// inside/outside pixel mask instead of painting pixels.
func (h *Handle) ReadMaskedBand(band int, aoi *geom.Polygon) (*MaskedBand, error) {
	values, err := h.ReadBand(band)
	if err != nil {
		return nil, err
	}
	return &MaskedBand{Values: values, Valid: h.rasterizeMask(aoi), Width: h.Width, Height: h.Height}, nil
}

// rasterizeMask rasterizes aoi (in the handle's CRS) onto the full pixel
// grid, returning true for every cell whose anti-aliased coverage by the
// polygon exceeds one half.
func (h *Handle) rasterizeMask(aoi *geom.Polygon) []bool {
	ras := vector.NewRasterizer(h.Width, h.Height)

	for _, poly := range aoi.Geom {
		for _, ring := range poly {
			if len(ring) < 3 {
				continue
			}
			first := true
			for _, pt := range ring {
				px, py := h.worldToPixel(pt[0], pt[1])
				if first {
					ras.MoveTo(float32(px), float32(py))
					first = false
				} else {
					ras.LineTo(float32(px), float32(py))
				}
			}
			ras.ClosePath()
		}
	}

	dst := image.NewAlpha(image.Rect(0, 0, h.Width, h.Height))
	ras.Draw(dst, dst.Bounds(), image.NewUniform(color.Alpha{A: 255}), image.Point{})

	valid := make([]bool, h.Width*h.Height)
	for i, a := range dst.Pix {
		valid[i] = a > 127
	}
	return valid
}
