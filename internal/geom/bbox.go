package geom

import "github.com/paulmach/orb"

// BBox is an axis-aligned bounding box in a stated CRS (spec §3).
type BBox struct {
	Left, Bottom, Right, Top float64
	CRS                      CRS
}

// ToPolygon returns bb as a closed single-ring rectangular polygon in the
// same CRS.
func (bb BBox) ToPolygon() *Polygon {
	ring := orb.Ring{
		{bb.Left, bb.Bottom},
		{bb.Right, bb.Bottom},
		{bb.Right, bb.Top},
		{bb.Left, bb.Top},
		{bb.Left, bb.Bottom},
	}
	return &Polygon{CRS: bb.CRS, Geom: orb.MultiPolygon{orb.Polygon{ring}}}
}

// Bound returns the orb.Bound equivalent, dropping the CRS tag.
func (bb BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{bb.Left, bb.Bottom}, Max: orb.Point{bb.Right, bb.Top}}
}

// FromBound builds a BBox from an orb.Bound in the given CRS.
func FromBound(b orb.Bound, crs CRS) BBox {
	return BBox{Left: b.Min[0], Bottom: b.Min[1], Right: b.Max[0], Top: b.Max[1], CRS: crs}
}
