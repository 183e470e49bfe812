package geom

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
)

// CRS is an opaque coordinate reference system identifier: an authority
// (almost always "EPSG") plus a numeric code, e.g. "EPSG:31984".
type CRS string

// WGS84 is the pivot CRS used when no natural common CRS exists between two
// geometries being compared (spec §3).
const WGS84 CRS = "EPSG:4326"

// Authority returns the authority name and code, e.g. ("EPSG", 31984).
func (c CRS) Authority() (string, int, error) {
	parts := strings.SplitN(string(c), ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("crs %q: expected AUTHORITY:CODE", c)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("crs %q: non-numeric code: %w", c, err)
	}
	return parts[0], code, nil
}

// Valid reports whether c parses as AUTHORITY:CODE with a known authority.
func (c CRS) Valid() bool {
	auth, _, err := c.Authority()
	if err != nil {
		return false
	}
	return strings.EqualFold(auth, "EPSG")
}

var srCache sync.Map // CRS -> *godal.SpatialRef

// spatialRef resolves a CRS to a (cached, process-lifetime) godal spatial
// reference handle. Callers must not Close() the returned handle; it is
// owned by the cache.
func spatialRef(c CRS) (*godal.SpatialRef, error) {
	if v, ok := srCache.Load(c); ok {
		return v.(*godal.SpatialRef), nil
	}
	_, code, err := c.Authority()
	if err != nil {
		return nil, fmt.Errorf("unknown CRS %q: %w", c, err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(code)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", c, err)
	}
	actual, loaded := srCache.LoadOrStore(c, sr)
	if loaded {
		sr.Close()
	}
	return actual.(*godal.SpatialRef), nil
}
