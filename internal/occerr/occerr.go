// Package occerr defines the error taxonomy shared across pipeline stages.
//
// Per-item errors (a tile, a mosaic) are wrapped with one of these sentinels
// so a stage can classify and record the failure without aborting the rest
// of the batch. Stage-level errors (AOI unreadable, solver unavailable) are
// returned bare and abort the invoking command.
package occerr

import "errors"

var (
	// ErrBadInput marks a fatal configuration/input problem for the
	// invoking stage (missing AOI, missing bundle directory). Exit code 2.
	ErrBadInput = errors.New("bad input")

	// ErrBadRaster marks a raster that could not be opened or decoded.
	ErrBadRaster = errors.New("bad raster")

	// ErrMissingArtifact marks a bundle missing one of its three required
	// members (metadata XML, cloud raster, TCI raster).
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrReproject marks a geometry reprojection that failed validity or
	// area checks even after zero-buffer repair. The caller must not guess
	// a substitute CRS.
	ErrReproject = errors.New("reprojection failed")

	// ErrCloudUnknown marks a cloud-coverage computation that failed for
	// any reason. Per policy the caller falls back to 1.0 (assume clouds)
	// rather than propagating this as fatal.
	ErrCloudUnknown = errors.New("cloud coverage unknown")

	// ErrPolygonInvalid marks a geometry that remained invalid (or
	// collapsed to non-positive area) after one buffer(0) repair attempt.
	ErrPolygonInvalid = errors.New("invalid polygon")

	// ErrSolverFailure marks a MILP solver invocation that errored or
	// timed out (as opposed to returning a proven-infeasible result).
	ErrSolverFailure = errors.New("solver failure")

	// ErrInfeasible marks a MILP model proven to have no feasible solution.
	ErrInfeasible = errors.New("infeasible model")
)

// Tagged wraps an error with one of the sentinels above plus contextual
// identifying information (a filename, a group id, ...), so batch reporting
// can record "which tile" without losing the underlying cause.
type Tagged struct {
	Sentinel error
	Subject  string // e.g. tile filename or mosaic group_id
	Cause    error
}

func (t *Tagged) Error() string {
	if t.Cause == nil {
		return t.Subject + ": " + t.Sentinel.Error()
	}
	return t.Subject + ": " + t.Sentinel.Error() + ": " + t.Cause.Error()
}

func (t *Tagged) Unwrap() error { return t.Sentinel }

// Tag wraps cause with sentinel, attaching subject for reporting.
func Tag(sentinel error, subject string, cause error) *Tagged {
	return &Tagged{Sentinel: sentinel, Subject: subject, Cause: cause}
}
