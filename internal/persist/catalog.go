package persist

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// DefaultBatchSize mirrors the teacher's internal/mbtiles.DefaultBatchSize:
// the number of records buffered before an automatic flush.
const DefaultBatchSize = 100

// Catalog is the durable per-tile store C2 writes to (spec §4.2 step 7).
// It is also the input C3 reads accepted tiles back from. Records are
// keyed by filename and replaced when written again; ingestion does not
// consult the catalog to skip bundles an earlier run already recorded.
type Catalog struct {
	db        *sql.DB
	batch     []TileRecord
	batchSize int
	mu        sync.Mutex
}

// OpenCatalog opens (creating if absent) a SQLite-backed catalog at path.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 50000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if err := createCatalogSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	return &Catalog{db: db, batch: make([]TileRecord, 0, DefaultBatchSize), batchSize: DefaultBatchSize}, nil
}

func createCatalogSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS tiles (
			filename TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			class TEXT,
			date TEXT,
			orbit INTEGER,
			geographic_coverage REAL,
			valid_pixels_percentage REAL,
			effective_coverage REAL,
			cloud_coverage REAL,
			bounds_left REAL,
			bounds_bottom REAL,
			bounds_right REAL,
			bounds_top REAL,
			crs TEXT,
			tci_path TEXT,
			cloud_mask_path TEXT,
			reason TEXT,
			mgrs_tile TEXT,
			processing_baseline TEXT
		);
	`
	_, err := db.Exec(schema)
	return err
}

// WriteTile buffers rec, flushing automatically once the batch fills —
// the same batch/transaction pattern as the teacher's
// internal/mbtiles.Writer.WriteTile.
func (c *Catalog) WriteTile(rec TileRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.batch = append(c.batch, rec)
	if len(c.batch) >= c.batchSize {
		return c.flushLocked()
	}
	return nil
}

// Flush writes any buffered records to the database.
func (c *Catalog) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

func (c *Catalog) flushLocked() error {
	if len(c.batch) == 0 {
		return nil
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO tiles
		(filename, status, class, date, orbit, geographic_coverage, valid_pixels_percentage,
		 effective_coverage, cloud_coverage, bounds_left, bounds_bottom, bounds_right, bounds_top,
		 crs, tci_path, cloud_mask_path, reason, mgrs_tile, processing_baseline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range c.batch {
		var left, bottom, right, top sql.NullFloat64
		var crs sql.NullString
		if rec.Bounds != nil {
			left = sql.NullFloat64{Float64: rec.Bounds.Left, Valid: true}
			bottom = sql.NullFloat64{Float64: rec.Bounds.Bottom, Valid: true}
			right = sql.NullFloat64{Float64: rec.Bounds.Right, Valid: true}
			top = sql.NullFloat64{Float64: rec.Bounds.Top, Valid: true}
		}
		if rec.CRS != nil {
			crs = sql.NullString{String: *rec.CRS, Valid: true}
		}
		var date sql.NullString
		if rec.Date != nil {
			date = sql.NullString{String: *rec.Date, Valid: true}
		}
		var orbit sql.NullInt64
		if rec.Orbit != nil {
			orbit = sql.NullInt64{Int64: int64(*rec.Orbit), Valid: true}
		}

		if _, err := stmt.Exec(
			rec.Filename, rec.Status, rec.Class, date, orbit,
			rec.GeographicCoverage, rec.ValidPixelsPercent, rec.EffectiveCoverage, rec.CloudCoverage,
			left, bottom, right, top, crs, rec.TCIPath, rec.CloudMaskPath, rec.Reason,
			rec.MGRSTile, rec.ProcessingBaseline,
		); err != nil {
			return fmt.Errorf("insert tile %s: %w", rec.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	c.batch = c.batch[:0]
	return nil
}

// Accepted returns every record with status "accepted", ordered by
// filename ascending — the stable tie-breaking order spec §5/§9 require
// of C3's inputs.
func (c *Catalog) Accepted() ([]TileRecord, error) {
	return c.byStatus("accepted")
}

// All returns every record in the catalog, ordered by filename ascending.
func (c *Catalog) All() ([]TileRecord, error) {
	return c.query("SELECT filename, status, class, date, orbit, geographic_coverage, valid_pixels_percentage, effective_coverage, cloud_coverage, bounds_left, bounds_bottom, bounds_right, bounds_top, crs, tci_path, cloud_mask_path, reason, mgrs_tile, processing_baseline FROM tiles ORDER BY filename ASC")
}

func (c *Catalog) byStatus(status string) ([]TileRecord, error) {
	return c.query("SELECT filename, status, class, date, orbit, geographic_coverage, valid_pixels_percentage, effective_coverage, cloud_coverage, bounds_left, bounds_bottom, bounds_right, bounds_top, crs, tci_path, cloud_mask_path, reason, mgrs_tile, processing_baseline FROM tiles WHERE status = ? ORDER BY filename ASC", status)
}

func (c *Catalog) query(q string, args ...any) ([]TileRecord, error) {
	if err := c.Flush(); err != nil {
		return nil, err
	}
	rows, err := c.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var out []TileRecord
	for rows.Next() {
		var rec TileRecord
		var class, reason, mgrs, baseline sql.NullString
		var date, crs sql.NullString
		var orbit sql.NullInt64
		var left, bottom, right, top sql.NullFloat64

		if err := rows.Scan(&rec.Filename, &rec.Status, &class, &date, &orbit,
			&rec.GeographicCoverage, &rec.ValidPixelsPercent, &rec.EffectiveCoverage, &rec.CloudCoverage,
			&left, &bottom, &right, &top, &crs, &rec.TCIPath, &rec.CloudMaskPath, &reason, &mgrs, &baseline); err != nil {
			return nil, fmt.Errorf("scan tile row: %w", err)
		}

		rec.Class = class.String
		rec.Reason = reason.String
		rec.MGRSTile = mgrs.String
		rec.ProcessingBaseline = baseline.String
		if date.Valid {
			d := date.String
			rec.Date = &d
		}
		if orbit.Valid {
			o := int(orbit.Int64)
			rec.Orbit = &o
		}
		if left.Valid && bottom.Valid && right.Valid && top.Valid && crs.Valid {
			rec.Bounds = &BoundsJSON{Left: left.Float64, Bottom: bottom.Float64, Right: right.Float64, Top: top.Float64}
			c := crs.String
			rec.CRS = &c
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close flushes and closes the underlying database.
func (c *Catalog) Close() error {
	if err := c.Flush(); err != nil {
		c.db.Close()
		return err
	}
	return c.db.Close()
}
