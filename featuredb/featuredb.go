// Package featuredb indexes the beds, signs and tiles of a rendered map in a
// SQLite database, for tools that want to query them without parsing the
// manifest.
package featuredb

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/astei/savemap/chunk"
	"github.com/astei/savemap/tiles"
)

// FileName is the conventional name of the database inside an output
// directory.
const FileName = "features.db"

type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

type config struct {
	Logger *slog.Logger
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (_ *DB, err error) {
	cfg := config{Logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = db.Close()
		}
	}()
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err = db.Exec(p); err != nil {
			return nil, errors.Wrapf(err, "featuredb: %s", p)
		}
	}
	if err = initSchema(db); err != nil {
		return nil, err
	}
	return &DB{db: db, logger: cfg.Logger}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS beds (
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			time INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS signs (
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			time INTEGER NOT NULL,
			text1 TEXT NOT NULL,
			text2 TEXT NOT NULL,
			text3 TEXT NOT NULL,
			text4 TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tiles (
			zoom INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			PRIMARY KEY (zoom, x, y)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errors.Wrap(err, "featuredb: creating schema")
		}
	}
	return nil
}

// WriteFeatures replaces all stored beds and signs.
func (d *DB) WriteFeatures(ctx context.Context, beds []chunk.Bed, signs []chunk.Sign) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM beds"); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM signs"); err != nil {
			return err
		}

		bedStmt, err := tx.PrepareContext(ctx, "INSERT INTO beds (x, z, time) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer bedStmt.Close()
		for _, b := range beds {
			if _, err := bedStmt.ExecContext(ctx, b.X, b.Z, b.Time); err != nil {
				return err
			}
		}

		signStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO signs (x, z, time, text1, text2, text3, text4) VALUES (?, ?, ?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer signStmt.Close()
		for _, s := range signs {
			if _, err := signStmt.ExecContext(ctx, s.X, s.Z, s.Time, s.Text[0], s.Text[1], s.Text[2], s.Text[3]); err != nil {
				return err
			}
		}
		d.logger.Debug("features written", "beds", len(beds), "signs", len(signs))
		return nil
	})
}

// WriteLevels replaces the stored tile ids.
func (d *DB) WriteLevels(ctx context.Context, levels map[int][]tiles.ID) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM tiles"); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO tiles (zoom, x, y) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()
		n := 0
		for zoom, ids := range levels {
			for _, id := range ids {
				if _, err := stmt.ExecContext(ctx, zoom, id.X, id.Y); err != nil {
					return err
				}
				n++
			}
		}
		d.logger.Debug("tiles written", "levels", len(levels), "tiles", n)
		return nil
	})
}

func (d *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return errors.Wrap(err, "featuredb")
	}
	return tx.Commit()
}

func (d *DB) Beds(ctx context.Context) ([]chunk.Bed, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT x, z, time FROM beds ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var beds []chunk.Bed
	for rows.Next() {
		var b chunk.Bed
		if err := rows.Scan(&b.X, &b.Z, &b.Time); err != nil {
			return nil, err
		}
		beds = append(beds, b)
	}
	return beds, rows.Err()
}

func (d *DB) Signs(ctx context.Context) ([]chunk.Sign, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT x, z, time, text1, text2, text3, text4 FROM signs ORDER BY rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var signs []chunk.Sign
	for rows.Next() {
		var s chunk.Sign
		if err := rows.Scan(&s.X, &s.Z, &s.Time, &s.Text[0], &s.Text[1], &s.Text[2], &s.Text[3]); err != nil {
			return nil, err
		}
		signs = append(signs, s)
	}
	return signs, rows.Err()
}

// Levels returns the stored tile ids grouped by zoom.
func (d *DB) Levels(ctx context.Context) (map[int][]tiles.ID, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT zoom, x, y FROM tiles")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	levels := make(map[int][]tiles.ID)
	for rows.Next() {
		var id tiles.ID
		if err := rows.Scan(&id.Zoom, &id.X, &id.Y); err != nil {
			return nil, err
		}
		levels[id.Zoom] = append(levels[id.Zoom], id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, ids := range levels {
		tiles.Sort(ids)
	}
	return levels, nil
}

// Zooms returns the stored zoom levels, finest first.
func (d *DB) Zooms(ctx context.Context) ([]int, error) {
	levels, err := d.Levels(ctx)
	if err != nil {
		return nil, err
	}
	zooms := make([]int, 0, len(levels))
	for z := range levels {
		zooms = append(zooms, z)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(zooms)))
	return zooms, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
