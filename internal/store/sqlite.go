package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/geowerk/tilefetch/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	address    TEXT NOT NULL,
	region_key TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tiles (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES runs(id),
	region_key    TEXT NOT NULL,
	tile_id       TEXT NOT NULL,
	status        TEXT NOT NULL,
	local_path    TEXT,
	bytes         INTEGER NOT NULL DEFAULT 0,
	skipped       INTEGER NOT NULL DEFAULT 0,
	error         TEXT,
	downloaded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_region_key ON runs(region_key);
CREATE INDEX IF NOT EXISTS idx_tiles_run_id ON tiles(run_id);
CREATE INDEX IF NOT EXISTS idx_tiles_tile_id ON tiles(region_key, tile_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, addr model.Address) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	addrJSON, err := json.Marshal(addr)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal address")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, address, region_key, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(addrJSON), addr.RegionKey, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Address:   addr,
		RegionKey: addr.RegionKey,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error {
	var summaryJSON sql.NullString
	if summary != nil {
		b, err := json.Marshal(summary)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal summary")
		}
		summaryJSON = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		string(status), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, address, region_key, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, address, region_key, status, summary, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.RegionKey != "" {
		query += ` AND region_key = ?`
		args = append(args, filter.RegionKey)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) RecordTile(ctx context.Context, runID, regionKey string, result model.DownloadResult) error {
	id := uuid.New().String()
	skipped := 0
	if result.Skipped {
		skipped = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tiles (id, run_id, region_key, tile_id, status, local_path, bytes, skipped, error, downloaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, runID, regionKey, result.TileID, result.Status.String(),
		result.LocalPath, result.Bytes, skipped, result.Error, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: record tile %s for run %s", result.TileID, runID)
}

func (s *SQLiteStore) ListTiles(ctx context.Context, runID string) ([]TileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, region_key, tile_id, status, local_path, bytes, skipped, error, downloaded_at
		 FROM tiles WHERE run_id = ? ORDER BY downloaded_at, tile_id`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list tiles for run %s", runID)
	}
	defer rows.Close()

	var records []TileRecord
	for rows.Next() {
		var tr TileRecord
		var status string
		var localPath, errMsg sql.NullString
		var skipped int
		err := rows.Scan(&tr.ID, &tr.RunID, &tr.RegionKey, &tr.TileID, &status,
			&localPath, &tr.Bytes, &skipped, &errMsg, &tr.DownloadedAt)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tile")
		}
		tr.Status, err = model.ParseStatus(status)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: tile %s", tr.ID)
		}
		tr.LocalPath = localPath.String
		tr.Error = errMsg.String
		tr.Skipped = skipped != 0
		records = append(records, tr)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list tiles iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var addrJSON string
	var summaryJSON sql.NullString

	err := row.Scan(&r.ID, &addrJSON, &r.RegionKey, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(addrJSON), &r.Address); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal address")
	}
	if summaryJSON.Valid {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}
