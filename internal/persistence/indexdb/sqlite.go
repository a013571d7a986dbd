package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tilegen.ai/internal/generator"
	"tilegen.ai/internal/preset"
)

// SQLiteIndex is a read-model of generation runs. Writes are queued and
// applied by a single goroutine; the queue drops when full.
type SQLiteIndex struct {
	db *sql.DB

	// mu orders RecordRun sends against Close closing ch.
	mu     sync.RWMutex
	ch     chan generator.RunRecord
	closed bool
	wg     sync.WaitGroup
	once   sync.Once

	dropped atomic.Uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan generator.RunRecord, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS presets (
			digest TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			preset TEXT NOT NULL,
			preset_digest TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			scale REAL NOT NULL,
			offset_x REAL NOT NULL,
			offset_y REAL NOT NULL,
			noise TEXT NOT NULL,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(digest);`,
		`CREATE TABLE IF NOT EXISTS run_biomes (
			run_id TEXT NOT NULL,
			biome_id TEXT NOT NULL,
			cells INTEGER NOT NULL,
			PRIMARY KEY (run_id, biome_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close drains queued records and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) RecordRun(rec generator.RunRecord) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- rec:
	default:
		// Drop if the indexer falls behind; the JSONL run log remains the source of truth.
		s.dropped.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *SQLiteIndex) UpsertPreset(p preset.Preset) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO presets(digest,name,json,updated_at) VALUES(?,?,?,?)`, p.Digest(), p.Name, string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

type RunRow struct {
	RunID        string         `json:"run_id"`
	Preset       string         `json:"preset"`
	PresetDigest string         `json:"preset_digest"`
	StartedAt    string         `json:"started_at"`
	DurationMS   int64          `json:"duration_ms"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Scale        float64        `json:"scale"`
	OffsetX      float64        `json:"offset_x"`
	OffsetY      float64        `json:"offset_y"`
	Noise        string         `json:"noise"`
	Digest       string         `json:"digest"`
	Biomes       map[string]int `json:"biomes,omitempty"`
}

// RecentRuns returns up to limit runs, newest first, with their biome counts.
func (s *SQLiteIndex) RecentRuns(ctx context.Context, limit int) ([]RunRow, error) {
	return QueryRuns(ctx, s.db, limit)
}

// QueryRuns reads runs from any handle on an index database.
func QueryRuns(ctx context.Context, db *sql.DB, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT run_id,preset,preset_digest,started_at,duration_ms,width,height,scale,offset_x,offset_y,noise,digest FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	byID := map[string]int{}
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.RunID, &r.Preset, &r.PresetDigest, &r.StartedAt, &r.DurationMS, &r.Width, &r.Height, &r.Scale, &r.OffsetX, &r.OffsetY, &r.Noise, &r.Digest); err != nil {
			return nil, err
		}
		byID[r.RunID] = len(out)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		brows, err := db.QueryContext(ctx, `SELECT biome_id,cells FROM run_biomes WHERE run_id=?`, id)
		if err != nil {
			return nil, err
		}
		counts := map[string]int{}
		for brows.Next() {
			var b string
			var n int
			if err := brows.Scan(&b, &n); err != nil {
				brows.Close()
				return nil, err
			}
			counts[b] = n
		}
		err = brows.Err()
		brows.Close()
		if err != nil {
			return nil, err
		}
		out[byID[id]].Biomes = counts
	}
	return out, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,preset,preset_digest,started_at,duration_ms,width,height,scale,offset_x,offset_y,noise,digest,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertBiome, _ := s.db.Prepare(`INSERT OR REPLACE INTO run_biomes(run_id,biome_id,cells) VALUES(?,?,?)`)
	defer func() {
		if insertRun != nil {
			_ = insertRun.Close()
		}
		if insertBiome != nil {
			_ = insertBiome.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		select {
		case rec, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			begin()
			if tx == nil || insertRun == nil || insertBiome == nil {
				continue
			}
			raw, _ := json.Marshal(rec)
			if _, err := tx.Stmt(insertRun).Exec(
				rec.RunID, rec.Preset, rec.PresetHash, rec.StartedAt, rec.DurationMS,
				rec.Width, rec.Height, rec.Scale, rec.Offset.X, rec.Offset.Y,
				rec.Noise, rec.Digest, string(raw),
			); err != nil {
				rollback()
				continue
			}
			opCount++
			for b, n := range rec.Histogram {
				if _, err := tx.Stmt(insertBiome).Exec(rec.RunID, b, n); err != nil {
					rollback()
					break
				}
				opCount++
			}
			if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		case <-ticker.C:
			commit()
		}
	}
}
