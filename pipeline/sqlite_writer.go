package pipeline

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// SQLiteWriter stores records in a SQLite database. Raw runs go to the raw
// table, normalized runs to clean; archived searches use the *_sold tables.
// Rows are keyed by run and listing URL, and absent values are NULL. Numeric
// columns of normalized tables are INTEGER or REAL, booleans INTEGER 0/1.
type SQLiteWriter struct {
	db      *sql.DB
	runID   string
	schema  models.Schema
	table   string
	columns []string
	kinds   []models.ColumnKind
	insert  string
	mu      sync.Mutex
}

// NewSQLiteWriter opens (or creates) the database at path for one run.
func NewSQLiteWriter(path, runID string, schema models.Schema) (*SQLiteWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	w := &SQLiteWriter{
		db:      db,
		runID:   runID,
		schema:  schema,
		table:   tableName(schema),
		columns: schema.Columns(),
		kinds:   schema.Kinds(),
	}
	if err := w.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	names := make([]string, 0, len(w.columns)+1)
	marks := make([]string, 0, len(w.columns)+1)
	names = append(names, "run_id")
	marks = append(marks, "?")
	for _, c := range w.columns {
		names = append(names, quote(c))
		marks = append(marks, "?")
	}
	w.insert = fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		quote(w.table), strings.Join(names, ", "), strings.Join(marks, ", "))
	return w, nil
}

func tableName(schema models.Schema) string {
	name := "clean"
	if schema.Raw {
		name = "raw"
	}
	if schema.Dialect == models.DialectArchived {
		name += "_sold"
	}
	return name
}

func sqlType(k models.ColumnKind) string {
	switch k {
	case models.ColumnInteger, models.ColumnBool:
		return "INTEGER"
	case models.ColumnReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// sqlValue converts an exported cell to the driver value of its column kind.
func sqlValue(c models.Cell, k models.ColumnKind) (any, error) {
	if !c.Valid {
		return nil, nil
	}
	switch k {
	case models.ColumnInteger:
		return strconv.ParseInt(c.Value, 10, 64)
	case models.ColumnReal:
		return strconv.ParseFloat(c.Value, 64)
	case models.ColumnBool:
		b, err := strconv.ParseBool(c.Value)
		if err != nil {
			return nil, err
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return c.Value, nil
	}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (w *SQLiteWriter) migrate() error {
	defs := make([]string, 0, len(w.columns)+2)
	defs = append(defs, "run_id TEXT NOT NULL")
	for i, c := range w.columns {
		defs = append(defs, quote(c)+" "+sqlType(w.kinds[i]))
	}
	defs = append(defs, "PRIMARY KEY (run_id, url)")

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		%s
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		stop_reason TEXT,
		pages_requested INTEGER,
		pages_processed INTEGER,
		pages_skipped INTEGER,
		listings INTEGER,
		duplicates INTEGER,
		entries_dropped INTEGER
	);
	`, quote(w.table), strings.Join(defs, ",\n\t\t"))
	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return w.addMissingColumns()
}

// addMissingColumns extends a table created by an older column set.
func (w *SQLiteWriter) addMissingColumns() error {
	rows, err := w.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quote(w.table)))
	if err != nil {
		return fmt.Errorf("inspect table %s: %w", w.table, err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("scan table info: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for i, c := range w.columns {
		if existing[c] {
			continue
		}
		if _, err := w.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quote(w.table), quote(c), sqlType(w.kinds[i]))); err != nil {
			return fmt.Errorf("add column %s: %w", c, err)
		}
	}
	return nil
}

// Write upserts records in one transaction.
func (w *SQLiteWriter) Write(records []models.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(w.insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		cells := w.schema.Cells(rec)
		args := make([]any, 0, len(cells)+1)
		args = append(args, w.runID)
		for i, c := range cells {
			v, err := sqlValue(c, w.kinds[i])
			if err != nil {
				tx.Rollback()
				return fmt.Errorf("insert %s column %s: %w", rec.ID, w.columns[i], err)
			}
			args = append(args, v)
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordRun stores the summary of a finished run.
func (w *SQLiteWriter) RecordRun(rs *models.ResultSet) error {
	if rs == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	st := rs.Stats
	_, err := w.db.Exec(`
		INSERT OR REPLACE INTO runs (run_id, started_at, finished_at, stop_reason, pages_requested,
			pages_processed, pages_skipped, listings, duplicates, entries_dropped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rs.RunID, st.StartTime.UTC().Format(time.RFC3339), st.EndTime.UTC().Format(time.RFC3339), string(st.StopReason),
		st.PagesRequested, st.PagesProcessed, st.PagesSkipped, rs.Len(), st.Duplicates, st.EntriesDropped)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rs.RunID, err)
	}
	return nil
}

// Count returns the number of rows stored for the writer's run.
func (w *SQLiteWriter) Count() (int, error) {
	var n int
	err := w.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE run_id = ?", quote(w.table)), w.runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// Validate checks that the run's table can be queried.
func (w *SQLiteWriter) Validate() error {
	_, err := w.Count()
	return err
}

// Close closes the database handle.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
