package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/cmannotate/cmannotate/internal/alert"
	"github.com/cmannotate/cmannotate/internal/search"
	_ "github.com/marcboeker/go-duckdb"
)

// DB is an append-only DuckDB-backed persistence layer for the Results
// Store, used when --keep-intermediates is set so the final tables can be
// re-queried after a run without re-running the pipeline. It is the same
// single-connection, Appender-based write path the teacher's
// internal/duckdb/store.go uses for variant results, generalized here to
// sequence/feature/alert rows instead of variant rows.
type DB struct {
	conn *sql.DB
	path string
}

// OpenDB opens or creates a DuckDB database at path (or an in-memory one if
// path is empty) and ensures the Results Store's schema exists.
func OpenDB(path string) (*DB, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create database directory: %w", err)
		}
	}
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("store: open duckdb: %w", err)
	}
	db := &DB{conn: conn, path: path}
	if err := db.ensureSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.conn.Close() }

func (db *DB) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sequences (
			name VARCHAR PRIMARY KEY,
			length BIGINT,
			model VARCHAR,
			aligned BOOLEAN,
			pass BOOLEAN
		)`,
		`CREATE TABLE IF NOT EXISTS features (
			sequence VARCHAR,
			type_index INTEGER,
			type VARCHAR,
			product VARCHAR,
			gene VARCHAR,
			annotated BOOLEAN,
			n_start BIGINT,
			n_stop BIGINT,
			n_strand VARCHAR,
			truncated5 BOOLEAN,
			truncated3 BOOLEAN,
			corrected_stop VARCHAR,
			PRIMARY KEY (sequence, type_index, type)
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			sequence VARCHAR,
			feature_index INTEGER,
			code VARCHAR,
			detail VARCHAR
		)`,
		// Raw pass-1/pass-2 hit tables, written only by PersistRawHits. The
		// pipeline's --keep-intermediates path calls Persist alone, so a run
		// leaves this table empty.
		`CREATE TABLE IF NOT EXISTS raw_hits (
			pass INTEGER,
			query VARCHAR,
			target VARCHAR,
			model_from BIGINT,
			model_to BIGINT,
			seq_from BIGINT,
			seq_to BIGINT,
			strand VARCHAR,
			bias DOUBLE,
			score DOUBLE,
			evalue DOUBLE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Persist writes every sequence and feature record, plus all recorded
// alerts, through DuckDB's Appender API (the teacher's pattern in
// internal/duckdb/variants.go); each row opens, fills and flushes its own
// appender.
func (db *DB) Persist(s *Store) error {
	for _, seq := range s.Sequences() {
		pass, _ := s.Verdict(seq.Name)
		if err := db.appendSequence(seq, pass); err != nil {
			return err
		}
		for _, f := range seq.Features {
			if err := db.appendFeature(seq.Name, f); err != nil {
				return err
			}
		}
	}
	for _, name := range s.Alerts.Sequences() {
		for _, a := range s.Alerts.For(name) {
			if err := db.appendAlertInstance(a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (db *DB) withAppender(table string, fn func(*goduckdb.Appender) error) error {
	conn, err := db.conn.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("store: connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("store: create appender for %s: %w", table, err)
	}
	defer appender.Close()

	if err := fn(appender); err != nil {
		return err
	}
	return appender.Flush()
}

func (db *DB) appendSequence(seq *SequenceResult, pass bool) error {
	return db.withAppender("sequences", func(a *goduckdb.Appender) error {
		return a.AppendRow(seq.Name, int64(seq.Length), seq.Model, seq.Aligned, pass)
	})
}

func (db *DB) appendFeature(seqName string, f FeatureResult) error {
	return db.withAppender("features", func(a *goduckdb.Appender) error {
		return a.AppendRow(
			seqName, int32(f.TypeIndex), string(f.Type), f.Product, f.Gene,
			f.Annotated, int64(f.NStart), int64(f.NStop), string(f.NStrand),
			f.Truncated5, f.Truncated3, f.CorrectedStop,
		)
	})
}

func (db *DB) appendAlertInstance(inst alert.Instance) error {
	return db.withAppender("alerts", func(a *goduckdb.Appender) error {
		return a.AppendRow(inst.Target.Sequence, int32(inst.Target.Feature), string(inst.Code), inst.Detail)
	})
}

// PersistRawHits appends a pass's raw, unparsed hit table. The annotate
// pipeline does not call it; --keep-intermediates persists only the Results
// Store through Persist.
func (db *DB) PersistRawHits(pass int, hits []search.RawHit) error {
	return db.withAppender("raw_hits", func(a *goduckdb.Appender) error {
		for _, h := range hits {
			if err := a.AppendRow(
				int32(pass), h.Query, h.Hit.Target,
				int64(h.Hit.ModelFrom), int64(h.Hit.ModelTo),
				int64(h.Hit.SeqFrom), int64(h.Hit.SeqTo),
				string(h.Hit.Strand), h.Hit.Bias, h.Hit.Score, h.Hit.EValue,
			); err != nil {
				return err
			}
		}
		return nil
	})
}
