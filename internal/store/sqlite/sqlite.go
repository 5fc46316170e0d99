// Package sqlite provides a SQLite-backed reference store. The three
// reference tables live in one entries table keyed by layer; match keys are
// columns, route attributes and rate rules are stored as JSON documents. The
// engine only ever reads; writes exist for the import tooling.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/reference"
)

const schema = `
CREATE TABLE IF NOT EXISTS reference_entries (
	id              TEXT NOT NULL,
	source_layer    TEXT NOT NULL CHECK (source_layer IN ('Base', 'Exception', 'Override')),
	origin          TEXT NOT NULL DEFAULT '',
	destination     TEXT NOT NULL DEFAULT '',
	carrier         TEXT NOT NULL DEFAULT '',
	effective_from  TEXT,
	effective_to    TEXT,
	attributes      TEXT NOT NULL,
	rate_rule       TEXT NOT NULL,
	PRIMARY KEY (source_layer, id)
);
CREATE INDEX IF NOT EXISTS idx_reference_entries_key
	ON reference_entries (source_layer, origin, destination, carrier);
`

// Store is a reference.Store backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) a SQLite reference store. Use ":memory:" for an
// ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WrapStore("open", "", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.WrapStore("migrate", "reference_entries", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadBaseRoutes implements reference.Store.
func (s *Store) LoadBaseRoutes(ctx context.Context) ([]reference.ReferenceEntry, error) {
	return s.loadLayer(ctx, reference.LayerBase)
}

// LoadExceptions implements reference.Store.
func (s *Store) LoadExceptions(ctx context.Context) ([]reference.ReferenceEntry, error) {
	return s.loadLayer(ctx, reference.LayerException)
}

// LoadOverrides implements reference.Store.
func (s *Store) LoadOverrides(ctx context.Context) ([]reference.ReferenceEntry, error) {
	return s.loadLayer(ctx, reference.LayerOverride)
}

// Snapshot implements reference.Store.
func (s *Store) Snapshot(ctx context.Context) (*reference.Snapshot, error) {
	base, err := s.LoadBaseRoutes(ctx)
	if err != nil {
		return nil, err
	}
	exceptions, err := s.LoadExceptions(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := s.LoadOverrides(ctx)
	if err != nil {
		return nil, err
	}
	return &reference.Snapshot{
		SnapshotAt: time.Now().UTC(),
		BaseRoutes: base,
		Exceptions: exceptions,
		Overrides:  overrides,
	}, nil
}

func (s *Store) loadLayer(ctx context.Context, layer reference.Layer) ([]reference.ReferenceEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, origin, destination, carrier, effective_from, effective_to, attributes, rate_rule
	FROM reference_entries WHERE source_layer = ? ORDER BY id ASC`, layer.String())
	if err != nil {
		return nil, errors.WrapStore("load", tableName(layer), err)
	}
	defer rows.Close()

	var out []reference.ReferenceEntry
	for rows.Next() {
		entry, err := scanEntry(rows, layer)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapStore("load", tableName(layer), err)
	}
	return out, nil
}

func scanEntry(rows *sql.Rows, layer reference.Layer) (reference.ReferenceEntry, error) {
	var (
		entry     reference.ReferenceEntry
		from, to  sql.NullString
		attrsJSON string
		ruleJSON  string
	)
	if err := rows.Scan(&entry.ID, &entry.MatchKey.Origin, &entry.MatchKey.Destination,
		&entry.MatchKey.Carrier, &from, &to, &attrsJSON, &ruleJSON); err != nil {
		return entry, errors.WrapStore("load", tableName(layer), err)
	}
	entry.SourceLayer = layer

	var err error
	if entry.MatchKey.EffectiveFrom, err = parseNullDate(from); err != nil {
		return entry, errors.WrapStore("load", tableName(layer), err)
	}
	if entry.MatchKey.EffectiveTo, err = parseNullDate(to); err != nil {
		return entry, errors.WrapStore("load", tableName(layer), err)
	}
	if err := json.Unmarshal([]byte(attrsJSON), &entry.RouteAttributes); err != nil {
		return entry, errors.WrapStore("load", tableName(layer), err)
	}
	if err := json.Unmarshal([]byte(ruleJSON), &entry.RateRule); err != nil {
		return entry, errors.WrapStore("load", tableName(layer), err)
	}
	return entry, nil
}

// ReplaceLayer swaps one layer's table wholesale inside a transaction.
// Import tooling only; never called during a run.
func (s *Store) ReplaceLayer(ctx context.Context, layer reference.Layer, entries []reference.ReferenceEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStore("save", tableName(layer), err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reference_entries WHERE source_layer = ?`, layer.String()); err != nil {
		return errors.WrapStore("save", tableName(layer), err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO reference_entries
		(id, source_layer, origin, destination, carrier, effective_from, effective_to, attributes, rate_rule)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.WrapStore("save", tableName(layer), err)
	}
	defer stmt.Close()

	for _, e := range entries {
		attrs, err := json.Marshal(e.RouteAttributes)
		if err != nil {
			return errors.WrapStore("save", tableName(layer), err)
		}
		rule, err := json.Marshal(e.RateRule)
		if err != nil {
			return errors.WrapStore("save", tableName(layer), err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, layer.String(),
			e.MatchKey.Origin, e.MatchKey.Destination, e.MatchKey.Carrier,
			formatNullDate(e.MatchKey.EffectiveFrom), formatNullDate(e.MatchKey.EffectiveTo),
			string(attrs), string(rule)); err != nil {
			return errors.WrapStore("save", tableName(layer), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapStore("save", tableName(layer), err)
	}
	return nil
}

func tableName(layer reference.Layer) string {
	switch layer {
	case reference.LayerBase:
		return "base_routes"
	case reference.LayerException:
		return "exceptions"
	case reference.LayerOverride:
		return "overrides"
	default:
		return "reference_entries"
	}
}

func parseNullDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s.String, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatNullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format("2006-01-02")
}
