package ioadapter

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gitrdm/linebalancer/internal/engine"
)

// Store persists raw solve results for later inspection, the structured
// successor to guardar_resultados_raw's pickle dump: one schema-backed
// sqlite row per solve instead of a pickled dict of dataframes.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if absent) a sqlite database at path and
// ensures the solves table exists.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("ioadapter: open store %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS solves (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	status TEXT NOT NULL,
	objective INTEGER NOT NULL,
	task_count INTEGER NOT NULL,
	timeline_count INTEGER NOT NULL,
	order_count INTEGER NOT NULL,
	scheduled_tasks_json TEXT NOT NULL,
	timeline_json TEXT NOT NULL,
	order_summaries_json TEXT NOT NULL,
	metrics_json TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ioadapter: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRaw records one solve's full output tables as JSON blobs alongside
// summary columns for quick querying, mirroring the four tables
// guardar_resultados_raw used to pickle (capacidades/tareas/timeline/
// turnos_ocupacion) — capacidades here is result.Stations, already
// recorded by the CSV export, so it is omitted from this row.
func (s *Store) SaveRaw(recordedAt string, result *engine.Result) error {
	tasksJSON, err := json.Marshal(result.ScheduledTasks)
	if err != nil {
		return fmt.Errorf("ioadapter: marshal scheduled tasks: %w", err)
	}
	timelineJSON, err := json.Marshal(result.Timeline)
	if err != nil {
		return fmt.Errorf("ioadapter: marshal timeline: %w", err)
	}
	summariesJSON, err := json.Marshal(result.OrderSummaries)
	if err != nil {
		return fmt.Errorf("ioadapter: marshal order summaries: %w", err)
	}
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("ioadapter: marshal metrics: %w", err)
	}

	const insert = `
INSERT INTO solves (
	recorded_at, status, objective, task_count, timeline_count, order_count,
	scheduled_tasks_json, timeline_json, order_summaries_json, metrics_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	_, err = s.db.Exec(insert,
		recordedAt, result.Status.String(), result.Objective,
		len(result.ScheduledTasks), len(result.Timeline), len(result.OrderSummaries),
		string(tasksJSON), string(timelineJSON), string(summariesJSON), string(metricsJSON),
	)
	if err != nil {
		return fmt.Errorf("ioadapter: insert solve row: %w", err)
	}
	return nil
}
