package storage

import (
	"context"
	"fmt"
	"strings"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS incubator (
		id {{id}},
		candidate_id TEXT,
		full_name TEXT,
		state TEXT,
		cycle TEXT,
		cycle_type TEXT,
		office TEXT,
		office_code TEXT,
		district TEXT,
		election_status TEXT,
		incumbency_status TEXT,
		general_party TEXT,
		specific_party TEXT,
		contribution NUMERIC(14, 2),
		ingested_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS dim_candidate (
		id {{id}},
		candidate_id TEXT NOT NULL,
		full_name TEXT NOT NULL,
		UNIQUE (candidate_id, full_name)
	)`,
	`CREATE TABLE IF NOT EXISTS dim_cycle (
		id {{id}},
		cycle TEXT NOT NULL,
		cycle_type TEXT NOT NULL,
		UNIQUE (cycle, cycle_type)
	)`,
	`CREATE TABLE IF NOT EXISTS dim_election_status (
		id {{id}},
		election_status TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS dim_office (
		id {{id}},
		office TEXT NOT NULL,
		office_code TEXT,
		UNIQUE (office, office_code)
	)`,
	`CREATE TABLE IF NOT EXISTS dim_party (
		id {{id}},
		general_party TEXT NOT NULL,
		specific_party TEXT NOT NULL,
		UNIQUE (general_party, specific_party)
	)`,
	`CREATE TABLE IF NOT EXISTS dim_geo (
		id {{id}},
		state TEXT NOT NULL,
		district TEXT,
		UNIQUE (state, district)
	)`,
	`CREATE TABLE IF NOT EXISTS fact_contribution (
		id {{id}},
		candidate_id TEXT,
		cycle_id BIGINT,
		party_id BIGINT,
		geo_id BIGINT,
		office_id BIGINT,
		election_status_id BIGINT,
		contribution NUMERIC(14, 2)
	)`,
	`CREATE TABLE IF NOT EXISTS checkpoint (
		id {{id}},
		partition_code TEXT NOT NULL,
		page INTEGER NOT NULL,
		run_id TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS call_budget (
		id {{id}},
		year INTEGER NOT NULL,
		week INTEGER NOT NULL,
		calls INTEGER NOT NULL,
		run_id TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_call_budget_week ON call_budget (year, week)`,
}

// Migrate creates any missing warehouse tables.
func (w *Warehouse) Migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if w.driver == "postgres" {
		id = "BIGSERIAL PRIMARY KEY"
	}

	for _, stmt := range schema {
		if _, err := w.db.ExecContext(ctx, strings.ReplaceAll(stmt, "{{id}}", id)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
