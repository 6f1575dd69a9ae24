package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ContributionsETL/internal/ports"
)

// LoadReport counts rows added per dimension table and to the fact table.
type LoadReport struct {
	Dimensions map[string]int64
	Facts      int64
}

// WarehouseLoader synchronizes dimensions and then materializes facts.
// Facts are not deduplicated; run it once per ingestion batch.
type WarehouseLoader struct {
	modeler    ports.WarehouseModeler
	dimensions []ports.DimensionSpec
	logger     *slog.Logger
}

// NewWarehouseLoader wires the modeler with the dimension set to maintain.
func NewWarehouseLoader(modeler ports.WarehouseModeler, dimensions []ports.DimensionSpec, logger *slog.Logger) *WarehouseLoader {
	return &WarehouseLoader{modeler: modeler, dimensions: dimensions, logger: logger}
}

// SyncDimensions inserts unseen dimension values; facts are left untouched.
func (w *WarehouseLoader) SyncDimensions(ctx context.Context) (map[string]int64, error) {
	inserted := make(map[string]int64, len(w.dimensions))
	for _, spec := range w.dimensions {
		n, err := w.modeler.SyncDimension(ctx, spec)
		if err != nil {
			return inserted, fmt.Errorf("sync dimension %s: %w", spec.Table, err)
		}
		inserted[spec.Table] = n
		if w.logger != nil {
			w.logger.Info("dimension synced", "table", spec.Table, "inserted", n)
		}
	}
	return inserted, nil
}

// Load runs SyncDimensions followed by fact materialization.
func (w *WarehouseLoader) Load(ctx context.Context) (LoadReport, error) {
	dims, err := w.SyncDimensions(ctx)
	report := LoadReport{Dimensions: dims}
	if err != nil {
		return report, err
	}

	facts, err := w.modeler.MaterializeFacts(ctx)
	if err != nil {
		return report, fmt.Errorf("materialize facts: %w", err)
	}
	report.Facts = facts
	if w.logger != nil {
		w.logger.Info("facts materialized", "inserted", facts)
	}
	return report, nil
}
