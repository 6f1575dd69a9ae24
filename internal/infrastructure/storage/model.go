package storage

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"ContributionsETL/internal/ports"
)

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Dimensions is the star-schema dimension set fed from the incubator.
var Dimensions = []ports.DimensionSpec{
	{Table: "dim_candidate", Columns: []string{"candidate_id", "full_name"}, SortColumn: "full_name"},
	{Table: "dim_cycle", Columns: []string{"cycle", "cycle_type"}},
	{Table: "dim_election_status", Columns: []string{"election_status"}},
	{Table: "dim_office", Columns: []string{"office", "office_code"}, Nullable: []string{"office_code"}},
	{Table: "dim_party", Columns: []string{"general_party", "specific_party"}, SortColumn: "specific_party"},
	{Table: "dim_geo", Columns: []string{"state", "district"}, Nullable: []string{"district"}},
}

type factRef struct {
	column string
	dim    ports.DimensionSpec
}

// factRefs resolves each fact foreign key through its dimension's natural key.
var factRefs = []factRef{
	{column: "cycle_id", dim: Dimensions[1]},
	{column: "party_id", dim: Dimensions[4]},
	{column: "geo_id", dim: Dimensions[5]},
	{column: "office_id", dim: Dimensions[3]},
	{column: "election_status_id", dim: Dimensions[2]},
}

// SyncDimension inserts distinct incubator values not yet present in the dimension.
// Non-nullable columns skip NULL and empty values. Running it twice inserts nothing new.
func (w *Warehouse) SyncDimension(ctx context.Context, spec ports.DimensionSpec) (int64, error) {
	if err := validateSpec(spec); err != nil {
		return 0, err
	}

	staging := stagingColumns(spec)
	selected := make([]string, len(staging))
	for i, c := range staging {
		selected[i] = "i." + c
	}

	sel := sq.Select(selected...).
		Distinct().
		From(incubatorTable + " i")
	for i, col := range spec.Columns {
		if slices.Contains(spec.Nullable, col) {
			continue
		}
		sel = sel.Where(fmt.Sprintf("i.%s IS NOT NULL AND i.%s <> ''", staging[i], staging[i]))
	}
	sel = sel.Where(fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s d WHERE %s)", spec.Table, naturalKeyMatch(spec, "d", "i"))).
		OrderBy("i." + sortColumn(spec, staging))

	query, args, err := w.sb.Insert(spec.Table).Columns(spec.Columns...).Select(sel).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s sync: %w", spec.Table, err)
	}

	res, err := w.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sync %s: %w", spec.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sync %s rows affected: %w", spec.Table, err)
	}
	return n, nil
}

// MaterializeFacts appends one fact row per incubator row. Foreign keys with no
// matching dimension row are left NULL.
func (w *Warehouse) MaterializeFacts(ctx context.Context) (int64, error) {
	columns := []string{"candidate_id"}
	selected := []string{"i.candidate_id"}
	for _, ref := range factRefs {
		columns = append(columns, ref.column)
		selected = append(selected, fmt.Sprintf(
			"(SELECT d.id FROM %s d WHERE %s ORDER BY d.id LIMIT 1)",
			ref.dim.Table, naturalKeyMatch(ref.dim, "d", "i"),
		))
	}
	columns = append(columns, "contribution")
	selected = append(selected, "i.contribution")

	sel := sq.Select(selected...).From(incubatorTable + " i").OrderBy("i.id")
	query, args, err := w.sb.Insert(factTable).Columns(columns...).Select(sel).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build fact insert: %w", err)
	}

	res, err := w.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("materialize facts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fact rows affected: %w", err)
	}
	return n, nil
}

func naturalKeyMatch(spec ports.DimensionSpec, dim, stg string) string {
	staging := stagingColumns(spec)
	conds := make([]string, len(spec.Columns))
	for i, col := range spec.Columns {
		d := dim + "." + col
		s := stg + "." + staging[i]
		if slices.Contains(spec.Nullable, col) {
			conds[i] = fmt.Sprintf("(%s = %s OR (%s IS NULL AND %s IS NULL))", d, s, d, s)
			continue
		}
		conds[i] = d + " = " + s
	}
	return strings.Join(conds, " AND ")
}

func stagingColumns(spec ports.DimensionSpec) []string {
	if len(spec.StagingColumns) > 0 {
		return spec.StagingColumns
	}
	return spec.Columns
}

func sortColumn(spec ports.DimensionSpec, staging []string) string {
	if spec.SortColumn == "" {
		return staging[0]
	}
	if i := slices.Index(spec.Columns, spec.SortColumn); i >= 0 {
		return staging[i]
	}
	return spec.SortColumn
}

func validateSpec(spec ports.DimensionSpec) error {
	if !identifier.MatchString(spec.Table) {
		return fmt.Errorf("invalid dimension table %q", spec.Table)
	}
	if len(spec.Columns) == 0 {
		return fmt.Errorf("dimension %s has no columns", spec.Table)
	}
	staging := stagingColumns(spec)
	if len(staging) != len(spec.Columns) {
		return fmt.Errorf("dimension %s: %d staging columns for %d columns", spec.Table, len(staging), len(spec.Columns))
	}
	for _, c := range slices.Concat(spec.Columns, staging, spec.Nullable) {
		if !identifier.MatchString(c) {
			return fmt.Errorf("dimension %s: invalid column %q", spec.Table, c)
		}
	}
	if spec.SortColumn != "" && !slices.Contains(spec.Columns, spec.SortColumn) && !slices.Contains(staging, spec.SortColumn) {
		return fmt.Errorf("dimension %s: sort column %q is not selected", spec.Table, spec.SortColumn)
	}
	return nil
}
