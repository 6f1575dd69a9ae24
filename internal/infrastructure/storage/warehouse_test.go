package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
)

func newTestWarehouse(t *testing.T) *Warehouse {
	t.Helper()

	w, err := Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	if err := w.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	return w
}

func row(candidate, name, state, office, code, district string) domain.StagingRow {
	return domain.StagingRow{
		CandidateID:      domain.Text(candidate),
		FullName:         domain.Text(name),
		State:            domain.Text(state),
		Cycle:            domain.Text("2016"),
		CycleType:        domain.Text("Election"),
		Office:           domain.Text(office),
		OfficeCode:       domain.Text(code),
		District:         domain.Text(district),
		ElectionStatus:   domain.Text("Won-General"),
		IncumbencyStatus: domain.Text("Incumbent"),
		GeneralParty:     domain.Text("Democratic"),
		SpecificParty:    domain.Text("DEMOCRATIC"),
		Contribution:     domain.Text("1250.50"),
		IngestedAt:       time.Date(2016, 5, 3, 12, 0, 0, 0, time.UTC),
	}
}

func count(t *testing.T, w *Warehouse, query string, args ...any) int {
	t.Helper()

	var n int
	if err := w.db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

func TestMigrateIsRepeatable(t *testing.T) {
	t.Parallel()

	w := newTestWarehouse(t)
	if err := w.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate returned error: %v", err)
	}
}

func TestStagePage(t *testing.T) {
	t.Parallel()

	w := newTestWarehouse(t)
	rows := []domain.StagingRow{
		row("1001", "DOE, JANE", "AL", "State House", "SLEG", "4"),
		row("1002", "ROE, RICHARD", "AL", "Governor", "GOV", ""),
	}
	if err := w.StagePage(context.Background(), rows); err != nil {
		t.Fatalf("StagePage returned error: %v", err)
	}

	if got := count(t, w, `SELECT COUNT(*) FROM incubator`); got != 2 {
		t.Fatalf("expected 2 staged rows, got %d", got)
	}
	if got := count(t, w, `SELECT COUNT(*) FROM incubator WHERE district IS NULL`); got != 1 {
		t.Fatalf("expected empty district to be stored as NULL, got %d", got)
	}
}

func TestStagePageIsAtomic(t *testing.T) {
	t.Parallel()

	w := newTestWarehouse(t)
	ctx := context.Background()
	if _, err := w.db.Exec(`CREATE TRIGGER reject_bad BEFORE INSERT ON incubator
		WHEN NEW.full_name = 'BAD' BEGIN SELECT RAISE(ABORT, 'rejected'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	rows := make([]domain.StagingRow, 0, stageChunk+1)
	for range stageChunk {
		rows = append(rows, row("1", "GOOD", "AK", "Governor", "GOV", ""))
	}
	rows = append(rows, row("2", "BAD", "AK", "Governor", "GOV", ""))

	if err := w.StagePage(ctx, rows); err == nil {
		t.Fatalf("expected StagePage to fail")
	}
	if got := count(t, w, `SELECT COUNT(*) FROM incubator`); got != 0 {
		t.Fatalf("expected the whole page to roll back, got %d rows", got)
	}
}

func TestCheckpointLog(t *testing.T) {
	t.Parallel()

	w := newTestWarehouse(t)
	ctx := context.Background()

	if _, err := w.LatestCheckpoint(ctx); !errors.Is(err, domain.ErrNoCheckpoint) {
		t.Fatalf("expected ErrNoCheckpoint, got %v", err)
	}

	for _, cp := range []domain.Checkpoint{{Partition: "AL", Page: 0}, {Partition: "TX", Page: 7}} {
		if err := w.AppendCheckpoint(ctx, cp, "run"); err != nil {
			t.Fatalf("AppendCheckpoint returned error: %v", err)
		}
	}

	got, err := w.LatestCheckpoint(ctx)
	if err != nil {
		t.Fatalf("LatestCheckpoint returned error: %v", err)
	}
	if got != (domain.Checkpoint{Partition: "TX", Page: 7}) {
		t.Fatalf("unexpected checkpoint: %+v", got)
	}
	if n := count(t, w, `SELECT COUNT(*) FROM checkpoint`); n != 2 {
		t.Fatalf("expected history to be retained, got %d rows", n)
	}
}

func TestBudgetLog(t *testing.T) {
	t.Parallel()

	w := newTestWarehouse(t)
	ctx := context.Background()
	week := domain.BudgetWeek{Year: 2016, Week: 18}

	calls, err := w.CallsInWeek(ctx, week)
	if err != nil {
		t.Fatalf("CallsInWeek returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected 0 calls in an empty week, got %d", calls)
	}

	_ = w.RecordCalls(ctx, week, 12, "a")
	_ = w.RecordCalls(ctx, week, 30, "b")
	_ = w.RecordCalls(ctx, domain.BudgetWeek{Year: 2016, Week: 19}, 5, "c")

	calls, err = w.CallsInWeek(ctx, week)
	if err != nil {
		t.Fatalf("CallsInWeek returned error: %v", err)
	}
	if calls != 42 {
		t.Fatalf("expected 42 calls, got %d", calls)
	}
}

func TestSyncDimensionIdempotent(t *testing.T) {
	t.Parallel()

	w := newTestWarehouse(t)
	ctx := context.Background()
	rows := []domain.StagingRow{
		row("1001", "DOE, JANE", "AL", "State House", "SLEG", "4"),
		row("1001", "DOE, JANE", "AL", "State House", "SLEG", "4"),
		row("1002", "ROE, RICHARD", "AL", "Governor", "GOV", ""),
		row("1003", "", "", "Mayor", "", ""),
	}
	if err := w.StagePage(ctx, rows); err != nil {
		t.Fatalf("StagePage returned error: %v", err)
	}

	want := map[string]int64{
		"dim_candidate":       2,
		"dim_cycle":           1,
		"dim_election_status": 1,
		"dim_office":          3,
		"dim_party":           1,
		"dim_geo":             2,
	}
	for _, spec := range Dimensions {
		n, err := w.SyncDimension(ctx, spec)
		if err != nil {
			t.Fatalf("SyncDimension(%s) returned error: %v", spec.Table, err)
		}
		if n != want[spec.Table] {
			t.Fatalf("%s: expected %d inserted, got %d", spec.Table, want[spec.Table], n)
		}
	}

	for _, spec := range Dimensions {
		n, err := w.SyncDimension(ctx, spec)
		if err != nil {
			t.Fatalf("second SyncDimension(%s) returned error: %v", spec.Table, err)
		}
		if n != 0 {
			t.Fatalf("%s: expected no inserts on resync, got %d", spec.Table, n)
		}
	}

	if got := count(t, w, `SELECT COUNT(*) FROM dim_office WHERE office = 'Mayor' AND office_code IS NULL`); got != 1 {
		t.Fatalf("expected a NULL office_code row for Mayor, got %d", got)
	}
}

func TestSyncDimensionRejectsUnsafeIdentifiers(t *testing.T) {
	t.Parallel()

	w := newTestWarehouse(t)
	specs := []ports.DimensionSpec{
		{Table: "dim_x; DROP TABLE incubator", Columns: []string{"state"}},
		{Table: "dim_geo", Columns: []string{"state"}, SortColumn: "district"},
		{Table: "dim_geo"},
	}
	for _, spec := range specs {
		if _, err := w.SyncDimension(context.Background(), spec); err == nil {
			t.Fatalf("expected error for %+v", spec)
		}
	}
}

func TestMaterializeFacts(t *testing.T) {
	t.Parallel()

	w := newTestWarehouse(t)
	ctx := context.Background()
	if err := w.StagePage(ctx, []domain.StagingRow{
		row("1001", "DOE, JANE", "AL", "State House", "SLEG", "4"),
		row("1002", "ROE, RICHARD", "AK", "Governor", "GOV", ""),
	}); err != nil {
		t.Fatalf("StagePage returned error: %v", err)
	}

	// Only geo is synced; the other foreign keys stay NULL.
	if _, err := w.SyncDimension(ctx, Dimensions[5]); err != nil {
		t.Fatalf("SyncDimension returned error: %v", err)
	}

	n, err := w.MaterializeFacts(ctx)
	if err != nil {
		t.Fatalf("MaterializeFacts returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 facts, got %d", n)
	}
	if got := count(t, w, `SELECT COUNT(*) FROM fact_contribution WHERE geo_id IS NOT NULL`); got != 2 {
		t.Fatalf("expected geo_id resolved for both facts, got %d", got)
	}
	if got := count(t, w, `SELECT COUNT(*) FROM fact_contribution WHERE office_id IS NULL AND party_id IS NULL`); got != 2 {
		t.Fatalf("expected unsynced keys to stay NULL, got %d", got)
	}

	var geo sql.NullInt64
	if err := w.db.QueryRow(`SELECT f.geo_id FROM fact_contribution f WHERE f.candidate_id = '1002'`).Scan(&geo); err != nil {
		t.Fatalf("query fact: %v", err)
	}
	var state string
	if err := w.db.QueryRow(`SELECT state FROM dim_geo WHERE id = ?`, geo.Int64).Scan(&state); err != nil {
		t.Fatalf("query geo: %v", err)
	}
	if state != "AK" {
		t.Fatalf("expected fact to reference AK, got %s", state)
	}
}
