package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
)

type recorder struct {
	events []string
}

func (r *recorder) add(format string, args ...interface{}) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func record(partition domain.Partition, page, idx int) domain.Record {
	return domain.Record{
		"Candidate":             {"id": strconv.Itoa(page*100 + idx), "Candidate": "CANDIDATE"},
		"Election_Jurisdiction": {"Election_Jurisdiction": string(partition)},
		"Election_Year":         {"Election_Year": "2016"},
		"Election_Type":         {"Election_Type": "Standard"},
		"Office_Sought":         {"Office_Sought": "HOUSE DISTRICT 3"},
		"Election_Status":       {"Election_Status": "Won-General"},
		"Incumbency_Status":     {"Incumbency_Status": "Open"},
		"Total_$":               {"Total_$": "100"},
		"General_Party":         {"General_Party": "Nonpartisan"},
		"Specific_Party":        {"Specific_Party": "Nonpartisan"},
	}
}

type fakeUpstream struct {
	rec *recorder
	// maxPages maps a partition to the maxPage reported by each of its pages.
	maxPages map[domain.Partition][]int
	failures map[string]error
	broken   map[string]bool
	// beforeFetch runs ahead of every fetch, e.g. to cancel the run mid-flight.
	beforeFetch func(key string)
	calls       int
}

func (f *fakeUpstream) Fetch(ctx context.Context, partition domain.Partition, page int) (domain.Page, error) {
	key := fmt.Sprintf("%s/%d", partition, page)
	f.rec.add("fetch %s", key)
	if f.beforeFetch != nil {
		f.beforeFetch(key)
	}
	if err := ctx.Err(); err != nil {
		return domain.Page{}, &domain.UpstreamError{Partition: partition, Page: page, Err: err}
	}
	if err, ok := f.failures[key]; ok {
		return domain.Page{}, &domain.UpstreamError{Partition: partition, Page: page, Err: err}
	}
	f.calls++

	bounds := f.maxPages[partition]
	maxPage := 0
	if page < len(bounds) {
		maxPage = bounds[page]
	}

	records := []domain.Record{record(partition, page, 0), record(partition, page, 1)}
	if f.broken[key] {
		delete(records[1], "Total_$")
	}
	return domain.Page{
		Partition: partition,
		Number:    page,
		MaxPage:   maxPage,
		Records:   records,
		Raw:       []byte(key),
	}, nil
}

func (f *fakeUpstream) Decode(partition domain.Partition, page int, raw []byte) (domain.Page, error) {
	if string(raw) != fmt.Sprintf("%s/%d", partition, page) {
		return domain.Page{}, errors.New("archived body does not match key")
	}
	bounds := f.maxPages[partition]
	maxPage := 0
	if page < len(bounds) {
		maxPage = bounds[page]
	}
	return domain.Page{
		Partition: partition,
		Number:    page,
		MaxPage:   maxPage,
		Records:   []domain.Record{record(partition, page, 0)},
		Raw:       raw,
	}, nil
}

type memArchive struct {
	rec   *recorder
	pages map[string][]byte
	err   error
}

func newMemArchive(rec *recorder) *memArchive {
	return &memArchive{rec: rec, pages: map[string][]byte{}}
}

func (a *memArchive) Store(_ context.Context, partition domain.Partition, page int, raw []byte) error {
	if a.err != nil {
		return a.err
	}
	key := fmt.Sprintf("%s/%d", partition, page)
	a.rec.add("archive %s", key)
	a.pages[key] = raw
	return nil
}

func (a *memArchive) Load(_ context.Context, partition domain.Partition, page int) ([]byte, error) {
	raw, ok := a.pages[fmt.Sprintf("%s/%d", partition, page)]
	if !ok {
		return nil, domain.ErrPageNotArchived
	}
	return raw, nil
}

type memLoader struct {
	rec  *recorder
	rows []domain.StagingRow
	err  error
}

func (l *memLoader) StagePage(_ context.Context, rows []domain.StagingRow) error {
	if l.err != nil {
		return l.err
	}
	if len(rows) > 0 {
		first := rows[0]
		page, _ := strconv.Atoi(first.CandidateID.Value)
		l.rec.add("stage %s/%d", first.State.Value, page/100)
	}
	l.rows = append(l.rows, rows...)
	return nil
}

type memCheckpoints struct {
	log []domain.Checkpoint
	err error
}

func (c *memCheckpoints) LatestCheckpoint(context.Context) (domain.Checkpoint, error) {
	if len(c.log) == 0 {
		return domain.Checkpoint{}, domain.ErrNoCheckpoint
	}
	return c.log[len(c.log)-1], nil
}

func (c *memCheckpoints) AppendCheckpoint(_ context.Context, cp domain.Checkpoint, _ string) error {
	if c.err != nil {
		return c.err
	}
	c.log = append(c.log, cp)
	return nil
}

type budgetRow struct {
	week  domain.BudgetWeek
	calls int
	runID string
}

type memBudget struct {
	rows []budgetRow
}

func (b *memBudget) CallsInWeek(_ context.Context, week domain.BudgetWeek) (int, error) {
	total := 0
	for _, row := range b.rows {
		if row.week == week {
			total += row.calls
		}
	}
	return total, nil
}

func (b *memBudget) RecordCalls(ctx context.Context, week domain.BudgetWeek, calls int, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.rows = append(b.rows, budgetRow{week: week, calls: calls, runID: runID})
	return nil
}

type fakeModeler struct {
	synced   []string
	facts    int64
	failWith map[string]error
}

func (m *fakeModeler) SyncDimension(_ context.Context, spec ports.DimensionSpec) (int64, error) {
	if err := m.failWith[spec.Table]; err != nil {
		return 0, err
	}
	m.synced = append(m.synced, spec.Table)
	return int64(len(spec.Columns)), nil
}

func (m *fakeModeler) MaterializeFacts(context.Context) (int64, error) {
	return m.facts, nil
}

type captureNotifier struct {
	reports []string
}

func (n *captureNotifier) PublishReport(ctx context.Context, report string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.reports = append(n.reports, report)
	return nil
}

var (
	_ ports.PageFetcher      = (*fakeUpstream)(nil)
	_ ports.PageDecoder      = (*fakeUpstream)(nil)
	_ ports.PageArchive      = (*memArchive)(nil)
	_ ports.StagingLoader    = (*memLoader)(nil)
	_ ports.CheckpointStore  = (*memCheckpoints)(nil)
	_ ports.BudgetStore      = (*memBudget)(nil)
	_ ports.WarehouseModeler = (*fakeModeler)(nil)
	_ ports.Notifier         = (*captureNotifier)(nil)
)
