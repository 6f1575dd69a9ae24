// Package transform maps upstream contribution records onto incubator rows.
package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ContributionsETL/internal/domain"
)

// IncubatorTable is the staging table the legacy INSERT text targets.
const IncubatorTable = "incubator"

// Record converts one upstream record; index only feeds error messages.
func Record(rec domain.Record, index int, ingestedAt time.Time) (domain.StagingRow, error) {
	x := extractor{rec: rec, index: index}

	candidateID := x.field("Candidate", "id")
	fullName := x.field("Candidate", "Candidate")
	state := x.field("Election_Jurisdiction", "Election_Jurisdiction")
	cycle := x.field("Election_Year", "Election_Year")
	cycleType := x.field("Election_Type", "Election_Type")
	officeSought := x.field("Office_Sought", "Office_Sought")
	electionStatus := x.field("Election_Status", "Election_Status")
	incumbency := x.field("Incumbency_Status", "Incumbency_Status")
	contribution := x.field("Total_$", "Total_$")
	generalParty := x.field("General_Party", "General_Party")
	specificParty := x.field("Specific_Party", "Specific_Party")
	if x.err != nil {
		return domain.StagingRow{}, x.err
	}

	office, district := ParseOffice(officeSought.Value)

	return domain.StagingRow{
		CandidateID:      candidateID,
		FullName:         fullName,
		State:            state,
		Cycle:            cycle,
		CycleType:        cycleType,
		Office:           office,
		OfficeCode:       OfficeCode(office.Value),
		District:         district,
		ElectionStatus:   electionStatus,
		IncumbencyStatus: incumbency,
		GeneralParty:     generalParty,
		SpecificParty:    specificParty,
		Contribution:     contribution,
		IngestedAt:       ingestedAt,
	}, nil
}

// Page converts every record of a page. A single malformed record fails the whole page.
func Page(page domain.Page, ingestedAt time.Time) ([]domain.StagingRow, error) {
	rows := make([]domain.StagingRow, 0, len(page.Records))
	for i, rec := range page.Records {
		row, err := Record(rec, i, ingestedAt)
		if err != nil {
			return nil, fmt.Errorf("page %s/%d: %w", page.Partition, page.Number, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LegacyInsert renders rows as the literal multi-row INSERT the warehouse historically received.
func LegacyInsert(rows []domain.StagingRow) string {
	if len(rows) == 0 {
		return ""
	}

	values := make([]string, 0, len(rows))
	for _, row := range rows {
		fields := row.Fields()
		literals := make([]string, 0, len(fields)+1)
		for _, f := range fields {
			literals = append(literals, Literal(f))
		}
		literals = append(literals, Literal(domain.Text(row.IngestedAt.Format("2006-01-02T15:04:05.000000"))))
		values = append(values, "("+strings.Join(literals, ", ")+")")
	}

	columns := append(append([]string{}, domain.StagingColumns...), "ingested_at")
	return fmt.Sprintf("INSERT INTO %s (%s)\nVALUES %s;", IncubatorTable, strings.Join(columns, ", "), strings.Join(values, ",\n"))
}

type extractor struct {
	rec   domain.Record
	index int
	err   error
}

func (x *extractor) field(group, key string) domain.Field {
	if x.err != nil {
		return domain.Null
	}

	attrs, ok := x.rec[group]
	if !ok || attrs == nil {
		x.err = &domain.MalformedRecordError{Index: x.index, Field: group}
		return domain.Null
	}
	raw, ok := attrs[key]
	if !ok {
		x.err = &domain.MalformedRecordError{Index: x.index, Field: group + "." + key}
		return domain.Null
	}

	switch v := raw.(type) {
	case nil:
		return domain.Null
	case string:
		return domain.Text(v)
	case json.Number:
		return domain.Text(v.String())
	case float64:
		return domain.Text(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		return domain.Text(strconv.FormatBool(v))
	default:
		x.err = &domain.MalformedRecordError{Index: x.index, Field: group + "." + key}
		return domain.Null
	}
}
