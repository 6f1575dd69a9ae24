package domain

import "time"

// Page is one upstream response for a (partition, page) pair.
type Page struct {
	Partition Partition
	Number    int
	// MaxPage is the partition's last page index as reported by this response.
	MaxPage int
	Records []Record
	// Raw holds the response body verbatim; it is what the archive stores.
	Raw []byte
}

// Record is one upstream contribution aggregate: field name -> nested attribute map.
type Record map[string]map[string]any

// Field is a nullable scalar headed for the warehouse.
type Field struct {
	Value string
	Valid bool
}

// Text builds a Field, treating the empty string as absent.
func Text(v string) Field {
	return Field{Value: v, Valid: v != ""}
}

// Null is the absent Field.
var Null = Field{}

// StagingRow is a transformed record as it lands in the incubator table.
type StagingRow struct {
	CandidateID      Field
	FullName         Field
	State            Field
	Cycle            Field
	CycleType        Field
	Office           Field
	OfficeCode       Field
	District         Field
	ElectionStatus   Field
	IncumbencyStatus Field
	GeneralParty     Field
	SpecificParty    Field
	Contribution     Field
	IngestedAt       time.Time
}

// StagingColumns lists incubator columns in the order Fields returns them.
var StagingColumns = []string{
	"candidate_id", "full_name", "state", "cycle", "cycle_type", "office", "office_code",
	"district", "election_status", "incumbency_status", "general_party", "specific_party",
	"contribution",
}

// Fields returns the row's scalar values aligned with StagingColumns.
func (r StagingRow) Fields() []Field {
	return []Field{
		r.CandidateID, r.FullName, r.State, r.Cycle, r.CycleType, r.Office, r.OfficeCode,
		r.District, r.ElectionStatus, r.IncumbencyStatus, r.GeneralParty, r.SpecificParty,
		r.Contribution,
	}
}
