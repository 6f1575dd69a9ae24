package transform

import (
	"strings"
	"unicode"

	"ContributionsETL/internal/domain"
)

type officeRule struct {
	match     func(office string) bool
	canonical string
}

func contains(sub string) func(string) bool {
	return func(office string) bool { return strings.Contains(office, sub) }
}

// officeRules is evaluated top to bottom; the first match wins.
var officeRules = []officeRule{
	{contains("US HOUSE"), "House of Representatives"},
	{contains("HOUSE DISTRICT"), "State House/Assembly"},
	{contains("ASSEMBLY DISTRICT"), "State House/Assembly"},
	{contains("EDUCATION"), "Board of Ed."},
	{contains("SUPREME"), "Supreme Court Seat"},
	{contains("APPELLATE"), "Apellate Court Seat"},
	{contains("SENATE DISTRICT"), "State Senate"},
	{contains("State Representative"), "State House/Assembly"},
	{func(o string) bool { return strings.Contains(o, "SENATE") && !strings.Contains(o, "US") }, "State Senate"},
	{contains("GOVERNOR"), "Governor"},
	// Shadowed by GOVERNOR above, so lieutenant governor races land on Governor.
	{contains("LIEUTENANT GOVERNOR"), "Lt. Gov"},
	{contains("HAWAIIAN AFFAIRS"), "Office of Hawaiian Affairs"},
	{contains("PUBLIC REGULATION"), "Public Regulation Comissioner"},
	{contains("REGENTS"), "Board of Reagents Member"},
	{contains("SUPERINTENDENT OF PUBLIC"), "Superintendent of Public Instruction"},
	{contains("TRANSPORTATION COMMISSIONER"), "Transportation Commissioner"},
	{contains("REGIONAL TRANSPORTATION"), "Regional Transportation Commissioner"},
	{contains("SUPERIOR COURT"), "Superior Court Seat"},
	{contains("PUBLIC SERVICE COMMISSIONER"), "Public Service Commissioner"},
}

// officeCodes keys canonical offices. "Lt. Gov" is unreachable from ParseOffice
// while the GOVERNOR rule precedes the lieutenant rule.
var officeCodes = map[string]string{
	"State House/Assembly": "SLEG",
	"State Senate":         "SSN",
	"Governor":             "GOV",
	"Lt. Gov":              "LTGOV",
	"Board of Ed.":         "BOE",
	"Supreme Court Seat":   "SSC",
}

// CanonicalOffice maps an upstream office name onto the warehouse vocabulary.
// Unmatched names are title-cased.
func CanonicalOffice(office string) string {
	for _, rule := range officeRules {
		if rule.match(office) {
			return rule.canonical
		}
	}
	return titleCase(office)
}

// OfficeCode returns the short code of a canonical office, if it has one.
func OfficeCode(canonical string) domain.Field {
	code, ok := officeCodes[canonical]
	if !ok {
		return domain.Null
	}
	return domain.Text(code)
}

// SplitDistrict separates a trailing numeric token from an office-sought string.
// "STATE SENATE DISTRICT 12" yields ("STATE SENATE DISTRICT", "12").
func SplitDistrict(raw string) (string, domain.Field) {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return "", domain.Null
	}

	last := words[len(words)-1]
	if !isDigits(last) {
		return raw, domain.Null
	}
	return strings.Join(words[:len(words)-1], " "), domain.Text(last)
}

// ParseOffice splits the district off and canonicalizes the remaining office text.
func ParseOffice(raw string) (office domain.Field, district domain.Field) {
	text, district := SplitDistrict(raw)
	return domain.Text(CanonicalOffice(text)), district
}

// titleCase upper-cases the first letter of every run of letters and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevLetter := false
	for _, r := range s {
		isLetter := unicode.IsLetter(r)
		switch {
		case isLetter && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
		case isLetter:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevLetter = isLetter
	}
	return b.String()
}
