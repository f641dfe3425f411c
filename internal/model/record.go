package model

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CSV column names shared by all pipeline stages.
// The collector writes the base columns; the enricher appends extra_emails
// and the completer appends confidence. Later stages never remove columns.
const (
	ColumnName        = "name"
	ColumnPhone       = "phone"
	ColumnEmail       = "email"
	ColumnWebsite     = "website"
	ColumnExtraEmails = "extra_emails"
	ColumnConfidence  = "confidence"
)

// Column sets for each stage's output file.
var (
	// BaseColumns is the header of the collector output
	// (scraper-output-all.csv).
	BaseColumns = []string{ColumnName, ColumnPhone, ColumnEmail, ColumnWebsite}

	// EnrichedColumns is the header of the enricher output
	// (personal-output.csv).
	EnrichedColumns = []string{ColumnName, ColumnPhone, ColumnEmail, ColumnWebsite, ColumnExtraEmails}

	// FinalColumns is the header of the completer output
	// (final-output.csv).
	FinalColumns = []string{ColumnName, ColumnPhone, ColumnEmail, ColumnWebsite, ColumnExtraEmails, ColumnConfidence}
)

// Record is one realtor's contact information. Name is the only required
// field and serves as the deduplication key; all other fields are
// best-effort. ExtraEmails is populated by the enricher and Confidence by
// the completer, both optional.
//
// Fields stay strings end to end. Every stage reads and writes CSV, and the
// enrichment stages merge free-text service answers, so typed fields would
// only add lossy conversions in both directions.
type Record struct {
	// Name is the realtor's display name as it appears on the result card.
	Name string

	// Phone is the contact phone number, normalized when it parses as a
	// Canadian number and verbatim otherwise.
	Phone string

	// Email is the contact email address. Usually empty after collection
	// because the directory hides emails behind a contact button.
	Email string

	// Website is the realtor's personal site URL, if the card links one.
	Website string

	// ExtraEmails holds additional comma-separated addresses found during
	// enrichment.
	ExtraEmails string

	// Confidence is the completer's source-reliability score in [0,1],
	// kept as the service-reported string (e.g. "0.8").
	Confidence string
}

// Field returns the record field for a CSV column name.
// Unknown columns yield an empty string.
func (r Record) Field(column string) string {
	switch column {
	case ColumnName:
		return r.Name
	case ColumnPhone:
		return r.Phone
	case ColumnEmail:
		return r.Email
	case ColumnWebsite:
		return r.Website
	case ColumnExtraEmails:
		return r.ExtraEmails
	case ColumnConfidence:
		return r.Confidence
	}
	return ""
}

// SetField assigns a CSV column value to the matching record field.
// Unknown columns are ignored so inputs with extra columns still load.
func (r *Record) SetField(column, value string) {
	switch column {
	case ColumnName:
		r.Name = value
	case ColumnPhone:
		r.Phone = value
	case ColumnEmail:
		r.Email = value
	case ColumnWebsite:
		r.Website = value
	case ColumnExtraEmails:
		r.ExtraEmails = value
	case ColumnConfidence:
		r.Confidence = value
	}
}

// HasEmail reports whether the record already carries a non-empty email.
func (r Record) HasEmail() bool {
	return strings.TrimSpace(r.Email) != ""
}

// HasWebsite reports whether the record carries a non-empty website.
func (r Record) HasWebsite() bool {
	return strings.TrimSpace(r.Website) != ""
}

// nameFolder folds case for dedup keys. cases.Fold is language-neutral,
// which matters because realtor names are not reliably English.
var nameFolder = cases.Fold()

// DedupKey returns the canonical form of a name used for deduplication:
// NFKC-normalized, case-folded, inner whitespace collapsed. An empty name
// yields an empty key, which Dedup treats as "never a duplicate, never
// kept" (records without a name are dropped at extraction time).
func DedupKey(name string) string {
	folded := nameFolder.String(norm.NFKC.String(name))
	return strings.Join(strings.Fields(folded), " ")
}

// Dedup removes records whose name duplicates an earlier record, keeping
// first occurrences and preserving order. Records with empty names are
// removed as well: a record is only meaningful if it can be keyed.
// Running Dedup on its own output returns an identical slice.
func Dedup(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		key := DedupKey(r.Name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// phoneRegion is the default region for parsing scraped phone numbers.
// The directory covers Canadian realtors.
const phoneRegion = "CA"

// NormalizePhone formats a scraped phone number in national notation when
// it parses as a valid Canadian number. Anything else is returned verbatim;
// a malformed phone is still worth keeping for a contact list.
func NormalizePhone(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	num, err := phonenumbers.Parse(trimmed, phoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return trimmed
	}
	return phonenumbers.Format(num, phonenumbers.NATIONAL)
}
