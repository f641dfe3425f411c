package report

import (
	"time"

	"github.com/croneb/leadscan/internal/model"
)

// Summary is what a finished run looks like to a reader: how many records
// came out of each stage, per-letter outcomes, and where the files went.
type Summary struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Stage names the command that produced the summary, e.g. "scrape".
	Stage string `json:"stage"`

	// Started and Finished bound the run.
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Letters holds per-letter outcomes for collection runs.
	Letters []LetterSummary `json:"letters,omitempty"`

	// Records is the number of records in the output file.
	Records int `json:"records"`

	// WithEmail and WithPhone count records carrying those fields.
	WithEmail int `json:"with_email"`
	WithPhone int `json:"with_phone"`

	// Captures is the number of intercepted result responses.
	Captures int `json:"captures,omitempty"`

	// OutputPath is the CSV the run wrote.
	OutputPath string `json:"output"`

	// DBPath is set when the run was persisted to SQLite.
	DBPath string `json:"db_path,omitempty"`
}

// LetterSummary is one letter's outcome.
type LetterSummary struct {
	Letter   string `json:"letter"`
	Records  int    `json:"records"`
	Captures int    `json:"captures"`
	Err      string `json:"error,omitempty"`
}

// Duration returns the run's wall-clock duration.
func (s *Summary) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// FailedLetters counts letters that ended in error.
func (s *Summary) FailedLetters() int {
	n := 0
	for _, l := range s.Letters {
		if l.Err != "" {
			n++
		}
	}
	return n
}

// CountFields fills the record-derived counters from the output records.
func (s *Summary) CountFields(records []model.Record) {
	s.Records = len(records)
	s.WithEmail = 0
	s.WithPhone = 0
	for _, r := range records {
		if r.HasEmail() {
			s.WithEmail++
		}
		if r.Phone != "" {
			s.WithPhone++
		}
	}
}
