package enrich

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/croneb/leadscan/internal/model"
)

// mergeAnswer parses the service's answer text as loose CSV lines of the
// form name,<answerColumns...> and merges matching lines into the batch's
// records. Matching is by folded name. Only empty fields are filled;
// values already present on a record are never overwritten. It returns the
// number of records that received at least one value.
func mergeAnswer(records []model.Record, batch []int, answer string, answerColumns []string) int {
	lines := parseAnswer(answer)
	if len(lines) == 0 {
		return 0
	}

	byName := make(map[string][]string, len(lines))
	for _, fields := range lines {
		byName[model.DedupKey(fields[0])] = fields[1:]
	}

	merged := 0
	for _, i := range batch {
		fields, ok := byName[model.DedupKey(records[i].Name)]
		if !ok {
			continue
		}
		changed := false
		for col, value := range zipColumns(answerColumns, fields) {
			value = cleanValue(col, value)
			if value == "" || records[i].Field(col) != "" {
				continue
			}
			records[i].SetField(col, value)
			changed = true
		}
		if changed {
			merged++
		}
	}
	return merged
}

// parseAnswer extracts plausible data lines from free-form answer text.
// Code fences, blank lines, header rows, and prose without a comma are
// dropped. Each returned slice has at least two fields.
func parseAnswer(answer string) [][]string {
	var out [][]string
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") || !strings.Contains(line, ",") {
			continue
		}

		r := csv.NewReader(strings.NewReader(line))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		r.TrimLeadingSpace = true
		fields, err := r.Read()
		if err != nil || len(fields) < 2 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if fields[0] == "" || isHeaderRow(fields) {
			continue
		}
		out = append(out, fields)
	}
	return out
}

func isHeaderRow(fields []string) bool {
	switch strings.ToLower(fields[0]) {
	case model.ColumnName, "full name", "realtor", "agent":
		return true
	}
	return false
}

// zipColumns pairs answer columns with line fields, ignoring extras on
// either side.
func zipColumns(columns, fields []string) map[string]string {
	n := len(columns)
	if len(fields) < n {
		n = len(fields)
	}
	pairs := make(map[string]string, n)
	for i := 0; i < n; i++ {
		pairs[columns[i]] = fields[i]
	}
	return pairs
}

// cleanValue normalizes a single answer value. Service placeholders for
// "nothing found" become empty, and confidence is clamped to [0, 1].
func cleanValue(column, value string) string {
	switch strings.ToLower(value) {
	case "", "none", "n/a", "na", "not found", "unknown", "null":
		return ""
	}
	if column == model.ColumnConfidence {
		return clampConfidence(value)
	}
	return value
}

// clampConfidence bounds a confidence score to [0, 1]. Unparseable values
// are dropped so the stage default applies instead.
func clampConfidence(value string) string {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return ""
	}
	if f < 0 {
		return "0.0"
	}
	if f > 1 {
		return "1.0"
	}
	return value
}
