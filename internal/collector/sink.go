package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// payloadSink writes raw captured payloads to a diagnostics directory so
// extraction failures can be inspected after the run.
type payloadSink struct {
	dir string
	n   int

	// now is replaceable in tests for stable file names.
	now func() time.Time
}

// newPayloadSink creates the diagnostics directory if needed.
func newPayloadSink(dir string) (*payloadSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}
	return &payloadSink{dir: dir, now: time.Now}, nil
}

// save writes one payload and returns its path. File names carry a
// monotonically increasing index and a timestamp.
func (s *payloadSink) save(body []byte) (string, error) {
	s.n++
	name := fmt.Sprintf("api_response_%d_%s.json", s.n, s.now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return "", fmt.Errorf("failed to save payload: %w", err)
	}
	return path, nil
}
