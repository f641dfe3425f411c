package enrich

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// answerSink persists raw batch answers so merge problems can be diagnosed
// after the run.
type answerSink struct {
	dir string
	tag string

	now func() time.Time
}

func newAnswerSink(dir, tag string) *answerSink {
	return &answerSink{dir: dir, tag: tag, now: time.Now}
}

// save writes one answer and returns its path. The directory is created
// lazily so a stage that never reaches the service leaves nothing behind.
func (s *answerSink) save(batch int, text string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create capture directory: %w", err)
	}
	name := fmt.Sprintf("%s_batch_%d_%s.txt", s.tag, batch, s.now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return "", fmt.Errorf("failed to save batch answer: %w", err)
	}
	return path, nil
}
