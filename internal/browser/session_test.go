package browser

import (
	"context"
	"errors"
	"testing"
)

// TestSessionClickNext tests pagination attempts without a browser by
// substituting the click function.
func TestSessionClickNext(t *testing.T) {
	t.Parallel()

	t.Run("every attempt carries a deadline", func(t *testing.T) {
		t.Parallel()

		s := &Session{ctx: context.Background()}
		var attempts []string
		s.click = func(ctx context.Context, sel string) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Errorf("click(%q) ran without a deadline", sel)
			}
			attempts = append(attempts, sel)
			return errors.New("no node")
		}

		if err := s.ClickNext(); !errors.Is(err, ErrNoNextPage) {
			t.Errorf("ClickNext() = %v, want ErrNoNextPage", err)
		}
		if len(attempts) != len(nextPageSelectors) {
			t.Fatalf("attempted %d selectors, want %d", len(attempts), len(nextPageSelectors))
		}
		for i, sel := range nextPageSelectors {
			if attempts[i] != sel {
				t.Errorf("attempt %d = %q, want %q", i, attempts[i], sel)
			}
		}
	})

	t.Run("stops at the first selector that clicks", func(t *testing.T) {
		t.Parallel()

		s := &Session{ctx: context.Background()}
		var attempts int
		s.click = func(ctx context.Context, sel string) error {
			attempts++
			if attempts == 2 {
				return nil
			}
			return errors.New("no node")
		}

		if err := s.ClickNext(); err != nil {
			t.Errorf("ClickNext() = %v, want nil", err)
		}
		if attempts != 2 {
			t.Errorf("attempts = %d, want 2", attempts)
		}
	})
}
