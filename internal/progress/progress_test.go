package progress

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/driftbyte/fetchtube/internal/domain"
)

func TestRenderIsPure(t *testing.T) {
	sample := domain.ProgressSample{Downloaded: 5 << 20, Total: 10 << 20, Speed: 2 << 20}
	first := Render(sample)
	for i := 0; i < 10; i++ {
		if got := Render(sample); got != first {
			t.Fatalf("Render is not deterministic:\n%s\nvs\n%s", first, got)
		}
	}
}

func TestRenderKnownTotal(t *testing.T) {
	sample := domain.ProgressSample{Downloaded: 5 << 20, Total: 10 << 20, Speed: 1536 * 1024}
	text := Render(sample)

	if !strings.Contains(text, "50.0%") {
		t.Errorf("expected 50.0%% in output, got:\n%s", text)
	}
	if !strings.Contains(text, "5.0 MB / 10.0 MB") {
		t.Errorf("expected byte counts in output, got:\n%s", text)
	}
	if !strings.Contains(text, "1.5 MB/s") {
		t.Errorf("expected scaled speed in output, got:\n%s", text)
	}
	if !strings.Contains(text, "/cancel") {
		t.Errorf("expected cancel hint in output, got:\n%s", text)
	}
}

func TestRenderUnknownTotal(t *testing.T) {
	text := Render(domain.ProgressSample{Downloaded: 1 << 20})
	if !strings.Contains(text, "Calculating...") {
		t.Errorf("unknown total should render indeterminate state, got:\n%s", text)
	}
	if strings.Contains(text, "%]") || strings.Contains(text, filledCell) {
		t.Errorf("unknown total should not render a bar, got:\n%s", text)
	}
}

func TestBarFill(t *testing.T) {
	cases := []struct {
		pct    float64
		filled int
	}{
		{0, 0},
		{4.9, 0},   // floor rounding
		{5, 1},     // exactly one cell
		{50, 10},
		{99.9, 19},
		{100, 20},
		{150, 20},  // clamped
		{-10, 0},   // clamped
	}
	for _, tc := range cases {
		bar := Bar(tc.pct)
		if got := strings.Count(bar, filledCell); got != tc.filled {
			t.Errorf("Bar(%.1f): %d filled cells, want %d", tc.pct, got, tc.filled)
		}
		if n := len([]rune(bar)); n != BarWidth {
			t.Errorf("Bar(%.1f): width %d, want %d", tc.pct, n, BarWidth)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	cases := []struct {
		speed int64
		want  string
	}{
		{0, "Calculating..."},
		{512, "512.0 B/s"},
		{2048, "2.0 KB/s"},
		{3 * 1024 * 1024, "3.0 MB/s"},
	}
	for _, tc := range cases {
		if got := FormatSpeed(tc.speed); got != tc.want {
			t.Errorf("FormatSpeed(%d) = %q, want %q", tc.speed, got, tc.want)
		}
	}
}

type countingSink struct {
	calls int
}

func (c *countingSink) Publish(ctx context.Context, text string) error {
	c.calls++
	return nil
}

func TestDebouncedDropsBursts(t *testing.T) {
	sink := &countingSink{}
	d := NewDebounced(sink, time.Minute)

	for i := 0; i < 100; i++ {
		d.Publish(context.Background(), "tick")
	}
	if sink.calls != 1 {
		t.Errorf("burst of 100 publishes reached sink %d times, want 1", sink.calls)
	}

	// Terminal updates bypass the limiter.
	d.Flush(context.Background(), "done")
	if sink.calls != 2 {
		t.Errorf("Flush must bypass debounce, sink saw %d calls", sink.calls)
	}
}
