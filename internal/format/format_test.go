package format

import (
	"strings"
	"testing"

	"github.com/driftbyte/fetchtube/internal/domain"
)

func TestExpressionAllSupported(t *testing.T) {
	for _, res := range Supported() {
		expr := Expression(res)
		if expr == "" {
			t.Errorf("Expression(%q) returned empty string", res)
		}
		if !strings.Contains(expr, "+ba[ext=m4a]") {
			t.Errorf("Expression(%q) missing merged audio stream: %s", res, expr)
		}
		if !strings.Contains(expr, "/") {
			t.Errorf("Expression(%q) missing pre-merged fallback: %s", res, expr)
		}
	}
}

func TestExpressionHeightCeiling(t *testing.T) {
	cases := []struct {
		res  domain.Resolution
		want string
	}{
		{domain.Res144, "height<=144"},
		{domain.Res480, "height<=480"},
		{domain.Res1080, "height<=1080"},
	}
	for _, tc := range cases {
		if expr := Expression(tc.res); !strings.Contains(expr, tc.want) {
			t.Errorf("Expression(%q) = %q, want substring %q", tc.res, expr, tc.want)
		}
	}
	if expr := Expression(domain.ResBest); strings.Contains(expr, "height<=") {
		t.Errorf("Expression(best) should have no height ceiling, got %q", expr)
	}
}

func TestExpressionUnknownFallsBack(t *testing.T) {
	got := Expression(domain.Resolution("4320"))
	want := Expression(DefaultResolution)
	if got != want {
		t.Errorf("unknown resolution: got %q, want fallback %q", got, want)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize(domain.Res360); got != domain.Res360 {
		t.Errorf("Normalize(360) = %q", got)
	}
	if got := Normalize(domain.Resolution("weird")); got != DefaultResolution {
		t.Errorf("Normalize(weird) = %q, want %q", got, DefaultResolution)
	}
}

func TestDisplay(t *testing.T) {
	if got := Display(domain.Res720); got != "720p" {
		t.Errorf("Display(720) = %q", got)
	}
	if got := Display(domain.ResBest); got != "Best Quality" {
		t.Errorf("Display(best) = %q", got)
	}
	// Unknown resolutions display as the fallback.
	if got := Display(domain.Resolution("9999")); got != "720p" {
		t.Errorf("Display(9999) = %q, want 720p", got)
	}
}
