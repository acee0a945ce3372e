package domain

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
}

func TestTruncateMultibyteBoundary(t *testing.T) {
	// A rune straddling the cut point must survive or go entirely, never
	// be split into a partial encoding.
	s := strings.Repeat("x", 199) + "üüü"
	out := Truncate(s, 200)

	require.True(t, utf8.ValidString(out))
	assert.Equal(t, 200, utf8.RuneCountInString(strings.TrimSuffix(out, "...")))
	assert.True(t, strings.HasSuffix(out, "ü..."))
}

func TestNewEngineErrorBoundsDetail(t *testing.T) {
	detail := strings.Repeat("エ", 300)
	err := NewEngineError(detail)

	require.True(t, utf8.ValidString(err.Detail))
	assert.Equal(t, MaxErrorDetail+3, utf8.RuneCountInString(err.Detail)) // detail + "..."
}

func TestNewUnexpectedErrorBoundsDetail(t *testing.T) {
	err := NewUnexpectedError(errors.New(strings.Repeat("y", 500)))

	assert.Len(t, err.Detail, MaxErrorDetail+3)
	assert.True(t, strings.HasPrefix(err.Error(), "unexpected error: "))
}
