package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for name, want := range cases {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}

func TestSetupLevelAndFormat(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	Setup(&Config{Level: "warn", Production: true})

	handler := slog.Default().Handler()
	ctx := context.Background()
	assert.True(t, handler.Enabled(ctx, slog.LevelWarn))
	assert.False(t, handler.Enabled(ctx, slog.LevelInfo))

	_, isJSON := handler.(*slog.JSONHandler)
	require.True(t, isJSON)

	Setup(&Config{Level: "debug", Production: false})
	_, isText := slog.Default().Handler().(*slog.TextHandler)
	require.True(t, isText)
}
