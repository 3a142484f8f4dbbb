package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warning ", slog.LevelWarn, false},
		{"err", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	lg, err := New(Options{Level: "info", Format: "json", Writer: &buf})
	require.NoError(t, err)

	lg.Debug("hidden")
	lg.Info("robots listed", "count", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "robots listed", rec["msg"])
	assert.Equal(t, float64(3), rec["count"])
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***e@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "**@x.com", MaskEmail("ab@x.com"))
	assert.Equal(t, "****", MaskEmail("not-an-email"))
	assert.Equal(t, "****", MaskEmail("@x.com"))
}
