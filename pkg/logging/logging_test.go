package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "warn", JSON: true})
	logger.Info("hidden")
	logger.Warn("shown", zap.String("id", "demo1"))
	require.NoError(t, logger.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "demo1", entry["id"])
}

func TestNewMirrors(t *testing.T) {
	var main, mirror bytes.Buffer
	logger := New(&main, Options{Mirror: &mirror})
	logger.Info("hello")
	assert.Contains(t, main.String(), "hello")
	assert.Contains(t, mirror.String(), "hello")
}

func TestRedactingWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRedactingWriter(&buf, "/home/ada/.cache/tourhub")

	tests := []struct {
		in       string
		want     string
		mustSkip string
	}{
		{
			in:       "fetching https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view",
			want:     "https://drive.google.com/file/d/[DRIVE_ID]/view",
			mustSkip: "1AbCdEfGhIjKlMnOp",
		},
		{
			in:       "fetching https://drive.usercontent.google.com/download?id=1AbCdEfGhIjKlMnOp&confirm=t",
			want:     "download?id=[DRIVE_ID]&confirm=t",
			mustSkip: "1AbCdEfGhIjKlMnOp",
		},
		{
			in:       "fetching https://dl.dropboxusercontent.com/scl/fi/abc123xyz/tour.zip?rlkey=secretkey9&raw=1",
			want:     "/scl/fi/[DROPBOX_KEY]/tour.zip?rlkey=[DROPBOX_KEY]&raw=1",
			mustSkip: "secretkey9",
		},
		{
			in:       "wrote /home/ada/.cache/tourhub/downloads/download_demo1_1.file",
			want:     "wrote [SCRATCH_DIR]/downloads/download_demo1_1.file",
			mustSkip: "/home/ada",
		},
	}
	for _, tt := range tests {
		buf.Reset()
		n, err := w.Write([]byte(tt.in))
		require.NoError(t, err)
		assert.Equal(t, len(tt.in), n)
		assert.Contains(t, buf.String(), tt.want)
		assert.NotContains(t, buf.String(), tt.mustSkip)
	}
}
