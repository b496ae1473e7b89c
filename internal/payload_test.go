package tourhub

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"login page", "<html><body>Sign in</body></html>", MsgNotPublic},
		{"doctype", "<!DOCTYPE html><p>x</p>", MsgNotPublic},
		{"drive marker", "Google Drive - Quota exceeded", MsgNotPublic},
		{"short garbage", "not a zip", MsgNotAFile},
		{"empty", "", MsgEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload("rec", writeTemp(t, tt.content), DefaultMinPayloadBytes)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrContentInvalid)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestValidatePayloadAcceptsLargeFiles(t *testing.T) {
	// Large payloads are not sniffed even when they look like HTML.
	p := writeTemp(t, "<html>"+strings.Repeat("x", 200)+"</html>")
	assert.NoError(t, ValidatePayload("rec", p, DefaultMinPayloadBytes))
}

func TestValidatePayloadMissingFile(t *testing.T) {
	err := ValidatePayload("rec", filepath.Join(t.TempDir(), "nope"), DefaultMinPayloadBytes)
	assert.ErrorIs(t, err, ErrContentInvalid)
	assert.Equal(t, MsgEmpty, err.Error())
}
