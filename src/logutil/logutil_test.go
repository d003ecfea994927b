package logutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactKey(t *testing.T) {
	assert.Equal(t, "********", RedactKey("short"))
	assert.Equal(t, "sk-a...wxyz", RedactKey("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, `line1\nline2\tx?`, Sanitize("line1\nline2\tx\x01", 100))
	assert.Equal(t, "abc...", Sanitize("abcdef", 3))
	assert.Equal(t, "", Sanitize("", 10))
}

func TestRotatingWriterRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	w, err := NewRotatingWriter(path, 16, 2)
	require.NoError(t, err)

	_, err = w.Write([]byte("0123456789\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("abcdefghij\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("ABCDEFGHIJ\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ\n", string(current))

	first, err := os.ReadFile(path + ".1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(first), "abcdefghij"))

	second, err := os.ReadFile(path + ".2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(second), "0123456789"))
}
