package uploads

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	data := []byte("fake jpeg bytes")
	saved, err := store.Save("homework.jpeg", "image/jpeg", data)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}\.jpeg$`), saved.Name)
	assert.Equal(t, "/uploads/"+saved.Name, saved.URL)
	assert.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(data), saved.DataURL)

	written, err := os.ReadFile(filepath.Join(store.Dir(), saved.Name))
	require.NoError(t, err)
	assert.Equal(t, data, written)
}

func TestSave_Defaults(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	saved, err := store.Save("noext", "", []byte{0xff})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(saved.Name, ".jpg"))
	assert.True(t, strings.HasPrefix(saved.DataURL, "data:image/jpeg;base64,"))
}

func TestSave_UniqueNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		saved, err := store.Save("a.png", "image/png", []byte("x"))
		require.NoError(t, err)
		assert.False(t, seen[saved.Name])
		seen[saved.Name] = true
	}
}
