package docstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveReadDelete(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save(KindResume, "resume text")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, KindResume+"/") || strings.HasPrefix(rel, KindResume+"\\"))
	assert.True(t, strings.HasSuffix(rel, ".txt"))

	content, err := store.Read(rel)
	require.NoError(t, err)
	assert.Equal(t, "resume text", content)

	require.NoError(t, store.Delete(rel))

	_, err = store.Read(rel)
	require.Error(t, err)

	// Idempotent delete.
	require.NoError(t, store.Delete(rel))
}

func TestSaveRejectsUnknownKind(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("certificates", "x")
	require.Error(t, err)
}

func TestReadRejectsEscapingPaths(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	for _, path := range []string{"../outside.txt", "/etc/passwd", "resumes/../../x"} {
		_, err := store.Read(path)
		require.Error(t, err, path)
	}
}

func TestDistinctFilenames(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save(KindVacancy, "one")
	require.NoError(t, err)
	b, err := store.Save(KindVacancy, "two")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
