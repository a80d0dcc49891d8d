package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMigrationFiles_SortsAndSkips(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_add_index.sql": {Data: []byte("CREATE INDEX x ON t (a);")},
		"sql/001_create.sql":    {Data: []byte("CREATE TABLE t (a INT);")},
		"sql/readme.sql":        {Data: []byte("-- no version")},
		"sql/003_notes.txt":     {Data: []byte("ignored")},
	}
	files, err := FindMigrationFiles(fsys)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001", files[0].Version)
	assert.Equal(t, "sql/001_create.sql", files[0].Path)
	assert.Equal(t, "002", files[1].Version)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := FindMigrationFiles(migrationFS)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001", files[0].Version)
}

func TestCalculateChecksum(t *testing.T) {
	a := calculateChecksum([]byte("CREATE TABLE t (a INT);"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, calculateChecksum([]byte("CREATE TABLE t (a INT);")))
	assert.NotEqual(t, a, calculateChecksum([]byte("CREATE TABLE t (b INT);")))
}
