package migration

import (
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRun(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"migrations/000002_add_index.up.sql":      {Data: []byte(`CREATE INDEX idx_items_name ON items(name);`)},
		"migrations/000001_create_items.up.sql":   {Data: []byte(`CREATE TABLE items (id TEXT PRIMARY KEY, name TEXT NOT NULL);`)},
		"migrations/000001_create_items.down.sql": {Data: []byte(`DROP TABLE items;`)},
		"migrations/README.md":                    {Data: []byte(`ignored`)},
	}

	t.Run("버전 순서대로 적용된다", func(t *testing.T) {
		t.Parallel()

		db := openMemoryDB(t)
		require.NoError(t, Run(db, fsys, "migrations", zap.NewNop()))

		applied, err := getAppliedVersions(db)
		require.NoError(t, err)
		assert.Equal(t, map[int]bool{1: true, 2: true}, applied)

		_, err = db.Exec(`INSERT INTO items (id, name) VALUES ('a', 'b')`)
		require.NoError(t, err)
	})

	t.Run("두 번 실행해도 다시 적용하지 않는다", func(t *testing.T) {
		t.Parallel()

		db := openMemoryDB(t)
		require.NoError(t, Run(db, fsys, "migrations", zap.NewNop()))
		require.NoError(t, Run(db, fsys, "migrations", zap.NewNop()))

		var count int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
		assert.Equal(t, 2, count)
	})

	t.Run("잘못된 SQL이면 에러를 반환하고 기록하지 않는다", func(t *testing.T) {
		t.Parallel()

		broken := fstest.MapFS{
			"m/000001_broken.up.sql": {Data: []byte(`CREATE TABLE (`)},
		}
		db := openMemoryDB(t)
		require.Error(t, Run(db, broken, "m", zap.NewNop()))

		applied, err := getAppliedVersions(db)
		require.NoError(t, err)
		assert.Empty(t, applied)
	})
}
