package database

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	cfg := Config{Path: filepath.Join(t.TempDir(), "nested", "bookhub.db")}

	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	// idempotent
	require.NoError(t, Migrate(db))

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('users', 'loans')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDefaultConfig_Env(t *testing.T) {
	t.Setenv("BOOKHUB_DB_PATH", "/tmp/custom.db")
	assert.Equal(t, "/tmp/custom.db", DefaultConfig().Path)

	t.Setenv("BOOKHUB_DB_PATH", "")
	assert.Equal(t, "bookhub.db", filepath.Base(DefaultConfig().Path))
}

func TestConfig_DSN(t *testing.T) {
	dsn := Config{Path: "/data/bookhub.db"}.DSN()
	assert.True(t, strings.HasPrefix(dsn, "file:/data/bookhub.db?"))
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_busy_timeout=5000")

	dsn = Config{Path: "x.db", BusyTimeout: 250 * time.Millisecond}.DSN()
	assert.Contains(t, dsn, "_busy_timeout=250")
}

func TestOpen_ForeignKeysOnEveryConnection(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "bookhub.db")})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	ctx := t.Context()
	// hold two connections at once so the pool has to open a second one
	c1, err := db.Conn(ctx)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := db.Conn(ctx)
	require.NoError(t, err)
	defer c2.Close()

	var fk1, fk2 int
	require.NoError(t, c1.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk1))
	require.NoError(t, c2.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk2))
	assert.Equal(t, 1, fk1)
	assert.Equal(t, 1, fk2)

	_, err = c2.ExecContext(ctx,
		`INSERT INTO loans (id, user_id, isbn, title, author) VALUES ('l1', 'nobody', '9783161484100', 't', 'a')`)
	assert.Error(t, err, "loan for unknown user must violate the foreign key")
}
