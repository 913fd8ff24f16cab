package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "nearu.db")

	db, err := Open(Config{Path: path})
	require.NoError(t, err)

	var tables int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN
		 ('users', 'path_crossings', 'match_requests', 'messages', 'notifications', 'user_tokens')`,
	).Scan(&tables))
	assert.Equal(t, 6, tables)
	require.NoError(t, db.Close())

	// reopening must not re-apply anything
	db, err = Open(Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&applied))
	assert.Equal(t, 2, applied)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "tx.db")})
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	err = Transaction(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO user_tokens (user_id, token, updated_at) VALUES ('u1', 't', 1)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM user_tokens").Scan(&n))
	assert.Equal(t, 0, n)
}
