package sqlite

import (
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/Thiht/transactor"
	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*sql.DB, transactor.Transactor, txStdLib.DBGetter) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "pomomo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db, log.New(io.Discard)))

	tx, dbGetter := txStdLib.NewTransactor(db, txStdLib.NestedTransactionsSavepoints)
	return db, tx, dbGetter
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	db, _, _ := newTestDB(t)
	require.NoError(t, Migrate(db, log.New(io.Discard)))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('tasks', 'user_settings', 'focus_sessions')").Scan(&n))
	assert.Equal(t, 3, n)
}

func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("")
	assert.Error(t, err)
}

func TestGenerateParameters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int
		want string
	}{
		{0, "()"},
		{1, "(?)"},
		{3, "(?, ?, ?)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateParameters(tt.n))
	}
}
