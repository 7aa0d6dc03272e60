//Package dbtest provides throwaway stores for tests
package dbtest

import (
	"testing"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/stretchr/testify/require"
)

//NewStore returns a migrated in-memory sqlite store which is closed when the test ends
func NewStore(t *testing.T) *db.GormStore {
	t.Helper()
	store, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}
