package store_test

import (
	"testing"

	"estateSocialAPI/internal/store"
	"estateSocialAPI/internal/testutil"
)

func TestPostgresStore(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	runStoreContract(t, store.NewPostgres(pool))
}
