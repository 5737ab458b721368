package launch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamb-project/lamb-lti/internal/db"
	"github.com/lamb-project/lamb-lti/internal/launch"
)

func TestSQLLedgerAppend(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbh.Close() })

	ledger := launch.NewSQLLedger(dbh)
	rec := launch.Record{
		AssistantID:   7,
		AssistantName: "Essay Coach",
		GroupID:       "grp-1",
		Owner:         "prof@x.edu",
		UserEmail:     "student@x.edu",
		UserName:      "Ada Lovelace",
		Role:          "Learner",
	}
	require.NoError(t, ledger.Append(ctx, rec))
	require.NoError(t, ledger.Append(ctx, rec)) // append-only, duplicates allowed

	var n int
	require.NoError(t, dbh.QueryRow(
		`SELECT COUNT(*) FROM lti_launches WHERE assistant_id=7 AND user_email='student@x.edu'`).Scan(&n))
	assert.Equal(t, 2, n)

	var createdAt int64
	require.NoError(t, dbh.QueryRow(
		`SELECT created_at FROM lti_launches LIMIT 1`).Scan(&createdAt))
	assert.NotZero(t, createdAt)
}
