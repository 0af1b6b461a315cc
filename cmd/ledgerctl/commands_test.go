package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LEDGER_CONFIG", "LEDGER_STORE", "LEDGER_SQLITE_PATH", "DATABASE_URL",
		"REDIS_URL", "LEDGER_CACHE_TTL", "LEDGER_SEED",
	} {
		t.Setenv(k, "")
	}
}

// run executes one ledgerctl invocation against db and returns its stdout.
func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLedgerctlWorkflow(t *testing.T) {
	clearEnv(t)
	db := filepath.Join(t.TempDir(), "ledger.db")

	out, err := run(t, db, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Trader A")
	assert.Contains(t, out, "$500,000.00")

	_, err = run(t, db, "seed")
	assert.Error(t, err, "seeding twice is refused")

	out, err = run(t, db, "parties", "list", "--type", "financier")
	require.NoError(t, err)
	assert.Contains(t, out, "Financier X")
	assert.NotContains(t, out, "Trader B")

	out, err = run(t, db, "parties", "add", "--name", "Trader C", "--balance", "2500.50")
	require.NoError(t, err)
	assert.Contains(t, out, "created trader")

	out, err = run(t, db, "parties", "list", "--type", "trader")
	require.NoError(t, err)
	assert.Contains(t, out, "Trader C")
	assert.Contains(t, out, "$2,500.50")

	out, err = run(t, db, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	out, err = run(t, db, "history", "--kind", "finance")
	require.NoError(t, err)
	assert.Contains(t, out, "0 entries")

	_, err = run(t, db, "history", "--kind", "swap")
	assert.Error(t, err)
}

func TestLedgerctlLoanAndBalance(t *testing.T) {
	clearEnv(t)
	db := filepath.Join(t.TempDir(), "ledger.db")

	_, err := run(t, db, "parties", "add", "--name", "T", "--balance", "1000")
	require.NoError(t, err)
	_, err = run(t, db, "parties", "add", "--name", "F", "--type", "financier", "--balance", "5000")
	require.NoError(t, err)

	// Party ids are generated; open the store directly to read them.
	rc := &rootConfig{SQLitePath: db, LogLevel: "error"}
	sess := NewRootCmd()
	sess.SetContext(context.Background())
	sess.SetErr(&bytes.Buffer{})
	require.NoError(t, rc.open(sess))
	traders := rc.ledger.Traders()
	financiers := rc.ledger.Financiers()
	rc.close()
	require.Len(t, traders, 1)
	require.Len(t, financiers, 1)
	tid, fid := traders[0].ID, financiers[0].ID

	out, err := run(t, db, "loan", "issue", tid, fid, "400")
	require.NoError(t, err)
	assert.Contains(t, out, "$400.00")

	_, err = run(t, db, "loan", "repay", tid, fid, "500")
	assert.Error(t, err, "repaying more than owed is rejected")

	out, err = run(t, db, "loan", "repay", tid, fid, "150")
	require.NoError(t, err)
	assert.Contains(t, out, "$250.00")

	out, err = run(t, db, "history", "--party", fid)
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries")
	assert.Contains(t, out, "financed $400.00")

	out, err = run(t, db, "set-balance", tid, "99")
	require.NoError(t, err)
	assert.Contains(t, out, "$99.00")

	_, err = run(t, db, "set-balance", tid, "lots")
	assert.Error(t, err)

	out, err = run(t, db, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}
