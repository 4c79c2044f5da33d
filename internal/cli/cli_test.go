package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/khata/internal/app"
	"github.com/MrJamesThe3rd/khata/internal/cli"
	"github.com/MrJamesThe3rd/khata/internal/config"
	"github.com/MrJamesThe3rd/khata/internal/customer"
	"github.com/MrJamesThe3rd/khata/internal/database"
	"github.com/MrJamesThe3rd/khata/internal/http/auth"
	"github.com/MrJamesThe3rd/khata/internal/ledger"
)

func setup(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	t.Setenv("DB_DRIVER", config.DriverSQLite)
	t.Setenv("DB_SQLITE_PATH", filepath.Join(dir, "khata.db"))
	t.Setenv("JWT_SECRET", "")

	return dir
}

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := cli.NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(dir, "missing.env")}, args...))

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func seed(t *testing.T) {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := database.New(cfg.DB.Driver, cfg.ConnectionString())
	require.NoError(t, err)

	defer db.Close()

	a, err := app.New(cfg, db, zap.NewNop(), nil)
	require.NoError(t, err)

	ctx := context.Background()

	asha, err := a.Customers.Create(ctx, customer.CreateParams{Name: "Asha"})
	require.NoError(t, err)

	require.NoError(t, a.Ledger.Append(ctx, []*ledger.Entry{
		{CustomerID: &asha.ID, Type: ledger.TypeSaleCredit, Amount: decimal.NewFromInt(120), ItemName: "Rice", Quantity: 2},
	}))
	require.NoError(t, a.Ledger.Append(ctx, []*ledger.Entry{
		{CustomerID: &asha.ID, Type: ledger.TypePayment, Amount: decimal.NewFromInt(20)},
	}))

	_, err = a.Reminders.Schedule(ctx, asha.ID, "Please pay ₹120.00 for transaction", -time.Hour)
	require.NoError(t, err)
}

func TestCommandPresence(t *testing.T) {
	cmd := cli.NewRootCommand()

	for _, name := range []string{"migrate", "import-catalog", "reminders", "balance", "token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestWorkflow(t *testing.T) {
	dir := setup(t)

	out, err := run(t, dir, "migrate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "schema version 1 (clean)")

	csv := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(csv, []byte("item;quantity;price\nRice;40;60\nSugar;25;45\n"), 0o600))

	out, err = run(t, dir, "import-catalog", csv)
	require.NoError(t, err, out)
	assert.Contains(t, out, "created 2, updated 0, skipped 0")

	out, err = run(t, dir, "reminders", "due")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No reminders due.")

	seed(t)

	out, err = run(t, dir, "balance", "asha")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Asha: credit ₹120.00, paid ₹20.00, outstanding ₹100.00")

	out, err = run(t, dir, "reminders", "due")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Asha")
	assert.Contains(t, out, "ago")

	_, err = run(t, dir, "balance", "Nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no customer named "Nobody"`)
}

func TestToken(t *testing.T) {
	dir := setup(t)

	_, err := run(t, dir, "token", "shop-1")
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")

	out, err := run(t, dir, "token", "shop-1", "--ttl", "1h")
	require.NoError(t, err)

	subject, err := auth.Verify("s3cret", string(bytes.TrimSpace([]byte(out))))
	require.NoError(t, err)
	assert.Equal(t, "shop-1", subject)
}
