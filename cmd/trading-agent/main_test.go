package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/trading-agent-contract/ledger"
	"github.com/nspcc-dev/trading-agent-contract/tests/dump"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	testOwner = util.Uint160{1}
	testAgent = util.Uint160{2}
	testToken = util.Uint160{3}
)

// writeTestDump writes dump of the ledger with single agent and balance.
func writeTestDump(t *testing.T, dir string, id dump.ID) {
	src := storage.NewMemoryStore()

	l, err := ledger.Deploy(src, ledger.Context{Caller: testOwner}, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = l.AuthorizeAgent(ledger.Context{Caller: testOwner}, testAgent)
	require.NoError(t, err)

	_, err = l.ExecuteTrade(ledger.Context{Caller: testAgent}, testToken, big.NewInt(500), true)
	require.NoError(t, err)

	d, err := dump.NewCreator(dir, id)
	require.NoError(t, err)

	var cs state.Contract
	cs.Manifest = *manifest.NewManifest("Trading Agent")

	w := d.AddContract(dumpContractName, cs)
	ledger.IterateStorage(src, func(k, v []byte) bool {
		require.NoError(t, w.Write(bytes.Clone(k), bytes.Clone(v)))
		return true
	})

	require.NoError(t, d.Flush())
	require.NoError(t, d.Close())
}

func runApp(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out

	err := app.RunContext(context.Background(), append([]string{"trading-agent", "--log-level", "error"}, args...))

	return out.String(), err
}

func requireTestReport(t *testing.T, out string) {
	var rep report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))

	require.Equal(t, report{
		Owner:  address.Uint160ToString(testOwner),
		Agents: []string{address.Uint160ToString(testAgent)},
		Balances: []balanceView{{
			Token:  testToken.StringLE(),
			Amount: "500",
		}},
	}, rep)
}

func TestInspectDump(t *testing.T) {
	dir := t.TempDir()
	writeTestDump(t, dir, dump.ID{Label: "privnet", Block: 10})

	out, err := runApp(t, "inspect", "--dir", dir, "--id", "privnet-10")
	require.NoError(t, err)
	requireTestReport(t, out)

	_, err = runApp(t, "inspect", "--dir", dir, "--id", "privnet-11")
	require.Error(t, err)
}

func TestImport(t *testing.T) {
	dir := t.TempDir()
	writeTestDump(t, dir, dump.ID{Label: "privnet", Block: 10})

	cfgPath := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
ledger:
  Type: boltdb
  BoltDBOptions:
    FilePath: `+filepath.Join(dir, "ledger.bolt")+`
`), 0600))

	_, err := runApp(t, "--config", cfgPath, "inspect")
	require.ErrorIs(t, err, ledger.ErrNotInitialized)

	_, err = runApp(t, "--config", cfgPath, "import", "--dir", dir, "--id", "privnet-10")
	require.NoError(t, err)

	out, err := runApp(t, "--config", cfgPath, "inspect")
	require.NoError(t, err)
	requireTestReport(t, out)
}

func TestImport_InMemory(t *testing.T) {
	dir := t.TempDir()
	writeTestDump(t, dir, dump.ID{Label: "privnet", Block: 10})

	_, err := runApp(t, "import", "--dir", dir, "--id", "privnet-10")
	require.ErrorContains(t, err, "in-memory")
}

func TestNetworkCommandsRequireContract(t *testing.T) {
	_, err := runApp(t, "owner")
	require.ErrorContains(t, err, "missing contract address")

	_, err = runApp(t, "--contract", util.Uint160{1}.StringLE(), "owner")
	require.ErrorContains(t, err, "missing RPC endpoint")

	_, err = runApp(t, "execute-trade", "--token", "bad", "--amount", "1")
	require.ErrorContains(t, err, "invalid token")

	_, err = runApp(t, "execute-trade", "--token", testToken.StringLE(), "--amount", "ten")
	require.ErrorContains(t, err, "invalid amount")
}

func TestCopyStore(t *testing.T) {
	dir := t.TempDir()
	id := dump.ID{Label: "privnet", Block: 3}
	writeTestDump(t, dir, id)

	src, err := loadDump(dir, id.String())
	require.NoError(t, err)

	dst := storage.NewMemoryStore()

	n, err := copyStore(dst, src)
	require.NoError(t, err)
	// owner, agent and one balance
	require.Equal(t, 3, n)

	l, err := ledger.Open(dst, zaptest.NewLogger(t))
	require.NoError(t, err)

	rep, err := buildReport(l)
	require.NoError(t, err)
	require.Equal(t, address.Uint160ToString(testOwner), rep.Owner)
	require.Equal(t, []balanceView{{Token: testToken.StringLE(), Amount: "500"}}, rep.Balances)

	_, err = loadDump(dir, "privnet-3-junk")
	require.Error(t, err)
}
