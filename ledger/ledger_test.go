package ledger

import (
	"bytes"
	"math/big"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func randomHash() util.Uint160 {
	var h util.Uint160
	rand.Read(h[:]) //nolint:staticcheck // SA1019: rand.Read has been deprecated since Go 1.20
	return h
}

// dumpStore returns copy of all items in the store.
func dumpStore(st storage.Store) map[string]string {
	res := make(map[string]string)
	IterateStorage(st, func(k, v []byte) bool {
		res[string(k)] = string(v)
		return true
	})
	return res
}

type env struct {
	store *storage.MemoryStore
	l     *Ledger
	owner Context
	agent Context
}

func newEnv(t *testing.T) *env {
	e := &env{
		store: storage.NewMemoryStore(),
		owner: Context{Caller: randomHash()},
		agent: Context{Caller: randomHash()},
	}

	var err error
	e.l, err = Deploy(e.store, e.owner, zaptest.NewLogger(t))
	require.NoError(t, err)

	ok, err := e.l.AuthorizeAgent(e.owner, e.agent.Caller)
	require.NoError(t, err)
	require.True(t, ok)

	return e
}

func (e *env) requireBalance(t *testing.T, token util.Uint160, expected int64) {
	b, err := e.l.BalanceOf(token)
	require.NoError(t, err)
	require.Zero(t, big.NewInt(expected).Cmp(b), "expected %d, got %s", expected, b)
}

func TestScenario(t *testing.T) {
	var (
		owner = Context{Caller: randomHash()}
		agent = Context{Caller: randomHash()}
		other = Context{Caller: randomHash()}
		token = randomHash()
	)

	l, err := Deploy(storage.NewMemoryStore(), owner, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, owner.Caller, l.Owner())

	ok, err := l.AuthorizeAgent(owner, agent.Caller)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.ExecuteTrade(agent, token, big.NewInt(100), true)
	require.NoError(t, err)
	require.True(t, ok)

	check := func(expected int64) {
		b, err := l.BalanceOf(token)
		require.NoError(t, err)
		require.EqualValues(t, expected, b.Int64())
	}
	check(100)

	_, err = l.ExecuteTrade(other, token, big.NewInt(50), false)
	require.ErrorIs(t, err, ErrUnauthorized)
	check(100)

	_, err = l.ExecuteTrade(agent, token, big.NewInt(150), false)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	check(100)

	ok, err = l.ExecuteTrade(agent, token, big.NewInt(40), false)
	require.NoError(t, err)
	require.True(t, ok)
	check(60)
}

func TestLedger_AuthorizeAgent(t *testing.T) {
	e := newEnv(t)

	t.Run("not an owner", func(t *testing.T) {
		before := dumpStore(e.store)

		for _, c := range []Context{e.agent, {Caller: randomHash()}, {}} {
			_, err := e.l.AuthorizeAgent(c, randomHash())
			require.ErrorIs(t, err, ErrUnauthorized)

			_, err = e.l.AuthorizeAgent(c, c.Caller)
			require.ErrorIs(t, err, ErrUnauthorized)
		}

		require.Equal(t, before, dumpStore(e.store))
	})

	t.Run("idempotent", func(t *testing.T) {
		agent := randomHash()

		ok, err := e.l.IsAgent(agent)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = e.l.AuthorizeAgent(e.owner, agent)
		require.NoError(t, err)
		require.True(t, ok)

		once := dumpStore(e.store)

		ok, err = e.l.AuthorizeAgent(e.owner, agent)
		require.NoError(t, err)
		require.True(t, ok)

		require.Equal(t, once, dumpStore(e.store))

		ok, err = e.l.IsAgent(agent)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("owner is not an agent by default", func(t *testing.T) {
		_, err := e.l.ExecuteTrade(e.owner, randomHash(), big.NewInt(1), true)
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestLedger_ExecuteTrade(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		e := newEnv(t)
		token := randomHash()

		_, err := e.l.ExecuteTrade(e.agent, token, big.NewInt(10), true)
		require.NoError(t, err)

		before := dumpStore(e.store)

		for _, isBuy := range []bool{true, false} {
			_, err = e.l.ExecuteTrade(Context{Caller: randomHash()}, token, big.NewInt(1), isBuy)
			require.ErrorIs(t, err, ErrUnauthorized)

			// authorization is checked before the amount
			_, err = e.l.ExecuteTrade(Context{Caller: randomHash()}, token, big.NewInt(0), isBuy)
			require.ErrorIs(t, err, ErrUnauthorized)
		}

		require.Equal(t, before, dumpStore(e.store))
		e.requireBalance(t, token, 10)
	})

	t.Run("invalid amount", func(t *testing.T) {
		e := newEnv(t)
		before := dumpStore(e.store)

		for _, isBuy := range []bool{true, false} {
			for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-1)} {
				_, err := e.l.ExecuteTrade(e.agent, randomHash(), amount, isBuy)
				require.ErrorIs(t, err, ErrInvalidAmount, amount)
			}
		}

		require.Equal(t, before, dumpStore(e.store))
	})

	t.Run("buy", func(t *testing.T) {
		e := newEnv(t)
		token := randomHash()

		for i, amount := range []int64{1, 99, 900} {
			_, err := e.l.ExecuteTrade(e.agent, token, big.NewInt(amount), true)
			require.NoError(t, err, i)
		}

		e.requireBalance(t, token, 1000)
		e.requireBalance(t, randomHash(), 0)
	})

	t.Run("sell", func(t *testing.T) {
		e := newEnv(t)
		token := randomHash()

		_, err := e.l.ExecuteTrade(e.agent, token, big.NewInt(100), true)
		require.NoError(t, err)

		_, err = e.l.ExecuteTrade(e.agent, token, big.NewInt(101), false)
		require.ErrorIs(t, err, ErrInsufficientBalance)
		e.requireBalance(t, token, 100)

		_, err = e.l.ExecuteTrade(e.agent, randomHash(), big.NewInt(1), false)
		require.ErrorIs(t, err, ErrInsufficientBalance)

		_, err = e.l.ExecuteTrade(e.agent, token, big.NewInt(30), false)
		require.NoError(t, err)
		e.requireBalance(t, token, 70)

		_, err = e.l.ExecuteTrade(e.agent, token, big.NewInt(70), false)
		require.NoError(t, err)
		e.requireBalance(t, token, 0)

		_, err = e.store.Get(balanceKey(token))
		require.ErrorIs(t, err, storage.ErrKeyNotFound, "zero balance must be removed")
	})

	t.Run("overflow", func(t *testing.T) {
		e := newEnv(t)
		token := randomHash()

		_, err := e.l.ExecuteTrade(e.agent, token, MaxBalance(), true)
		require.NoError(t, err)

		before := dumpStore(e.store)

		_, err = e.l.ExecuteTrade(e.agent, token, big.NewInt(1), true)
		require.ErrorIs(t, err, ErrOverflow)

		require.Equal(t, before, dumpStore(e.store))

		b, err := e.l.BalanceOf(token)
		require.NoError(t, err)
		require.Zero(t, MaxBalance().Cmp(b))

		_, err = e.l.ExecuteTrade(e.agent, token, MaxBalance(), false)
		require.NoError(t, err)
		e.requireBalance(t, token, 0)
	})
}

func TestMaxBalance(t *testing.T) {
	expected, ok := new(big.Int).SetString("57896044618658097711785492504343953926634992332820282019728792003956564819967", 10)
	require.True(t, ok)
	require.Zero(t, expected.Cmp(MaxBalance()))

	MaxBalance().SetInt64(1)
	MaxBalance().Add(MaxBalance(), big.NewInt(1))
	require.Zero(t, expected.Cmp(MaxBalance()))

	e := newEnv(t)
	token := randomHash()

	_, err := e.l.ExecuteTrade(e.agent, token, big.NewInt(2), true)
	require.NoError(t, err)
	e.requireBalance(t, token, 2)
}

func TestIterateStorage(t *testing.T) {
	e := newEnv(t)
	tokens := []util.Uint160{randomHash(), randomHash()}

	for i := range tokens {
		_, err := e.l.ExecuteTrade(e.agent, tokens[i], big.NewInt(int64(i+1)), true)
		require.NoError(t, err)
	}

	var keys [][]byte
	IterateStorage(e.store, func(k, _ []byte) bool {
		keys = append(keys, bytes.Clone(k))
		return true
	})

	// agent, two balances, owner
	require.Len(t, keys, 4)
	require.Equal(t, agentKey(e.agent.Caller), keys[0])
	require.ElementsMatch(t, [][]byte{balanceKey(tokens[0]), balanceKey(tokens[1])}, keys[1:3])
	require.Equal(t, ownerKey(), keys[3])

	var n int
	IterateStorage(e.store, func([]byte, []byte) bool {
		n++
		return n < 2
	})
	require.Equal(t, 2, n)

	IterateStorage(storage.NewMemoryStore(), func([]byte, []byte) bool {
		t.Fatal("unexpected item")
		return false
	})
}

func TestLedger_ConcurrentTrades(t *testing.T) {
	e := newEnv(t)
	token := randomHash()

	const n = 50

	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.l.ExecuteTrade(e.agent, token, big.NewInt(2), true)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i], i)
	}

	e.requireBalance(t, token, 2*n)
}

func TestLedger_Listing(t *testing.T) {
	e := newEnv(t)

	agent := randomHash()
	_, err := e.l.AuthorizeAgent(e.owner, agent)
	require.NoError(t, err)

	agents, err := e.l.Agents()
	require.NoError(t, err)
	require.ElementsMatch(t, []util.Uint160{e.agent.Caller, agent}, agents)

	tokens := []util.Uint160{randomHash(), randomHash(), randomHash()}
	for i := range tokens {
		_, err = e.l.ExecuteTrade(e.agent, tokens[i], big.NewInt(int64(i+1)), true)
		require.NoError(t, err)
	}

	_, err = e.l.ExecuteTrade(e.agent, tokens[0], big.NewInt(1), false)
	require.NoError(t, err)

	balances, err := e.l.Balances()
	require.NoError(t, err)
	require.Len(t, balances, 2)

	for i := range balances {
		require.NotEqual(t, tokens[0], balances[i].Token)
		b, err := e.l.BalanceOf(balances[i].Token)
		require.NoError(t, err)
		require.Zero(t, b.Cmp(balances[i].Amount))
	}

	require.Less(t, string(balances[0].Token.BytesBE()), string(balances[1].Token.BytesBE()))
}

func TestDeployOpen(t *testing.T) {
	st := storage.NewMemoryStore()

	_, err := Open(st, nil)
	require.ErrorIs(t, err, ErrNotInitialized)

	owner := Context{Caller: randomHash()}

	_, err = Deploy(st, owner, nil)
	require.NoError(t, err)

	_, err = Deploy(st, Context{Caller: randomHash()}, nil)
	require.ErrorIs(t, err, ErrAlreadyInitialized)

	l, err := Open(st, nil)
	require.NoError(t, err)
	require.Equal(t, owner.Caller, l.Owner())

	t.Run("corrupted owner", func(t *testing.T) {
		st := storage.NewMemoryStore()
		c := storage.NewMemCachedStore(st)
		c.Put(ownerKey(), []byte{1, 2, 3})
		_, err := c.PersistSync()
		require.NoError(t, err)

		_, err = Open(st, nil)
		require.Error(t, err)
	})
}

func TestLedger_BoltDB(t *testing.T) {
	cfg := dbconfig.BoltDBOptions{FilePath: filepath.Join(t.TempDir(), "ledger.bolt")}

	st, err := storage.NewBoltDBStore(cfg)
	require.NoError(t, err)

	var (
		owner = Context{Caller: randomHash()}
		agent = Context{Caller: randomHash()}
		token = randomHash()
	)

	l, err := Deploy(st, owner, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = l.AuthorizeAgent(owner, agent.Caller)
	require.NoError(t, err)

	_, err = l.ExecuteTrade(agent, token, big.NewInt(42), true)
	require.NoError(t, err)

	require.NoError(t, st.Close())

	st, err = storage.NewBoltDBStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	l, err = Open(st, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Equal(t, owner.Caller, l.Owner())

	ok, err := l.IsAgent(agent.Caller)
	require.NoError(t, err)
	require.True(t, ok)

	b, err := l.BalanceOf(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, b.Int64())
}
