package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/trading-agent-contract/contracts/tradingagent/tradingagentconst"
	"go.uber.org/zap"
)

// Errors returned by Ledger operations. Messages match fault exceptions of
// the contract.
var (
	ErrUnauthorized        = errors.New(tradingagentconst.ErrUnauthorized)
	ErrInvalidAmount       = errors.New(tradingagentconst.ErrInvalidAmount)
	ErrInsufficientBalance = errors.New(tradingagentconst.ErrInsufficientBalance)
	ErrOverflow            = errors.New(tradingagentconst.ErrOverflow)

	// ErrNotInitialized is returned by Open if the store has no owner.
	ErrNotInitialized = errors.New("ledger is not initialized")
	// ErrAlreadyInitialized is returned by Deploy if the store already has
	// an owner.
	ErrAlreadyInitialized = errors.New("ledger is already initialized")
)

var maxBalance, _ = new(big.Int).SetString(tradingagentconst.MaxBalance, 10)

// MaxBalance returns the largest balance a token can have. The result is a
// copy and can be modified by the caller.
func MaxBalance() *big.Int {
	return new(big.Int).Set(maxBalance)
}

// Context describes the invocation of a Ledger operation.
type Context struct {
	// Caller is the account invoking the operation.
	Caller util.Uint160
}

// Balance is a recorded balance of a single token.
type Balance struct {
	Token  util.Uint160
	Amount *big.Int
}

// Ledger is the Trading Agent state machine over storage.Store.
//
// Ledger instances must be constructed using Deploy or Open.
type Ledger struct {
	mtx   sync.Mutex
	store storage.Store
	owner util.Uint160
	log   *zap.Logger
}

// Deploy initializes an empty store and returns Ledger owned by
// ctx.Caller. Nil log disables logging.
func Deploy(st storage.Store, ctx Context, log *zap.Logger) (*Ledger, error) {
	l := newLedger(st, log)

	_, err := l.store.Get(ownerKey())
	switch {
	case err == nil:
		return nil, ErrAlreadyInitialized
	case !errors.Is(err, storage.ErrKeyNotFound):
		return nil, fmt.Errorf("read owner: %w", err)
	}

	err = l.update(func(c *storage.MemCachedStore) error {
		c.Put(ownerKey(), ctx.Caller.BytesBE())
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.owner = ctx.Caller
	l.log.Info("ledger initialized", zap.Stringer("owner", l.owner))

	return l, nil
}

// Open returns Ledger over the store initialized earlier by Deploy or by
// the contract deployment. Nil log disables logging.
func Open(st storage.Store, log *zap.Logger) (*Ledger, error) {
	l := newLedger(st, log)

	raw, err := l.store.Get(ownerKey())
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("read owner: %w", err)
	}

	l.owner, err = util.Uint160DecodeBytesBE(raw)
	if err != nil {
		return nil, fmt.Errorf("decode owner: %w", err)
	}

	return l, nil
}

func newLedger(st storage.Store, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}

	return &Ledger{
		store: st,
		log:   log,
	}
}

// AuthorizeAgent allows agent to execute trades. Only the owner can
// authorize agents, otherwise ErrUnauthorized is returned. Authorizing an
// agent twice is not an error. The boolean result is true on success.
func (l *Ledger) AuthorizeAgent(ctx Context, agent util.Uint160) (bool, error) {
	err := l.update(func(c *storage.MemCachedStore) error {
		if !ctx.Caller.Equals(l.owner) {
			return ErrUnauthorized
		}

		c.Put(agentKey(agent), []byte{1})

		return nil
	})
	if err != nil {
		return false, err
	}

	l.log.Debug("agent authorized", zap.Stringer("agent", agent))

	return true, nil
}

// ExecuteTrade records a trade of amount of the token: buy increases the
// balance, sell decreases it. The boolean result is true on success.
//
// Checks are done in order and the first failed one is returned:
// ErrUnauthorized if the caller is not an agent, ErrInvalidAmount if amount
// is not positive, ErrInsufficientBalance if a sell exceeds the balance,
// ErrOverflow if a buy makes the balance exceed MaxBalance.
func (l *Ledger) ExecuteTrade(ctx Context, token util.Uint160, amount *big.Int, isBuy bool) (bool, error) {
	var balance *big.Int

	err := l.update(func(c *storage.MemCachedStore) error {
		ok, err := isAgent(c, ctx.Caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnauthorized
		}

		if amount == nil || amount.Sign() <= 0 {
			return ErrInvalidAmount
		}

		balance, err = balanceOf(c, token)
		if err != nil {
			return err
		}

		if isBuy {
			balance.Add(balance, amount)
			if balance.Cmp(maxBalance) > 0 {
				return ErrOverflow
			}
		} else {
			if balance.Cmp(amount) < 0 {
				return ErrInsufficientBalance
			}
			balance.Sub(balance, amount)
		}

		if balance.Sign() == 0 {
			c.Delete(balanceKey(token))
		} else {
			c.Put(balanceKey(token), bigint.ToBytes(balance))
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	l.log.Debug("trade executed",
		zap.Stringer("agent", ctx.Caller),
		zap.Stringer("token", token),
		zap.Stringer("amount", amount),
		zap.Bool("buy", isBuy),
		zap.Stringer("balance", balance))

	return true, nil
}

// Owner returns the ledger owner.
func (l *Ledger) Owner() util.Uint160 {
	return l.owner
}

// BalanceOf returns balance of the token. Unknown tokens have zero balance.
func (l *Ledger) BalanceOf(token util.Uint160) (*big.Int, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return balanceOf(l.store, token)
}

// IsAgent checks whether account is authorized to execute trades.
func (l *Ledger) IsAgent(account util.Uint160) (bool, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return isAgent(l.store, account)
}

// Balances returns all non-zero balances sorted by token.
func (l *Ledger) Balances() ([]Balance, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var (
		res []Balance
		err error
	)

	l.store.Seek(storage.SeekRange{Prefix: []byte{tradingagentconst.BalancePrefix}}, func(k, v []byte) bool {
		var token util.Uint160

		token, err = decodeHashKey(k)
		if err != nil {
			err = fmt.Errorf("invalid balance key %x: %w", k, err)
			return false
		}

		res = append(res, Balance{Token: token, Amount: bigint.FromBytes(v)})

		return true
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(res, func(a, b Balance) int {
		return bytes.Compare(a.Token.BytesBE(), b.Token.BytesBE())
	})

	return res, nil
}

// Agents returns all authorized agents sorted by script hash.
func (l *Ledger) Agents() ([]util.Uint160, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var (
		res []util.Uint160
		err error
	)

	l.store.Seek(storage.SeekRange{Prefix: []byte{tradingagentconst.AgentPrefix}}, func(k, _ []byte) bool {
		var agent util.Uint160

		agent, err = decodeHashKey(k)
		if err != nil {
			err = fmt.Errorf("invalid agent key %x: %w", k, err)
			return false
		}

		res = append(res, agent)

		return true
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(res, func(a, b util.Uint160) int {
		return bytes.Compare(a.BytesBE(), b.BytesBE())
	})

	return res, nil
}

// update runs f over the staged view of the store and persists staged
// changes if f succeeds.
func (l *Ledger) update(f func(*storage.MemCachedStore) error) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	cache := storage.NewMemCachedStore(l.store)

	err := f(cache)
	if err != nil {
		return err
	}

	_, err = cache.PersistSync()
	if err != nil {
		return fmt.Errorf("persist changes: %w", err)
	}

	return nil
}
