package tradingagent

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/trading-agent-contract/common"
	"github.com/nspcc-dev/trading-agent-contract/contracts/tradingagent/tradingagentconst"
)

const (
	ownerKey      = tradingagentconst.OwnerKey
	balancePrefix = tradingagentconst.BalancePrefix
	agentPrefix   = tradingagentconst.AgentPrefix
)

// nolint:unused
func _deploy(data any, isUpdate bool) {
	ctx := storage.GetContext()

	storage.Put(ctx, []byte{ownerKey}, common.Sender())

	runtime.Log("trading agent contract initialized")
}

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract.
// GAS may be attached to trades, but the contract does not account it.
func OnNEP17Payment(from interop.Hash160, amount int, data any) {
	caller := runtime.GetCallingScriptHash()
	if !caller.Equals(gas.Hash) {
		panic(tradingagentconst.ErrNotGAS)
	}
}

// AuthorizeAgent allows agent to execute trades. It can be invoked only by
// the contract owner. Authorizing an agent twice is not an error.
func AuthorizeAgent(agent interop.Hash160) bool {
	ctx := storage.GetContext()

	caller := common.Caller(tradingagentconst.ErrUnauthorized)
	if !caller.Equals(getOwner(ctx)) {
		panic(tradingagentconst.ErrUnauthorized)
	}

	if len(agent) != interop.Hash160Len {
		panic(tradingagentconst.ErrInvalidAgent)
	}

	storage.Put(ctx, append([]byte{agentPrefix}, agent...), []byte{1})

	return true
}

// ExecuteTrade records a trade of amount of the token. Buy (isBuy set)
// increases the token balance, sell decreases it. It can be invoked only by
// an authorized agent.
//
// Checks are done in the following order, the first failed one aborts the
// invocation: caller is an agent, amount is positive, sell amount does not
// exceed the balance, buy does not overflow the balance.
func ExecuteTrade(token interop.Hash160, amount int, isBuy bool) bool {
	ctx := storage.GetContext()

	caller := common.Caller(tradingagentconst.ErrUnauthorized)
	if !isAgent(ctx, caller) {
		panic(tradingagentconst.ErrUnauthorized)
	}

	if amount <= 0 {
		panic(tradingagentconst.ErrInvalidAmount)
	}

	if len(token) != interop.Hash160Len {
		panic(tradingagentconst.ErrInvalidToken)
	}

	key := append([]byte{balancePrefix}, token...)
	balance := common.GetInt(ctx, key)

	if isBuy {
		if amount > maxBalance()-balance {
			panic(tradingagentconst.ErrOverflow)
		}
		balance += amount
	} else {
		if balance < amount {
			panic(tradingagentconst.ErrInsufficientBalance)
		}
		balance -= amount
	}

	if balance == 0 {
		storage.Delete(ctx, key)
	} else {
		storage.Put(ctx, key, balance)
	}

	return true
}

// Owner returns script hash of the contract owner.
func Owner() interop.Hash160 {
	return getOwner(storage.GetReadOnlyContext())
}

// BalanceOf returns recorded balance of the token. Unknown tokens have zero
// balance.
func BalanceOf(token interop.Hash160) int {
	return common.GetInt(storage.GetReadOnlyContext(), append([]byte{balancePrefix}, token...))
}

// IsAgent checks whether account is authorized to execute trades.
func IsAgent(account interop.Hash160) bool {
	return isAgent(storage.GetReadOnlyContext(), account)
}

// ListBalances returns iterator over all non-zero balances. Iteration is
// through key-value pair, where key is token script hash, value is its
// balance.
func ListBalances() iterator.Iterator {
	return storage.Find(storage.GetReadOnlyContext(), []byte{balancePrefix}, storage.RemovePrefix)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func getOwner(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, []byte{ownerKey}).(interop.Hash160)
}

func isAgent(ctx storage.Context, account interop.Hash160) bool {
	return common.HasKey(ctx, append([]byte{agentPrefix}, account...))
}

func maxBalance() int {
	return std.Atoi(tradingagentconst.MaxBalance, 10)
}
