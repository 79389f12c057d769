// Package tradingagent contains RPC wrappers for Trading Agent contract.
package tradingagent

import (
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"math/big"
)

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// BalanceOf invokes `balanceOf` method of contract.
func (c *ContractReader) BalanceOf(token util.Uint160) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "balanceOf", token))
}

// IsAgent invokes `isAgent` method of contract.
func (c *ContractReader) IsAgent(account util.Uint160) (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "isAgent", account))
}

// ListBalances invokes `listBalances` method of contract.
func (c *ContractReader) ListBalances() (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "listBalances"))
}

// ListBalancesExpanded is similar to ListBalances (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) ListBalancesExpanded(_numOfIteratorItems int) ([]stackitem.Item, error) {
	return unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "listBalances", _numOfIteratorItems))
}

// Owner invokes `owner` method of contract.
func (c *ContractReader) Owner() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "owner"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// AuthorizeAgent creates a transaction invoking `authorizeAgent` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) AuthorizeAgent(agent util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "authorizeAgent", agent)
}

// AuthorizeAgentTransaction creates a transaction invoking `authorizeAgent` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) AuthorizeAgentTransaction(agent util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "authorizeAgent", agent)
}

// AuthorizeAgentUnsigned creates a transaction invoking `authorizeAgent` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) AuthorizeAgentUnsigned(agent util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "authorizeAgent", nil, agent)
}

// ExecuteTrade creates a transaction invoking `executeTrade` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) ExecuteTrade(token util.Uint160, amount *big.Int, isBuy bool) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "executeTrade", token, amount, isBuy)
}

// ExecuteTradeTransaction creates a transaction invoking `executeTrade` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) ExecuteTradeTransaction(token util.Uint160, amount *big.Int, isBuy bool) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "executeTrade", token, amount, isBuy)
}

// ExecuteTradeUnsigned creates a transaction invoking `executeTrade` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) ExecuteTradeUnsigned(token util.Uint160, amount *big.Int, isBuy bool) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "executeTrade", nil, token, amount, isBuy)
}
