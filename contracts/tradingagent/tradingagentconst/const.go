/*
Package tradingagentconst contains constants shared by the Trading Agent
contract and the off-chain code working with its storage.
*/
package tradingagentconst

const (
	// ErrUnauthorized is thrown when the caller has no right to invoke the
	// method: it is not the owner for authorizeAgent, or not an authorized
	// agent for executeTrade.
	ErrUnauthorized = "unauthorized"
	// ErrInvalidAmount is thrown when the trade amount is not positive.
	ErrInvalidAmount = "invalid amount"
	// ErrInsufficientBalance is thrown when a sell would make the token
	// balance negative.
	ErrInsufficientBalance = "insufficient balance"
	// ErrOverflow is thrown when a buy would make the token balance exceed
	// MaxBalance.
	ErrOverflow = "balance overflow"
	// ErrInvalidAgent is thrown when the agent is not a 20-byte script hash.
	ErrInvalidAgent = "invalid agent address"
	// ErrInvalidToken is thrown when the token is not a 20-byte script hash.
	ErrInvalidToken = "invalid token"
	// ErrNotGAS is thrown on NEP-17 payments in any token other than GAS.
	ErrNotGAS = "trading agent contract accepts GAS only"
)

// MaxBalance is the decimal form of the largest token balance, 2^255-1. It
// is the largest integer NeoVM can hold.
const MaxBalance = "57896044618658097711785492504343953926634992332820282019728792003956564819967"

// Storage key prefixes.
const (
	// OwnerKey stores script hash of the contract owner.
	OwnerKey = 'o'
	// BalancePrefix followed by token script hash stores token balance as
	// NeoVM integer.
	BalancePrefix = 'b'
	// AgentPrefix followed by account script hash marks authorized agents.
	AgentPrefix = 'a'
)
