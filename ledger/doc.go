/*
Package ledger implements the Trading Agent state machine outside of NeoVM.

Ledger works with the same storage layout as the Trading Agent contract (see
tradingagentconst), so it can be opened over a dump of the contract storage
as well as used standalone. Caller identity is passed explicitly with each
call in Context.

Calls are serialized. Each mutating call stages its changes and persists them
only if all checks pass, so a failed call never changes the store.
*/
package ledger
