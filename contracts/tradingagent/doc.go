/*
Package tradingagent implements Trading Agent contract.

Trading Agent contract keeps a ledger of token balances changed by trades.
A trade is an internal increment (buy) or decrement (sell) of the balance of
a token; no assets are moved by the contract. The account that deploys the
contract becomes its owner. Only the owner can authorize agents, and only
authorized agents can execute trades. Agents can not be deauthorized, and the
owner can not be changed.

Every method that changes the ledger either applies all of its changes or,
on any failed check, aborts the transaction so that no change is persisted.

The contract accepts GAS transfers attached to trades, see OnNEP17Payment.
Transferred amounts are not reconciled with trade amounts.

# Contract notifications

Trading Agent contract does not produce notifications to process.
*/
package tradingagent

/*
Contract storage model.

# Summary
Key-value storage format:
  - 'o' -> interop.Hash160
    script hash of the owner set on deployment
  - 'b'<token interop.Hash160> -> int
    balance of the token; missing key means zero balance
  - 'a'<account interop.Hash160> -> []byte{1}
    account is an authorized agent; missing key means it is not

# Trading
Contract stores balances of all tokens ever bought. Zero balances are
removed from the storage.
*/
