package tradingagent

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/trading-agent-contract/ledger"
)

// ErrBalancesTruncated is returned by AllBalances when the RPC server has no
// sessions and expanded only a part of the balances.
var ErrBalancesTruncated = errors.New("balance list truncated by RPC server")

// Balances returns up to limit token balances recorded by the contract.
// The iterator is expanded in the VM, so RPC server sessions are not
// required.
func (c *ContractReader) Balances(limit int) ([]ledger.Balance, error) {
	items, err := c.ListBalancesExpanded(limit)
	if err != nil {
		return nil, err
	}

	return itemsToBalances(nil, items)
}

// AllBalances returns all token balances recorded by the contract. The
// iterator is traversed page by page within the RPC server session which is
// terminated afterwards.
func (c *ContractReader) AllBalances() ([]ledger.Balance, error) {
	sessionID, iter, err := c.ListBalances()
	if err != nil {
		return nil, err
	}

	if iter.ID == nil {
		if iter.Truncated {
			return nil, ErrBalancesTruncated
		}
		return itemsToBalances(nil, iter.Values)
	}

	defer func() { _ = c.invoker.TerminateSession(sessionID) }()

	var res []ledger.Balance

	for {
		items, err := c.invoker.TraverseIterator(sessionID, &iter, invoker.DefaultIteratorResultItems)
		if err != nil {
			return nil, fmt.Errorf("traverse iterator: %w", err)
		}

		res, err = itemsToBalances(res, items)
		if err != nil {
			return nil, err
		}

		if len(items) < invoker.DefaultIteratorResultItems {
			return res, nil
		}
	}
}

// itemsToBalances appends balances decoded from items to dst.
func itemsToBalances(dst []ledger.Balance, items []stackitem.Item) ([]ledger.Balance, error) {
	if dst == nil {
		dst = make([]ledger.Balance, 0, len(items))
	}

	for i := range items {
		b, err := itemToBalance(items[i])
		if err != nil {
			return nil, fmt.Errorf("balance #%d: %w", len(dst), err)
		}

		dst = append(dst, b)
	}

	return dst, nil
}

// itemToBalance converts key-value struct produced by storage iterator into
// ledger.Balance.
func itemToBalance(item stackitem.Item) (ledger.Balance, error) {
	var res ledger.Balance

	kv, ok := item.Value().([]stackitem.Item)
	if !ok || len(kv) != 2 {
		return res, errors.New("not a key-value pair")
	}

	rawToken, err := kv[0].TryBytes()
	if err != nil {
		return res, fmt.Errorf("token: %w", err)
	}

	res.Token, err = util.Uint160DecodeBytesBE(rawToken)
	if err != nil {
		return res, fmt.Errorf("token: %w", err)
	}

	res.Amount, err = kv[1].TryInteger()
	if err != nil {
		return res, fmt.Errorf("amount: %w", err)
	}

	return res, nil
}
