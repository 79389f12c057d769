package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/encoding/bigint"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/trading-agent-contract/contracts/tradingagent/tradingagentconst"
)

// getter is a read-only part of storage.Store and storage.MemCachedStore.
type getter interface {
	Get([]byte) ([]byte, error)
}

// storagePrefixes are first bytes of all keys in the ledger storage, in
// ascending order.
var storagePrefixes = []byte{
	tradingagentconst.AgentPrefix,
	tradingagentconst.BalancePrefix,
	tradingagentconst.OwnerKey,
}

// IterateStorage passes all ledger storage items of st into f in ascending
// key order until f returns false. Items are sought by key prefix since
// in-memory stores can not be sought with an empty one. Key and value are
// valid inside f only.
func IterateStorage(st storage.Store, f func(key, value []byte) bool) {
	for _, p := range storagePrefixes {
		stop := false

		st.Seek(storage.SeekRange{Prefix: []byte{p}}, func(k, v []byte) bool {
			stop = !f(k, v)
			return !stop
		})

		if stop {
			return
		}
	}
}

func ownerKey() []byte {
	return []byte{tradingagentconst.OwnerKey}
}

func balanceKey(token util.Uint160) []byte {
	return append([]byte{tradingagentconst.BalancePrefix}, token.BytesBE()...)
}

func agentKey(account util.Uint160) []byte {
	return append([]byte{tradingagentconst.AgentPrefix}, account.BytesBE()...)
}

// decodeHashKey decodes script hash from the prefixed storage key.
func decodeHashKey(k []byte) (util.Uint160, error) {
	if len(k) != 1+util.Uint160Size {
		return util.Uint160{}, fmt.Errorf("invalid length %d", len(k))
	}

	return util.Uint160DecodeBytesBE(k[1:])
}

// balanceOf returns zero for the missing balance key.
func balanceOf(st getter, token util.Uint160) (*big.Int, error) {
	raw, err := st.Get(balanceKey(token))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("read balance: %w", err)
	}

	return bigint.FromBytes(raw), nil
}

// isAgent returns false for the missing agent key.
func isAgent(st getter, account util.Uint160) (bool, error) {
	_, err := st.Get(agentKey(account))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("read agent: %w", err)
	}

	return true, nil
}
