package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/trading-agent-contract/internal/config"
	"go.uber.org/zap"
)

// remoteBlockchain groups Neo RPC services used by the commands.
type remoteBlockchain struct {
	rpc   *rpcclient.Client
	actor *actor.Actor
	acc   *wallet.Account
}

// dialRemoteBlockchain connects to the configured RPC server. If signing is
// set, the configured wallet account is decrypted and used for transactions.
// Otherwise, a random account is generated since actor needs one for test
// invocations only.
func dialRemoteBlockchain(ctx context.Context, cfg *config.Config, signing bool) (*remoteBlockchain, error) {
	var acc *wallet.Account
	var err error

	if signing {
		err = cfg.Validate()
		if err == nil {
			acc, err = loadAccount(cfg.Wallet)
		}
	} else if cfg.RPC.Endpoint == "" {
		err = errors.New("missing RPC endpoint")
	} else {
		acc, err = wallet.NewAccount()
	}
	if err != nil {
		return nil, err
	}

	c, err := rpcclient.New(ctx, cfg.RPC.Endpoint, rpcclient.Options{
		DialTimeout:    cfg.RPC.DialTimeout,
		RequestTimeout: cfg.RPC.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("RPC client init: %w", err)
	}

	act, err := actor.NewSimple(c, acc)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init actor: %w", err)
	}

	return &remoteBlockchain{
		rpc:   c,
		actor: act,
		acc:   acc,
	}, nil
}

func (x *remoteBlockchain) close() {
	x.rpc.Close()
}

// waitHalt waits for the transaction and checks it ends in HALT state.
func (x *remoteBlockchain) waitHalt(ctx context.Context, l *zap.Logger, txHash util.Uint256, vub uint32, err error) (*state.AppExecResult, error) {
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	l.Info("transaction sent, waiting...", zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	res, err := x.actor.WaitAny(ctx, vub, txHash)
	if err != nil {
		return nil, fmt.Errorf("wait for transaction %s: %w", txHash.StringLE(), err)
	}

	if res.VMState != vmstate.Halt {
		return nil, fmt.Errorf("transaction %s failed: %s", txHash.StringLE(), res.FaultException)
	}

	l.Info("transaction accepted", zap.Stringer("tx", txHash))

	return res, nil
}

// iterateContractStorage passes all storage items of the contract at the
// latest verified state root into f and returns the height of that state.
func (x *remoteBlockchain) iterateContractStorage(contract util.Uint160, f func(key, value []byte) error) (uint32, error) {
	nLatestBlock, err := x.rpc.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("get number of the latest block: %w", err)
	}

	height := nLatestBlock - 1

	stateRoot, err := x.rpc.GetStateRootByHeight(height)
	if err != nil {
		return 0, fmt.Errorf("get state root at block #%d: %w", height, err)
	}

	var start []byte

	for {
		res, err := x.rpc.FindStates(stateRoot.Root, contract, nil, start, nil)
		if err != nil {
			return 0, fmt.Errorf("find contract storage items at state root '%s': %w", stateRoot.Root, err)
		}

		for i := range res.Results {
			err = f(res.Results[i].Key, res.Results[i].Value)
			if err != nil {
				return 0, err
			}
		}

		if !res.Truncated || len(res.Results) == 0 {
			return height, nil
		}

		start = res.Results[len(res.Results)-1].Key
	}
}

func loadAccount(cfg config.Wallet) (*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	defer w.Close()

	var addr util.Uint160

	if cfg.Address != "" {
		addr, err = address.StringToUint160(cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid account address: %w", err)
		}
	} else {
		addr = w.GetChangeAddress()
	}

	acc := w.GetAccount(addr)
	if acc == nil {
		return nil, fmt.Errorf("account %s is missing in the wallet", address.Uint160ToString(addr))
	}

	err = acc.Decrypt(cfg.Password, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("decrypt account: %w", err)
	}

	return acc, nil
}
