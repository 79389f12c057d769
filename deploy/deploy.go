/*
Package deploy provides deployment of the Trading Agent contract to a Neo
network.
*/
package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for contract deployment.
type Blockchain interface {
	// GetContractStateByHash returns network state of the smart contract by
	// its address. GetContractStateByHash returns error with 'Unknown
	// contract' substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// Deployer sends transactions deploying contracts through the native
// Management contract. Implemented by management.Contract.
type Deployer interface {
	Deploy(nefFile *nef.File, manif *manifest.Manifest, data any) (util.Uint256, uint32, error)
}

// Waiter waits for transactions to be accepted. Implemented by actor.Actor.
type Waiter interface {
	WaitAny(ctx context.Context, vub uint32, hashes ...util.Uint256) (*state.AppExecResult, error)
}

// Prm groups all parameters of the contract deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	Blockchain Blockchain
	Deployer   Deployer
	Waiter     Waiter

	// Account sending the deployment transaction. It becomes the contract
	// owner.
	Sender util.Uint160

	NEF      nef.File
	Manifest manifest.Manifest
}

// Deploy deploys the contract described by Prm and returns its address.
// The address depends on the sender, NEF checksum and manifest name only, so
// if the contract is already on chain, Deploy does nothing and returns the
// address of the existing contract.
//
// Deploy aborts by context while waiting for the deployment transaction.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	addr := state.CreateContractHash(prm.Sender, prm.NEF.Checksum, prm.Manifest.Name)
	l := prm.Logger.With(zap.Stringer("address", addr), zap.String("name", prm.Manifest.Name))

	_, err := prm.Blockchain.GetContractStateByHash(addr)
	if err == nil {
		l.Info("contract is already deployed, skip")
		return addr, nil
	}

	if !isErrContractNotFound(err) {
		return addr, fmt.Errorf("get contract state by address: %w", err)
	}

	l.Info("contract is missing on the chain, sending deployment transaction...")

	txHash, vub, err := prm.Deployer.Deploy(&prm.NEF, &prm.Manifest, nil)
	if err != nil {
		return addr, fmt.Errorf("send contract deployment transaction: %w", err)
	}

	l.Info("deployment transaction sent, waiting...", zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	res, err := prm.Waiter.WaitAny(ctx, vub, txHash)
	if err != nil {
		return addr, fmt.Errorf("wait for contract deployment transaction %s: %w", txHash.StringLE(), err)
	}

	if res.VMState != vmstate.Halt {
		return addr, fmt.Errorf("contract deployment transaction %s failed: %s", txHash.StringLE(), res.FaultException)
	}

	l.Info("contract successfully deployed", zap.Stringer("tx", txHash))

	return addr, nil
}

func isErrContractNotFound(err error) bool {
	return errors.Is(err, neorpc.ErrUnknownContract) || strings.Contains(err.Error(), "Unknown contract")
}
