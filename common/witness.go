package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

// Sender returns script hash of the account that sent the transaction being
// executed.
func Sender() interop.Hash160 {
	return runtime.GetScriptContainer().Sender
}

// Caller is like Sender but also panics with panicMsg if the sender has not
// witnessed the invocation.
func Caller(panicMsg string) interop.Hash160 {
	sender := Sender()
	if !runtime.CheckWitness(sender) {
		panic(panicMsg)
	}

	return sender
}
