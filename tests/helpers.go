package tests

import (
	"math/rand"

	"github.com/nspcc-dev/neo-go/pkg/util"
)

func randomHash() util.Uint160 {
	var h util.Uint160
	rand.Read(h[:]) //nolint:staticcheck // SA1019: rand.Read has been deprecated since Go 1.20
	return h
}
