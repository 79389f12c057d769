package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// GetInt returns integer stored by key or 0 if there is no such key.
func GetInt(ctx storage.Context, key []byte) int {
	data := storage.Get(ctx, key)
	if data != nil {
		return data.(int)
	}

	return 0
}

// HasKey returns true if anything is stored by key.
func HasKey(ctx storage.Context, key []byte) bool {
	return storage.Get(ctx, key) != nil
}
