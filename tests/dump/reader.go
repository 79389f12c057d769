package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
)

type kv struct{ k, v []byte }

// Reader provides access to the dump read by Read or IterateDumps.
type Reader struct {
	states   []contractState
	mStorage map[string][]kv
}

// Read reads the dump identified by id from dir.
func Read(dir string, id ID) (*Reader, error) {
	fContracts, err := os.Open(id.contractsFile(dir))
	if err != nil {
		return nil, fmt.Errorf("open contracts file: %w", err)
	}
	defer fContracts.Close()

	fStorage, err := os.Open(id.storageFile(dir))
	if err != nil {
		return nil, fmt.Errorf("open storage file: %w", err)
	}
	defer fStorage.Close()

	var r Reader

	err = r.decode(fContracts, fStorage)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// IterateDumps reads all dumps in dir and passes them into f. Files not
// belonging to any dump are skipped.
func IterateDumps(dir string, f func(ID, *Reader)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read directory: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sep+contractsFileSuffix) {
			continue
		}

		var id ID

		err = id.DecodeString(strings.TrimSuffix(name, sep+contractsFileSuffix))
		if err != nil {
			return fmt.Errorf("decode dump ID from file name '%s': %w", name, err)
		}

		r, err := Read(dir, id)
		if err != nil {
			return fmt.Errorf("read dump '%s': %w", id, err)
		}

		f(id, r)
	}

	return nil
}

func (x *Reader) decode(rContracts, rStorage io.Reader) error {
	err := json.NewDecoder(rContracts).Decode(&x.states)
	if err != nil {
		return fmt.Errorf("decode contract states from JSON: %w", err)
	}

	r := csv.NewReader(rStorage)
	r.FieldsPerRecord = 3
	r.ReuseRecord = true

	x.mStorage = make(map[string][]kv)

	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		var item kv

		// record length is guaranteed by FieldsPerRecord
		item.k, err = _encoding.DecodeString(rec[1])
		if err != nil {
			return fmt.Errorf("decode storage item key: %w", err)
		}

		item.v, err = _encoding.DecodeString(rec[2])
		if err != nil {
			return fmt.Errorf("decode storage item value: %w", err)
		}

		x.mStorage[rec[0]] = append(x.mStorage[rec[0]], item)
	}
}

// ContractState returns state of the named contract. The second value is
// false if there is no such contract in the dump.
func (x *Reader) ContractState(name string) (state.Contract, bool) {
	for i := range x.states {
		if x.states[i].Name == name {
			return x.states[i].State, true
		}
	}
	return state.Contract{}, false
}

// IterateContractStates passes all contract states into f in the order they
// were added.
func (x *Reader) IterateContractStates(f func(name string, _state state.Contract)) {
	for i := range x.states {
		f(x.states[i].Name, x.states[i].State)
	}
}

// IterateContractStorage passes storage items of the named contract into f.
func (x *Reader) IterateContractStorage(name string, f func(key, value []byte)) {
	for _, item := range x.mStorage[name] {
		f(item.k, item.v)
	}
}

// LoadStorage returns in-memory store filled with storage items of the named
// contract. Keys are stored as is, so the result can be passed to
// ledger.Open.
func (x *Reader) LoadStorage(name string) (storage.Store, error) {
	if _, ok := x.ContractState(name); !ok {
		return nil, fmt.Errorf("contract '%s' is missing in the dump", name)
	}

	st := storage.NewMemoryStore()
	cache := storage.NewMemCachedStore(st)

	x.IterateContractStorage(name, func(key, value []byte) {
		cache.Put(key, value)
	})

	_, err := cache.PersistSync()
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("persist storage items: %w", err)
	}

	return st, nil
}
