package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
)

type contractState struct {
	Name  string         `json:"name"`
	State state.Contract `json:"state"`
}

// Creator writes a new dump. Files are named
//
//	'<label>-<block>-contracts.json': JSON array of contract states
//	'<label>-<block>-storage.csv': 'name,key,value' records
//
// Creator must be closed when no longer needed.
type Creator struct {
	fContracts, fStorage *os.File

	contracts []contractState
	csv       *csv.Writer
}

// NewCreator opens files of the dump identified by id in dir. NewCreator
// fails if any of them already exists.
func NewCreator(dir string, id ID) (*Creator, error) {
	pContracts, pStorage := id.contractsFile(dir), id.storageFile(dir)

	for _, p := range []string{pContracts, pStorage} {
		if err := checkFileNotExists(p); err != nil {
			return nil, err
		}
	}

	const flag = os.O_CREATE | os.O_WRONLY | os.O_EXCL

	fStorage, err := os.OpenFile(pStorage, flag, 0600)
	if err != nil {
		return nil, fmt.Errorf("open storage file: %w", err)
	}

	fContracts, err := os.OpenFile(pContracts, flag, 0600)
	if err != nil {
		_ = fStorage.Close()
		return nil, fmt.Errorf("open contracts file: %w", err)
	}

	return &Creator{
		fContracts: fContracts,
		fStorage:   fStorage,
		csv:        csv.NewWriter(fStorage),
	}, nil
}

// AddContract records contract state under the given name and returns
// StorageWriter for its storage items. Nothing reaches the file system
// before Flush.
func (x *Creator) AddContract(name string, st state.Contract) *StorageWriter {
	x.contracts = append(x.contracts, contractState{Name: name, State: st})

	return &StorageWriter{name: name, csv: x.csv}
}

// Flush writes everything added so far.
func (x *Creator) Flush() error {
	enc := json.NewEncoder(x.fContracts)
	enc.SetIndent("", " ")

	err := enc.Encode(x.contracts)
	if err != nil {
		return fmt.Errorf("encode contract states to JSON: %w", err)
	}

	x.csv.Flush()

	err = x.csv.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Close closes dump files.
func (x *Creator) Close() error {
	return errors.Join(x.fStorage.Close(), x.fContracts.Close())
}

// StorageWriter writes storage items of a single contract.
type StorageWriter struct {
	name string
	csv  *csv.Writer
}

// Write adds storage item to the dump. Its signature matches the callback of
// storage iterating functions, so it can be passed to them directly.
func (x *StorageWriter) Write(key, value []byte) error {
	err := x.csv.Write([]string{
		x.name,
		_encoding.EncodeToString(key),
		_encoding.EncodeToString(value),
	})
	if err != nil {
		return fmt.Errorf("write storage item as CSV data: %w", err)
	}

	return nil
}
