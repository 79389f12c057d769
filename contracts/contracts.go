/*
Package contracts reads compiled contracts produced by the neo-go compiler.

Each contract is a directory with 'contract.nef' and 'manifest.json' files,
'make' puts them next to the contract source (e.g. contracts/tradingagent).
*/
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
)

const (
	// TradingAgentDir is a directory of the Trading Agent contract relative
	// to the repository root.
	TradingAgentDir = "contracts/tradingagent"

	nefName      = "contract.nef"
	manifestName = "manifest.json"
)

// Contract groups compiled Neo contract files.
type Contract struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

// Errors returned for corrupted contract files.
var (
	ErrInvalidNEF      = errors.New("invalid NEF")
	ErrInvalidManifest = errors.New("invalid manifest")
)

// ReadDir reads contract from the directory in the local file system.
func ReadDir(dir string) (Contract, error) {
	return Read(os.DirFS(dir), ".")
}

// Read reads contract from the directory of the given file system.
func Read(fsys fs.FS, dir string) (Contract, error) {
	var c Contract

	// fs.FS paths are slash-separated on any OS, so filepath.Join is not
	// applicable.
	fNEF, err := fsys.Open(path.Join(dir, nefName))
	if err != nil {
		return c, fmt.Errorf("open NEF: %w", err)
	}
	defer fNEF.Close()

	fManifest, err := fsys.Open(path.Join(dir, manifestName))
	if err != nil {
		return c, fmt.Errorf("open manifest: %w", err)
	}
	defer fManifest.Close()

	bReader := io.NewBinReaderFromIO(fNEF)
	c.NEF.DecodeBinary(bReader)
	if bReader.Err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidNEF, bReader.Err)
	}

	err = json.NewDecoder(fManifest).Decode(&c.Manifest)
	if err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	return c, nil
}
