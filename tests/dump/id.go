package dump

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	sep = "-"

	contractsFileSuffix = "contracts.json"
	storageFileSuffix   = "storage.csv"
)

var _encoding = base64.StdEncoding

// ID identifies a dump.
type ID struct {
	// Label of the network the dump is taken from (e.g. testnet).
	Label string
	// Chain height the dump is taken at.
	Block uint32
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Label + sep + strconv.FormatUint(uint64(x.Block), 10)
}

// DecodeString decodes ID from the String result. Label must not contain
// hyphens.
func (x *ID) DecodeString(s string) error {
	ss := strings.Split(s, sep)
	if len(ss) != 2 {
		return fmt.Errorf("expected '%s'-separated string with 2 items, got %d", sep, len(ss))
	}

	if ss[0] == "" {
		return fmt.Errorf("empty label")
	}

	n, err := strconv.ParseUint(ss[1], 10, 32)
	if err != nil {
		return fmt.Errorf("decode block number from '%s': %w", ss[1], err)
	}

	x.Label = ss[0]
	x.Block = uint32(n)

	return nil
}

func (x ID) contractsFile(dir string) string {
	return filepath.Join(dir, x.String()+sep+contractsFileSuffix)
}

func (x ID) storageFile(dir string) string {
	return filepath.Join(dir, x.String()+sep+storageFileSuffix)
}

func checkFileNotExists(p string) error {
	_, err := os.Stat(p)
	if !os.IsNotExist(err) {
		if err == nil {
			err = os.ErrExist
		}
		return fmt.Errorf("file '%s' absence check failed: %w", p, err)
	}
	return nil
}
