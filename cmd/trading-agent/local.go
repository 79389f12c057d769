package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/trading-agent-contract/ledger"
	"github.com/nspcc-dev/trading-agent-contract/tests/dump"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// dumpContractName is a name the contract is stored under in dumps.
const dumpContractName = "tradingagent"

var dumpCmd = &cli.Command{
	Name:  "dump",
	Usage: "Dump contract state and storage into files",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "label", Usage: "Network label (e.g. 'testnet')", Required: true},
		&cli.StringFlag{Name: "out", Usage: "Output directory", Value: "testdata"},
	},
	Action: func(c *cli.Context) error {
		return withContract(c, false, func(l *zap.Logger, b *remoteBlockchain, h util.Uint160) error {
			dir := c.String("out")

			err := os.MkdirAll(dir, 0700)
			if err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			cs, err := b.rpc.GetContractStateByHash(h)
			if err != nil {
				return fmt.Errorf("get contract state: %w", err)
			}

			// storage is pulled before the dump is created because the
			// state height becomes part of the dump ID
			var items [][2][]byte

			height, err := b.iterateContractStorage(h, func(key, value []byte) error {
				items = append(items, [2][]byte{key, value})
				return nil
			})
			if err != nil {
				return err
			}

			id := dump.ID{Label: c.String("label"), Block: height}

			d, err := dump.NewCreator(dir, id)
			if err != nil {
				return fmt.Errorf("init dump: %w", err)
			}
			defer func() { _ = d.Close() }()

			w := d.AddContract(dumpContractName, *cs)
			for i := range items {
				err = w.Write(items[i][0], items[i][1])
				if err != nil {
					return err
				}
			}

			err = d.Flush()
			if err != nil {
				return fmt.Errorf("flush dump: %w", err)
			}

			l.Info("contract dumped", zap.Stringer("id", id), zap.Int("items", len(items)), zap.String("dir", dir))

			return nil
		})
	},
}

var dumpSourceFlags = []cli.Flag{
	&cli.StringFlag{Name: "dir", Usage: "Directory with dumps", Value: "testdata"},
	&cli.StringFlag{Name: "id", Usage: "Dump ID '<label>-<block>'"},
}

var importCmd = &cli.Command{
	Name:  "import",
	Usage: "Import contract storage from the dump into the configured ledger database",
	Flags: dumpSourceFlags,
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		if cfg.Ledger.Type == dbconfig.InMemoryDB {
			return errors.New("in-memory ledger database can not be imported into, configure persistent one")
		}

		l, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		src, err := loadDump(c.String("dir"), c.String("id"))
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := storage.NewStore(cfg.Ledger)
		if err != nil {
			return fmt.Errorf("open ledger database: %w", err)
		}
		defer dst.Close()

		n, err := copyStore(dst, src)
		if err != nil {
			return err
		}

		// import must produce an openable ledger
		_, err = ledger.Open(dst, l)
		if err != nil {
			return err
		}

		l.Info("dump imported", zap.String("db", cfg.Ledger.Type), zap.Int("items", n))

		return nil
	},
}

var inspectCmd = &cli.Command{
	Name:  "inspect",
	Usage: "Print ledger state from the dump (if ID is set) or from the configured ledger database",
	Flags: dumpSourceFlags,
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		l, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		var st storage.Store

		if c.String("id") != "" {
			st, err = loadDump(c.String("dir"), c.String("id"))
		} else {
			st, err = storage.NewStore(cfg.Ledger)
		}
		if err != nil {
			return err
		}
		defer st.Close()

		led, err := ledger.Open(st, l)
		if err != nil {
			return err
		}

		rep, err := buildReport(led)
		if err != nil {
			return err
		}

		return printJSON(c, rep)
	},
}

func loadDump(dir, sID string) (storage.Store, error) {
	var id dump.ID

	err := id.DecodeString(sID)
	if err != nil {
		return nil, fmt.Errorf("invalid dump ID: %w", err)
	}

	r, err := dump.Read(dir, id)
	if err != nil {
		return nil, err
	}

	return r.LoadStorage(dumpContractName)
}

// copyStore copies all items from src to dst in one batch.
func copyStore(dst, src storage.Store) (int, error) {
	var n int

	cache := storage.NewMemCachedStore(dst)

	ledger.IterateStorage(src, func(k, v []byte) bool {
		cache.Put(bytes.Clone(k), bytes.Clone(v))
		n++
		return true
	})

	_, err := cache.PersistSync()
	if err != nil {
		return 0, fmt.Errorf("persist items: %w", err)
	}

	return n, nil
}

type balanceView struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type report struct {
	Owner    string        `json:"owner"`
	Agents   []string      `json:"agents"`
	Balances []balanceView `json:"balances"`
}

func balancesView(bs []ledger.Balance) []balanceView {
	res := make([]balanceView, len(bs))
	for i := range bs {
		res[i] = balanceView{
			Token:  bs[i].Token.StringLE(),
			Amount: bs[i].Amount.String(),
		}
	}
	return res
}

func buildReport(l *ledger.Ledger) (report, error) {
	agents, err := l.Agents()
	if err != nil {
		return report{}, err
	}

	bs, err := l.Balances()
	if err != nil {
		return report{}, err
	}

	rep := report{
		Owner:    address.Uint160ToString(l.Owner()),
		Agents:   make([]string, len(agents)),
		Balances: balancesView(bs),
	}

	for i := range agents {
		rep.Agents[i] = address.Uint160ToString(agents[i])
	}

	return rep, nil
}
