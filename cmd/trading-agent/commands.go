package main

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/trading-agent-contract/contracts"
	"github.com/nspcc-dev/trading-agent-contract/deploy"
	"github.com/nspcc-dev/trading-agent-contract/rpc/tradingagent"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var deployCmd = &cli.Command{
	Name:  "deploy",
	Usage: "Deploy the contract signed by the configured account which becomes its owner",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Directory with compiled contract files (contract.nef, manifest.json)",
			Value: contracts.TradingAgentDir,
		},
	},
	Action: func(c *cli.Context) error {
		return withChain(c, true, func(l *zap.Logger, b *remoteBlockchain) error {
			ctr, err := contracts.ReadDir(c.String("dir"))
			if err != nil {
				return fmt.Errorf("read contract: %w", err)
			}

			addr, err := deploy.Deploy(c.Context, deploy.Prm{
				Logger:     l,
				Blockchain: b.rpc,
				Deployer:   management.New(b.actor),
				Waiter:     b.actor,
				Sender:     b.acc.ScriptHash(),
				NEF:        ctr.NEF,
				Manifest:   ctr.Manifest,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, addr.StringLE())

			return nil
		})
	},
}

var authorizeAgentCmd = &cli.Command{
	Name:  "authorize-agent",
	Usage: "Authorize agent account to execute trades (owner only)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "agent", Usage: "Agent account address", Required: true},
	},
	Action: func(c *cli.Context) error {
		agent, err := address.StringToUint160(c.String("agent"))
		if err != nil {
			return fmt.Errorf("invalid agent address: %w", err)
		}

		return withContract(c, true, func(l *zap.Logger, b *remoteBlockchain, h util.Uint160) error {
			txHash, vub, err := tradingagent.New(b.actor, h).AuthorizeAgent(agent)
			_, err = b.waitHalt(c.Context, l.With(zap.String("agent", c.String("agent"))), txHash, vub, err)
			return err
		})
	},
}

var executeTradeCmd = &cli.Command{
	Name:  "execute-trade",
	Usage: "Buy (default) or sell token amount (agents only)",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "token", Usage: "Token script hash (LE)", Required: true},
		&cli.StringFlag{Name: "amount", Usage: "Positive integer amount", Required: true},
		&cli.BoolFlag{Name: "sell", Usage: "Sell instead of buy"},
	},
	Action: func(c *cli.Context) error {
		token, err := util.Uint160DecodeStringLE(c.String("token"))
		if err != nil {
			return fmt.Errorf("invalid token: %w", err)
		}

		amount, ok := new(big.Int).SetString(c.String("amount"), 10)
		if !ok {
			return fmt.Errorf("invalid amount '%s'", c.String("amount"))
		}

		isBuy := !c.Bool("sell")

		return withContract(c, true, func(l *zap.Logger, b *remoteBlockchain, h util.Uint160) error {
			l = l.With(zap.Stringer("token", token), zap.Stringer("amount", amount), zap.Bool("buy", isBuy))

			txHash, vub, err := tradingagent.New(b.actor, h).ExecuteTrade(token, amount, isBuy)
			_, err = b.waitHalt(c.Context, l, txHash, vub, err)
			return err
		})
	},
}

var balanceCmd = &cli.Command{
	Name:  "balance",
	Usage: "Print token balance, or all balances if token is omitted",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "token", Usage: "Token script hash (LE)"},
	},
	Action: func(c *cli.Context) error {
		return withContract(c, false, func(_ *zap.Logger, b *remoteBlockchain, h util.Uint160) error {
			r := tradingagent.NewReader(b.actor, h)

			if c.String("token") == "" {
				bs, err := r.AllBalances()
				if err != nil {
					return err
				}
				return printJSON(c, balancesView(bs))
			}

			token, err := util.Uint160DecodeStringLE(c.String("token"))
			if err != nil {
				return fmt.Errorf("invalid token: %w", err)
			}

			bal, err := r.BalanceOf(token)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, bal.String())

			return nil
		})
	},
}

var ownerCmd = &cli.Command{
	Name:  "owner",
	Usage: "Print contract owner address",
	Action: func(c *cli.Context) error {
		return withContract(c, false, func(_ *zap.Logger, b *remoteBlockchain, h util.Uint160) error {
			owner, err := tradingagent.NewReader(b.actor, h).Owner()
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, address.Uint160ToString(owner))

			return nil
		})
	},
}

var isAgentCmd = &cli.Command{
	Name:  "is-agent",
	Usage: "Check whether account is an authorized agent",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "account", Usage: "Account address", Required: true},
	},
	Action: func(c *cli.Context) error {
		acc, err := address.StringToUint160(c.String("account"))
		if err != nil {
			return fmt.Errorf("invalid account address: %w", err)
		}

		return withContract(c, false, func(_ *zap.Logger, b *remoteBlockchain, h util.Uint160) error {
			ok, err := tradingagent.NewReader(b.actor, h).IsAgent(acc)
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, ok)

			return nil
		})
	},
}

func withChain(c *cli.Context, signing bool, f func(*zap.Logger, *remoteBlockchain) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	l, err := newLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	b, err := dialRemoteBlockchain(c.Context, cfg, signing)
	if err != nil {
		return err
	}
	defer b.close()

	return f(l, b)
}

func withContract(c *cli.Context, signing bool, f func(*zap.Logger, *remoteBlockchain, util.Uint160) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	h, err := cfg.ContractHash()
	if err != nil {
		return err
	}

	return withChain(c, signing, func(l *zap.Logger, b *remoteBlockchain) error {
		return f(l.With(zap.Stringer("contract", h)), b, h)
	})
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
