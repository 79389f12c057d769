package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nspcc-dev/trading-agent-contract/common"
	"github.com/nspcc-dev/trading-agent-contract/internal/config"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	configFlag   = "config"
	logLevelFlag = "log-level"
	rpcFlag      = "rpc"
	walletFlag   = "wallet"
	addressFlag  = "address"
	contractFlag = "contract"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newApp().RunContext(ctx, os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "trading-agent",
		Usage:   "Manage Trading Agent contract",
		Version: fmt.Sprintf("%d.%d.%d", common.Version/1_000_000, common.Version/1_000%1_000, common.Version%1_000),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				EnvVars: []string{"TRADING_AGENT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  logLevelFlag,
				Usage: "Logging level (debug, info, warn, error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:    rpcFlag,
				Aliases: []string{"r"},
				Usage:   "Neo RPC endpoint, overrides configuration",
				EnvVars: []string{"TRADING_AGENT_RPC"},
			},
			&cli.StringFlag{
				Name:    walletFlag,
				Aliases: []string{"w"},
				Usage:   "Path to the NEP-6 wallet, overrides configuration",
			},
			&cli.StringFlag{
				Name:    addressFlag,
				Aliases: []string{"a"},
				Usage:   "Wallet account address, overrides configuration",
			},
			&cli.StringFlag{
				Name:  contractFlag,
				Usage: "Contract script hash (LE), overrides configuration",
			},
		},
		Commands: []*cli.Command{
			deployCmd,
			authorizeAgentCmd,
			executeTradeCmd,
			balanceCmd,
			ownerCmd,
			isAgentCmd,
			dumpCmd,
			importCmd,
			inspectCmd,
		},
	}
}

// loadConfig reads configuration file and applies global flags on top of it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(configFlag))
	if err != nil {
		return nil, err
	}

	if v := c.String(rpcFlag); v != "" {
		cfg.RPC.Endpoint = v
	}
	if v := c.String(walletFlag); v != "" {
		cfg.Wallet.Path = v
	}
	if v := c.String(addressFlag); v != "" {
		cfg.Wallet.Address = v
	}
	if v := c.String(contractFlag); v != "" {
		cfg.Contract = v
	}

	return cfg, nil
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.String(logLevelFlag))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
