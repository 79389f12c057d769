// Package config defines configuration of the trading-agent command loaded
// from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"gopkg.in/yaml.v3"
)

// Default timeouts of the RPC client.
const (
	DefaultDialTimeout    = 15 * time.Second
	DefaultRequestTimeout = 15 * time.Second
)

// RPC configures connection to the Neo RPC server.
type RPC struct {
	Endpoint       string        `yaml:"endpoint"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Wallet points to the account signing transactions. Empty Address selects
// the default wallet account.
type Wallet struct {
	Path     string `yaml:"path"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

// Config is a root of the configuration file.
type Config struct {
	RPC    RPC    `yaml:"rpc"`
	Wallet Wallet `yaml:"wallet"`
	// Contract is an LE hex-encoded script hash of the deployed contract.
	Contract string `yaml:"contract"`
	// Ledger is a local storage the contract state is imported into.
	Ledger dbconfig.DBConfiguration `yaml:"ledger"`
}

// Load reads YAML configuration file and fills omitted values with defaults.
// Empty path returns defaults only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}

		err = yaml.Unmarshal(data, &cfg)
		if err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (x *Config) applyDefaults() {
	if x.RPC.DialTimeout <= 0 {
		x.RPC.DialTimeout = DefaultDialTimeout
	}
	if x.RPC.RequestTimeout <= 0 {
		x.RPC.RequestTimeout = DefaultRequestTimeout
	}
	if x.Ledger.Type == "" {
		x.Ledger.Type = dbconfig.InMemoryDB
	}
}

// ContractHash decodes Contract field.
func (x *Config) ContractHash() (util.Uint160, error) {
	if x.Contract == "" {
		return util.Uint160{}, errors.New("missing contract address")
	}

	h, err := util.Uint160DecodeStringLE(x.Contract)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid contract address '%s': %w", x.Contract, err)
	}

	return h, nil
}

// Validate checks that Config is sufficient for network operations.
func (x *Config) Validate() error {
	switch {
	case x.RPC.Endpoint == "":
		return errors.New("missing RPC endpoint")
	case x.Wallet.Path == "":
		return errors.New("missing wallet path")
	}
	return nil
}
