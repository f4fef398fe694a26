package config

import (
	"fmt"
	"time"

	"github.com/ardanlabs/conf"
)

// Prefix is prepended to every environment variable, e.g. ALGO_TRANSFERS_SERVER_PORT.
const Prefix = "ALGO_TRANSFERS"

const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
	StoreDriverMemory   = "memory"
)

type Config struct {
	ServerPort      string        `conf:"default:8080"`
	ShutdownTimeout time.Duration `conf:"default:30s"`

	StoreDriver string `conf:"default:postgres,help:postgres|bolt|memory"`
	DBHost      string `conf:"default:localhost"`
	DBPort      string `conf:"default:5432"`
	DBUser      string `conf:"default:postgres"`
	DBPassword  string `conf:"default:password,mask"`
	DBName      string `conf:"default:algo_transfers"`
	DBSSLMode   string `conf:"default:disable"`
	AutoMigrate bool   `conf:"default:true"`
	BoltPath    string `conf:"default:algo-transfers.db"`

	AlgodAddress    string `conf:"default:https://testnet-api.algonode.cloud"`
	AlgodToken      string `conf:"mask,optional"`
	DefaultMnemonic string `conf:"mask,optional,help:used when a request carries no mnemonic"`

	ConfirmationRounds  uint64        `conf:"default:10"`
	MaxWaitRounds       uint64        `conf:"default:100,help:upper bound for max_rounds on the wait endpoint"`
	WaitForConfirmation bool          `conf:"default:false"`
	ReconcileInterval   time.Duration `conf:"default:30s,help:zero disables the background reconciler"`
	ReconcileTimeout    time.Duration `conf:"default:20s"`
	AccountCacheTTL     time.Duration `conf:"default:2s"`
}

// Load parses command line args and the environment over the defaults.
// conf.ErrHelpWanted and conf.ErrVersionWanted are returned unwrapped.
func Load(args []string) (*Config, error) {
	var cfg Config
	if err := conf.Parse(args, Prefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverBolt, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.AlgodAddress == "" {
		return fmt.Errorf("algod address is required")
	}
	if c.MaxWaitRounds < c.ConfirmationRounds {
		return fmt.Errorf("max wait rounds %d is below confirmation rounds %d", c.MaxWaitRounds, c.ConfirmationRounds)
	}
	if c.ReconcileInterval > 0 && c.ReconcileTimeout <= 0 {
		return fmt.Errorf("reconcile timeout must be positive when the reconciler is enabled")
	}
	return nil
}

// Usage returns the help text conf generates for the Config fields.
func Usage() (string, error) {
	var cfg Config
	return conf.Usage(Prefix, &cfg)
}

// String renders the config with masked fields hidden.
func (c *Config) String() string {
	out, err := conf.String(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return out
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
