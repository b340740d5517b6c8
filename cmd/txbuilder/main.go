package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "txbuilder",
		Short:        "Build and submit weighted-pool transactions",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "http://localhost:26657", "CometBFT RPC URL")
	flags.String("chain-id", "osmosis-1", "chain id")
	flags.String("sender", "", "sender address")
	flags.String("from", "", "keyring key used to sign (defaults to sender)")
	flags.String("keyring-backend", "os", "keyring backend passed to the chain CLI")
	flags.String("cli-app", "osmosisd", "chain CLI binary used for signing")
	flags.String("gas-price", "0.0025uosmo", "gas price, e.g. 0.0025uosmo")
	flags.String("source", "jsonl", "state source (jsonl, postgres)")
	flags.String("pools-file", "./data/pools.jsonl", "pool snapshots JSONL")
	flags.String("balances-file", "./data/balances.jsonl", "balances JSONL")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("journal", "jsonl", "journal backend (jsonl, postgres, bolt, none)")
	flags.String("journal-path", "./data/journal.jsonl", "journal file path (jsonl, bolt)")
	flags.Bool("dry-run", false, "print messages instead of broadcasting")
	flags.Duration("poll-interval", time.Second, "interval between tx inclusion checks")
	flags.String("currencies", "", "extra currencies (comma-separated denom:exponent[:symbol])")
	flags.String("memo", "", "transaction memo")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newCreatePoolCmd(),
		newJoinPoolCmd(),
		newJoinSwapExternCmd(),
		newExitPoolCmd(),
		newSwapExactInCmd(),
		newSwapExactOutCmd(),
		newSwapRouteCmd(),
		newLockCmd(),
		newBeginUnlockCmd(),
		newInspectCmd(),
		newPendingCmd(),
		newImportSnapshotCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
