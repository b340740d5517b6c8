package main

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/anypb"

	"liquidityTx/internal/model"
	"liquidityTx/internal/msg"
	"liquidityTx/internal/storage"
	boltstore "liquidityTx/internal/storage/bolt"
	"liquidityTx/internal/storage/postgres"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <type-url> <hex-value>",
		Short: "Decode a wire payload into its signing and proto-JSON forms",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decoded, err := msg.Decode(&anypb.Any{TypeUrl: args[0], Value: common.FromHex(args[1])})
			if err != nil {
				return err
			}
			protoJSON, err := msg.ProtoJSON(decoded)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"signing":    msg.NewSigningPayload(decoded),
				"proto_json": json.RawMessage(protoJSON),
			})
		},
	}
}

func newPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List journaled operations that were submitted but never settled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			var pending []model.JournalEntry
			switch cfg.Journal {
			case "jsonl":
				entries, err := storage.ReadJournal(cfg.JournalPath)
				if err != nil {
					return err
				}
				pending = storage.PendingEntries(entries)
			case "bolt":
				journal, err := boltstore.OpenJournal(cfg.JournalPath)
				if err != nil {
					return err
				}
				defer journal.Close()
				if pending, err = journal.Pending(); err != nil {
					return err
				}
			default:
				return fmt.Errorf("pending needs a jsonl or bolt journal, got %q", cfg.Journal)
			}

			logger.Info("pending operations", zap.Int("count", len(pending)))
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, entry := range pending {
				if err := enc.Encode(entry); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newImportSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-snapshot",
		Short: "Copy pool and balance snapshots from the JSONL files into Postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			store, err := postgres.NewStore(ctx, cfg.PGDSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer store.Close()
			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			source := storage.NewJsonlSource(cfg.PoolsFile, cfg.BalancesFile)
			pools, err := source.FetchPools(ctx)
			if err != nil {
				return err
			}
			balances, err := source.Balances(ctx)
			if err != nil {
				return err
			}
			if err := store.UpsertPools(ctx, pools); err != nil {
				return fmt.Errorf("upsert pools: %w", err)
			}
			if err := store.UpsertBalances(ctx, balances); err != nil {
				return fmt.Errorf("upsert balances: %w", err)
			}
			logger.Info("snapshot imported", zap.Int("pools", len(pools)), zap.Int("balances", len(balances)))
			return nil
		},
	}
}
