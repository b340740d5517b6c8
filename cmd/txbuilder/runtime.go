package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityTx/internal/account"
	"liquidityTx/internal/chain"
	"liquidityTx/internal/config"
	"liquidityTx/internal/model"
	"liquidityTx/internal/querycache"
	"liquidityTx/internal/storage"
	boltstore "liquidityTx/internal/storage/bolt"
	"liquidityTx/internal/storage/postgres"
)

// defaultCurrencies are registered before any configured ones.
var defaultCurrencies = []model.Currency{
	{Denom: "uosmo", Exponent: 6, Symbol: "OSMO"},
	{Denom: "uion", Exponent: 6, Symbol: "ION"},
}

type runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	cache   *querycache.Cache
	account *account.Account
	memo    string
	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	_ = r.logger.Sync()
}

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func setup(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Sender == "" {
		return nil, fmt.Errorf("sender is required")
	}
	memo, _ := cmd.Flags().GetString("memo")
	r := &runtime{cfg: cfg, logger: logger, memo: memo}

	var pgStore *postgres.Store
	if cfg.Source == "postgres" || cfg.Journal == "postgres" {
		pgStore, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		r.closers = append(r.closers, pgStore.Close)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			r.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	var source querycache.Source
	if cfg.Source == "postgres" {
		source = pgStore
	} else {
		source = storage.NewJsonlSource(cfg.PoolsFile, cfg.BalancesFile)
	}
	r.cache = querycache.New(source, logger)

	journal, err := openJournal(cfg, pgStore)
	if err != nil {
		r.Close()
		return nil, err
	}
	if closer, ok := journal.(interface{ Close() error }); ok {
		r.closers = append(r.closers, func() { _ = closer.Close() })
	}

	gasPrice, err := account.ParseGasPrice(cfg.GasPrice)
	if err != nil {
		r.Close()
		return nil, err
	}

	registry := model.NewCurrencyRegistry(defaultCurrencies...)
	for _, currency := range cfg.Currencies {
		registry.Set(currency)
	}

	var submitter account.Submitter
	if cfg.DryRun {
		submitter = &dryRunSubmitter{out: cmd.OutOrStdout()}
	} else {
		client, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		r.closers = append(r.closers, client.Close)
		if status, err := client.Status(ctx); err != nil {
			logger.Warn("node status unavailable", zap.Error(err))
		} else if status.Network != cfg.ChainID {
			logger.Warn("chain id mismatch", zap.String("node", status.Network), zap.String("configured", cfg.ChainID))
		}
		signer := chain.NewCommandSigner(cfg.CLIApp, cfg.ChainID, cfg.RPCURL, cfg.KeyringBackend, logger)
		submitter = chain.NewBroadcaster(client, signer, cfg.PollInterval, logger)
	}

	r.account = account.New(cfg.Sender, r.cache, registry, submitter,
		account.WithLogger(logger),
		account.WithJournal(journal),
		account.WithGasPrice(gasPrice),
	)

	logger.Info("txbuilder ready",
		zap.String("sender", cfg.Sender),
		zap.String("chain_id", cfg.ChainID),
		zap.String("source", cfg.Source),
		zap.String("journal", cfg.Journal),
		zap.Bool("dry_run", cfg.DryRun),
		zap.String("gas_price", gasPrice.String()),
	)
	return r, nil
}

func openJournal(cfg config.Config, pgStore *postgres.Store) (account.Journal, error) {
	switch cfg.Journal {
	case "jsonl":
		return storage.NewJsonlJournal(cfg.JournalPath), nil
	case "bolt":
		journal, err := boltstore.OpenJournal(cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		return journal, nil
	case "postgres":
		return pgStore, nil
	default:
		return storage.Nop{}, nil
	}
}

// run executes one Send call and reports its settlement. The command fails
// when the operation fails, whichever way it fails.
func run(cmd *cobra.Command, send func(ctx context.Context, r *runtime, opts ...account.SendOption) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer r.Close()

	var settled *account.Receipt
	onSettled := account.OnSettled(func(receipt account.Receipt) {
		settled = &receipt
	})
	if err := send(ctx, r, onSettled, account.WithSigner(r.cfg.From), account.WithMemo(r.memo)); err != nil {
		return err
	}
	if settled == nil {
		return fmt.Errorf("operation finished without settlement")
	}
	if err := printReceipt(cmd.OutOrStdout(), *settled); err != nil {
		return err
	}
	return settled.Err
}

func printReceipt(w io.Writer, receipt account.Receipt) error {
	out := map[string]interface{}{
		"operation_id": receipt.OperationID,
		"operation":    receipt.Operation,
		"tx_hash":      receipt.TxHash,
		"code":         receipt.Code,
		"height":       receipt.Height,
	}
	if receipt.Err != nil {
		out["error"] = receipt.Err.Error()
		out["category"] = model.CategoryOf(receipt.Err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// dryRunSubmitter prints both representations and settles as committed.
type dryRunSubmitter struct {
	out io.Writer
}

func (s *dryRunSubmitter) Submit(ctx context.Context, req account.SubmitRequest) (account.Receipt, error) {
	type wireOut struct {
		TypeURL string `json:"type_url"`
		Value   string `json:"value"`
	}
	wire := make([]wireOut, 0, len(req.Messages.Wire))
	for _, payload := range req.Messages.Wire {
		wire = append(wire, wireOut{TypeURL: payload.GetTypeUrl(), Value: hex.EncodeToString(payload.GetValue())})
	}
	doc := map[string]interface{}{
		"operation_id": req.OperationID,
		"operation":    req.Operation,
		"signer":       req.Signer,
		"memo":         req.Memo,
		"fee":          map[string]interface{}{"gas": req.Fee.Gas, "amount": req.Fee.Amount},
		"signing":      req.Messages.Signing,
		"wire":         wire,
	}
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return account.Receipt{}, err
	}
	return account.Receipt{TxHash: "dry-run"}, nil
}
