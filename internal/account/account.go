// Package account sequences trade operations for one sender: fetch fresh
// state, build, submit, settle, invalidate what changed.
package account

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"liquidityTx/internal/builder"
	"liquidityTx/internal/model"
)

const tracerName = "liquidityTx/account"

// StateCache is the shared pool and balance state.
type StateCache interface {
	builder.PoolLookup
	WaitFreshResponse(ctx context.Context) error
	RefreshPool(ctx context.Context, id uint64) error
	RefreshBalances(ctx context.Context, address string, denoms []string) error
}

// Journal records operations as they are submitted and settled.
type Journal interface {
	Record(ctx context.Context, entry model.JournalEntry) error
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, model.JournalEntry) error { return nil }

// Account submits operations on behalf of one address.
type Account struct {
	address    string
	cache      StateCache
	currencies builder.CurrencyLookup
	submitter  Submitter
	builder    *builder.Builder
	journal    Journal
	gasPrice   GasPrice
	logger     *zap.Logger
	tracer     trace.Tracer
}

type Option func(*Account)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Account) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithJournal(journal Journal) Option {
	return func(a *Account) {
		if journal != nil {
			a.journal = journal
		}
	}
}

func WithGasPrice(price GasPrice) Option {
	return func(a *Account) { a.gasPrice = price }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Account) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

func New(address string, cache StateCache, currencies builder.CurrencyLookup, submitter Submitter, opts ...Option) *Account {
	a := &Account{
		address:    address,
		cache:      cache,
		currencies: currencies,
		submitter:  submitter,
		journal:    nopJournal{},
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.builder = builder.New(a.logger)
	return a
}

func (a *Account) Address() string {
	return a.address
}

// SendOption tunes a single Send call.
type SendOption func(*sendConfig)

type sendConfig struct {
	memo      string
	signer    string
	onSettled func(Receipt)
}

func WithMemo(memo string) SendOption {
	return func(c *sendConfig) { c.memo = memo }
}

// WithSigner signs with a key other than the account's own.
func WithSigner(signer string) SendOption {
	return func(c *sendConfig) { c.signer = signer }
}

// OnSettled registers the settlement callback.
func OnSettled(fn func(Receipt)) SendOption {
	return func(c *sendConfig) { c.onSettled = fn }
}

func (a *Account) SendCreatePoolMsg(ctx context.Context, swapFee string, assets []builder.CreatePoolAsset, opts ...SendOption) error {
	return a.send(ctx, builder.CreatePool{SwapFee: swapFee, Assets: assets}, opts)
}

func (a *Account) SendJoinPoolMsg(ctx context.Context, poolID, shareOutAmount, maxSlippage string, opts ...SendOption) error {
	return a.send(ctx, builder.JoinPool{PoolID: poolID, ShareOutAmount: shareOutAmount, MaxSlippage: maxSlippage}, opts)
}

func (a *Account) SendJoinSwapExternAmountInMsg(ctx context.Context, poolID string, tokenIn model.Amount, maxSlippage string, opts ...SendOption) error {
	return a.send(ctx, builder.JoinSwapExternAmountIn{PoolID: poolID, TokenIn: tokenIn, MaxSlippage: maxSlippage}, opts)
}

func (a *Account) SendExitPoolMsg(ctx context.Context, poolID, shareInAmount, maxSlippage string, opts ...SendOption) error {
	return a.send(ctx, builder.ExitPool{PoolID: poolID, ShareInAmount: shareInAmount, MaxSlippage: maxSlippage}, opts)
}

func (a *Account) SendSwapExactAmountInMsg(ctx context.Context, poolID string, tokenIn model.Amount, tokenOutDenom, maxSlippage string, opts ...SendOption) error {
	return a.send(ctx, builder.SwapExactAmountIn{
		PoolID:        poolID,
		TokenIn:       tokenIn,
		TokenOutDenom: tokenOutDenom,
		MaxSlippage:   maxSlippage,
	}, opts)
}

func (a *Account) SendSwapExactAmountOutMsg(ctx context.Context, poolID, tokenInDenom string, tokenOut model.Amount, maxSlippage string, opts ...SendOption) error {
	return a.send(ctx, builder.SwapExactAmountOut{
		PoolID:       poolID,
		TokenInDenom: tokenInDenom,
		TokenOut:     tokenOut,
		MaxSlippage:  maxSlippage,
	}, opts)
}

func (a *Account) SendMultihopSwapExactAmountInMsg(ctx context.Context, routes []builder.Hop, tokenIn model.Amount, maxSlippage string, opts ...SendOption) error {
	return a.send(ctx, builder.MultihopSwapExactAmountIn{Routes: routes, TokenIn: tokenIn, MaxSlippage: maxSlippage}, opts)
}

func (a *Account) SendLockTokensMsg(ctx context.Context, duration time.Duration, tokens []model.Amount, opts ...SendOption) error {
	return a.send(ctx, builder.LockTokens{Duration: duration, Tokens: tokens}, opts)
}

func (a *Account) SendBeginUnlockingMsg(ctx context.Context, lockIDs []string, opts ...SendOption) error {
	return a.send(ctx, builder.BeginUnlocking{LockIDs: lockIDs}, opts)
}

// send runs one operation to settlement. Errors before submission are
// returned; submission and chain failures only reach the callback.
func (a *Account) send(ctx context.Context, intent builder.TradeIntent, opts []SendOption) error {
	var cfg sendConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	op := newOperation(intent.Operation())
	logger := a.logger.With(zap.String("operation", op.name), zap.String("operation_id", op.id))

	ctx, span := a.tracer.Start(ctx, "account."+op.name, trace.WithAttributes(
		attribute.String("operation.id", op.id),
		attribute.String("sender", a.address),
	))
	defer span.End()

	op.advance(PhaseFetchingState)
	span.AddEvent(string(PhaseFetchingState))
	if err := a.fetchState(ctx, intent); err != nil {
		recordError(span, err)
		logger.Warn("fetch state failed", zap.Error(err))
		return err
	}

	op.advance(PhaseBuilding)
	span.AddEvent(string(PhaseBuilding))
	built, err := a.builder.Prepare(a.address, intent, builder.State{Pools: a.cache, Currencies: a.currencies})
	if err != nil {
		recordError(span, err)
		logger.Warn("build failed", zap.Error(err))
		return err
	}

	op.advance(PhaseSubmitted)
	span.AddEvent(string(PhaseSubmitted), trace.WithAttributes(attribute.Int64("gas", int64(built.Gas))))
	signer := cfg.signer
	if signer == "" {
		signer = a.address
	}
	req := SubmitRequest{
		OperationID: op.id,
		Operation:   op.name,
		Messages:    built,
		Memo:        cfg.memo,
		Fee:         a.gasPrice.FeeFor(built.Gas),
		Signer:      signer,
	}
	a.record(ctx, logger, model.JournalEntry{
		OperationID: op.id,
		Operation:   op.name,
		Phase:       model.JournalSubmitted,
		Sender:      a.address,
		TypeURLs:    typeURLs(built),
		Gas:         built.Gas,
	})
	logger.Info("submitting", zap.Uint64("gas", built.Gas), zap.Int("messages", len(built.Wire)))

	receipt, err := a.submitter.Submit(ctx, req)
	op.advance(PhaseSettled)
	receipt = settle(op, receipt, err)
	span.AddEvent(string(PhaseSettled), trace.WithAttributes(
		attribute.String("tx_hash", receipt.TxHash),
		attribute.Int64("code", int64(receipt.Code)),
	))

	if receipt.Success() {
		a.invalidate(ctx, logger, built.Touched)
		logger.Info("settled", zap.String("tx_hash", receipt.TxHash), zap.Int64("height", receipt.Height))
	} else {
		recordError(span, receipt.Err)
		logger.Warn("settled with failure", zap.String("tx_hash", receipt.TxHash), zap.Uint32("code", receipt.Code), zap.Error(receipt.Err))
	}

	entry := model.JournalEntry{
		OperationID: op.id,
		Operation:   op.name,
		Phase:       model.JournalSettled,
		Sender:      a.address,
		TxHash:      receipt.TxHash,
		Code:        receipt.Code,
		Height:      receipt.Height,
	}
	if receipt.Err != nil {
		entry.Error = receipt.Err.Error()
	}
	a.record(ctx, logger, entry)

	notify := newSettlement(cfg.onSettled)
	notify.fire(receipt)
	return nil
}

// fetchState waits for the pool list, then refreshes each pool the intent
// reads. Intents that read no pool have nothing to fetch.
func (a *Account) fetchState(ctx context.Context, intent builder.TradeIntent) error {
	ids := builder.PoolIDs(intent)
	if len(ids) == 0 {
		return nil
	}
	if err := a.cache.WaitFreshResponse(ctx); err != nil {
		return fmt.Errorf("wait fresh state: %w", err)
	}
	for _, raw := range ids {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			// Reported by the builder with the proper code.
			continue
		}
		if err := a.cache.RefreshPool(ctx, id); err != nil {
			return fmt.Errorf("refresh pool %d: %w", id, err)
		}
	}
	return nil
}

// invalidate refetches only what a committed operation changed. Failures are
// logged; the operation itself already succeeded.
func (a *Account) invalidate(ctx context.Context, logger *zap.Logger, touched builder.Touched) {
	if len(touched.Denoms) > 0 {
		if err := a.cache.RefreshBalances(ctx, a.address, touched.Denoms); err != nil {
			logger.Warn("refresh balances failed", zap.Strings("denoms", touched.Denoms), zap.Error(err))
		}
	}
	for _, id := range touched.PoolIDs {
		if err := a.cache.RefreshPool(ctx, id); err != nil {
			logger.Warn("refresh pool failed", zap.Uint64("pool_id", id), zap.Error(err))
		}
	}
}

func (a *Account) record(ctx context.Context, logger *zap.Logger, entry model.JournalEntry) {
	entry.RecordedAt = time.Now().UTC()
	if err := a.journal.Record(ctx, entry); err != nil {
		logger.Warn("journal write failed", zap.String("phase", entry.Phase), zap.Error(err))
	}
}

func settle(op *operation, receipt Receipt, err error) Receipt {
	receipt.OperationID = op.id
	receipt.Operation = op.name
	switch {
	case err != nil:
		receipt.Err = model.Wrap(model.CodeSubmissionFailed, err, "submit "+op.name)
	case receipt.Err != nil:
	case receipt.Code != 0:
		receipt.Err = model.Errorf(model.CodeChainRejected, "code %d (%s): %s", receipt.Code, receipt.Codespace, receipt.Log)
	}
	return receipt
}

type settlement struct {
	once sync.Once
	fn   func(Receipt)
}

func newSettlement(fn func(Receipt)) *settlement {
	return &settlement{fn: fn}
}

func (s *settlement) fire(receipt Receipt) {
	s.once.Do(func() {
		if s.fn != nil {
			s.fn(receipt)
		}
	})
}

func recordError(span trace.Span, err error) {
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func typeURLs(built builder.BuiltMessage) []string {
	out := make([]string, 0, len(built.Wire))
	for _, payload := range built.Wire {
		out = append(out, payload.GetTypeUrl())
	}
	return out
}
