// Package builder turns trade intents into chain messages. Every build reads
// the pool and currency state it is handed and nothing else.
package builder

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/anypb"

	"liquidityTx/internal/fixedpoint"
	"liquidityTx/internal/model"
	"liquidityTx/internal/msg"
	"liquidityTx/internal/poolmath"
)

const futurePoolGovernor = "24h"

// PoolLookup returns the latest known snapshot of a pool.
type PoolLookup interface {
	Pool(id uint64) (model.PoolSnapshot, bool)
}

// CurrencyLookup resolves a denomination to its currency.
type CurrencyLookup interface {
	Lookup(denom string) (model.Currency, error)
}

// PoolMap is a fixed PoolLookup.
type PoolMap map[uint64]model.PoolSnapshot

func (m PoolMap) Pool(id uint64) (model.PoolSnapshot, bool) {
	p, ok := m[id]
	return p, ok
}

// State is the context a build reads from.
type State struct {
	Pools      PoolLookup
	Currencies CurrencyLookup
}

// Touched lists what a committed message changes.
type Touched struct {
	Denoms  []string
	PoolIDs []uint64
}

// BuiltMessage holds both representations of the messages for one
// operation, index aligned.
type BuiltMessage struct {
	Operation string
	Signing   []msg.SigningPayload
	Wire      []*anypb.Any
	Gas       uint64
	Touched   Touched
}

// Msgs returns the typed messages behind the signing payloads.
func (b BuiltMessage) Msgs() []msg.Msg {
	out := make([]msg.Msg, 0, len(b.Signing))
	for _, payload := range b.Signing {
		out = append(out, payload.Value)
	}
	return out
}

type Builder struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{logger: logger}
}

// Prepare builds the messages for intent against state.
func (b *Builder) Prepare(sender string, intent TradeIntent, state State) (BuiltMessage, error) {
	switch in := intent.(type) {
	case CreatePool:
		return b.createPool(sender, in, state)
	case JoinPool:
		return b.joinPool(sender, in, state)
	case JoinSwapExternAmountIn:
		return b.joinSwapExternAmountIn(sender, in, state)
	case ExitPool:
		return b.exitPool(sender, in, state)
	case SwapExactAmountIn:
		return b.swapExactAmountIn(sender, in, state)
	case SwapExactAmountOut:
		return b.swapExactAmountOut(sender, in, state)
	case MultihopSwapExactAmountIn:
		return b.multihopSwapExactAmountIn(sender, in, state)
	case LockTokens:
		return b.lockTokens(sender, in, state)
	case BeginUnlocking:
		return b.beginUnlocking(sender, in)
	default:
		return BuiltMessage{}, fmt.Errorf("unsupported intent %T", intent)
	}
}

func (b *Builder) createPool(sender string, in CreatePool, state State) (BuiltMessage, error) {
	if len(in.Assets) == 0 {
		return BuiltMessage{}, model.Errorf(model.CodeMissingField, "create pool needs at least one asset")
	}
	fee, err := fixedpoint.PercentToFraction(in.SwapFee)
	if err != nil {
		return BuiltMessage{}, err
	}
	if fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return BuiltMessage{}, model.Errorf(model.CodeInvalidNumericFormat, "swap fee %s%% out of range", in.SwapFee)
	}

	assets := make([]msg.PoolAsset, 0, len(in.Assets))
	denoms := make([]string, 0, len(in.Assets))
	for _, asset := range in.Assets {
		amount, _, err := toMinor(state, model.Amount{Denom: asset.Denom, Amount: asset.Amount})
		if err != nil {
			return BuiltMessage{}, err
		}
		weight, err := fixedpoint.ParseInteger(asset.Weight)
		if err != nil {
			return BuiltMessage{}, err
		}
		assets = append(assets, msg.PoolAsset{Token: amount, Weight: weight.String()})
		denoms = append(denoms, asset.Denom)
	}

	m := &msg.MsgCreateBalancerPool{
		Sender: sender,
		PoolParams: msg.PoolParams{
			SwapFee: fixedpoint.DecString(fee),
			ExitFee: fixedpoint.DecString(decimal.Zero),
		},
		PoolAssets:         assets,
		FuturePoolGovernor: futurePoolGovernor,
	}
	return emit(OpCreatePool, GasCreatePool, Touched{Denoms: denoms}, m)
}

func (b *Builder) joinPool(sender string, in JoinPool, state State) (BuiltMessage, error) {
	pool, err := lookupPool(state, in.PoolID)
	if err != nil {
		return BuiltMessage{}, err
	}
	slippage, err := fixedpoint.ParseSlippage(in.MaxSlippage)
	if err != nil {
		return BuiltMessage{}, err
	}
	shareOut, err := shareAmount(in.ShareOutAmount)
	if err != nil {
		return BuiltMessage{}, err
	}
	estimates, err := poolmath.EstimateJoinPool(pool, shareOut)
	if err != nil {
		return BuiltMessage{}, err
	}

	m := &msg.MsgJoinPool{Sender: sender, PoolID: pool.ID, ShareOutAmount: shareOut.String()}
	for _, estimate := range estimates {
		if bound, ok := fixedpoint.MaxIn(estimate.Amount, slippage); ok {
			m.TokenInMaxs = append(m.TokenInMaxs, msg.Coin{Denom: estimate.Denom, Amount: bound})
		}
	}
	touched := Touched{Denoms: append(pool.Denoms(), pool.ShareDenom()), PoolIDs: []uint64{pool.ID}}
	return emit(OpJoinPool, GasJoinPool, touched, m)
}

func (b *Builder) joinSwapExternAmountIn(sender string, in JoinSwapExternAmountIn, state State) (BuiltMessage, error) {
	pool, err := lookupPool(state, in.PoolID)
	if err != nil {
		return BuiltMessage{}, err
	}
	if _, err := pool.FindAsset(in.TokenIn.Denom); err != nil {
		return BuiltMessage{}, err
	}
	slippage, err := fixedpoint.ParseSlippage(in.MaxSlippage)
	if err != nil {
		return BuiltMessage{}, err
	}
	tokenIn, amountIn, err := toMinor(state, in.TokenIn)
	if err != nil {
		return BuiltMessage{}, err
	}
	shares, err := poolmath.EstimateJoinSwapExternAmountIn(pool, tokenIn.Denom, amountIn)
	if err != nil {
		return BuiltMessage{}, err
	}

	m := &msg.MsgJoinSwapExternAmountIn{Sender: sender, PoolID: pool.ID, TokenIn: tokenIn}
	if bound, ok := fixedpoint.MinOut(shares, slippage); ok {
		m.ShareOutMinAmount = bound
	}
	touched := Touched{Denoms: []string{tokenIn.Denom, pool.ShareDenom()}, PoolIDs: []uint64{pool.ID}}
	return emit(OpJoinSwapExternAmountIn, GasJoinSwapExternAmountIn, touched, m)
}

func (b *Builder) exitPool(sender string, in ExitPool, state State) (BuiltMessage, error) {
	pool, err := lookupPool(state, in.PoolID)
	if err != nil {
		return BuiltMessage{}, err
	}
	slippage, err := fixedpoint.ParseSlippage(in.MaxSlippage)
	if err != nil {
		return BuiltMessage{}, err
	}
	shareIn, err := shareAmount(in.ShareInAmount)
	if err != nil {
		return BuiltMessage{}, err
	}
	estimates, err := poolmath.EstimateExitPool(pool, shareIn)
	if err != nil {
		return BuiltMessage{}, err
	}

	m := &msg.MsgExitPool{Sender: sender, PoolID: pool.ID, ShareInAmount: shareIn.String()}
	for _, estimate := range estimates {
		if bound, ok := fixedpoint.MinOut(estimate.Amount, slippage); ok {
			m.TokenOutMins = append(m.TokenOutMins, msg.Coin{Denom: estimate.Denom, Amount: bound})
		}
	}
	touched := Touched{Denoms: append(pool.Denoms(), pool.ShareDenom()), PoolIDs: []uint64{pool.ID}}
	return emit(OpExitPool, GasExitPool, touched, m)
}

func (b *Builder) swapExactAmountIn(sender string, in SwapExactAmountIn, state State) (BuiltMessage, error) {
	pool, err := lookupPool(state, in.PoolID)
	if err != nil {
		return BuiltMessage{}, err
	}
	if err := requireDistinct(in.TokenIn.Denom, in.TokenOutDenom); err != nil {
		return BuiltMessage{}, err
	}
	if err := requireAssets(pool, in.TokenIn.Denom, in.TokenOutDenom); err != nil {
		return BuiltMessage{}, err
	}
	slippage, err := fixedpoint.ParseSlippage(in.MaxSlippage)
	if err != nil {
		return BuiltMessage{}, err
	}
	tokenIn, amountIn, err := toMinor(state, in.TokenIn)
	if err != nil {
		return BuiltMessage{}, err
	}
	out, err := poolmath.EstimateSwapExactAmountIn(pool, tokenIn.Denom, amountIn, in.TokenOutDenom)
	if err != nil {
		return BuiltMessage{}, err
	}
	b.logPriceImpact(pool, tokenIn.Denom, in.TokenOutDenom, amountIn, out)

	m := &msg.MsgSwapExactAmountIn{
		Sender:  sender,
		Routes:  []msg.SwapAmountInRoute{{PoolID: pool.ID, TokenOutDenom: in.TokenOutDenom}},
		TokenIn: tokenIn,
	}
	if bound, ok := fixedpoint.MinOut(out, slippage); ok {
		m.TokenOutMinAmount = bound
	}
	touched := Touched{Denoms: []string{tokenIn.Denom, in.TokenOutDenom}, PoolIDs: []uint64{pool.ID}}
	return emit(OpSwapExactAmountIn, GasSwapExactAmountIn, touched, m)
}

func (b *Builder) swapExactAmountOut(sender string, in SwapExactAmountOut, state State) (BuiltMessage, error) {
	pool, err := lookupPool(state, in.PoolID)
	if err != nil {
		return BuiltMessage{}, err
	}
	if err := requireDistinct(in.TokenInDenom, in.TokenOut.Denom); err != nil {
		return BuiltMessage{}, err
	}
	if err := requireAssets(pool, in.TokenInDenom, in.TokenOut.Denom); err != nil {
		return BuiltMessage{}, err
	}
	slippage, err := fixedpoint.ParseSlippage(in.MaxSlippage)
	if err != nil {
		return BuiltMessage{}, err
	}
	tokenOut, amountOut, err := toMinor(state, in.TokenOut)
	if err != nil {
		return BuiltMessage{}, err
	}
	amountIn, err := poolmath.EstimateSwapExactAmountOut(pool, in.TokenInDenom, tokenOut.Denom, amountOut)
	if err != nil {
		return BuiltMessage{}, err
	}
	b.logPriceImpact(pool, in.TokenInDenom, tokenOut.Denom, amountIn, amountOut)

	m := &msg.MsgSwapExactAmountOut{
		Sender:   sender,
		Routes:   []msg.SwapAmountOutRoute{{PoolID: pool.ID, TokenInDenom: in.TokenInDenom}},
		TokenOut: tokenOut,
	}
	if bound, ok := fixedpoint.MaxIn(amountIn, slippage); ok {
		m.TokenInMaxAmount = bound
	}
	touched := Touched{Denoms: []string{in.TokenInDenom, tokenOut.Denom}, PoolIDs: []uint64{pool.ID}}
	return emit(OpSwapExactAmountOut, GasSwapExactAmountOut, touched, m)
}

func (b *Builder) multihopSwapExactAmountIn(sender string, in MultihopSwapExactAmountIn, state State) (BuiltMessage, error) {
	if len(in.Routes) == 0 {
		return BuiltMessage{}, model.Errorf(model.CodeMissingField, "multihop swap needs at least one hop")
	}
	slippage, err := fixedpoint.ParseSlippage(in.MaxSlippage)
	if err != nil {
		return BuiltMessage{}, err
	}
	tokenIn, amount, err := toMinor(state, in.TokenIn)
	if err != nil {
		return BuiltMessage{}, err
	}

	routes := make([]msg.SwapAmountInRoute, 0, len(in.Routes))
	touched := Touched{Denoms: []string{tokenIn.Denom}}
	denomIn := tokenIn.Denom
	for _, hop := range in.Routes {
		pool, err := lookupPool(state, hop.PoolID)
		if err != nil {
			return BuiltMessage{}, err
		}
		if err := requireDistinct(denomIn, hop.TokenOutDenom); err != nil {
			return BuiltMessage{}, err
		}
		if err := requireAssets(pool, denomIn, hop.TokenOutDenom); err != nil {
			return BuiltMessage{}, err
		}
		out, err := poolmath.EstimateSwapExactAmountIn(pool, denomIn, amount, hop.TokenOutDenom)
		if err != nil {
			return BuiltMessage{}, err
		}
		// Each hop settles an integer amount before the next one starts.
		amount = out.Truncate(0)
		denomIn = hop.TokenOutDenom

		routes = append(routes, msg.SwapAmountInRoute{PoolID: pool.ID, TokenOutDenom: hop.TokenOutDenom})
		touched.Denoms = append(touched.Denoms, hop.TokenOutDenom)
		touched.PoolIDs = append(touched.PoolIDs, pool.ID)
	}

	m := &msg.MsgSwapExactAmountIn{Sender: sender, Routes: routes, TokenIn: tokenIn}
	if bound, ok := fixedpoint.MinOut(amount, slippage); ok {
		m.TokenOutMinAmount = bound
	}
	return emit(OpMultihopSwapExactAmountIn, MultihopGas(len(routes)), touched, m)
}

func (b *Builder) lockTokens(sender string, in LockTokens, state State) (BuiltMessage, error) {
	if len(in.Tokens) == 0 {
		return BuiltMessage{}, model.Errorf(model.CodeMissingField, "lock needs at least one token")
	}
	if in.Duration <= 0 {
		return BuiltMessage{}, model.Errorf(model.CodeInvalidNumericFormat, "lock duration %s must be positive", in.Duration)
	}
	coins := make([]msg.Coin, 0, len(in.Tokens))
	denoms := make([]string, 0, len(in.Tokens))
	for _, token := range in.Tokens {
		coin, _, err := toMinor(state, token)
		if err != nil {
			return BuiltMessage{}, err
		}
		coins = append(coins, coin)
		denoms = append(denoms, coin.Denom)
	}
	m := &msg.MsgLockTokens{Owner: sender, Duration: msg.Duration(in.Duration), Coins: coins}
	return emit(OpLockTokens, GasLockTokens, Touched{Denoms: denoms}, m)
}

// beginUnlocking emits one message per lock, in order. Unlocking starts a
// timer only, so no balance changes on commit.
func (b *Builder) beginUnlocking(sender string, in BeginUnlocking) (BuiltMessage, error) {
	if len(in.LockIDs) == 0 {
		return BuiltMessage{}, model.Errorf(model.CodeMissingField, "begin unlocking needs at least one lock id")
	}
	msgs := make([]msg.Msg, 0, len(in.LockIDs))
	for _, raw := range in.LockIDs {
		id, err := parseID(raw, "lock")
		if err != nil {
			return BuiltMessage{}, err
		}
		msgs = append(msgs, &msg.MsgBeginUnlocking{Owner: sender, ID: id})
	}
	return emit(OpBeginUnlocking, BeginUnlockingGas(len(msgs)), Touched{}, msgs...)
}

func (b *Builder) logPriceImpact(pool model.PoolSnapshot, denomIn, denomOut string, amountIn, amountOut decimal.Decimal) {
	if amountOut.IsZero() {
		return
	}
	spot, err := poolmath.SpotPrice(pool, denomIn, denomOut)
	if err != nil || spot.IsZero() {
		return
	}
	effective := amountIn.DivRound(amountOut, 18)
	impact := effective.DivRound(spot, 18).Sub(decimal.NewFromInt(1))
	b.logger.Debug("swap estimate",
		zap.Uint64("pool_id", pool.ID),
		zap.String("denom_in", denomIn),
		zap.String("denom_out", denomOut),
		zap.String("spot_price", spot.StringFixed(8)),
		zap.String("effective_price", effective.StringFixed(8)),
		zap.String("price_impact", impact.StringFixed(6)),
	)
}

func emit(operation string, gas uint64, touched Touched, msgs ...msg.Msg) (BuiltMessage, error) {
	built := BuiltMessage{
		Operation: operation,
		Signing:   make([]msg.SigningPayload, 0, len(msgs)),
		Wire:      make([]*anypb.Any, 0, len(msgs)),
		Gas:       gas,
		Touched:   Touched{Denoms: dedupe(touched.Denoms), PoolIDs: dedupe(touched.PoolIDs)},
	}
	for _, m := range msgs {
		payload, err := msg.Pack(m)
		if err != nil {
			return BuiltMessage{}, err
		}
		built.Signing = append(built.Signing, msg.NewSigningPayload(m))
		built.Wire = append(built.Wire, payload)
	}
	return built, nil
}

func lookupPool(state State, raw string) (model.PoolSnapshot, error) {
	id, err := parseID(raw, "pool")
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	if state.Pools == nil {
		return model.PoolSnapshot{}, model.Errorf(model.CodePoolNotFound, "pool %d not found", id)
	}
	pool, ok := state.Pools.Pool(id)
	if !ok {
		return model.PoolSnapshot{}, model.Errorf(model.CodePoolNotFound, "pool %d not found", id)
	}
	return pool, nil
}

func parseID(raw, kind string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, model.Wrap(model.CodeInvalidNumericFormat, err, fmt.Sprintf("%s id %q", kind, raw))
	}
	return id, nil
}

// requireDistinct rejects a swap of a denomination into itself.
func requireDistinct(denomIn, denomOut string) error {
	if denomIn == denomOut {
		return model.Errorf(model.CodeMissingField, "swap of %s needs a different token out denom", denomIn)
	}
	return nil
}

func requireAssets(pool model.PoolSnapshot, denoms ...string) error {
	for _, denom := range denoms {
		if _, err := pool.FindAsset(denom); err != nil {
			return err
		}
	}
	return nil
}

// toMinor converts a human amount into a coin and its integer value.
func toMinor(state State, amount model.Amount) (msg.Coin, decimal.Decimal, error) {
	if state.Currencies == nil {
		return msg.Coin{}, decimal.Decimal{}, model.Errorf(model.CodeUnknownCurrency, "no currency registered for %s", amount.Denom)
	}
	currency, err := state.Currencies.Lookup(amount.Denom)
	if err != nil {
		return msg.Coin{}, decimal.Decimal{}, err
	}
	minor, err := fixedpoint.ToInteger(amount.Amount, currency.Exponent)
	if err != nil {
		return msg.Coin{}, decimal.Decimal{}, err
	}
	value, err := fixedpoint.ParseInteger(minor)
	if err != nil {
		return msg.Coin{}, decimal.Decimal{}, err
	}
	return msg.Coin{Denom: amount.Denom, Amount: minor}, value, nil
}

// shareAmount converts a human LP share amount; shares always carry
// ShareDecimals regardless of the pool's assets.
func shareAmount(human string) (decimal.Decimal, error) {
	minor, err := fixedpoint.ToInteger(human, model.ShareDecimals)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return fixedpoint.ParseInteger(minor)
}

func dedupe[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
