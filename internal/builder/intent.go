package builder

import (
	"time"

	"liquidityTx/internal/model"
)

// TradeIntent is one of the operations the builder knows how to prepare.
// The set is closed; Prepare switches over every variant.
type TradeIntent interface {
	Operation() string
	isTradeIntent()
}

const (
	OpCreatePool                = "createPool"
	OpJoinPool                  = "joinPool"
	OpJoinSwapExternAmountIn    = "joinSwapExternAmountIn"
	OpExitPool                  = "exitPool"
	OpSwapExactAmountIn         = "swapExactAmountIn"
	OpSwapExactAmountOut        = "swapExactAmountOut"
	OpMultihopSwapExactAmountIn = "multihopSwapExactAmountIn"
	OpLockTokens                = "lockTokens"
	OpBeginUnlocking            = "beginUnlocking"
)

// CreatePoolAsset is an initial reserve. Amount is human decimal, Weight an
// integer.
type CreatePoolAsset struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
	Weight string `json:"weight"`
}

// CreatePool takes SwapFee as a percentage ("0.3" means 0.3%).
type CreatePool struct {
	SwapFee string
	Assets  []CreatePoolAsset
}

// JoinPool mints ShareOutAmount LP shares (human units).
type JoinPool struct {
	PoolID         string
	ShareOutAmount string
	MaxSlippage    string
}

type JoinSwapExternAmountIn struct {
	PoolID      string
	TokenIn     model.Amount
	MaxSlippage string
}

// ExitPool burns ShareInAmount LP shares (human units).
type ExitPool struct {
	PoolID        string
	ShareInAmount string
	MaxSlippage   string
}

type SwapExactAmountIn struct {
	PoolID        string
	TokenIn       model.Amount
	TokenOutDenom string
	MaxSlippage   string
}

type SwapExactAmountOut struct {
	PoolID       string
	TokenInDenom string
	TokenOut     model.Amount
	MaxSlippage  string
}

// Hop is one leg of a multi-hop route.
type Hop struct {
	PoolID        string
	TokenOutDenom string
}

type MultihopSwapExactAmountIn struct {
	Routes      []Hop
	TokenIn     model.Amount
	MaxSlippage string
}

type LockTokens struct {
	Duration time.Duration
	Tokens   []model.Amount
}

type BeginUnlocking struct {
	LockIDs []string
}

func (CreatePool) Operation() string                { return OpCreatePool }
func (JoinPool) Operation() string                  { return OpJoinPool }
func (JoinSwapExternAmountIn) Operation() string    { return OpJoinSwapExternAmountIn }
func (ExitPool) Operation() string                  { return OpExitPool }
func (SwapExactAmountIn) Operation() string         { return OpSwapExactAmountIn }
func (SwapExactAmountOut) Operation() string        { return OpSwapExactAmountOut }
func (MultihopSwapExactAmountIn) Operation() string { return OpMultihopSwapExactAmountIn }
func (LockTokens) Operation() string                { return OpLockTokens }
func (BeginUnlocking) Operation() string            { return OpBeginUnlocking }

func (CreatePool) isTradeIntent()                {}
func (JoinPool) isTradeIntent()                  {}
func (JoinSwapExternAmountIn) isTradeIntent()    {}
func (ExitPool) isTradeIntent()                  {}
func (SwapExactAmountIn) isTradeIntent()         {}
func (SwapExactAmountOut) isTradeIntent()        {}
func (MultihopSwapExactAmountIn) isTradeIntent() {}
func (LockTokens) isTradeIntent()                {}
func (BeginUnlocking) isTradeIntent()            {}

// PoolIDs lists the pools the intent reads, in route order.
func PoolIDs(intent TradeIntent) []string {
	switch in := intent.(type) {
	case JoinPool:
		return []string{in.PoolID}
	case JoinSwapExternAmountIn:
		return []string{in.PoolID}
	case ExitPool:
		return []string{in.PoolID}
	case SwapExactAmountIn:
		return []string{in.PoolID}
	case SwapExactAmountOut:
		return []string{in.PoolID}
	case MultihopSwapExactAmountIn:
		ids := make([]string, 0, len(in.Routes))
		for _, hop := range in.Routes {
			ids = append(ids, hop.PoolID)
		}
		return ids
	default:
		return nil
	}
}
