// Package msg defines the chain messages the builder emits, their amino JSON
// signing form and their protobuf wire form.
package msg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"liquidityTx/internal/model"
)

const (
	AminoCreateBalancerPool     = "osmosis/gamm/create-balancer-pool"
	AminoJoinPool               = "osmosis/gamm/join-pool"
	AminoJoinSwapExternAmountIn = "osmosis/gamm/join-swap-extern-amount-in"
	AminoExitPool               = "osmosis/gamm/exit-pool"
	AminoSwapExactAmountIn      = "osmosis/gamm/swap-exact-amount-in"
	AminoSwapExactAmountOut     = "osmosis/gamm/swap-exact-amount-out"
	AminoLockTokens             = "osmosis/lockup/lock-tokens"
	AminoBeginUnlocking         = "osmosis/lockup/begin-unlock-period-lock"
)

const (
	TypeURLCreateBalancerPool     = "/osmosis.gamm.poolmodels.balancer.v1beta1.MsgCreateBalancerPool"
	TypeURLJoinPool               = "/osmosis.gamm.v1beta1.MsgJoinPool"
	TypeURLJoinSwapExternAmountIn = "/osmosis.gamm.v1beta1.MsgJoinSwapExternAmountIn"
	TypeURLExitPool               = "/osmosis.gamm.v1beta1.MsgExitPool"
	TypeURLSwapExactAmountIn      = "/osmosis.gamm.v1beta1.MsgSwapExactAmountIn"
	TypeURLSwapExactAmountOut     = "/osmosis.gamm.v1beta1.MsgSwapExactAmountOut"
	TypeURLLockTokens             = "/osmosis.lockup.MsgLockTokens"
	TypeURLBeginUnlocking         = "/osmosis.lockup.MsgBeginUnlocking"
)

// Msg is a chain message with both representations.
type Msg interface {
	AminoType() string
	TypeURL() string
	MarshalWire() ([]byte, error)
	unmarshalWire(b []byte) error
}

type Coin = model.Coin

type PoolParams struct {
	SwapFee string `json:"swapFee"`
	ExitFee string `json:"exitFee"`
}

type PoolAsset struct {
	Token  Coin   `json:"token"`
	Weight string `json:"weight"`
}

type MsgCreateBalancerPool struct {
	Sender             string      `json:"sender"`
	PoolParams         PoolParams  `json:"poolParams"`
	PoolAssets         []PoolAsset `json:"poolAssets"`
	FuturePoolGovernor string      `json:"future_pool_governor"`
}

func (*MsgCreateBalancerPool) AminoType() string { return AminoCreateBalancerPool }
func (*MsgCreateBalancerPool) TypeURL() string   { return TypeURLCreateBalancerPool }

type MsgJoinPool struct {
	Sender         string `json:"sender"`
	PoolID         uint64 `json:"poolId,string"`
	ShareOutAmount string `json:"shareOutAmount"`
	TokenInMaxs    []Coin `json:"tokenInMaxs,omitempty"`
}

func (*MsgJoinPool) AminoType() string { return AminoJoinPool }
func (*MsgJoinPool) TypeURL() string   { return TypeURLJoinPool }

type MsgJoinSwapExternAmountIn struct {
	Sender            string `json:"sender"`
	PoolID            uint64 `json:"poolId,string"`
	TokenIn           Coin   `json:"tokenIn"`
	ShareOutMinAmount string `json:"shareOutMinAmount,omitempty"`
}

func (*MsgJoinSwapExternAmountIn) AminoType() string { return AminoJoinSwapExternAmountIn }
func (*MsgJoinSwapExternAmountIn) TypeURL() string   { return TypeURLJoinSwapExternAmountIn }

type MsgExitPool struct {
	Sender        string `json:"sender"`
	PoolID        uint64 `json:"poolId,string"`
	ShareInAmount string `json:"shareInAmount"`
	TokenOutMins  []Coin `json:"tokenOutMins,omitempty"`
}

func (*MsgExitPool) AminoType() string { return AminoExitPool }
func (*MsgExitPool) TypeURL() string   { return TypeURLExitPool }

type SwapAmountInRoute struct {
	PoolID        uint64 `json:"poolId,string"`
	TokenOutDenom string `json:"tokenOutDenom"`
}

type MsgSwapExactAmountIn struct {
	Sender            string              `json:"sender"`
	Routes            []SwapAmountInRoute `json:"routes"`
	TokenIn           Coin                `json:"tokenIn"`
	TokenOutMinAmount string              `json:"tokenOutMinAmount,omitempty"`
}

func (*MsgSwapExactAmountIn) AminoType() string { return AminoSwapExactAmountIn }
func (*MsgSwapExactAmountIn) TypeURL() string   { return TypeURLSwapExactAmountIn }

type SwapAmountOutRoute struct {
	PoolID       uint64 `json:"poolId,string"`
	TokenInDenom string `json:"tokenInDenom"`
}

type MsgSwapExactAmountOut struct {
	Sender           string               `json:"sender"`
	Routes           []SwapAmountOutRoute `json:"routes"`
	TokenInMaxAmount string               `json:"tokenInMaxAmount,omitempty"`
	TokenOut         Coin                 `json:"tokenOut"`
}

func (*MsgSwapExactAmountOut) AminoType() string { return AminoSwapExactAmountOut }
func (*MsgSwapExactAmountOut) TypeURL() string   { return TypeURLSwapExactAmountOut }

// Duration is a lock duration; amino renders it as a nanosecond string.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(d), 10))
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	ns, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(ns)
	return nil
}

type MsgLockTokens struct {
	Owner    string   `json:"owner"`
	Duration Duration `json:"duration"`
	Coins    []Coin   `json:"coins"`
}

func (*MsgLockTokens) AminoType() string { return AminoLockTokens }
func (*MsgLockTokens) TypeURL() string   { return TypeURLLockTokens }

type MsgBeginUnlocking struct {
	Owner string `json:"owner"`
	ID    uint64 `json:"ID,string"`
	Coins []Coin `json:"coins,omitempty"`
}

func (*MsgBeginUnlocking) AminoType() string { return AminoBeginUnlocking }
func (*MsgBeginUnlocking) TypeURL() string   { return TypeURLBeginUnlocking }

// SigningPayload is the amino JSON record a wallet signs.
type SigningPayload struct {
	Type  string `json:"type"`
	Value Msg    `json:"value"`
}

func NewSigningPayload(m Msg) SigningPayload {
	return SigningPayload{Type: m.AminoType(), Value: m}
}
