// Package poolmath estimates trade outcomes against a weighted
// constant-product pool. Estimates are raw: no slippage is applied.
package poolmath

import (
	"github.com/shopspring/decimal"

	"liquidityTx/internal/fixedpoint"
	"liquidityTx/internal/model"
)

// TokenEstimate is an unrounded minor-unit amount of one denomination.
type TokenEstimate struct {
	Denom  string
	Amount decimal.Decimal
}

type weightedAsset struct {
	denom   string
	balance decimal.Decimal
	weight  decimal.Decimal
}

type weightedPool struct {
	id          uint64
	assets      []weightedAsset
	totalWeight decimal.Decimal
	totalShares decimal.Decimal
	swapFee     decimal.Decimal
	exitFee     decimal.Decimal
}

func parsePool(pool model.PoolSnapshot) (weightedPool, error) {
	wp := weightedPool{id: pool.ID, totalWeight: decimal.Zero}
	var err error
	if wp.totalShares, err = fixedpoint.ParseDecimal(orZero(pool.TotalShares)); err != nil {
		return weightedPool{}, err
	}
	if wp.swapFee, err = fixedpoint.ParseDecimal(orZero(pool.SwapFee)); err != nil {
		return weightedPool{}, err
	}
	if wp.exitFee, err = fixedpoint.ParseDecimal(orZero(pool.ExitFee)); err != nil {
		return weightedPool{}, err
	}
	for _, asset := range pool.Assets {
		balance, err := fixedpoint.ParseDecimal(asset.Balance)
		if err != nil {
			return weightedPool{}, err
		}
		weight, err := fixedpoint.ParseDecimal(asset.Weight)
		if err != nil {
			return weightedPool{}, err
		}
		wp.assets = append(wp.assets, weightedAsset{denom: asset.Denom, balance: balance, weight: weight})
		wp.totalWeight = wp.totalWeight.Add(weight)
	}
	return wp, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func (p weightedPool) find(denom string) (weightedAsset, error) {
	for _, asset := range p.assets {
		if asset.denom == denom {
			return asset, nil
		}
	}
	return weightedAsset{}, model.Errorf(model.CodeAssetNotFound, "pool %d has no asset %s", p.id, denom)
}

func (p weightedPool) requireShares() error {
	if p.totalShares.Sign() <= 0 {
		return model.Errorf(model.CodeInsufficientLiquidity, "pool %d has no shares", p.id)
	}
	return nil
}

func (p weightedPool) requireLiquidity(assets ...weightedAsset) error {
	for _, asset := range assets {
		if asset.balance.Sign() <= 0 || asset.weight.Sign() <= 0 {
			return model.Errorf(model.CodeInsufficientLiquidity, "pool %d has no %s liquidity", p.id, asset.denom)
		}
	}
	return nil
}

// solveConstantFunctionInvariant returns how much of the unknown asset
// balance changes when the fixed asset moves from before to after.
func solveConstantFunctionInvariant(
	fixedBefore, fixedAfter, fixedWeight decimal.Decimal,
	unknownBefore, unknownWeight decimal.Decimal,
) decimal.Decimal {
	weightRatio := quo(fixedWeight, unknownWeight)
	y := quo(fixedBefore, fixedAfter)
	yToWeightRatio := Pow(y, weightRatio)
	return unknownBefore.Mul(one.Sub(yToWeightRatio))
}

// EstimateJoinPool returns the tokens required to mint shareOut LP shares.
func EstimateJoinPool(pool model.PoolSnapshot, shareOut decimal.Decimal) ([]TokenEstimate, error) {
	wp, err := parsePool(pool)
	if err != nil {
		return nil, err
	}
	if err := wp.requireShares(); err != nil {
		return nil, err
	}
	ratio := quo(shareOut, wp.totalShares)
	out := make([]TokenEstimate, 0, len(wp.assets))
	for _, asset := range wp.assets {
		out = append(out, TokenEstimate{Denom: asset.denom, Amount: asset.balance.Mul(ratio)})
	}
	return out, nil
}

// EstimateJoinSwapExternAmountIn returns the shares minted by a single-asset join.
func EstimateJoinSwapExternAmountIn(pool model.PoolSnapshot, denomIn string, amountIn decimal.Decimal) (decimal.Decimal, error) {
	wp, err := parsePool(pool)
	if err != nil {
		return decimal.Decimal{}, err
	}
	assetIn, err := wp.find(denomIn)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := wp.requireShares(); err != nil {
		return decimal.Decimal{}, err
	}
	if err := wp.requireLiquidity(assetIn); err != nil {
		return decimal.Decimal{}, err
	}

	normalizedWeight := quo(assetIn.weight, wp.totalWeight)
	feeRatio := one.Sub(one.Sub(normalizedWeight).Mul(wp.swapFee))
	amountInAfterFee := amountIn.Mul(feeRatio)
	base := one.Add(quo(amountInAfterFee, assetIn.balance))
	return wp.totalShares.Mul(Pow(base, normalizedWeight).Sub(one)), nil
}

// EstimateExitPool returns the tokens released by burning shareIn LP shares.
func EstimateExitPool(pool model.PoolSnapshot, shareIn decimal.Decimal) ([]TokenEstimate, error) {
	wp, err := parsePool(pool)
	if err != nil {
		return nil, err
	}
	if err := wp.requireShares(); err != nil {
		return nil, err
	}
	shareInAfterFee := shareIn.Mul(one.Sub(wp.exitFee))
	ratio := quo(shareInAfterFee, wp.totalShares)
	out := make([]TokenEstimate, 0, len(wp.assets))
	for _, asset := range wp.assets {
		out = append(out, TokenEstimate{Denom: asset.denom, Amount: asset.balance.Mul(ratio)})
	}
	return out, nil
}

// EstimateSwapExactAmountIn returns the tokens out for an exact tokens in.
func EstimateSwapExactAmountIn(pool model.PoolSnapshot, denomIn string, amountIn decimal.Decimal, denomOut string) (decimal.Decimal, error) {
	wp, err := parsePool(pool)
	if err != nil {
		return decimal.Decimal{}, err
	}
	assetIn, err := wp.find(denomIn)
	if err != nil {
		return decimal.Decimal{}, err
	}
	assetOut, err := wp.find(denomOut)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := wp.requireLiquidity(assetIn, assetOut); err != nil {
		return decimal.Decimal{}, err
	}

	amountInAfterFee := amountIn.Mul(one.Sub(wp.swapFee))
	balanceInAfter := assetIn.balance.Add(amountInAfterFee)
	return solveConstantFunctionInvariant(
		assetIn.balance, balanceInAfter, assetIn.weight,
		assetOut.balance, assetOut.weight,
	), nil
}

// EstimateSwapExactAmountOut returns the tokens in required for an exact tokens out.
func EstimateSwapExactAmountOut(pool model.PoolSnapshot, denomIn string, denomOut string, amountOut decimal.Decimal) (decimal.Decimal, error) {
	wp, err := parsePool(pool)
	if err != nil {
		return decimal.Decimal{}, err
	}
	assetIn, err := wp.find(denomIn)
	if err != nil {
		return decimal.Decimal{}, err
	}
	assetOut, err := wp.find(denomOut)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := wp.requireLiquidity(assetIn, assetOut); err != nil {
		return decimal.Decimal{}, err
	}
	if amountOut.GreaterThanOrEqual(assetOut.balance) {
		return decimal.Decimal{}, model.Errorf(model.CodeInsufficientLiquidity,
			"pool %d holds %s %s, cannot pay out %s", wp.id, assetOut.balance, denomOut, amountOut)
	}
	if wp.swapFee.GreaterThanOrEqual(one) {
		return decimal.Decimal{}, model.Errorf(model.CodeInvalidNumericFormat, "pool %d swap fee %s", wp.id, wp.swapFee)
	}

	balanceOutAfter := assetOut.balance.Sub(amountOut)
	amountIn := solveConstantFunctionInvariant(
		assetOut.balance, balanceOutAfter, assetOut.weight,
		assetIn.balance, assetIn.weight,
	).Neg()
	return quo(amountIn, one.Sub(wp.swapFee)), nil
}

// SpotPrice returns (Bi/Wi)/(Bo/Wo), the price of denomOut in units of denomIn.
func SpotPrice(pool model.PoolSnapshot, denomIn, denomOut string) (decimal.Decimal, error) {
	wp, err := parsePool(pool)
	if err != nil {
		return decimal.Decimal{}, err
	}
	assetIn, err := wp.find(denomIn)
	if err != nil {
		return decimal.Decimal{}, err
	}
	assetOut, err := wp.find(denomOut)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := wp.requireLiquidity(assetIn, assetOut); err != nil {
		return decimal.Decimal{}, err
	}
	ratioIn := quo(assetIn.balance, assetIn.weight)
	ratioOut := quo(assetOut.balance, assetOut.weight)
	return quo(ratioIn, ratioOut), nil
}
