package poolmath

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"liquidityTx/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertClose(t *testing.T, label string, got decimal.Decimal, want float64, relTol float64) {
	t.Helper()
	g := got.InexactFloat64()
	if want == 0 {
		if math.Abs(g) > relTol {
			t.Fatalf("%s: got %v want 0", label, g)
		}
		return
	}
	if math.Abs(g-want)/math.Abs(want) > relTol {
		t.Fatalf("%s: got %v want %v", label, g, want)
	}
}

func twoAssetPool() model.PoolSnapshot {
	return model.PoolSnapshot{
		ID: 1,
		Assets: []model.PoolAsset{
			{Denom: "uatom", Balance: "1000", Weight: "100"},
			{Denom: "uosmo", Balance: "2000", Weight: "100"},
		},
		TotalShares: "100000000000000000000",
		SwapFee:     "0",
		ExitFee:     "0",
	}
}

func TestPow(t *testing.T) {
	if got := Pow(dec("0.5"), dec("3")); !got.Equal(dec("0.125")) {
		t.Fatalf("integer pow mismatch: %s", got)
	}
	if got := Pow(dec("7"), decimal.Zero); !got.Equal(one) {
		t.Fatalf("zero exponent mismatch: %s", got)
	}
	cases := []struct {
		base, exp string
	}{
		{"0.81", "0.5"},
		{"1.21", "0.5"},
		{"0.5", "2.5"},
		{"3", "0.25"},
		{"0.999", "4"},
		{"1.01", "0.2"},
		{"0.2", "0.8"},
		{"0.01", "0.333333333333333333"},
		{"0.001", "0.333333333333333333"},
		{"0.000001", "0.75"},
		{"0.00000000000001", "0.5"},
		{"1000", "0.333333333333333333"},
	}
	for _, tc := range cases {
		want := math.Pow(dec(tc.base).InexactFloat64(), dec(tc.exp).InexactFloat64())
		assertClose(t, tc.base+"^"+tc.exp, Pow(dec(tc.base), dec(tc.exp)), want, 1e-6)
	}
}

func TestEstimateJoinPool(t *testing.T) {
	est, err := EstimateJoinPool(twoAssetPool(), dec("1000000000000000000"))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if len(est) != 2 {
		t.Fatalf("estimate size: %d", len(est))
	}
	if est[0].Denom != "uatom" || !est[0].Amount.Equal(dec("10")) {
		t.Fatalf("uatom estimate: %+v", est[0])
	}
	if est[1].Denom != "uosmo" || !est[1].Amount.Equal(dec("20")) {
		t.Fatalf("uosmo estimate: %+v", est[1])
	}
}

func TestEstimateExitPoolAppliesExitFee(t *testing.T) {
	pool := twoAssetPool()
	pool.ExitFee = "0.01"
	est, err := EstimateExitPool(pool, dec("5000000000000000000"))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !est[0].Amount.Equal(dec("49.5")) || !est[1].Amount.Equal(dec("99")) {
		t.Fatalf("exit estimate mismatch: %+v", est)
	}
}

func TestEstimateWithoutSharesFails(t *testing.T) {
	pool := twoAssetPool()
	pool.TotalShares = "0"
	if _, err := EstimateJoinPool(pool, dec("1")); !errors.Is(err, model.ErrInsufficientLiquidity) {
		t.Fatalf("expected insufficient liquidity, got %v", err)
	}
}

func TestEstimateSwapExactAmountInBalanced(t *testing.T) {
	pool := model.PoolSnapshot{
		ID: 2,
		Assets: []model.PoolAsset{
			{Denom: "uatom", Balance: "1000000", Weight: "1"},
			{Denom: "uosmo", Balance: "1000000", Weight: "1"},
		},
		TotalShares: "1",
	}
	out, err := EstimateSwapExactAmountIn(pool, "uatom", dec("1000"), "uosmo")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if out.Truncate(0).String() != "999" {
		t.Fatalf("out mismatch: %s", out)
	}
	assertClose(t, "balanced out", out, 1e6*1000/1001000, 1e-12)
}

func TestEstimateSwapExactAmountInWeighted(t *testing.T) {
	pool := model.PoolSnapshot{
		ID: 3,
		Assets: []model.PoolAsset{
			{Denom: "uatom", Balance: "5000000", Weight: "80"},
			{Denom: "uosmo", Balance: "2000000", Weight: "20"},
		},
		TotalShares: "1",
		SwapFee:     "0.003",
	}
	out, err := EstimateSwapExactAmountIn(pool, "uatom", dec("25000"), "uosmo")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	inAfterFee := 25000 * 0.997
	want := 2000000 * (1 - math.Pow(5000000/(5000000+inAfterFee), 4))
	assertClose(t, "weighted out", out, want, 1e-9)

	reverse, err := EstimateSwapExactAmountIn(pool, "uosmo", dec("25000"), "uatom")
	if err != nil {
		t.Fatalf("estimate reverse: %v", err)
	}
	wantReverse := 5000000 * (1 - math.Pow(2000000/(2000000+inAfterFee), 0.25))
	assertClose(t, "weighted reverse out", reverse, wantReverse, 1e-6)
}

func TestEstimateSwapExactAmountOut(t *testing.T) {
	pool := model.PoolSnapshot{
		ID: 4,
		Assets: []model.PoolAsset{
			{Denom: "uatom", Balance: "1000000", Weight: "1"},
			{Denom: "uosmo", Balance: "1000000", Weight: "1"},
		},
		TotalShares: "1",
		SwapFee:     "0.003",
	}
	in, err := EstimateSwapExactAmountOut(pool, "uatom", "uosmo", dec("1000"))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	want := 1e6 * (1e6/999000.0 - 1) / 0.997
	assertClose(t, "exact out", in, want, 1e-9)

	if _, err := EstimateSwapExactAmountOut(pool, "uatom", "uosmo", dec("1000000")); !errors.Is(err, model.ErrInsufficientLiquidity) {
		t.Fatalf("expected insufficient liquidity, got %v", err)
	}
}

func TestEstimateSwapExactAmountOutNearDrain(t *testing.T) {
	pool := model.PoolSnapshot{
		ID: 5,
		Assets: []model.PoolAsset{
			{Denom: "uion", Balance: "1000000000", Weight: "1"},
			{Denom: "uatom", Balance: "3000000000", Weight: "3"},
		},
		TotalShares: "1",
		SwapFee:     "0",
	}
	// 1e9 / 1e6 = 1000 and 1000^(1/3) = 10, so the input is 3e9 * 9.
	in, err := EstimateSwapExactAmountOut(pool, "uatom", "uion", dec("999000000"))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	assertClose(t, "near drain exact out", in, 27e9, 1e-9)

	out, err := EstimateSwapExactAmountIn(pool, "uatom", in, "uion")
	if err != nil {
		t.Fatalf("estimate reverse: %v", err)
	}
	assertClose(t, "near drain round trip", out, 999000000, 1e-9)
}

func TestEstimateJoinSwapExternAmountIn(t *testing.T) {
	pool := model.PoolSnapshot{
		ID: 5,
		Assets: []model.PoolAsset{
			{Denom: "uatom", Balance: "1000000", Weight: "50"},
			{Denom: "uosmo", Balance: "3000000", Weight: "50"},
		},
		TotalShares: "100000000000000000000",
		SwapFee:     "0.002",
	}
	shares, err := EstimateJoinSwapExternAmountIn(pool, "uatom", dec("10000"))
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	inAfterFee := 10000 * (1 - 0.5*0.002)
	want := 100e18 * (math.Pow(1+inAfterFee/1e6, 0.5) - 1)
	assertClose(t, "join swap shares", shares, want, 1e-7)
}

func TestEstimateUnknownAsset(t *testing.T) {
	if _, err := EstimateSwapExactAmountIn(twoAssetPool(), "uion", dec("1"), "uosmo"); !errors.Is(err, model.ErrAssetNotFound) {
		t.Fatalf("expected asset not found, got %v", err)
	}
	if _, err := EstimateJoinSwapExternAmountIn(twoAssetPool(), "uion", dec("1")); !errors.Is(err, model.ErrAssetNotFound) {
		t.Fatalf("expected asset not found, got %v", err)
	}
}

func TestEstimateMalformedPool(t *testing.T) {
	pool := twoAssetPool()
	pool.Assets[0].Balance = "12abc"
	if _, err := EstimateExitPool(pool, dec("1")); !errors.Is(err, model.ErrInvalidNumericFormat) {
		t.Fatalf("expected invalid numeric format, got %v", err)
	}
}

func TestSpotPrice(t *testing.T) {
	price, err := SpotPrice(twoAssetPool(), "uatom", "uosmo")
	if err != nil {
		t.Fatalf("spot price: %v", err)
	}
	if !price.Equal(dec("0.5")) {
		t.Fatalf("spot price mismatch: %s", price)
	}
}
