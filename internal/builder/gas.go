package builder

const (
	GasCreatePool             uint64 = 3_000_000
	GasJoinPool               uint64 = 240_000
	GasJoinSwapExternAmountIn uint64 = 140_000
	GasExitPool               uint64 = 280_000
	GasSwapExactAmountIn      uint64 = 250_000
	GasSwapExactAmountOut     uint64 = 250_000
	GasPerHop                 uint64 = 250_000
	GasLockTokens             uint64 = 450_000
	GasPerUnlock              uint64 = 140_000
)

// MultihopGas scales with route length and never drops below one hop.
func MultihopGas(hops int) uint64 {
	if hops < 1 {
		hops = 1
	}
	return GasPerHop * uint64(hops)
}

// BeginUnlockingGas scales with the number of locks.
func BeginUnlockingGas(locks int) uint64 {
	return GasPerUnlock * uint64(locks)
}
