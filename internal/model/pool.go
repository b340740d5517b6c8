package model

// PoolAsset is one reserve of a weighted pool, amounts in minor units.
type PoolAsset struct {
	Denom   string `json:"denom"`
	Balance string `json:"balance"`
	Weight  string `json:"weight"`
}

// PoolSnapshot is a read-only view of a pool as last fetched from the chain.
type PoolSnapshot struct {
	ID          uint64      `json:"id"`
	Assets      []PoolAsset `json:"assets"`
	TotalShares string      `json:"total_shares"`
	SwapFee     string      `json:"swap_fee"`
	ExitFee     string      `json:"exit_fee"`
}

// ShareDenom returns the LP share denomination of the pool.
func (p PoolSnapshot) ShareDenom() string {
	return ShareDenom(p.ID)
}

// FindAsset returns the pool asset with the given denomination.
func (p PoolSnapshot) FindAsset(denom string) (PoolAsset, error) {
	for _, asset := range p.Assets {
		if asset.Denom == denom {
			return asset, nil
		}
	}
	return PoolAsset{}, Errorf(CodeAssetNotFound, "pool %d has no asset %s", p.ID, denom)
}

// Denoms lists the asset denominations in pool order.
func (p PoolSnapshot) Denoms() []string {
	out := make([]string, 0, len(p.Assets))
	for _, asset := range p.Assets {
		out = append(out, asset.Denom)
	}
	return out
}

// Balance is an account balance in minor units.
type Balance struct {
	Address string `json:"address"`
	Denom   string `json:"denom"`
	Amount  string `json:"amount"`
}
