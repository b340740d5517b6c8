package model

import "sync"

// CurrencyRegistry resolves denominations to currencies. LP share
// denominations resolve without registration.
type CurrencyRegistry struct {
	mu   sync.RWMutex
	data map[string]Currency
}

func NewCurrencyRegistry(currencies ...Currency) *CurrencyRegistry {
	r := &CurrencyRegistry{data: make(map[string]Currency, len(currencies))}
	for _, c := range currencies {
		r.data[c.Denom] = c
	}
	return r
}

func (r *CurrencyRegistry) Set(c Currency) {
	r.mu.Lock()
	r.data[c.Denom] = c
	r.mu.Unlock()
}

// Lookup returns the currency for denom or an UNKNOWN_CURRENCY error.
func (r *CurrencyRegistry) Lookup(denom string) (Currency, error) {
	r.mu.RLock()
	c, ok := r.data[denom]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}
	if IsShareDenom(denom) {
		return Currency{Denom: denom, Exponent: ShareDecimals, Symbol: "GAMM"}, nil
	}
	return Currency{}, Errorf(CodeUnknownCurrency, "no currency registered for %s", denom)
}
