package model

import (
	"fmt"
	"strings"
)

// ShareDecimals is the fixed decimal exponent of every LP share denomination.
const ShareDecimals = 18

const sharePrefix = "gamm/pool/"

// Currency describes a denomination registered on the chain.
type Currency struct {
	Denom    string `json:"denom" mapstructure:"denom"`
	Exponent int32  `json:"exponent" mapstructure:"exponent"`
	Symbol   string `json:"symbol,omitempty" mapstructure:"symbol"`
}

// ShareDenom returns the LP share denomination of a pool.
func ShareDenom(poolID uint64) string {
	return fmt.Sprintf("%s%d", sharePrefix, poolID)
}

// IsShareDenom reports whether denom is an LP share denomination.
func IsShareDenom(denom string) bool {
	return strings.HasPrefix(denom, sharePrefix)
}
