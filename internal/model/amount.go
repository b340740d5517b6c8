package model

// Amount is a human-facing decimal quantity of a denomination.
type Amount struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Coin is an integer amount in minor units.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}
