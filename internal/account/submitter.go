package account

import (
	"context"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"liquidityTx/internal/builder"
	"liquidityTx/internal/model"
)

// Fee is the gas limit and fee amount attached to a transaction.
type Fee struct {
	Gas    uint64
	Amount []model.Coin
}

// SubmitRequest is everything the submitter needs to sign and broadcast.
type SubmitRequest struct {
	OperationID string
	Operation   string
	Messages    builder.BuiltMessage
	Memo        string
	Fee         Fee
	Signer      string
}

// Receipt is the settled outcome of a submission. Code 0 means committed.
type Receipt struct {
	OperationID string
	Operation   string
	TxHash      string
	Code        uint32
	Codespace   string
	Log         string
	Height      int64
	Err         error
}

func (r Receipt) Success() bool {
	return r.Err == nil && r.Code == 0
}

// Submitter signs, broadcasts and waits for settlement. An error means
// the transaction may never have reached the chain; a rejected
// transaction is a receipt with a non-zero code.
type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (Receipt, error)
}

// GasPrice is the fee paid per unit of gas.
type GasPrice struct {
	Amount decimal.Decimal
	Denom  string
}

var gasPricePattern = regexp.MustCompile(`^([0-9]*\.?[0-9]+)([a-zA-Z][a-zA-Z0-9/:._-]*)$`)

// ParseGasPrice parses a price such as "0.0025uosmo". Empty means no fee.
func ParseGasPrice(s string) (GasPrice, error) {
	if s == "" {
		return GasPrice{}, nil
	}
	match := gasPricePattern.FindStringSubmatch(s)
	if match == nil {
		return GasPrice{}, model.Errorf(model.CodeInvalidNumericFormat, "invalid gas price %q", s)
	}
	amount, err := decimal.NewFromString(match[1])
	if err != nil {
		return GasPrice{}, model.Wrap(model.CodeInvalidNumericFormat, err, "parse gas price")
	}
	return GasPrice{Amount: amount, Denom: match[2]}, nil
}

func (p GasPrice) String() string {
	if p.Denom == "" {
		return ""
	}
	return fmt.Sprintf("%s%s", p.Amount.String(), p.Denom)
}

// FeeFor charges gas × price, rounded up to a whole minor unit.
func (p GasPrice) FeeFor(gas uint64) Fee {
	fee := Fee{Gas: gas}
	if p.Denom == "" || p.Amount.IsZero() {
		return fee
	}
	amount := p.Amount.Mul(decimal.NewFromInt(int64(gas))).Ceil()
	fee.Amount = []model.Coin{{Denom: p.Denom, Amount: amount.String()}}
	return fee
}
