package chain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"liquidityTx/internal/account"
)

const defaultPollInterval = time.Second

// Signer turns a submit request into signed tx bytes.
type Signer interface {
	Sign(ctx context.Context, req account.SubmitRequest) ([]byte, error)
}

// TxClient is the part of Client the broadcaster uses.
type TxClient interface {
	BroadcastTxSync(ctx context.Context, tx []byte) (BroadcastResult, error)
	Tx(ctx context.Context, hash string) (TxResult, bool, error)
}

// Broadcaster signs, broadcasts and waits for inclusion.
type Broadcaster struct {
	client       TxClient
	signer       Signer
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewBroadcaster(client TxClient, signer Signer, pollInterval time.Duration, logger *zap.Logger) *Broadcaster {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{client: client, signer: signer, pollInterval: pollInterval, logger: logger}
}

// Submit blocks until the transaction is committed, rejected at check-tx,
// or ctx ends.
func (b *Broadcaster) Submit(ctx context.Context, req account.SubmitRequest) (account.Receipt, error) {
	tx, err := b.signer.Sign(ctx, req)
	if err != nil {
		return account.Receipt{}, fmt.Errorf("sign: %w", err)
	}

	res, err := b.client.BroadcastTxSync(ctx, tx)
	if err != nil {
		return account.Receipt{}, err
	}
	receipt := account.Receipt{
		TxHash:    res.Hash,
		Code:      res.Code,
		Codespace: res.Codespace,
		Log:       res.Log,
	}
	if res.Code != 0 {
		b.logger.Warn("check tx rejected",
			zap.String("operation_id", req.OperationID),
			zap.String("tx_hash", res.Hash),
			zap.Uint32("code", res.Code),
			zap.String("log", res.Log),
		)
		return receipt, nil
	}

	committed, err := b.waitForTx(ctx, res.Hash)
	if err != nil {
		return receipt, err
	}
	receipt.Height = committed.Height
	receipt.Code = committed.TxResult.Code
	receipt.Codespace = committed.TxResult.Codespace
	receipt.Log = committed.TxResult.Log
	b.logger.Debug("tx committed",
		zap.String("tx_hash", res.Hash),
		zap.Int64("height", committed.Height),
		zap.Int64("gas_used", committed.TxResult.GasUsed),
	)
	return receipt, nil
}

func (b *Broadcaster) waitForTx(ctx context.Context, hash string) (TxResult, error) {
	for {
		res, ok, err := b.client.Tx(ctx, hash)
		if err != nil {
			return TxResult{}, err
		}
		if ok {
			return res, nil
		}

		timer := time.NewTimer(b.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return TxResult{}, fmt.Errorf("wait for tx %s: %w", hash, ctx.Err())
		case <-timer.C:
		}
	}
}
