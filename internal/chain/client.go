package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client talks to a CometBFT node over JSON-RPC.
type Client struct {
	rpcClient *rpc.Client
}

// NewClient dials the node RPC URL (http, https or ws).
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return &Client{rpcClient: rpcClient}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

type NodeStatus struct {
	Network           string
	LatestBlockHeight int64
	LatestBlockTime   time.Time
	CatchingUp        bool
}

type statusResult struct {
	NodeInfo struct {
		Network string `json:"network"`
	} `json:"node_info"`
	SyncInfo struct {
		LatestBlockHeight int64     `json:"latest_block_height,string"`
		LatestBlockTime   time.Time `json:"latest_block_time"`
		CatchingUp        bool      `json:"catching_up"`
	} `json:"sync_info"`
}

// Status returns the chain id and head of the node.
func (c *Client) Status(ctx context.Context) (NodeStatus, error) {
	var res statusResult
	if err := c.rpcClient.CallContext(ctx, &res, "status"); err != nil {
		return NodeStatus{}, fmt.Errorf("status: %w", err)
	}
	return NodeStatus{
		Network:           res.NodeInfo.Network,
		LatestBlockHeight: res.SyncInfo.LatestBlockHeight,
		LatestBlockTime:   res.SyncInfo.LatestBlockTime,
		CatchingUp:        res.SyncInfo.CatchingUp,
	}, nil
}

// BroadcastResult is the check-tx outcome of a broadcast.
type BroadcastResult struct {
	Code      uint32 `json:"code"`
	Data      string `json:"data"`
	Log       string `json:"log"`
	Codespace string `json:"codespace"`
	Hash      string `json:"hash"`
}

// BroadcastTxSync submits signed tx bytes and waits for check-tx.
func (c *Client) BroadcastTxSync(ctx context.Context, tx []byte) (BroadcastResult, error) {
	var res BroadcastResult
	if err := c.rpcClient.CallContext(ctx, &res, "broadcast_tx_sync", tx); err != nil {
		return BroadcastResult{}, fmt.Errorf("broadcast_tx_sync: %w", err)
	}
	return res, nil
}

// TxResult is a committed transaction.
type TxResult struct {
	Hash     string `json:"hash"`
	Height   int64  `json:"height,string"`
	TxResult struct {
		Code      uint32 `json:"code"`
		Log       string `json:"log"`
		Codespace string `json:"codespace"`
		GasWanted int64  `json:"gas_wanted,string"`
		GasUsed   int64  `json:"gas_used,string"`
	} `json:"tx_result"`
}

// Tx looks up a committed transaction by hex hash. ok is false while the
// transaction is not yet in a block.
func (c *Client) Tx(ctx context.Context, hash string) (TxResult, bool, error) {
	var raw json.RawMessage
	err := c.rpcClient.CallContext(ctx, &raw, "tx", common.FromHex(hash), false)
	if err != nil {
		if isNotFound(err) {
			return TxResult{}, false, nil
		}
		return TxResult{}, false, fmt.Errorf("tx %s: %w", hash, err)
	}
	var res TxResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return TxResult{}, false, fmt.Errorf("decode tx %s: %w", hash, err)
	}
	return res, true, nil
}

// isNotFound matches the node's "tx (...) not found" error, which carries the
// detail in the error data rather than the message.
func isNotFound(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok && strings.Contains(data, "not found") {
			return true
		}
	}
	return strings.Contains(err.Error(), "not found")
}
