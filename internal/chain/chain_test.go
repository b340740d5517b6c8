package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"liquidityTx/internal/account"
	"liquidityTx/internal/builder"
	"liquidityTx/internal/model"
	"liquidityTx/internal/msg"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type stubNode struct {
	mu          sync.Mutex
	checkCode   uint32
	pendingPoll int
	broadcasts  [][]byte
	txQueries   int
}

func (n *stubNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	reply := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "status":
		reply["result"] = map[string]interface{}{
			"node_info": map[string]string{"network": "osmosis-1"},
			"sync_info": map[string]interface{}{
				"latest_block_height": "1234",
				"latest_block_time":   "2024-01-02T03:04:05Z",
				"catching_up":         false,
			},
		}
	case "broadcast_tx_sync":
		var tx []byte
		_ = json.Unmarshal(req.Params[0], &tx)
		n.broadcasts = append(n.broadcasts, tx)
		reply["result"] = map[string]interface{}{
			"code": n.checkCode, "data": "", "log": "", "codespace": "", "hash": "ABCDEF",
		}
	case "tx":
		n.txQueries++
		if n.txQueries <= n.pendingPoll {
			reply["error"] = map[string]interface{}{
				"code": -32603, "message": "Internal error", "data": "tx (ABCDEF) not found",
			}
			break
		}
		reply["result"] = map[string]interface{}{
			"hash":   "ABCDEF",
			"height": "1240",
			"tx_result": map[string]interface{}{
				"code": 0, "log": "", "codespace": "", "gas_wanted": "240000", "gas_used": "180000",
			},
		}
	default:
		reply["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
	}
	_ = json.NewEncoder(w).Encode(reply)
}

type staticSigner struct {
	tx  []byte
	req account.SubmitRequest
}

func (s *staticSigner) Sign(ctx context.Context, req account.SubmitRequest) ([]byte, error) {
	s.req = req
	return s.tx, nil
}

func dial(t *testing.T, node *stubNode) *Client {
	t.Helper()
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)
	client, err := NewClient(context.Background(), server.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestClientStatus(t *testing.T) {
	client := dial(t, &stubNode{})
	status, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "osmosis-1", status.Network)
	require.Equal(t, int64(1234), status.LatestBlockHeight)
	require.False(t, status.CatchingUp)
}

func TestBroadcasterWaitsForCommit(t *testing.T) {
	node := &stubNode{pendingPoll: 2}
	client := dial(t, node)
	signer := &staticSigner{tx: []byte{1, 2, 3}}
	b := NewBroadcaster(client, signer, 10*time.Millisecond, nil)

	receipt, err := b.Submit(context.Background(), account.SubmitRequest{OperationID: "op-1"})
	require.NoError(t, err)
	require.Equal(t, "ABCDEF", receipt.TxHash)
	require.Equal(t, int64(1240), receipt.Height)
	require.Equal(t, uint32(0), receipt.Code)
	require.Equal(t, 3, node.txQueries)
	require.Equal(t, [][]byte{{1, 2, 3}}, node.broadcasts)
	require.Equal(t, "op-1", signer.req.OperationID)
}

func TestBroadcasterCheckTxRejection(t *testing.T) {
	node := &stubNode{checkCode: 13}
	client := dial(t, node)
	b := NewBroadcaster(client, &staticSigner{tx: []byte{9}}, time.Millisecond, nil)

	receipt, err := b.Submit(context.Background(), account.SubmitRequest{})
	require.NoError(t, err)
	require.Equal(t, uint32(13), receipt.Code)
	require.Equal(t, 0, node.txQueries)
}

func TestBroadcasterStopsWithContext(t *testing.T) {
	node := &stubNode{pendingPoll: 1 << 30}
	client := dial(t, node)
	b := NewBroadcaster(client, &staticSigner{tx: []byte{9}}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := b.Submit(ctx, account.SubmitRequest{})
	require.Error(t, err)
}

func sampleRequest(t *testing.T) account.SubmitRequest {
	t.Helper()
	state := builder.State{
		Currencies: model.NewCurrencyRegistry(),
	}
	built, err := builder.New(nil).Prepare("osmo1signer", builder.LockTokens{
		Duration: 24 * time.Hour,
		Tokens:   []model.Amount{{Denom: "gamm/pool/1", Amount: "1"}},
	}, state)
	require.NoError(t, err)
	return account.SubmitRequest{
		OperationID: "op-2",
		Messages:    built,
		Memo:        "memo",
		Fee:         account.Fee{Gas: built.Gas, Amount: []model.Coin{{Denom: "uosmo", Amount: "1125"}}},
		Signer:      "osmo1signer",
	}
}

func TestUnsignedTxDocument(t *testing.T) {
	raw, err := UnsignedTx(sampleRequest(t))
	require.NoError(t, err)

	var doc struct {
		Body struct {
			Messages []map[string]interface{} `json:"messages"`
			Memo     string                   `json:"memo"`
		} `json:"body"`
		AuthInfo struct {
			Fee struct {
				Amount   []msg.Coin `json:"amount"`
				GasLimit string     `json:"gas_limit"`
			} `json:"fee"`
		} `json:"auth_info"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Body.Messages, 1)
	require.Equal(t, msg.TypeURLLockTokens, doc.Body.Messages[0]["@type"])
	require.Equal(t, "86400s", doc.Body.Messages[0]["duration"])
	require.Equal(t, "memo", doc.Body.Memo)
	require.Equal(t, "450000", doc.AuthInfo.Fee.GasLimit)
	require.Equal(t, []msg.Coin{{Denom: "uosmo", Amount: "1125"}}, doc.AuthInfo.Fee.Amount)
}

func TestCommandSignerRunsSignThenEncode(t *testing.T) {
	var calls [][]string
	runner := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, append([]string{name}, args...))
		switch args[1] {
		case "sign":
			unsigned, err := os.ReadFile(args[2])
			if err != nil {
				return nil, err
			}
			if !strings.Contains(string(unsigned), msg.TypeURLLockTokens) {
				t.Errorf("unsigned tx missing message: %s", unsigned)
			}
			out := args[len(args)-1]
			for i, arg := range args {
				if arg == "--output-document" {
					out = args[i+1]
				}
			}
			return nil, os.WriteFile(out, []byte(`{"signed":true}`), 0o600)
		case "encode":
			return []byte(base64.StdEncoding.EncodeToString([]byte{7, 8, 9}) + "\n"), nil
		}
		return nil, nil
	}

	signer := NewCommandSigner("osmosisd", "osmosis-1", "tcp://localhost:26657", "test", nil).WithRunner(runner)
	signer.WorkDir = t.TempDir()
	tx, err := signer.Sign(context.Background(), sampleRequest(t))
	require.NoError(t, err)
	require.Equal(t, []byte{7, 8, 9}, tx)

	require.Len(t, calls, 2)
	require.Equal(t, "osmosisd", calls[0][0])
	require.Contains(t, calls[0], "--chain-id")
	require.Contains(t, calls[0], "osmo1signer")
	require.Contains(t, calls[0], "test")
	require.Equal(t, "encode", calls[1][2])
}
