package chain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"liquidityTx/internal/account"
	"liquidityTx/internal/msg"
)

// CommandRunner runs an external command and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandSigner signs with the chain's own CLI and keyring.
type CommandSigner struct {
	App            string
	ChainID        string
	Node           string
	KeyringBackend string
	WorkDir        string

	run    CommandRunner
	logger *zap.Logger
}

func NewCommandSigner(app, chainID, node, keyringBackend string, logger *zap.Logger) *CommandSigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandSigner{
		App:            app,
		ChainID:        chainID,
		Node:           node,
		KeyringBackend: keyringBackend,
		run:            execCommand,
		logger:         logger,
	}
}

// WithRunner replaces the command runner.
func (s *CommandSigner) WithRunner(run CommandRunner) *CommandSigner {
	s.run = run
	return s
}

type unsignedTx struct {
	Body       txBody     `json:"body"`
	AuthInfo   txAuthInfo `json:"auth_info"`
	Signatures []string   `json:"signatures"`
}

type txBody struct {
	Messages                    []json.RawMessage `json:"messages"`
	Memo                        string            `json:"memo"`
	TimeoutHeight               string            `json:"timeout_height"`
	ExtensionOptions            []json.RawMessage `json:"extension_options"`
	NonCriticalExtensionOptions []json.RawMessage `json:"non_critical_extension_options"`
}

type txAuthInfo struct {
	SignerInfos []json.RawMessage `json:"signer_infos"`
	Fee         txFee             `json:"fee"`
}

type txFee struct {
	Amount   []msg.Coin `json:"amount"`
	GasLimit string     `json:"gas_limit"`
	Payer    string     `json:"payer"`
	Granter  string     `json:"granter"`
}

// UnsignedTx renders the request as the proto-JSON document `tx sign` reads.
func UnsignedTx(req account.SubmitRequest) ([]byte, error) {
	messages := make([]json.RawMessage, 0, len(req.Messages.Signing))
	for _, m := range req.Messages.Msgs() {
		raw, err := msg.ProtoJSON(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, raw)
	}
	amount := req.Fee.Amount
	if amount == nil {
		amount = []msg.Coin{}
	}
	tx := unsignedTx{
		Body: txBody{
			Messages:                    messages,
			Memo:                        req.Memo,
			TimeoutHeight:               "0",
			ExtensionOptions:            []json.RawMessage{},
			NonCriticalExtensionOptions: []json.RawMessage{},
		},
		AuthInfo: txAuthInfo{
			SignerInfos: []json.RawMessage{},
			Fee: txFee{
				Amount:   amount,
				GasLimit: strconv.FormatUint(req.Fee.Gas, 10),
			},
		},
		Signatures: []string{},
	}
	return json.Marshal(tx)
}

// Sign writes the unsigned tx, signs it with `tx sign` and returns the bytes
// produced by `tx encode`.
func (s *CommandSigner) Sign(ctx context.Context, req account.SubmitRequest) ([]byte, error) {
	if s.App == "" {
		return nil, fmt.Errorf("cli app is required")
	}
	dir, err := os.MkdirTemp(s.WorkDir, "txbuilder-")
	if err != nil {
		return nil, fmt.Errorf("create sign dir: %w", err)
	}
	defer os.RemoveAll(dir)

	unsigned, err := UnsignedTx(req)
	if err != nil {
		return nil, err
	}
	unsignedPath := filepath.Join(dir, "unsigned.json")
	signedPath := filepath.Join(dir, "signed.json")
	if err := os.WriteFile(unsignedPath, unsigned, 0o600); err != nil {
		return nil, fmt.Errorf("write unsigned tx: %w", err)
	}

	args := []string{"tx", "sign", unsignedPath,
		"--from", req.Signer,
		"--chain-id", s.ChainID,
		"--output-document", signedPath,
	}
	if s.Node != "" {
		args = append(args, "--node", s.Node)
	}
	if s.KeyringBackend != "" {
		args = append(args, "--keyring-backend", s.KeyringBackend)
	}
	s.logger.Debug("signing", zap.String("operation_id", req.OperationID), zap.String("signer", req.Signer))
	if _, err := s.run(ctx, s.App, args...); err != nil {
		return nil, fmt.Errorf("tx sign: %w", err)
	}

	out, err := s.run(ctx, s.App, "tx", "encode", signedPath)
	if err != nil {
		return nil, fmt.Errorf("tx encode: %w", err)
	}
	tx, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("decode encoded tx: %w", err)
	}
	return tx, nil
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
