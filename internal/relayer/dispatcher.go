// Package relayer submits encoded contract calls to the protocol's relayer
// service under bearer authorization and polls for their confirmation.
package relayer

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/auth"
	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/observability/metrics"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/pkg/logger"
)

// Transaction status values reported by the relayer.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// Submission is the relayer's response to a transaction submission.
type Submission struct {
	TransactionHash string `json:"transaction_hash"`
	Status          string `json:"status"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
	GasUsed         uint64 `json:"gas_used,omitempty"`
	Error           string `json:"error,omitempty"`
}

// TxStatus is the relayer's answer to a status query.
type TxStatus struct {
	TransactionHash   string         `json:"transaction_hash"`
	Status            string         `json:"status"`
	BlockNumber       uint64         `json:"block_number,omitempty"`
	ConfirmationCount int            `json:"confirmation_count,omitempty"`
	Receipt           map[string]any `json:"receipt,omitempty"`
}

// PollConfig bounds the confirmation wait loop.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// Config describes a relayer endpoint.
type Config struct {
	URL             string
	DefaultGasLimit uint64
	Poll            PollConfig
}

// CallEncoder is the subset of a contract surface the dispatcher needs to
// turn a method call into raw call data.
type CallEncoder interface {
	Pack(method string, args ...any) ([]byte, error)
	Target() string
}

// CallOptions tune a single relayed call.
type CallOptions struct {
	Value         string
	GasLimit      uint64
	Confirmations int
}

// Dispatcher submits transactions to the relayer and tracks the in-flight
// set. The pending set is bookkeeping only; its contents never gate
// behaviour.
type Dispatcher struct {
	baseURL  string
	tokens   *auth.TokenManager
	client   *http.Client
	log      *slog.Logger
	gasLimit uint64
	poll     PollConfig

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewDispatcher constructs a dispatcher for the configured relayer endpoint.
func NewDispatcher(cfg Config, tokens *auth.TokenManager) (*Dispatcher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, xerrors.New(xerrors.CodeConfiguration, "relayer url is required")
	}
	if tokens == nil {
		return nil, xerrors.New(xerrors.CodeConfiguration, "relayer requires a token manager")
	}
	if cfg.DefaultGasLimit == 0 {
		cfg.DefaultGasLimit = 500_000
	}
	if cfg.Poll.Interval <= 0 {
		cfg.Poll.Interval = 3 * time.Second
	}
	if cfg.Poll.MaxAttempts <= 0 {
		cfg.Poll.MaxAttempts = 20
	}
	return &Dispatcher{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		tokens:   tokens,
		client:   &http.Client{Timeout: 30 * time.Second},
		log:      logger.Named("relayer"),
		gasLimit: cfg.DefaultGasLimit,
		poll:     cfg.Poll,
		pending:  make(map[string]struct{}),
	}, nil
}

// Submit posts an encoded call to the relayer's transaction endpoint and
// records the returned hash as pending. The returned status is whatever the
// relayer reported; it is never assumed confirmed.
func (d *Dispatcher) Submit(ctx context.Context, to, data, value string, gasLimit uint64) (*Submission, error) {
	if value == "" {
		value = "0"
	}
	if gasLimit == 0 {
		gasLimit = d.gasLimit
	}
	requestID := uuid.NewString()

	payload := map[string]any{
		"to":        to,
		"data":      data,
		"value":     value,
		"gas_limit": gasLimit,
	}
	var submission Submission
	err := d.doJSON(ctx, http.MethodPost, d.baseURL+"/transactions", requestID, payload, &submission)
	metrics.ObserveRelayerRequest("submit", err)
	if err != nil {
		d.log.Error("transaction submission failed",
			slog.String("to", to), slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, xerrors.Wrap(xerrors.CodeRelayerFailure, err, "transaction submission failed",
			xerrors.WithMetadata("request_id", requestID))
	}
	if err := validateStatus(submission.Status); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRelayerFailure, err, "unexpected submission response",
			xerrors.WithMetadata("request_id", requestID))
	}
	if submission.TransactionHash == "" {
		return nil, xerrors.New(xerrors.CodeRelayerFailure, "submission response missing transaction hash",
			xerrors.WithMetadata("request_id", requestID))
	}

	d.mu.Lock()
	d.pending[submission.TransactionHash] = struct{}{}
	d.mu.Unlock()

	d.log.Info("transaction submitted to relayer",
		slog.String("hash", submission.TransactionHash),
		slog.String("status", submission.Status),
		slog.String("request_id", requestID))
	return &submission, nil
}

// Status queries the relayer for the current state of a transaction. The
// pending set is not mutated.
func (d *Dispatcher) Status(ctx context.Context, hash string) (*TxStatus, error) {
	var status TxStatus
	err := d.doJSON(ctx, http.MethodGet, d.baseURL+"/transactions/"+hash, "", nil, &status)
	metrics.ObserveRelayerRequest("status", err)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRelayerFailure, err, "transaction status check failed",
			xerrors.WithMetadata("hash", hash))
	}
	if err := validateStatus(status.Status); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRelayerFailure, err, "unexpected status response",
			xerrors.WithMetadata("hash", hash))
	}
	return &status, nil
}

// Wait polls the transaction status until it is confirmed with the requested
// depth, fails, the attempt budget is exhausted, or ctx is cancelled. A
// failed status is terminal immediately and surfaces the relayer's reported
// error when present.
func (d *Dispatcher) Wait(ctx context.Context, hash string, confirmations int) (*TxStatus, error) {
	if confirmations <= 0 {
		confirmations = 1
	}

	ticker := time.NewTicker(d.poll.Interval)
	defer ticker.Stop()

	for attempt := 0; attempt < d.poll.MaxAttempts; attempt++ {
		status, err := d.Status(ctx, hash)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case StatusConfirmed:
			if status.ConfirmationCount >= confirmations {
				d.forget(hash)
				return status, nil
			}
		case StatusFailed:
			d.forget(hash)
			reason := "unknown error"
			if msg, ok := status.Receipt["error"].(string); ok && msg != "" {
				reason = msg
			}
			return nil, xerrors.New(xerrors.CodeTransactionFailed,
				fmt.Sprintf("transaction failed: %s", reason),
				xerrors.WithMetadata("hash", hash))
		}

		select {
		case <-ctx.Done():
			return nil, xerrors.Wrap(xerrors.CodeTimeout, ctx.Err(), "confirmation wait cancelled",
				xerrors.WithMetadata("hash", hash))
		case <-ticker.C:
		}
	}

	return nil, xerrors.New(xerrors.CodeTimeout,
		fmt.Sprintf("transaction %s not confirmed after %d attempts", hash, d.poll.MaxAttempts),
		xerrors.WithMetadata("hash", hash))
}

// CallContractMethod encodes a call against the surface's interface,
// submits it, and blocks until confirmation. It returns the transaction
// hash only after the relayer reports the requested depth.
func (d *Dispatcher) CallContractMethod(ctx context.Context, target CallEncoder, method string, args []any, opts CallOptions) (string, error) {
	data, err := target.Pack(method, args...)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeInvalidArgument, err,
			fmt.Sprintf("encode %s call", method))
	}

	submission, err := d.Submit(ctx, target.Target(), "0x"+hex.EncodeToString(data), opts.Value, opts.GasLimit)
	if err != nil {
		return "", err
	}
	if _, err := d.Wait(ctx, submission.TransactionHash, opts.Confirmations); err != nil {
		return "", err
	}
	return submission.TransactionHash, nil
}

// PendingCount reports how many submissions are awaiting resolution.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) forget(hash string) {
	d.mu.Lock()
	delete(d.pending, hash)
	d.mu.Unlock()
}

func (d *Dispatcher) doJSON(ctx context.Context, method, endpoint, requestID string, payload, out any) error {
	header, err := d.tokens.AuthHeader(ctx)
	if err != nil {
		return err
	}

	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", header)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("relayer responded %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode relayer response: %w", err)
	}
	return nil
}

func validateStatus(status string) error {
	switch status {
	case StatusPending, StatusConfirmed, StatusFailed:
		return nil
	default:
		return fmt.Errorf("unknown transaction status %q", status)
	}
}
