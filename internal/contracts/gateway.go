// Package contracts is the façade every higher-level operation goes
// through. It encodes calls against the three contract surfaces, chooses
// local signing or relaying as the execution path, and decodes result and
// event data.
package contracts

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/auth"
	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/observability/metrics"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/relayer"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/pkg/logger"
)

// GatewayConfig collects everything needed to construct a Gateway.
type GatewayConfig struct {
	ChainID         *big.Int
	RegistryAddress common.Address
	CommAddress     common.Address
	EscrowAddress   common.Address
	DefaultGasLimit uint64
	Poll            relayer.PollConfig
}

// Gateway binds the three contract surfaces to one execution strategy.
type Gateway struct {
	backend  Backend
	chainID  *big.Int
	creds    *auth.Credentials
	registry *Surface
	comm     *Surface
	escrow   *Surface
	exec     writeExecutor
	poll     relayer.PollConfig
	log      *slog.Logger
}

// NewGateway wires the surfaces and selects the write path once, from the
// credentials' mode: read-only rejects writes outright, a signing key
// executes locally, and JWT delegates to the dispatcher when one is
// configured.
func NewGateway(cfg GatewayConfig, backend Backend, creds *auth.Credentials, dispatcher *relayer.Dispatcher) (*Gateway, error) {
	if backend == nil {
		return nil, xerrors.New(xerrors.CodeConfiguration, "rpc backend is required")
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, xerrors.New(xerrors.CodeConfiguration, "chain id is required")
	}
	if creds == nil {
		creds = auth.NewCredentials()
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

	registry, err := NewRegistrySurface(cfg.RegistryAddress)
	if err != nil {
		return nil, err
	}
	comm, err := NewCommSurface(cfg.CommAddress)
	if err != nil {
		return nil, err
	}
	escrow, err := NewEscrowSurface(cfg.EscrowAddress)
	if err != nil {
		return nil, err
	}

	log := logger.Named("contracts")
	g := &Gateway{
		backend:  backend,
		chainID:  cfg.ChainID,
		creds:    creds,
		registry: registry,
		comm:     comm,
		escrow:   escrow,
		poll:     cfg.Poll,
		log:      log,
	}

	switch creds.Mode() {
	case auth.ModePrivateKey:
		g.exec = newKeyExecutor(backend, creds.SigningKey(), cfg.ChainID, cfg.DefaultGasLimit, cfg.Poll, log)
	case auth.ModeJWT:
		if dispatcher != nil {
			g.exec = &relayExecutor{dispatcher: dispatcher}
		} else {
			g.exec = noPathExecutor{}
		}
	default:
		g.exec = readOnlyExecutor{}
	}

	log.Info("contract gateway initialised",
		slog.String("mode", string(creds.Mode())),
		slog.String("chain_id", cfg.ChainID.String()))
	return g, nil
}

// Mode reports the authorization mode the gateway was constructed with.
func (g *Gateway) Mode() auth.Mode {
	return g.creds.Mode()
}

// executeWrite encodes the call and hands it to the construction-time
// strategy. It returns only after the transaction is confirmed.
func (g *Gateway) executeWrite(ctx context.Context, surface *Surface, method string, args []any, opts WriteOptions) (common.Hash, error) {
	data, err := surface.Pack(method, args...)
	if err != nil {
		return common.Hash{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "encode "+method+" call",
			xerrors.WithMetadata("surface", surface.Name))
	}
	hash, err := g.exec.Execute(ctx, writeRequest{
		surface:  surface,
		method:   method,
		data:     data,
		value:    opts.Value,
		gasLimit: opts.GasLimit,
	})
	metrics.ObserveContractCall(surface.Name, method, err)
	return hash, err
}

// call performs a read against a surface and decodes the outputs.
func (g *Gateway) call(ctx context.Context, surface *Surface, method string, args ...any) ([]any, error) {
	data, err := surface.Pack(method, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "encode "+method+" call",
			xerrors.WithMetadata("surface", surface.Name))
	}
	msg := gethcore.CallMsg{To: &surface.Address, Data: data}
	raw, err := g.backend.CallContract(ctx, msg, nil)
	metrics.ObserveContractCall(surface.Name, method, err)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, method+" call failed",
			xerrors.WithMetadata("surface", surface.Name))
	}
	out, err := surface.Unpack(method, raw)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "decode "+method+" result",
			xerrors.WithMetadata("surface", surface.Name))
	}
	return out, nil
}

// receipt fetches the confirmed transaction's receipt for event extraction,
// tolerating propagation lag with the gateway's poll budget.
func (g *Gateway) receipt(ctx context.Context, hash common.Hash) (*coretypes.Receipt, error) {
	ticker := time.NewTicker(g.poll.Interval)
	defer ticker.Stop()

	for attempt := 0; attempt < g.poll.MaxAttempts; attempt++ {
		receipt, err := g.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, gethcore.NotFound) {
			return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "fetch transaction receipt",
				xerrors.WithMetadata("hash", hash.Hex()))
		}
		select {
		case <-ctx.Done():
			return nil, xerrors.Wrap(xerrors.CodeTimeout, ctx.Err(), "receipt wait cancelled",
				xerrors.WithMetadata("hash", hash.Hex()))
		case <-ticker.C:
		}
	}
	return nil, xerrors.New(xerrors.CodeTimeout, "receipt not available within the poll budget",
		xerrors.WithMetadata("hash", hash.Hex()))
}
