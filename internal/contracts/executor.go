package contracts

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"log/slog"
	"math/big"
	"time"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/relayer"
)

// writeRequest is an intent to execute one encoded contract call. It lives
// only for the duration of the call.
type writeRequest struct {
	surface  *Surface
	method   string
	data     []byte
	value    *big.Int
	gasLimit uint64
}

// writeExecutor is the mode-dependent execution strategy, chosen once at
// gateway construction.
type writeExecutor interface {
	Execute(ctx context.Context, req writeRequest) (common.Hash, error)
}

// readOnlyExecutor rejects every write before any network I/O happens.
type readOnlyExecutor struct{}

func (readOnlyExecutor) Execute(context.Context, writeRequest) (common.Hash, error) {
	return common.Hash{}, xerrors.New(xerrors.CodeReadOnly, "")
}

// noPathExecutor covers JWT mode without a configured relayer.
type noPathExecutor struct{}

func (noPathExecutor) Execute(_ context.Context, req writeRequest) (common.Hash, error) {
	return common.Hash{}, xerrors.New(xerrors.CodeNoAuthPath, "",
		xerrors.WithMetadata("method", req.method))
}

// keyExecutor signs and broadcasts locally, then waits for inclusion.
type keyExecutor struct {
	backend  Backend
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
	gasLimit uint64
	poll     relayer.PollConfig
	log      *slog.Logger
}

func newKeyExecutor(backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, gasLimit uint64, poll relayer.PollConfig, log *slog.Logger) *keyExecutor {
	return &keyExecutor{
		backend:  backend,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		gasLimit: gasLimit,
		poll:     poll,
		log:      log,
	}
}

func (e *keyExecutor) Execute(ctx context.Context, req writeRequest) (common.Hash, error) {
	nonce, err := e.backend.PendingNonceAt(ctx, e.from)
	if err != nil {
		return common.Hash{}, xerrors.Wrap(xerrors.CodeRPCFailure, err, "fetch account nonce")
	}
	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, xerrors.Wrap(xerrors.CodeRPCFailure, err, "fetch gas price")
	}

	gasLimit := req.gasLimit
	if gasLimit == 0 {
		gasLimit = e.gasLimit
	}
	value := req.value
	if value == nil {
		value = new(big.Int)
	}

	to := req.surface.Address
	tx := coretypes.NewTx(&coretypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     req.data,
	})
	signed, err := coretypes.SignTx(tx, coretypes.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return common.Hash{}, xerrors.Wrap(xerrors.CodeTransactionFailed, err, "sign transaction")
	}

	if err := e.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, xerrors.Wrap(xerrors.CodeTransactionFailed, err, "broadcast transaction",
			xerrors.WithMetadata("method", req.method))
	}

	hash := signed.Hash()
	e.log.Debug("transaction broadcast",
		slog.String("hash", hash.Hex()), slog.String("method", req.method))

	receipt, err := e.waitMined(ctx, hash)
	if err != nil {
		return common.Hash{}, err
	}
	if receipt.Status == coretypes.ReceiptStatusFailed {
		return common.Hash{}, xerrors.New(xerrors.CodeTransactionFailed, "transaction reverted",
			xerrors.WithMetadata("hash", hash.Hex()))
	}
	return hash, nil
}

// waitMined polls for the receipt with the same bounded-retry discipline as
// the relayed path.
func (e *keyExecutor) waitMined(ctx context.Context, hash common.Hash) (*coretypes.Receipt, error) {
	ticker := time.NewTicker(e.poll.Interval)
	defer ticker.Stop()

	for attempt := 0; attempt < e.poll.MaxAttempts; attempt++ {
		receipt, err := e.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, gethcore.NotFound) {
			return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "fetch transaction receipt",
				xerrors.WithMetadata("hash", hash.Hex()))
		}

		select {
		case <-ctx.Done():
			return nil, xerrors.Wrap(xerrors.CodeTimeout, ctx.Err(), "inclusion wait cancelled",
				xerrors.WithMetadata("hash", hash.Hex()))
		case <-ticker.C:
		}
	}
	return nil, xerrors.New(xerrors.CodeTimeout, "transaction not mined within the poll budget",
		xerrors.WithMetadata("hash", hash.Hex()))
}

// relayExecutor hands the encoded call to the relay dispatcher, which
// confirms before returning.
type relayExecutor struct {
	dispatcher *relayer.Dispatcher
}

func (e *relayExecutor) Execute(ctx context.Context, req writeRequest) (common.Hash, error) {
	value := ""
	if req.value != nil {
		value = req.value.String()
	}
	submission, err := e.dispatcher.Submit(ctx, req.surface.Target(), "0x"+hex.EncodeToString(req.data), value, req.gasLimit)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := e.dispatcher.Wait(ctx, submission.TransactionHash, 1); err != nil {
		return common.Hash{}, err
	}
	return common.HexToHash(submission.TransactionHash), nil
}
