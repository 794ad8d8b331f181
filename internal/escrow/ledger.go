// Package escrow drives the deposit/deliver/release/dispute lifecycle of
// escrow transactions through the contract gateway. Transition validity is
// the contract's responsibility; the ledger surfaces its rejections and
// keeps an in-memory view of the transactions it has touched.
package escrow

import (
	"context"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/contracts"
	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/pkg/logger"
)

// Ledger tracks escrow transactions this process has created or operated
// on. The map is a cache of last-observed chain state, never an authority.
type Ledger struct {
	gateway *contracts.Gateway
	log     *slog.Logger

	mu      sync.RWMutex
	tracked map[string]*contracts.EscrowTransaction
}

// NewLedger constructs a ledger over the gateway.
func NewLedger(gateway *contracts.Gateway) (*Ledger, error) {
	if gateway == nil {
		return nil, xerrors.New(xerrors.CodeConfiguration, "escrow ledger requires a gateway")
	}
	return &Ledger{
		gateway: gateway,
		log:     logger.Named("escrow"),
		tracked: make(map[string]*contracts.EscrowTransaction),
	}, nil
}

// Create opens an escrow transaction between client and provider and begins
// tracking it.
func (l *Ledger) Create(ctx context.Context, client, provider, token common.Address, amount *big.Int) (*contracts.EscrowTransaction, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "escrow amount must be positive")
	}

	id, err := l.gateway.CreateEscrowTransaction(ctx, client, provider, token, amount)
	if err != nil {
		return nil, err
	}
	return l.refresh(ctx, id)
}

// Deposit funds the transaction with the exact on-chain amount.
func (l *Ledger) Deposit(ctx context.Context, id *big.Int) (*contracts.EscrowTransaction, error) {
	if err := l.gateway.DepositPayment(ctx, id); err != nil {
		return nil, err
	}
	return l.refresh(ctx, id)
}

// Deliver marks the service as delivered.
func (l *Ledger) Deliver(ctx context.Context, id *big.Int) (*contracts.EscrowTransaction, error) {
	if err := l.gateway.DeliverService(ctx, id); err != nil {
		return nil, err
	}
	return l.refresh(ctx, id)
}

// Release pays the provider. Terminal on success.
func (l *Ledger) Release(ctx context.Context, id *big.Int) (*contracts.EscrowTransaction, error) {
	if err := l.gateway.ReleasePayment(ctx, id); err != nil {
		return nil, err
	}
	return l.refresh(ctx, id)
}

// Dispute raises a dispute. Terminal on success.
func (l *Ledger) Dispute(ctx context.Context, id *big.Int) (*contracts.EscrowTransaction, error) {
	if err := l.gateway.DisputeTransaction(ctx, id); err != nil {
		return nil, err
	}
	return l.refresh(ctx, id)
}

// Get returns the transaction, reading through to the chain.
func (l *Ledger) Get(ctx context.Context, id *big.Int) (*contracts.EscrowTransaction, error) {
	return l.refresh(ctx, id)
}

// Tracked returns a snapshot of every transaction the ledger has observed.
func (l *Ledger) Tracked() []*contracts.EscrowTransaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*contracts.EscrowTransaction, 0, len(l.tracked))
	for _, tx := range l.tracked {
		clone := *tx
		out = append(out, &clone)
	}
	return out
}

// refresh re-reads the transaction from the chain and updates the tracked
// view.
func (l *Ledger) refresh(ctx context.Context, id *big.Int) (*contracts.EscrowTransaction, error) {
	tx, err := l.gateway.EscrowTransactionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.tracked[id.String()] = tx
	l.mu.Unlock()

	l.log.Debug("escrow state observed",
		slog.String("transaction_id", id.String()),
		slog.Bool("active", tx.IsActive),
		slog.Bool("delivered", tx.IsDelivered),
		slog.Bool("disputed", tx.IsDisputed))

	clone := *tx
	return &clone, nil
}
