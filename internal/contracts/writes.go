package contracts

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SetCommProfile writes an agent's communication profile.
func (g *Gateway) SetCommProfile(ctx context.Context, agentID *big.Int, agentAddress common.Address, chainID, publicKey string) error {
	g.log.Debug("setting communication profile", slog.String("agent_id", agentID.String()))

	_, err := g.executeWrite(ctx, g.comm, "setAgentProfile",
		[]any{agentID, agentAddress, chainID, publicKey}, WriteOptions{})
	if err != nil {
		g.log.Error("set communication profile failed",
			slog.String("agent_id", agentID.String()), slog.String("error", err.Error()))
		return err
	}
	g.log.Info("communication profile set", slog.String("agent_id", agentID.String()))
	return nil
}

// AddSkill appends a skill to an agent's profile and returns the skill id
// the contract assigned, recovered from the SkillAdded event.
func (g *Gateway) AddSkill(ctx context.Context, agentID *big.Int, skill Skill) (*big.Int, error) {
	g.log.Debug("adding skill", slog.String("agent_id", agentID.String()),
		slog.String("skill", skill.Name))

	hash, err := g.executeWrite(ctx, g.comm, "addSkill", []any{
		agentID,
		skill.Name,
		skill.Version,
		orZero(skill.ReputationScore),
		skill.UsageDescription,
		skill.Embeddings,
		skill.Rate.FeelingsToken,
		orZero(skill.Rate.RatePerUse),
	}, WriteOptions{})
	if err != nil {
		return nil, err
	}

	receipt, err := g.receipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	entry, err := g.findEvent(g.comm, receipt, "SkillAdded")
	if err != nil {
		g.log.Error("add skill confirmed but event missing",
			slog.String("agent_id", agentID.String()), slog.String("hash", hash.Hex()))
		return nil, err
	}
	// SkillAdded(agentId indexed, skillId indexed, name)
	skillID, err := indexedBig(entry, 2)
	if err != nil {
		return nil, err
	}

	g.log.Info("skill added", slog.String("agent_id", agentID.String()),
		slog.String("skill_id", skillID.String()))
	return skillID, nil
}

// CreateEscrowTransaction opens a new escrow record and returns the id the
// contract assigned, recovered from the TransactionCreated event.
func (g *Gateway) CreateEscrowTransaction(ctx context.Context, client, provider, token common.Address, amount *big.Int) (*big.Int, error) {
	g.log.Debug("creating escrow transaction",
		slog.String("client", client.Hex()), slog.String("provider", provider.Hex()))

	hash, err := g.executeWrite(ctx, g.escrow, "createTransaction",
		[]any{client, provider, token, amount}, WriteOptions{})
	if err != nil {
		return nil, err
	}

	receipt, err := g.receipt(ctx, hash)
	if err != nil {
		return nil, err
	}
	entry, err := g.findEvent(g.escrow, receipt, "TransactionCreated")
	if err != nil {
		g.log.Error("escrow creation confirmed but event missing", slog.String("hash", hash.Hex()))
		return nil, err
	}
	// TransactionCreated(id indexed, client indexed, provider indexed, ...)
	id, err := indexedBig(entry, 1)
	if err != nil {
		return nil, err
	}

	g.log.Info("escrow transaction created", slog.String("transaction_id", id.String()))
	return id, nil
}

// DepositPayment funds an escrow transaction. The deposited value is always
// the amount read from the chain, never caller input, so a mismatched
// deposit cannot reach the network.
func (g *Gateway) DepositPayment(ctx context.Context, id *big.Int) error {
	g.log.Debug("depositing payment", slog.String("transaction_id", id.String()))

	tx, err := g.EscrowTransactionByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = g.executeWrite(ctx, g.escrow, "depositPayment", []any{id},
		WriteOptions{Value: tx.Amount})
	if err != nil {
		g.log.Error("deposit payment failed",
			slog.String("transaction_id", id.String()), slog.String("error", err.Error()))
		return err
	}
	g.log.Info("payment deposited", slog.String("transaction_id", id.String()),
		slog.String("amount", tx.Amount.String()))
	return nil
}

// DeliverService marks an escrow transaction as delivered. Sequencing is
// enforced by the contract; an out-of-order call surfaces its revert.
func (g *Gateway) DeliverService(ctx context.Context, id *big.Int) error {
	return g.escrowCall(ctx, "deliverService", id)
}

// ReleasePayment releases the escrowed funds to the provider.
func (g *Gateway) ReleasePayment(ctx context.Context, id *big.Int) error {
	return g.escrowCall(ctx, "releasePayment", id)
}

// DisputeTransaction raises a dispute on an escrow transaction.
func (g *Gateway) DisputeTransaction(ctx context.Context, id *big.Int) error {
	return g.escrowCall(ctx, "disputeTransaction", id)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (g *Gateway) escrowCall(ctx context.Context, method string, id *big.Int) error {
	g.log.Debug("executing escrow call", slog.String("method", method),
		slog.String("transaction_id", id.String()))

	_, err := g.executeWrite(ctx, g.escrow, method, []any{id}, WriteOptions{})
	if err != nil {
		g.log.Error("escrow call failed", slog.String("method", method),
			slog.String("transaction_id", id.String()), slog.String("error", err.Error()))
		return err
	}
	g.log.Info("escrow call confirmed", slog.String("method", method),
		slog.String("transaction_id", id.String()))
	return nil
}
