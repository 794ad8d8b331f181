package contracts

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
)

// AgentList enumerates every registry token, resolving owner and state per
// token and the reveal-only fields when the token is REVEALED. Resolution is
// sequential; the first failure aborts the whole call so no partial list is
// ever returned.
func (g *Gateway) AgentList(ctx context.Context) ([]AgentToken, error) {
	g.log.Debug("reading agent list")

	out, err := g.call(ctx, g.registry, "totalSupply")
	if err != nil {
		return nil, err
	}
	total, err := asBig(out, 0)
	if err != nil {
		return nil, decodeError(g.registry, "totalSupply", err)
	}

	agents := make([]AgentToken, 0, total.Int64())
	for i := int64(0); i < total.Int64(); i++ {
		agent, err := g.agentByIndex(ctx, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		agents = append(agents, *agent)
	}

	g.log.Info("agent list read", slog.Int("count", len(agents)))
	return agents, nil
}

func (g *Gateway) agentByIndex(ctx context.Context, index *big.Int) (*AgentToken, error) {
	out, err := g.call(ctx, g.registry, "tokenByIndex", index)
	if err != nil {
		return nil, err
	}
	tokenID, err := asBig(out, 0)
	if err != nil {
		return nil, decodeError(g.registry, "tokenByIndex", err)
	}

	out, err = g.call(ctx, g.registry, "ownerOf", tokenID)
	if err != nil {
		return nil, err
	}
	owner, err := asAddress(out, 0)
	if err != nil {
		return nil, decodeError(g.registry, "ownerOf", err)
	}

	out, err = g.call(ctx, g.registry, "getTokenState", tokenID)
	if err != nil {
		return nil, err
	}
	state, err := asUint8(out, 0)
	if err != nil {
		return nil, decodeError(g.registry, "getTokenState", err)
	}

	agent := &AgentToken{TokenID: tokenID, Owner: owner, State: TokenState(state)}
	if agent.State != StateRevealed {
		return agent, nil
	}

	out, err = g.call(ctx, g.registry, "getGenomeData", tokenID)
	if err != nil {
		return nil, err
	}
	if agent.GenomeData, err = asString(out, 0); err != nil {
		return nil, decodeError(g.registry, "getGenomeData", err)
	}

	out, err = g.call(ctx, g.registry, "getFeelingsToken", tokenID)
	if err != nil {
		return nil, err
	}
	if agent.FeelingsToken, err = asAddress(out, 0); err != nil {
		return nil, decodeError(g.registry, "getFeelingsToken", err)
	}
	return agent, nil
}

// CommProfile reads an agent's communication profile. A zero agent address
// means no profile is set, which is a normal outcome reported as nil, not an
// error. Skills are resolved index→id→detail and returned in index order.
func (g *Gateway) CommProfile(ctx context.Context, agentID *big.Int) (*CommProfile, error) {
	g.log.Debug("reading communication profile", slog.String("agent_id", agentID.String()))

	out, err := g.call(ctx, g.comm, "getAgentProfile", agentID)
	if err != nil {
		return nil, err
	}
	address, err := asAddress(out, 0)
	if err != nil {
		return nil, decodeError(g.comm, "getAgentProfile", err)
	}
	if address == (common.Address{}) {
		return nil, nil
	}
	chainID, err := asString(out, 1)
	if err != nil {
		return nil, decodeError(g.comm, "getAgentProfile", err)
	}
	publicKey, err := asString(out, 2)
	if err != nil {
		return nil, decodeError(g.comm, "getAgentProfile", err)
	}

	out, err = g.call(ctx, g.comm, "getSkillCount", agentID)
	if err != nil {
		return nil, err
	}
	count, err := asBig(out, 0)
	if err != nil {
		return nil, decodeError(g.comm, "getSkillCount", err)
	}

	skills := make([]Skill, 0, count.Int64())
	for i := int64(0); i < count.Int64(); i++ {
		skill, err := g.skillByIndex(ctx, agentID, big.NewInt(i))
		if err != nil {
			return nil, err
		}
		skills = append(skills, *skill)
	}

	g.log.Info("communication profile read",
		slog.String("agent_id", agentID.String()), slog.Int("skills", len(skills)))
	return &CommProfile{
		AgentAddress: address,
		ChainID:      chainID,
		PublicKey:    publicKey,
		Skills:       skills,
	}, nil
}

func (g *Gateway) skillByIndex(ctx context.Context, agentID, index *big.Int) (*Skill, error) {
	out, err := g.call(ctx, g.comm, "getSkillIdByIndex", agentID, index)
	if err != nil {
		return nil, err
	}
	skillID, err := asBig(out, 0)
	if err != nil {
		return nil, decodeError(g.comm, "getSkillIdByIndex", err)
	}

	out, err = g.call(ctx, g.comm, "getSkill", agentID, skillID)
	if err != nil {
		return nil, err
	}
	if len(out) != 7 {
		return nil, decodeError(g.comm, "getSkill",
			fmt.Errorf("expected 7 outputs, got %d", len(out)))
	}

	skill := &Skill{}
	if skill.Name, err = asString(out, 0); err != nil {
		return nil, decodeError(g.comm, "getSkill", err)
	}
	if skill.Version, err = asString(out, 1); err != nil {
		return nil, decodeError(g.comm, "getSkill", err)
	}
	if skill.ReputationScore, err = asBig(out, 2); err != nil {
		return nil, decodeError(g.comm, "getSkill", err)
	}
	if skill.UsageDescription, err = asString(out, 3); err != nil {
		return nil, decodeError(g.comm, "getSkill", err)
	}
	if skill.Embeddings, err = asBigSlice(out, 4); err != nil {
		return nil, decodeError(g.comm, "getSkill", err)
	}
	if skill.Rate.FeelingsToken, err = asAddress(out, 5); err != nil {
		return nil, decodeError(g.comm, "getSkill", err)
	}
	if skill.Rate.RatePerUse, err = asBig(out, 6); err != nil {
		return nil, decodeError(g.comm, "getSkill", err)
	}
	return skill, nil
}

// EscrowTransactionByID reads the seven-field escrow record verbatim.
func (g *Gateway) EscrowTransactionByID(ctx context.Context, id *big.Int) (*EscrowTransaction, error) {
	g.log.Debug("reading escrow transaction", slog.String("transaction_id", id.String()))

	out, err := g.call(ctx, g.escrow, "getTransaction", id)
	if err != nil {
		return nil, err
	}
	if len(out) != 7 {
		return nil, decodeError(g.escrow, "getTransaction",
			fmt.Errorf("expected 7 outputs, got %d", len(out)))
	}

	tx := &EscrowTransaction{ID: new(big.Int).Set(id)}
	if tx.Client, err = asAddress(out, 0); err != nil {
		return nil, decodeError(g.escrow, "getTransaction", err)
	}
	if tx.Provider, err = asAddress(out, 1); err != nil {
		return nil, decodeError(g.escrow, "getTransaction", err)
	}
	if tx.Token, err = asAddress(out, 2); err != nil {
		return nil, decodeError(g.escrow, "getTransaction", err)
	}
	if tx.Amount, err = asBig(out, 3); err != nil {
		return nil, decodeError(g.escrow, "getTransaction", err)
	}
	if tx.IsActive, err = asBool(out, 4); err != nil {
		return nil, decodeError(g.escrow, "getTransaction", err)
	}
	if tx.IsDisputed, err = asBool(out, 5); err != nil {
		return nil, decodeError(g.escrow, "getTransaction", err)
	}
	if tx.IsDelivered, err = asBool(out, 6); err != nil {
		return nil, decodeError(g.escrow, "getTransaction", err)
	}
	return tx, nil
}

func decodeError(surface *Surface, method string, cause error) error {
	return xerrors.Wrap(xerrors.CodeRPCFailure, cause, "decode "+method+" result",
		xerrors.WithMetadata("surface", surface.Name))
}

func asBig(out []any, i int) (*big.Int, error) {
	if i >= len(out) {
		return nil, fmt.Errorf("missing output %d", i)
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d is %T, want *big.Int", i, out[i])
	}
	return v, nil
}

func asBigSlice(out []any, i int) ([]*big.Int, error) {
	if i >= len(out) {
		return nil, fmt.Errorf("missing output %d", i)
	}
	v, ok := out[i].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("output %d is %T, want []*big.Int", i, out[i])
	}
	return v, nil
}

func asAddress(out []any, i int) (common.Address, error) {
	if i >= len(out) {
		return common.Address{}, fmt.Errorf("missing output %d", i)
	}
	v, ok := out[i].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("output %d is %T, want common.Address", i, out[i])
	}
	return v, nil
}

func asString(out []any, i int) (string, error) {
	if i >= len(out) {
		return "", fmt.Errorf("missing output %d", i)
	}
	v, ok := out[i].(string)
	if !ok {
		return "", fmt.Errorf("output %d is %T, want string", i, out[i])
	}
	return v, nil
}

func asBool(out []any, i int) (bool, error) {
	if i >= len(out) {
		return false, fmt.Errorf("missing output %d", i)
	}
	v, ok := out[i].(bool)
	if !ok {
		return false, fmt.Errorf("output %d is %T, want bool", i, out[i])
	}
	return v, nil
}

func asUint8(out []any, i int) (uint8, error) {
	if i >= len(out) {
		return 0, fmt.Errorf("missing output %d", i)
	}
	v, ok := out[i].(uint8)
	if !ok {
		return 0, fmt.Errorf("output %d is %T, want uint8", i, out[i])
	}
	return v, nil
}
