package actions

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/agents"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/contracts"
	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/escrow"
)

// EscrowActions exposes the escrow lifecycle.
func EscrowActions(ledger *escrow.Ledger) []Action {
	return []Action{
		{
			Name:        "think:createEscrowTransaction",
			Description: "Create a new escrow transaction between a client and provider",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				client, err := addressArg(args, "client")
				if err != nil {
					return nil, err
				}
				provider, err := addressArg(args, "provider")
				if err != nil {
					return nil, err
				}
				token, err := addressArg(args, "token")
				if err != nil {
					return nil, err
				}
				amount, err := bigArg(args, "amount")
				if err != nil {
					return nil, err
				}
				return ledger.Create(ctx, client, provider, token, amount)
			},
		},
		{
			Name:        "think:getEscrowTransaction",
			Description: "Get details of an escrow transaction",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				id, err := bigArg(args, "transactionId")
				if err != nil {
					return nil, err
				}
				return ledger.Get(ctx, id)
			},
		},
		{
			Name:        "think:depositPayment",
			Description: "Deposit payment into escrow for a transaction",
			Handler: escrowStep(func(ctx context.Context, id *big.Int) (any, error) {
				return ledger.Deposit(ctx, id)
			}),
		},
		{
			Name:        "think:deliverService",
			Description: "Mark an escrow transaction's service as delivered",
			Handler: escrowStep(func(ctx context.Context, id *big.Int) (any, error) {
				return ledger.Deliver(ctx, id)
			}),
		},
		{
			Name:        "think:releasePayment",
			Description: "Release payment for a delivered escrow transaction",
			Handler: escrowStep(func(ctx context.Context, id *big.Int) (any, error) {
				return ledger.Release(ctx, id)
			}),
		},
		{
			Name:        "think:disputeTransaction",
			Description: "Raise a dispute on an escrow transaction",
			Handler: escrowStep(func(ctx context.Context, id *big.Int) (any, error) {
				return ledger.Dispute(ctx, id)
			}),
		},
	}
}

// CommActions exposes communication profile management.
func CommActions(gateway *contracts.Gateway) []Action {
	return []Action{
		{
			Name:        "think:getCommProfile",
			Description: "Get the communication profile of an agent",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				agentID, err := bigArg(args, "agentId")
				if err != nil {
					return nil, err
				}
				return gateway.CommProfile(ctx, agentID)
			},
		},
		{
			Name:        "think:setCommProfile",
			Description: "Set the communication profile of an agent",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				agentID, err := bigArg(args, "agentId")
				if err != nil {
					return nil, err
				}
				address, err := addressArg(args, "agentAddress")
				if err != nil {
					return nil, err
				}
				chainID, err := stringArg(args, "chainId")
				if err != nil {
					return nil, err
				}
				publicKey, err := stringArg(args, "publicKey")
				if err != nil {
					return nil, err
				}
				if err := gateway.SetCommProfile(ctx, agentID, address, chainID, publicKey); err != nil {
					return nil, err
				}
				return map[string]any{"success": true}, nil
			},
		},
		{
			Name:        "think:addSkill",
			Description: "Add a skill to an agent's communication profile",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				agentID, err := bigArg(args, "agentId")
				if err != nil {
					return nil, err
				}
				name, err := stringArg(args, "name")
				if err != nil {
					return nil, err
				}
				version, err := stringArg(args, "version")
				if err != nil {
					return nil, err
				}
				skill := contracts.Skill{Name: name, Version: version}
				if desc, ok := args["usageDescription"].(string); ok {
					skill.UsageDescription = desc
				}
				if score, err := bigArg(args, "reputationScore"); err == nil {
					skill.ReputationScore = score
				}
				if rate, err := bigArg(args, "ratePerUse"); err == nil {
					skill.Rate.RatePerUse = rate
				}
				if tokenAddr, err := addressArg(args, "feelingsTokenAddress"); err == nil {
					skill.Rate.FeelingsToken = tokenAddr
				}
				skillID, err := gateway.AddSkill(ctx, agentID, skill)
				if err != nil {
					return nil, err
				}
				return map[string]any{"skillId": skillID}, nil
			},
		},
	}
}

// AgentActions exposes registry reads and the eligibility check.
func AgentActions(sync *agents.Sync) []Action {
	return []Action{
		{
			Name:        "think:getAgentList",
			Description: "List all agent tokens in the registry",
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				return sync.List(ctx)
			},
		},
		{
			Name:        "think:verifyWalletEligibility",
			Description: "Check whether a wallet owns an agent token",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				wallet, err := addressArg(args, "address")
				if err != nil {
					return nil, err
				}
				token, err := sync.VerifyWalletEligibility(ctx, wallet)
				if err != nil {
					return nil, err
				}
				return map[string]any{"eligible": token != nil, "token": token}, nil
			},
		},
	}
}

func escrowStep(step func(ctx context.Context, id *big.Int) (any, error)) Handler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		id, err := bigArg(args, "transactionId")
		if err != nil {
			return nil, err
		}
		return step(ctx, id)
	}
}

func stringArg(args map[string]any, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, key+" is required")
	}
	return value, nil
}

func addressArg(args map[string]any, key string) (common.Address, error) {
	raw, err := stringArg(args, key)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, xerrors.New(xerrors.CodeInvalidArgument,
			key+" is not a hex address")
	}
	return common.HexToAddress(raw), nil
}

func bigArg(args map[string]any, key string) (*big.Int, error) {
	switch value := args[key].(type) {
	case string:
		parsed, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, xerrors.New(xerrors.CodeInvalidArgument,
				key+" is not a decimal integer")
		}
		return parsed, nil
	case float64:
		if value != float64(int64(value)) {
			return nil, xerrors.New(xerrors.CodeInvalidArgument,
				key+" must be an integer")
		}
		return big.NewInt(int64(value)), nil
	case int:
		return big.NewInt(int64(value)), nil
	case int64:
		return big.NewInt(value), nil
	case *big.Int:
		return value, nil
	case nil:
		return nil, xerrors.New(xerrors.CodeInvalidArgument, key+" is required")
	default:
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("%s has unsupported type %T", key, value))
	}
}
