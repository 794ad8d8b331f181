package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenState mirrors the registry contract's reveal lifecycle.
type TokenState uint8

const (
	StateUnrevealed TokenState = iota
	StatePendingReveal
	StateRevealed
)

// String names the state for logs and API responses.
func (s TokenState) String() string {
	switch s {
	case StateUnrevealed:
		return "UNREVEALED"
	case StatePendingReveal:
		return "PENDING_REVEAL"
	case StateRevealed:
		return "REVEALED"
	default:
		return "UNKNOWN"
	}
}

// AgentToken is one registry token. GenomeData and FeelingsToken are
// populated only when State is REVEALED.
type AgentToken struct {
	TokenID       *big.Int       `json:"token_id"`
	Owner         common.Address `json:"owner"`
	State         TokenState     `json:"state"`
	GenomeData    string         `json:"genome_data,omitempty"`
	FeelingsToken common.Address `json:"feelings_token"`
}

// Rate prices a skill in its feelings token.
type Rate struct {
	FeelingsToken common.Address `json:"feelings_token_address"`
	RatePerUse    *big.Int       `json:"rate_per_use"`
}

// Skill is one entry in an agent's communication profile. Skills are
// append-only from this subsystem's perspective.
type Skill struct {
	Name             string     `json:"name"`
	Version          string     `json:"version"`
	ReputationScore  *big.Int   `json:"reputation_score"`
	UsageDescription string     `json:"usage_description"`
	Embeddings       []*big.Int `json:"embeddings"`
	Rate             Rate       `json:"rate"`
}

// CommProfile is an agent's communication profile with its skills in index
// order.
type CommProfile struct {
	AgentAddress common.Address `json:"agent_address"`
	ChainID      string         `json:"chain_id"`
	PublicKey    string         `json:"public_key"`
	Skills       []Skill        `json:"skills"`
}

// EscrowTransaction is the seven-field on-chain escrow record, returned
// verbatim.
type EscrowTransaction struct {
	ID          *big.Int       `json:"id"`
	Client      common.Address `json:"client"`
	Provider    common.Address `json:"provider"`
	Token       common.Address `json:"token"`
	Amount      *big.Int       `json:"amount"`
	IsActive    bool           `json:"is_active"`
	IsDisputed  bool           `json:"is_disputed"`
	IsDelivered bool           `json:"is_delivered"`
}

// WriteOptions tune a single write operation.
type WriteOptions struct {
	// Value is the native amount transferred with the call, nil for none.
	Value *big.Int
	// GasLimit overrides the default when non-zero.
	GasLimit uint64
}
