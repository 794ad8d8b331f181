package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
)

// Minimal interface descriptions for the three contract surfaces. Only the
// methods and events the gateway speaks are declared; anything else on the
// deployed contracts is invisible here.
const (
	registryABI = `[
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"tokenByIndex","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getTokenState","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"getGenomeData","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getFeelingsToken","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"hasFeelingsToken","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"StartSeedMinted","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"to","type":"address","indexed":true}]}
]`

	commABI = `[
	{"type":"function","name":"getAgentProfile","stateMutability":"view","inputs":[{"name":"agentId","type":"uint256"}],"outputs":[{"name":"agentAddress","type":"address"},{"name":"chainId","type":"string"},{"name":"publicKey","type":"string"}]},
	{"type":"function","name":"getSkillCount","stateMutability":"view","inputs":[{"name":"agentId","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getSkillIdByIndex","stateMutability":"view","inputs":[{"name":"agentId","type":"uint256"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getSkill","stateMutability":"view","inputs":[{"name":"agentId","type":"uint256"},{"name":"skillId","type":"uint256"}],"outputs":[{"name":"name","type":"string"},{"name":"version","type":"string"},{"name":"reputationScore","type":"uint256"},{"name":"usageDescription","type":"string"},{"name":"embeddings","type":"uint256[]"},{"name":"feelingsTokenAddress","type":"address"},{"name":"ratePerUse","type":"uint256"}]},
	{"type":"function","name":"setAgentProfile","stateMutability":"nonpayable","inputs":[{"name":"agentId","type":"uint256"},{"name":"agentAddress","type":"address"},{"name":"chainId","type":"string"},{"name":"publicKey","type":"string"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"addSkill","stateMutability":"nonpayable","inputs":[{"name":"agentId","type":"uint256"},{"name":"name","type":"string"},{"name":"version","type":"string"},{"name":"reputationScore","type":"uint256"},{"name":"usageDescription","type":"string"},{"name":"embeddings","type":"uint256[]"},{"name":"feelingsTokenAddress","type":"address"},{"name":"ratePerUse","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"SkillAdded","inputs":[{"name":"agentId","type":"uint256","indexed":true},{"name":"skillId","type":"uint256","indexed":true},{"name":"name","type":"string","indexed":false}]}
]`

	escrowABI = `[
	{"type":"function","name":"createTransaction","stateMutability":"nonpayable","inputs":[{"name":"client","type":"address"},{"name":"provider","type":"address"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getTransaction","stateMutability":"view","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[{"name":"client","type":"address"},{"name":"provider","type":"address"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"isActive","type":"bool"},{"name":"isDisputed","type":"bool"},{"name":"isDelivered","type":"bool"}]},
	{"type":"function","name":"depositPayment","stateMutability":"payable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"deliverService","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"releasePayment","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"disputeTransaction","stateMutability":"nonpayable","inputs":[{"name":"transactionId","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"TransactionCreated","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"client","type":"address","indexed":true},{"name":"provider","type":"address","indexed":true},{"name":"token","type":"address","indexed":false},{"name":"amount","type":"uint256","indexed":false}]}
]`
)

// Surface binds one of the three fixed contract interfaces to its deployed
// address. Immutable after construction.
type Surface struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
}

func newSurface(name, abiJSON string, address common.Address) (*Surface, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeConfiguration, err,
			fmt.Sprintf("parse %s interface description", name))
	}
	return &Surface{Name: name, Address: address, ABI: parsed}, nil
}

// NewRegistrySurface describes the agent registry (start-seed token) contract.
func NewRegistrySurface(address common.Address) (*Surface, error) {
	return newSurface("registry", registryABI, address)
}

// NewCommSurface describes the communication profile contract.
func NewCommSurface(address common.Address) (*Surface, error) {
	return newSurface("comm", commABI, address)
}

// NewEscrowSurface describes the escrow contract.
func NewEscrowSurface(address common.Address) (*Surface, error) {
	return newSurface("escrow", escrowABI, address)
}

// Pack encodes a method call against the surface's interface description.
func (s *Surface) Pack(method string, args ...any) ([]byte, error) {
	return s.ABI.Pack(method, args...)
}

// Unpack decodes a method's return data.
func (s *Surface) Unpack(method string, data []byte) ([]any, error) {
	return s.ABI.Unpack(method, data)
}

// Target returns the deployed address in hex form, satisfying the relayer's
// call encoder.
func (s *Surface) Target() string {
	return s.Address.Hex()
}
