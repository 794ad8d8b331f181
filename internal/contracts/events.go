package contracts

import (
	"math/big"

	coretypes "github.com/ethereum/go-ethereum/core/types"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
)

// findEvent scans the receipt's logs for the named event. Each log's topic
// signature is matched against the surface's known events only; logs emitted
// by other contracts simply don't match and are skipped. The first matching
// log wins. A confirmed receipt without the expected event indicates an
// interface mismatch, which is fatal and never retried.
func (g *Gateway) findEvent(surface *Surface, receipt *coretypes.Receipt, name string) (*coretypes.Log, error) {
	for _, entry := range receipt.Logs {
		if entry == nil || len(entry.Topics) == 0 {
			continue
		}
		event, err := surface.ABI.EventByID(entry.Topics[0])
		if err != nil || event.Name != name {
			continue
		}
		return entry, nil
	}
	return nil, xerrors.New(xerrors.CodeEventNotFound,
		name+" event not found in transaction logs",
		xerrors.WithMetadata("surface", surface.Name),
		xerrors.WithMetadata("hash", receipt.TxHash.Hex()))
}

// indexedBig decodes an indexed uint256 event argument from a topic.
func indexedBig(entry *coretypes.Log, position int) (*big.Int, error) {
	if position >= len(entry.Topics) {
		return nil, xerrors.New(xerrors.CodeEventNotFound, "event log is missing an indexed argument")
	}
	return new(big.Int).SetBytes(entry.Topics[position].Bytes()), nil
}
