// Package chain defines the school contract as seen by the domain services.
// Concrete backends live under storage/chain.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// errors
	ErrNotConnected   = errors.New("chain backend not connected")
	ErrNoAccount      = errors.New("no signing account configured")
	ErrReverted       = errors.New("transaction reverted on-chain")
	ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")
)

// RevertError carries a revert reason reported by the node before or during
// submission. Receipts of mined transactions carry no reason; those surface
// as ErrReverted instead.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}

// IsRevert reports whether err represents an on-chain revert, with or
// without a reason.
func IsRevert(err error) bool {
	if errors.Is(err, ErrReverted) {
		return true
	}
	var rerr *RevertError
	return errors.As(err, &rerr)
}

const (
	ReceiptStatusSuccessful = uint64(1)
	ReceiptStatusFailed     = uint64(0)
)

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash      common.Hash `json:"tx_hash"`
	Status      uint64      `json:"status"`
	BlockNumber *big.Int    `json:"block_number"`
	GasUsed     uint64      `json:"gas_used"`
}

func (r Receipt) Succeeded() bool { return r.Status == ReceiptStatusSuccessful }

type Gateway interface {
	// Read executes a constant method call and unpacks the outputs into results.
	Read(ctx context.Context, results *[]interface{}, method string, args ...interface{}) error
	// Write signs a state-changing method call with the configured account and
	// broadcasts it. It returns as soon as the node accepts the transaction.
	Write(ctx context.Context, method string, args ...interface{}) (common.Hash, error)
	// WaitReceipt blocks until the transaction is mined or the backend's
	// receipt timeout elapses, whichever comes first.
	WaitReceipt(ctx context.Context, txHash common.Hash) (Receipt, error)
	// Account is the address that signs writes.
	Account() common.Address
}

// Contract read outputs come back as []interface{}; these helpers coerce
// individual outputs, yielding zero values on a type mismatch.

func Bool(out []interface{}, i int) bool {
	if i < len(out) {
		if v, ok := out[i].(bool); ok {
			return v
		}
	}
	return false
}

func BigInt(out []interface{}, i int) *big.Int {
	if i < len(out) {
		if v, ok := out[i].(*big.Int); ok {
			return v
		}
	}
	return new(big.Int)
}

func Address(out []interface{}, i int) common.Address {
	if i < len(out) {
		if v, ok := out[i].(common.Address); ok {
			return v
		}
	}
	return common.Address{}
}

func String(out []interface{}, i int) string {
	if i < len(out) {
		if v, ok := out[i].(string); ok {
			return v
		}
	}
	return ""
}

// ShortAddr abbreviates an address for labels and logs: 0x1234…cdef.
func ShortAddr(addr common.Address) string {
	hex := addr.Hex()
	return fmt.Sprintf("%s…%s", hex[:6], hex[len(hex)-4:])
}
