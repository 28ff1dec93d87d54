// Package dummychain is a scripted, in-memory chain.Gateway for tests and
// local development without a node. Reads are stubbed per method; writes
// produce deterministic hashes and succeed unless scripted otherwise.
package dummychain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trezcool/shule/core/chain"
)

type (
	ReadFunc func(args ...interface{}) ([]interface{}, error)

	WriteCall struct {
		Method string
		Args   []interface{}
	}

	Gateway struct {
		sync.RWMutex
		account  common.Address
		reads    map[string]ReadFunc
		writeErr map[string]error
		receipts map[common.Hash]chain.Receipt
		waitErr  map[common.Hash]error
		writes   []WriteCall
		txCount  uint64

		// overrides applied to the next write's receipt
		nextStatus  *uint64
		nextWaitErr error
	}
)

var _ chain.Gateway = (*Gateway)(nil) // interface compliance check

func Open(account common.Address) *Gateway {
	return &Gateway{
		account:  account,
		reads:    make(map[string]ReadFunc),
		writeErr: make(map[string]error),
		receipts: make(map[common.Hash]chain.Receipt),
		waitErr:  make(map[common.Hash]error),
	}
}

// StubRead scripts the outputs of a constant method.
func (g *Gateway) StubRead(method string, fn ReadFunc) {
	g.Lock()
	defer g.Unlock()
	g.reads[method] = fn
}

// StubReadValues scripts fixed outputs for a constant method.
func (g *Gateway) StubReadValues(method string, values ...interface{}) {
	g.StubRead(method, func(args ...interface{}) ([]interface{}, error) {
		return values, nil
	})
}

// FailWrite scripts a submission failure for a state-changing method.
func (g *Gateway) FailWrite(method string, err error) {
	g.Lock()
	defer g.Unlock()
	g.writeErr[method] = err
}

// RevertNextWrite makes the next write mine with a failed receipt.
func (g *Gateway) RevertNextWrite() {
	g.Lock()
	defer g.Unlock()
	status := chain.ReceiptStatusFailed
	g.nextStatus = &status
}

// FailNextWait makes waiting on the next write's receipt return err.
func (g *Gateway) FailNextWait(err error) {
	g.Lock()
	defer g.Unlock()
	g.nextWaitErr = err
}

// Reset forgets scripted failures and recorded writes. Read stubs stay.
func (g *Gateway) Reset() {
	g.Lock()
	defer g.Unlock()
	g.writeErr = make(map[string]error)
	g.writes = nil
	g.nextStatus = nil
	g.nextWaitErr = nil
}

// WriteCalls returns all writes seen so far, in order.
func (g *Gateway) WriteCalls() []WriteCall {
	g.RLock()
	defer g.RUnlock()
	out := make([]WriteCall, len(g.writes))
	copy(out, g.writes)
	return out
}

func (g *Gateway) Read(ctx context.Context, results *[]interface{}, method string, args ...interface{}) error {
	g.RLock()
	fn, ok := g.reads[method]
	g.RUnlock()
	if !ok {
		return fmt.Errorf("dummychain: no read stubbed for %q", method)
	}

	out, err := fn(args...)
	if err != nil {
		return err
	}
	*results = out
	return nil
}

func (g *Gateway) Write(ctx context.Context, method string, args ...interface{}) (common.Hash, error) {
	g.Lock()
	defer g.Unlock()

	if err := g.writeErr[method]; err != nil {
		return common.Hash{}, err
	}

	g.txCount++
	txHash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s-%d", method, g.txCount)))
	g.writes = append(g.writes, WriteCall{Method: method, Args: args})

	status := chain.ReceiptStatusSuccessful
	if g.nextStatus != nil {
		status = *g.nextStatus
		g.nextStatus = nil
	}
	g.receipts[txHash] = chain.Receipt{
		TxHash:      txHash,
		Status:      status,
		BlockNumber: new(big.Int).SetUint64(g.txCount),
		GasUsed:     21000,
	}
	if g.nextWaitErr != nil {
		g.waitErr[txHash] = g.nextWaitErr
		g.nextWaitErr = nil
	}
	return txHash, nil
}

func (g *Gateway) WaitReceipt(ctx context.Context, txHash common.Hash) (chain.Receipt, error) {
	g.RLock()
	defer g.RUnlock()

	if err := g.waitErr[txHash]; err != nil {
		return chain.Receipt{}, err
	}
	if receipt, ok := g.receipts[txHash]; ok {
		return receipt, nil
	}
	return chain.Receipt{}, fmt.Errorf("dummychain: unknown tx %s", txHash.Hex())
}

func (g *Gateway) Account() common.Address { return g.account }
