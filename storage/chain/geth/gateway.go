// Package gethchain implements chain.Gateway against a real node over RPC,
// using the bound school contract.
package gethchain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"os"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/chain"
)

const revertPrefix = "execution reverted"

type Gateway struct {
	conf     *core.Config
	logger   core.Logger
	client   *ethclient.Client
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	account  common.Address
}

var _ chain.Gateway = (*Gateway)(nil) // interface compliance check

// Open dials the configured RPC endpoint and binds the school contract.
// With no signing key configured the gateway is read-only; writes then fail
// with chain.ErrNoAccount.
func Open(conf *core.Config, logger core.Logger) (*Gateway, error) {
	if conf.Chain.ContractAddress == "" {
		return nil, errors.New("chain contract address not configured")
	}
	if !common.IsHexAddress(conf.Chain.ContractAddress) {
		return nil, errors.Errorf("invalid chain contract address %q", conf.Chain.ContractAddress)
	}

	client, err := ethclient.Dial(conf.Chain.RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, "dialing chain rpc")
	}

	parsed, err := abi.JSON(strings.NewReader(schoolABI))
	if err != nil {
		return nil, errors.Wrap(err, "parsing school contract abi")
	}

	g := &Gateway{
		conf:     conf,
		logger:   logger,
		client:   client,
		contract: bind.NewBoundContract(common.HexToAddress(conf.Chain.ContractAddress), parsed, client, client, client),
	}
	if err := g.setUpSigner(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Gateway) setUpSigner() error {
	cc := g.conf.Chain

	var key *ecdsa.PrivateKey
	switch {
	case cc.PrivateKey != "":
		k, err := crypto.HexToECDSA(strings.TrimPrefix(cc.PrivateKey, "0x"))
		if err != nil {
			return errors.Wrap(err, "parsing chain private key")
		}
		key = k
	case cc.KeystorePath != "":
		data, err := os.ReadFile(cc.KeystorePath)
		if err != nil {
			return errors.Wrap(err, "reading keystore file")
		}
		k, err := keystore.DecryptKey(data, cc.KeystorePassphrase)
		if err != nil {
			return errors.Wrap(err, "decrypting keystore file")
		}
		key = k.PrivateKey
	default:
		return nil // read-only
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cc.ChainID))
	if err != nil {
		return errors.Wrap(err, "creating transactor")
	}
	g.auth = auth
	g.account = crypto.PubkeyToAddress(key.PublicKey)
	return nil
}

// Ping checks node reachability and returns the node's chain id.
func (g *Gateway) Ping(ctx context.Context) (*big.Int, error) {
	id, err := g.client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "pinging chain rpc")
	}
	if id.Int64() != g.conf.Chain.ChainID {
		g.logger.Warn(errors.Errorf("node chain id %s does not match configured %d", id, g.conf.Chain.ChainID).Error())
	}
	return id, nil
}

func (g *Gateway) Close() {
	g.client.Close()
}

func (g *Gateway) Read(ctx context.Context, results *[]interface{}, method string, args ...interface{}) error {
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, results, method, args...); err != nil {
		if rerr, ok := asRevert(err); ok {
			return rerr
		}
		return errors.Wrapf(err, "calling %s", method)
	}
	return nil
}

func (g *Gateway) Write(ctx context.Context, method string, args ...interface{}) (common.Hash, error) {
	if g.auth == nil {
		return common.Hash{}, chain.ErrNoAccount
	}

	opts := *g.auth
	opts.Context = ctx
	tx, err := g.contract.Transact(&opts, method, args...)
	if err != nil {
		if rerr, ok := asRevert(err); ok {
			return common.Hash{}, rerr
		}
		return common.Hash{}, errors.Wrapf(err, "submitting %s", method)
	}
	return tx.Hash(), nil
}

// WaitReceipt polls for the receipt until it lands or the configured
// receipt timeout elapses.
func (g *Gateway) WaitReceipt(ctx context.Context, txHash common.Hash) (chain.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, g.conf.Chain.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(g.conf.Chain.ReceiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := g.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return chain.Receipt{
				TxHash:      receipt.TxHash,
				Status:      receipt.Status,
				BlockNumber: receipt.BlockNumber,
				GasUsed:     receipt.GasUsed,
			}, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			g.logger.Debug(errors.Wrapf(err, "retrieving receipt for %s", txHash.Hex()).Error())
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return chain.Receipt{}, chain.ErrReceiptTimeout
			}
			return chain.Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (g *Gateway) Account() common.Address { return g.account }

// asRevert extracts a revert reason from node errors of the form
// "execution reverted: <reason>".
func asRevert(err error) (*chain.RevertError, bool) {
	msg := err.Error()
	idx := strings.Index(msg, revertPrefix)
	if idx < 0 {
		return nil, false
	}
	reason := strings.TrimPrefix(msg[idx+len(revertPrefix):], ":")
	return &chain.RevertError{Reason: strings.TrimSpace(reason)}, true
}
