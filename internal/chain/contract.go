// Package chain mirrors point movements to the EcoRewards contract. Calls are
// queued in Redis and executed by a worker pool so checkout never waits on the
// chain.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"ecorewards/internal/apperr"
	"ecorewards/internal/config"
)

const ecoRewardsABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"account","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"awardPoints","stateMutability":"nonpayable",
   "inputs":[{"name":"user","type":"address"},{"name":"amount","type":"uint256"},{"name":"reason","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"redeemPoints","stateMutability":"nonpayable",
   "inputs":[{"name":"amount","type":"uint256"},{"name":"productId","type":"string"}],
   "outputs":[]},
  {"type":"event","name":"PointsAwarded","anonymous":false,
   "inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"reason","type":"string","indexed":false}]},
  {"type":"event","name":"PointsRedeemed","anonymous":false,
   "inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"productId","type":"string","indexed":false}]}
]`

// Ledger is the external points ledger.
type Ledger interface {
	Enabled() bool
	AwardPoints(ctx context.Context, to common.Address, amount *big.Int, reason string) (common.Hash, error)
	RedeemPoints(ctx context.Context, amount *big.Int, productID string) (common.Hash, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
}

// Contract talks to a deployed EcoRewards contract through an RPC node,
// signing transactions with the operator key.
type Contract struct {
	client  *ethclient.Client
	bound   *bind.BoundContract
	key     *ecdsa.PrivateKey
	chainID *big.Int
	timeout time.Duration
}

func Dial(cfg config.Chain) (*Contract, error) {
	parsed, err := abi.JSON(strings.NewReader(ecoRewardsABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("operator key: %w", err)
	}
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", cfg.RPCURL, err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	return &Contract{
		client:  client,
		bound:   bind.NewBoundContract(address, parsed, client, client, client),
		key:     key,
		chainID: big.NewInt(cfg.ChainID),
		timeout: cfg.CallTimeout,
	}, nil
}

func (c *Contract) Close() {
	c.client.Close()
}

func (c *Contract) Enabled() bool { return true }

func (c *Contract) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

func (c *Contract) AwardPoints(ctx context.Context, to common.Address, amount *big.Int, reason string) (common.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts, err := c.transactor(ctx)
	if err != nil {
		return common.Hash{}, apperr.Wrap(apperr.CodeExternalLedgerUnavailable, "awardPoints", err)
	}
	tx, err := c.bound.Transact(opts, "awardPoints", to, amount, reason)
	if err != nil {
		return common.Hash{}, apperr.Wrap(apperr.CodeExternalLedgerUnavailable, "awardPoints", err)
	}
	return tx.Hash(), nil
}

func (c *Contract) RedeemPoints(ctx context.Context, amount *big.Int, productID string) (common.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts, err := c.transactor(ctx)
	if err != nil {
		return common.Hash{}, apperr.Wrap(apperr.CodeExternalLedgerUnavailable, "redeemPoints", err)
	}
	tx, err := c.bound.Transact(opts, "redeemPoints", amount, productID)
	if err != nil {
		return common.Hash{}, apperr.Wrap(apperr.CodeExternalLedgerUnavailable, "redeemPoints", err)
	}
	return tx.Hash(), nil
}

func (c *Contract) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []interface{}
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, apperr.Wrap(apperr.CodeExternalLedgerUnavailable, "balanceOf", err)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, apperr.Wrap(apperr.CodeExternalLedgerUnavailable, "balanceOf",
			fmt.Errorf("unexpected result type %T", out[0]))
	}
	return balance, nil
}

// Disabled stands in when no contract is configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) AwardPoints(context.Context, common.Address, *big.Int, string) (common.Hash, error) {
	return common.Hash{}, apperr.ErrExternalLedgerUnavailable
}

func (Disabled) RedeemPoints(context.Context, *big.Int, string) (common.Hash, error) {
	return common.Hash{}, apperr.ErrExternalLedgerUnavailable
}

func (Disabled) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	return nil, apperr.ErrExternalLedgerUnavailable
}
