package contracttest

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapDesk/internal/wallet"
)

// Provider is a wallet that approves every request unless told otherwise.
type Provider struct {
	mu      sync.Mutex
	Account common.Address
	Chain   *big.Int
	Err     error
	SignErr error
	Signed  int
}

func NewProvider(chainID int64) *Provider {
	return &Provider{
		Account: common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		Chain:   big.NewInt(chainID),
	}
}

func (p *Provider) RequestAccount(context.Context) (common.Address, *big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return common.Address{}, nil, p.Err
	}
	return p.Account, new(big.Int).Set(p.Chain), nil
}

func (p *Provider) SignTx(_ context.Context, req wallet.SignRequest) (*types.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SignErr != nil {
		return nil, p.SignErr
	}
	p.Signed++
	return req.Tx, nil
}
