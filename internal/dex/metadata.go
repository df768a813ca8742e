package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapDesk/internal/contract"
	"swapDesk/internal/model"
)

// TokenMetaCache caches token metadata by address. Metadata is immutable on chain.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// FetchTokenMeta reads decimals, symbol and name through an ERC20 binding.
// Only decimals is required; symbol and name failures are logged.
func FetchTokenMeta(ctx context.Context, token *contract.Binding, cache *TokenMetaCache, logger *zap.Logger) (model.TokenMeta, error) {
	if cache != nil {
		if meta, ok := cache.Get(token.Address); ok {
			return meta, nil
		}
	}
	meta := model.TokenMeta{Role: string(token.Role), Address: token.Address.Hex()}

	values, err := token.Read(ctx, "decimals")
	if err != nil {
		return meta, err
	}
	decimals, err := contract.AsUint8(values[0])
	if err != nil {
		return meta, fmt.Errorf("decode decimals: %w", err)
	}
	meta.Decimals = decimals

	if values, err := token.Read(ctx, "symbol"); err == nil {
		meta.Symbol, _ = contract.AsString(values[0])
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", token.Address.Hex()), zap.Error(err))
	}
	if values, err := token.Read(ctx, "name"); err == nil {
		meta.Name, _ = contract.AsString(values[0])
	} else if logger != nil {
		logger.Debug("name call failed", zap.String("token", token.Address.Hex()), zap.Error(err))
	}

	if cache != nil {
		cache.Set(token.Address, meta)
	}
	return meta, nil
}

// Slot0 is the subset of pool slot0 the front end reads.
type Slot0 struct {
	SqrtPriceX96 *big.Int
	Tick         int32
}

func FetchSlot0(ctx context.Context, pool *contract.Binding) (Slot0, error) {
	values, err := pool.Read(ctx, "slot0")
	if err != nil {
		return Slot0{}, err
	}
	if len(values) < 2 {
		return Slot0{}, fmt.Errorf("unexpected slot0 values: %d", len(values))
	}
	sqrtPrice, err := contract.AsBigInt(values[0])
	if err != nil {
		return Slot0{}, err
	}
	tick, err := contract.Int24(values[1])
	if err != nil {
		return Slot0{}, err
	}
	return Slot0{SqrtPriceX96: sqrtPrice, Tick: tick}, nil
}

func FetchLiquidity(ctx context.Context, pool *contract.Binding) (*big.Int, error) {
	values, err := pool.Read(ctx, "liquidity")
	if err != nil {
		return nil, err
	}
	return contract.AsBigInt(values[0])
}
