package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapscope/internal/chain"
	"swapscope/internal/model"
)

// TokenMetaCache caches token metadata by address. Metadata is immutable, so
// entries never expire.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenInfo
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenInfo)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenInfo, bool) {
	c.mu.RLock()
	info, ok := c.data[address]
	c.mu.RUnlock()
	return info, ok
}

func (c *TokenMetaCache) Set(address common.Address, info model.TokenInfo) {
	c.mu.Lock()
	c.data[address] = info
	c.mu.Unlock()
}

// Reader loads protocol state from the pool manager, position manager, and
// token contracts via eth_call.
type Reader struct {
	client          *chain.Client
	poolManager     common.Address
	positionManager common.Address
	tokenCache      *TokenMetaCache
	logger          *zap.Logger
}

func NewReader(client *chain.Client, poolManager, positionManager common.Address, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		client:          client,
		poolManager:     poolManager,
		positionManager: positionManager,
		tokenCache:      NewTokenMetaCache(),
		logger:          logger,
	}
}

// ListPools enumerates every pool registered with the pool manager.
func (r *Reader) ListPools(ctx context.Context) ([]model.Pool, error) {
	managerABI, err := PoolManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool manager abi: %w", err)
	}

	values, err := r.call(ctx, r.poolManager, managerABI, "poolCount")
	if err != nil {
		return nil, err
	}
	count, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("pool count: %w", err)
	}

	total := count.Uint64()
	pools := make([]model.Pool, 0, total)
	for i := uint64(0); i < total; i++ {
		values, err := r.call(ctx, r.poolManager, managerABI, "pools", new(big.Int).SetUint64(i))
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		pool, err := decodePool(i, values)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		pools = append(pools, pool)
	}

	return pools, nil
}

// ListPairs enumerates the pairs the pool manager lists as tradable.
func (r *Reader) ListPairs(ctx context.Context) ([]model.Pair, error) {
	managerABI, err := PoolManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool manager abi: %w", err)
	}

	values, err := r.call(ctx, r.poolManager, managerABI, "pairCount")
	if err != nil {
		return nil, err
	}
	count, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("pair count: %w", err)
	}

	total := count.Uint64()
	pairs := make([]model.Pair, 0, total)
	for i := uint64(0); i < total; i++ {
		values, err := r.call(ctx, r.poolManager, managerABI, "pairs", new(big.Int).SetUint64(i))
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		if len(values) < 2 {
			return nil, fmt.Errorf("pair %d: expected 2 fields, got %d", i, len(values))
		}
		token0, err := asAddress(values[0])
		if err != nil {
			return nil, fmt.Errorf("pair %d token0: %w", i, err)
		}
		token1, err := asAddress(values[1])
		if err != nil {
			return nil, fmt.Errorf("pair %d token1: %w", i, err)
		}
		pairs = append(pairs, model.Pair{Token0: token0, Token1: token1})
	}

	return pairs, nil
}

// ListPositions enumerates all positions and keeps those owned by owner. The
// manager has no per-owner view, so filtering happens here.
func (r *Reader) ListPositions(ctx context.Context, owner common.Address) ([]model.Position, error) {
	managerABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}

	values, err := r.call(ctx, r.positionManager, managerABI, "positionCount")
	if err != nil {
		return nil, err
	}
	count, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("position count: %w", err)
	}

	total := count.Uint64()
	positions := make([]model.Position, 0)
	for i := uint64(0); i < total; i++ {
		values, err := r.call(ctx, r.positionManager, managerABI, "positions", new(big.Int).SetUint64(i))
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		position, err := decodePosition(values)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		if position.Owner != owner {
			continue
		}
		positions = append(positions, position)
	}

	return positions, nil
}

// Allowance reads the ERC20 allowance granted by owner to spender.
func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	actionsABI, err := erc20ABIActionsInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := r.call(ctx, token, actionsABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	allowance, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("allowance: %w", err)
	}
	return allowance, nil
}

// BalanceOf reads the ERC20 balance of account.
func (r *Reader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	actionsABI, err := erc20ABIActionsInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := r.call(ctx, token, actionsABI, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	balance, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	return balance, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls, falling back to the
// bytes32 variants for tokens that predate the string returns. Results are
// cached for the reader's lifetime.
func (r *Reader) FetchTokenMeta(ctx context.Context, token common.Address) (model.TokenInfo, error) {
	if cached, ok := r.tokenCache.Get(token); ok {
		return cached, nil
	}

	info := model.TokenInfo{Address: token}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return info, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return info, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := r.call(ctx, token, stringABI, "decimals")
	if err != nil {
		return info, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return info, err
	}
	info.Decimals = decimals

	if values, err := r.call(ctx, token, stringABI, "symbol"); err == nil {
		if symbol, ok := values[0].(string); ok {
			info.Symbol = symbol
		}
	} else if values, err := r.call(ctx, token, bytes32ABI, "symbol"); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			info.Symbol = symbol
		}
	} else {
		r.logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := r.call(ctx, token, stringABI, "name"); err == nil {
		if name, ok := values[0].(string); ok {
			info.Name = name
		}
	} else if values, err := r.call(ctx, token, bytes32ABI, "name"); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			info.Name = name
		}
	} else {
		r.logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	r.tokenCache.Set(token, info)
	return info, nil
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := r.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func decodePool(index uint64, values []interface{}) (model.Pool, error) {
	if len(values) < 9 {
		return model.Pool{}, fmt.Errorf("expected 9 fields, got %d", len(values))
	}

	address, err := asAddress(values[0])
	if err != nil {
		return model.Pool{}, fmt.Errorf("pool address: %w", err)
	}
	token0, err := asAddress(values[1])
	if err != nil {
		return model.Pool{}, fmt.Errorf("token0: %w", err)
	}
	token1, err := asAddress(values[2])
	if err != nil {
		return model.Pool{}, fmt.Errorf("token1: %w", err)
	}
	feeInt, err := asBigInt(values[3])
	if err != nil {
		return model.Pool{}, fmt.Errorf("fee: %w", err)
	}
	tickLowerInt, err := asBigInt(values[4])
	if err != nil {
		return model.Pool{}, fmt.Errorf("tick lower: %w", err)
	}
	tickLower, err := int24FromBig(tickLowerInt)
	if err != nil {
		return model.Pool{}, fmt.Errorf("tick lower: %w", err)
	}
	tickUpperInt, err := asBigInt(values[5])
	if err != nil {
		return model.Pool{}, fmt.Errorf("tick upper: %w", err)
	}
	tickUpper, err := int24FromBig(tickUpperInt)
	if err != nil {
		return model.Pool{}, fmt.Errorf("tick upper: %w", err)
	}
	currentTickInt, err := asBigInt(values[6])
	if err != nil {
		return model.Pool{}, fmt.Errorf("current tick: %w", err)
	}
	currentTick, err := int24FromBig(currentTickInt)
	if err != nil {
		return model.Pool{}, fmt.Errorf("current tick: %w", err)
	}
	sqrtPrice, err := asBigInt(values[7])
	if err != nil {
		return model.Pool{}, fmt.Errorf("sqrt price: %w", err)
	}
	liquidity, err := asBigInt(values[8])
	if err != nil {
		return model.Pool{}, fmt.Errorf("liquidity: %w", err)
	}

	return model.Pool{
		Address:      address,
		Token0:       token0,
		Token1:       token1,
		PoolIndex:    index,
		Fee:          uint32(feeInt.Uint64()),
		TickLower:    tickLower,
		TickUpper:    tickUpper,
		CurrentTick:  currentTick,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
	}, nil
}

func decodePosition(values []interface{}) (model.Position, error) {
	if len(values) < 5 {
		return model.Position{}, fmt.Errorf("expected 5 fields, got %d", len(values))
	}

	owner, err := asAddress(values[0])
	if err != nil {
		return model.Position{}, fmt.Errorf("owner: %w", err)
	}
	poolIndex, err := asBigInt(values[1])
	if err != nil {
		return model.Position{}, fmt.Errorf("pool index: %w", err)
	}
	tickLowerInt, err := asBigInt(values[2])
	if err != nil {
		return model.Position{}, fmt.Errorf("tick lower: %w", err)
	}
	tickLower, err := int24FromBig(tickLowerInt)
	if err != nil {
		return model.Position{}, fmt.Errorf("tick lower: %w", err)
	}
	tickUpperInt, err := asBigInt(values[3])
	if err != nil {
		return model.Position{}, fmt.Errorf("tick upper: %w", err)
	}
	tickUpper, err := int24FromBig(tickUpperInt)
	if err != nil {
		return model.Position{}, fmt.Errorf("tick upper: %w", err)
	}
	liquidity, err := asBigInt(values[4])
	if err != nil {
		return model.Position{}, fmt.Errorf("liquidity: %w", err)
	}

	return model.Position{
		Owner:     owner,
		PoolIndex: poolIndex.Uint64(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: liquidity,
	}, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
