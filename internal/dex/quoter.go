package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"swapscope/internal/chain"
)

// RouterQuoter simulates swaps against the router's view functions via
// eth_call. No state changes, no gas spent.
type RouterQuoter struct {
	client *chain.Client
	router common.Address
}

func NewRouterQuoter(client *chain.Client, router common.Address) *RouterQuoter {
	return &RouterQuoter{client: client, router: router}
}

// QuoteExactInput returns the output amount a swap of amountIn would produce.
func (q *RouterQuoter) QuoteExactInput(ctx context.Context, tokenIn, tokenOut common.Address, poolIndex uint64, amountIn, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	return q.quote(ctx, "quoteExactInput", tokenIn, tokenOut, poolIndex, amountIn, sqrtPriceLimitX96)
}

// QuoteExactOutput returns the input amount required to receive amountOut.
func (q *RouterQuoter) QuoteExactOutput(ctx context.Context, tokenIn, tokenOut common.Address, poolIndex uint64, amountOut, sqrtPriceLimitX96 *big.Int) (*big.Int, error) {
	return q.quote(ctx, "quoteExactOutput", tokenIn, tokenOut, poolIndex, amountOut, sqrtPriceLimitX96)
}

func (q *RouterQuoter) quote(ctx context.Context, method string, tokenIn, tokenOut common.Address, poolIndex uint64, amt, limit *big.Int) (*big.Int, error) {
	parsed, err := RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}

	if limit == nil {
		limit = new(big.Int)
	}
	data, err := parsed.Pack(method, tokenIn, tokenOut, new(big.Int).SetUint64(poolIndex), amt, limit)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	msg := ethereum.CallMsg{To: &q.router, Data: data}
	resp, err := q.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	out, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s result: %w", method, err)
	}
	return out, nil
}
