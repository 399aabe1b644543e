package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"swapscope/internal/chain"
	"swapscope/internal/model"
)

// Executor submits approval and swap transactions through a local signer and
// waits for their receipts. It satisfies the trade orchestrator's executor
// contract.
type Executor struct {
	client *chain.Client
	signer *chain.Signer
	reader *Reader
	router common.Address
}

func NewExecutor(client *chain.Client, signer *chain.Signer, reader *Reader, router common.Address) *Executor {
	return &Executor{client: client, signer: signer, reader: reader, router: router}
}

// Allowance reads the current ERC20 allowance for (owner, spender).
func (e *Executor) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return e.reader.Allowance(ctx, token, owner, spender)
}

// Approve submits an ERC20 approve for the given value.
func (e *Executor) Approve(ctx context.Context, token, spender common.Address, value *big.Int) (common.Hash, error) {
	actionsABI, err := erc20ABIActionsInstance()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := actionsABI.Pack("approve", spender, value)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack approve: %w", err)
	}
	return e.signer.Send(ctx, token, data)
}

// Swap submits the router call for the trade. The router method and argument
// order depend on the trade mode; everything else comes from params.
func (e *Executor) Swap(ctx context.Context, params model.SwapParams) (common.Hash, error) {
	routerABI, err := RouterABI()
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse router abi: %w", err)
	}

	method := "exactInput"
	if params.Mode == model.ExactOut {
		method = "exactOutput"
	}

	limit := params.SqrtPriceLimitX96
	if limit == nil {
		limit = new(big.Int)
	}
	data, err := routerABI.Pack(method,
		params.TokenIn,
		params.TokenOut,
		new(big.Int).SetUint64(params.PoolIndex),
		params.Recipient,
		new(big.Int).SetUint64(params.Deadline),
		params.Amount,
		params.Bound,
		limit,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}

	return e.signer.Send(ctx, e.router, data)
}

// WaitConfirmed blocks until the transaction is mined, reporting a revert as
// an error.
func (e *Executor) WaitConfirmed(ctx context.Context, hash common.Hash) error {
	return e.client.WaitConfirmed(ctx, hash)
}
