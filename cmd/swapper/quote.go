package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapscope/internal/config"
	"swapscope/internal/dex"
	"swapscope/internal/model"
	"swapscope/internal/quote"
	"swapscope/internal/router"
)

// tradePrep is the resolved read-side state a quote or swap starts from: the
// pool set, the selected route, token metadata, and the fresh quote.
type tradePrep struct {
	intent   model.TradeIntent
	pool     *model.Pool
	route    *model.RouteSelection
	tokenIn  model.TokenInfo
	tokenOut model.TokenInfo
	pools    []model.Pool
	result   quote.Result
}

func prepareTrade(ctx context.Context, env *readEnv, cfg config.SwapConfig) (*tradePrep, error) {
	tokenIn, err := parseAddr("token-in", cfg.TokenIn)
	if err != nil {
		return nil, err
	}
	tokenOut, err := parseAddr("token-out", cfg.TokenOut)
	if err != nil {
		return nil, err
	}
	if tokenIn == tokenOut {
		return nil, fmt.Errorf("token-in and token-out must differ")
	}
	if cfg.Amount == "" {
		return nil, fmt.Errorf("amount is required")
	}

	mode := model.ExactIn
	if cfg.ExactOut {
		mode = model.ExactOut
	}
	intent := model.TradeIntent{
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
		Mode:     mode,
		Amount:   cfg.Amount,
	}

	pools, err := env.listPools(ctx)
	if err != nil {
		return nil, err
	}

	pool, route := router.SelectRoute(pools, intent)
	if route == nil {
		return nil, fmt.Errorf("routing unavailable for pair %s/%s", tokenIn.Hex(), tokenOut.Hex())
	}

	inInfo, err := env.reader.FetchTokenMeta(ctx, tokenIn)
	if err != nil {
		return nil, fmt.Errorf("token-in metadata: %w", err)
	}
	outInfo, err := env.reader.FetchTokenMeta(ctx, tokenOut)
	if err != nil {
		return nil, fmt.Errorf("token-out metadata: %w", err)
	}

	drivingDecimals, counterDecimals := inInfo.Decimals, outInfo.Decimals
	if mode == model.ExactOut {
		drivingDecimals, counterDecimals = outInfo.Decimals, inInfo.Decimals
	}

	quoter := dex.NewRouterQuoter(env.client, env.router)
	sync := quote.NewSynchronizer(quoter, env.logger)
	result := sync.Refresh(ctx, quote.Inputs{
		TokenIn:         tokenIn,
		TokenOut:        tokenOut,
		Mode:            mode,
		Amount:          cfg.Amount,
		DrivingDecimals: drivingDecimals,
		CounterDecimals: counterDecimals,
		Route:           route,
	})
	if result.Err != nil {
		env.logger.Warn("quote failed", zap.Error(result.Err))
	}

	return &tradePrep{
		intent:   intent,
		pool:     pool,
		route:    route,
		tokenIn:  inInfo,
		tokenOut: outInfo,
		pools:    pools,
		result:   result,
	}, nil
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSwap(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	env, err := newReadEnv(ctx, cfg.Config)
	if err != nil {
		return err
	}
	defer env.close()

	prep, err := prepareTrade(ctx, env, cfg)
	if err != nil {
		return err
	}
	if prep.result.Err != nil {
		return prep.result.Err
	}

	fmt.Printf("pool:       %d (%s, fee %d)\n", prep.pool.PoolIndex, prep.pool.Address.Hex(), prep.pool.Fee)
	fmt.Printf("price limit: %s\n", prep.route.PriceLimit)
	if prep.result.CounterAmount == "" {
		fmt.Println("no usable quote for this amount")
		return nil
	}

	counterSymbol := prep.tokenOut.Symbol
	if prep.intent.Mode == model.ExactOut {
		counterSymbol = prep.tokenIn.Symbol
	}
	fmt.Printf("counter:    %s %s\n", prep.result.CounterAmount, counterSymbol)
	return nil
}
