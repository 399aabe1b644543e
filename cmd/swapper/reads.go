package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapscope/internal/amount"
	"swapscope/internal/chain"
	"swapscope/internal/config"
	"swapscope/internal/dex"
	"swapscope/internal/model"
)

// readEnv bundles the pieces every read command needs.
type readEnv struct {
	cfg    config.Config
	logger *zap.Logger
	client *chain.Client
	reader *dex.Reader
	router common.Address
}

func newReadEnv(ctx context.Context, cfg config.Config) (*readEnv, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	poolManager, err := parseAddr("pool-manager", cfg.PoolManager)
	if err != nil {
		return nil, err
	}
	positionManager, err := parseAddr("position-manager", cfg.PositionManager)
	if err != nil {
		return nil, err
	}
	router, err := parseAddr("router", cfg.Router)
	if err != nil {
		return nil, err
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	return &readEnv{
		cfg:    cfg,
		logger: logger,
		client: client,
		reader: dex.NewReader(client, poolManager, positionManager, logger),
		router: router,
	}, nil
}

func (e *readEnv) close() {
	e.client.Close()
	e.logger.Sync()
}

// listPools fetches the pool set with the configured retry policy.
func (e *readEnv) listPools(ctx context.Context) ([]model.Pool, error) {
	var pools []model.Pool
	err := chain.WithRetry(ctx, e.cfg.MaxRetries, e.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		pools, err = e.reader.ListPools(ctx)
		return err
	})
	return pools, err
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseAddr(name, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("%s is required", name)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func runPools(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	env, err := newReadEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.close()

	pools, err := env.listPools(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tPOOL\tTOKEN0\tTOKEN1\tFEE\tTICK\tLIQUIDITY\tUSABLE")
	for _, pool := range pools {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\t%t\n",
			pool.PoolIndex, pool.Address.Hex(), pool.Token0.Hex(), pool.Token1.Hex(),
			pool.Fee, pool.CurrentTick, pool.Liquidity, pool.Usable())
	}
	return w.Flush()
}

func runPairs(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	env, err := newReadEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.close()

	var pairs []model.Pair
	err = chain.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		pairs, err = env.reader.ListPairs(ctx)
		return err
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOKEN0\tTOKEN1")
	for _, pair := range pairs {
		fmt.Fprintf(w, "%s\t%s\n", pair.Token0.Hex(), pair.Token1.Hex())
	}
	return w.Flush()
}

func runPositions(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ownerFlag, _ := cmd.Flags().GetString("owner")
	owner, err := parseAddr("owner", ownerFlag)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	env, err := newReadEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.close()

	var positions []model.Position
	err = chain.WithRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		positions, err = env.reader.ListPositions(ctx, owner)
		return err
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POOL_INDEX\tTICK_LOWER\tTICK_UPPER\tLIQUIDITY")
	for _, position := range positions {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n",
			position.PoolIndex, position.TickLower, position.TickUpper, position.Liquidity)
	}
	return w.Flush()
}

func runBalance(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	tokenFlag, _ := cmd.Flags().GetString("token")
	token, err := parseAddr("token", tokenFlag)
	if err != nil {
		return err
	}
	accountFlag, _ := cmd.Flags().GetString("account")
	account, err := parseAddr("account", accountFlag)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	env, err := newReadEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.close()

	info, err := env.reader.FetchTokenMeta(ctx, token)
	if err != nil {
		return err
	}
	balance, err := env.reader.BalanceOf(ctx, token, account)
	if err != nil {
		return err
	}

	symbol := info.Symbol
	if symbol == "" {
		symbol = token.Hex()
	}
	fmt.Printf("%s %s\n", amount.Format(balance, info.Decimals), symbol)
	return nil
}
