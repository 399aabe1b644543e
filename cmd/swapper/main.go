package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "swapper",
		Short:        "Concentrated-liquidity swap client",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "List pools registered with the pool manager",
		RunE:  runPools,
	}
	addReadFlags(poolsCmd)
	root.AddCommand(poolsCmd)

	pairsCmd := &cobra.Command{
		Use:   "pairs",
		Short: "List tradable pairs",
		RunE:  runPairs,
	}
	addReadFlags(pairsCmd)
	root.AddCommand(pairsCmd)

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "List liquidity positions for an owner",
		RunE:  runPositions,
	}
	addReadFlags(positionsCmd)
	positionsCmd.Flags().String("owner", "", "position owner address")
	root.AddCommand(positionsCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show an ERC20 balance",
		RunE:  runBalance,
	}
	addReadFlags(balanceCmd)
	balanceCmd.Flags().String("token", "", "token address")
	balanceCmd.Flags().String("account", "", "account address")
	root.AddCommand(balanceCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap without submitting it",
		RunE:  runQuote,
	}
	addReadFlags(quoteCmd)
	addTradeFlags(quoteCmd)
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a swap, approving first when needed",
		RunE:  runSwap,
	}
	addReadFlags(swapCmd)
	addTradeFlags(swapCmd)
	swapCmd.Flags().String("private-key", "", "hex private key (prefer SWAPPER_PRIVATE_KEY)")
	swapCmd.Flags().String("recipient", "", "swap recipient, defaults to the signer")
	swapCmd.Flags().String("journal", "./data/trades.jsonl", "trade journal JSONL path")
	swapCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for the trade journal")
	root.AddCommand(swapCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addReadFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "chain RPC URL")
	cmd.Flags().String("pool-manager", "", "pool manager contract address")
	cmd.Flags().String("position-manager", "", "position manager contract address")
	cmd.Flags().String("router", "", "swap router contract address")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts for chain reads")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addTradeFlags(cmd *cobra.Command) {
	cmd.Flags().String("token-in", "", "token to sell")
	cmd.Flags().String("token-out", "", "token to buy")
	cmd.Flags().String("amount", "", "human decimal amount for the driving side")
	cmd.Flags().Bool("exact-out", false, "fix the output amount instead of the input")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
