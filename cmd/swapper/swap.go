package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapscope/internal/chain"
	"swapscope/internal/config"
	"swapscope/internal/dex"
	"swapscope/internal/model"
	"swapscope/internal/storage"
	"swapscope/internal/storage/postgres"
	"swapscope/internal/trade"
)

func runSwap(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSwap(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	if cfg.PrivateKey == "" {
		return fmt.Errorf("private key is required (flag or SWAPPER_PRIVATE_KEY)")
	}

	ctx, stop := signalContext()
	defer stop()

	env, err := newReadEnv(ctx, cfg.Config)
	if err != nil {
		return err
	}
	defer env.close()

	signer, err := chain.NewSigner(ctx, env.client, cfg.PrivateKey)
	if err != nil {
		return err
	}

	recipient := signer.From()
	if cfg.Recipient != "" {
		recipient, err = parseAddr("recipient", cfg.Recipient)
		if err != nil {
			return err
		}
	}

	prep, err := prepareTrade(ctx, env, cfg)
	if err != nil {
		return err
	}

	chainID, err := env.client.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	journal := storage.NewJsonlJournal(cfg.Journal)
	var store *postgres.Store
	if cfg.PostgresDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if err := store.UpsertPools(ctx, chainID.Uint64(), prep.pools); err != nil {
			env.logger.Warn("pool snapshot upsert failed", zap.Error(err))
		}
	}

	record := func(tx model.PendingTransaction, failErr error) {
		rec := model.TransactionRecord{
			ChainID:     chainID.Uint64(),
			Kind:        string(tx.Kind),
			TxHash:      tx.Hash.Hex(),
			TokenIn:     prep.intent.TokenIn.Hex(),
			TokenOut:    prep.intent.TokenOut.Hex(),
			PoolIndex:   prep.route.PoolIndex,
			Amount:      cfg.Amount,
			Status:      string(tx.Status),
			SubmittedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if failErr != nil {
			rec.Error = failErr.Error()
		}
		if err := journal.PutTransactions([]model.TransactionRecord{rec}); err != nil {
			env.logger.Warn("journal write failed", zap.Error(err))
		}
		if store != nil {
			if err := store.PutTransactions(ctx, []model.TransactionRecord{rec}); err != nil {
				env.logger.Warn("postgres journal write failed", zap.Error(err))
			}
		}
	}

	hooks := trade.Hooks{
		OnState: func(s trade.State) {
			fmt.Printf("state: %s\n", s)
		},
		OnTransaction: func(tx model.PendingTransaction) {
			fmt.Printf("%s %s: %s\n", tx.Kind, tx.Hash.Hex(), tx.Status)
			record(tx, nil)
		},
		OnSettled: func() {
			fmt.Println("swap confirmed")
		},
	}

	executor := dex.NewExecutor(env.client, signer, env.reader, env.router)
	orchestrator := trade.NewOrchestrator(executor, hooks, env.logger)

	plan := trade.Plan{
		TokenIn:   prep.tokenIn,
		TokenOut:  prep.tokenOut,
		Mode:      prep.intent.Mode,
		Amount:    cfg.Amount,
		Route:     *prep.route,
		Quoted:    prep.result.CounterRaw,
		Owner:     signer.From(),
		Recipient: recipient,
		Router:    env.router,
	}

	outcome, err := orchestrator.Execute(ctx, plan)
	if outcome.Failure != nil {
		fmt.Printf("failed during %s: %s\n", outcome.Failure.Stage, outcome.Failure.Category)
		failed := outcome.Swap
		if failed == nil {
			failed = outcome.Approval
		}
		if failed != nil {
			record(*failed, outcome.Failure.Err)
		}
	}
	return err
}
