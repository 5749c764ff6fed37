package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakeScope/internal/chain"
	"stakeScope/internal/config"
	"stakeScope/internal/hex"
	"stakeScope/internal/project"
	"stakeScope/internal/prom"
	"stakeScope/internal/storage"
	"stakeScope/internal/storage/postgres"
)

func runProject(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadProject(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.PGDSN == "" && cfg.StateFile == "" {
		return fmt.Errorf("either pg dsn or state file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		prom.Init()
		prom.Serve(ctx, cfg.MetricsAddr, logger)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()
	reader := hex.NewChainReader(chain.NewRetryCaller(chainClient, cfg.MaxRetries, cfg.RetryBackoff, logger))

	builder, err := hex.NewBuilder(cfg.Schema, reader, logger)
	if err != nil {
		return err
	}

	var (
		store    storage.EntityStore
		snapshot *storage.MemoryStore
	)
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()
		if cfg.EnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				return err
			}
		}
		store = pg
	} else {
		snapshot, err = storage.LoadMemoryStore(cfg.StateFile)
		if err != nil {
			return err
		}
		store = snapshot
	}

	projector, err := project.NewProjector(project.Config{
		CursorName:  cfg.CursorName,
		OnRedundant: cfg.OnRedundant,
		Contract:    cfg.Contract,
	}, store, builder, reader, logger)
	if err != nil {
		return err
	}

	logger.Info("project start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("state_file", cfg.StateFile),
		zap.String("schema", string(cfg.Schema)),
		zap.String("on_redundant", string(cfg.OnRedundant)),
		zap.String("contract", cfg.Contract),
	)

	_, runErr := projector.Run(ctx, cfg.Input)

	// persist what was committed, including after a stopped run
	if snapshot != nil {
		if err := snapshot.SaveFile(cfg.StateFile); err != nil {
			if runErr != nil {
				logger.Error("save snapshot", zap.Error(err))
				return runErr
			}
			return err
		}
		logger.Info("snapshot saved", zap.String("state_file", cfg.StateFile), zap.Any("counts", snapshot.Counts()))
	}
	return runErr
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
