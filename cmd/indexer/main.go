package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stakeScope/internal/chain"
	"stakeScope/internal/config"
	"stakeScope/internal/hex"
	"stakeScope/internal/indexer"
	"stakeScope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "HEX stake event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch raw HEX logs into JSONL",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().StringSlice("address", nil, "contract addresses (comma-separated), defaults to the HEX contract")
	runCmd.Flags().StringSlice("topic0", nil, "topic0 hashes or event names (comma-separated), defaults to the stake events")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed stake records",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("rpc", "", "Ethereum RPC URL (required for the legacy schema)")
	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("schema", "packed", "StakeStart wire format (packed, legacy)")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Project raw logs into stake and global state entities",
		RunE:  runProject,
	}

	projectCmd.Flags().String("rpc", "", "Ethereum RPC URL (archive node for historical globalInfo)")
	projectCmd.Flags().String("in", "./data/logs.jsonl", "input raw logs JSONL")
	projectCmd.Flags().String("pg-dsn", "", "Postgres DSN; when empty entities go to --state-file")
	projectCmd.Flags().Bool("ensure-schema", true, "create missing Postgres tables")
	projectCmd.Flags().String("state-file", "./data/state.json", "in-memory store snapshot path")
	projectCmd.Flags().String("cursor-name", "projector", "cursor row name")
	projectCmd.Flags().String("contract", hex.ContractAddress, "only project logs emitted by this address (empty accepts any)")
	projectCmd.Flags().String("schema", "packed", "StakeStart wire format (packed, legacy)")
	projectCmd.Flags().String("on-redundant", "skip", "redundant event policy (skip, fail)")
	projectCmd.Flags().Int("max-retries", 3, "maximum retry attempts for contract reads")
	projectCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff for contract reads")
	projectCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	projectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(projectCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	addresses, err := indexer.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("address list is required")
	}

	topic0, err := indexer.ParseTopic0(cfg.Topic0)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	storageSink := storage.NewJsonlStorage(cfg.Out)

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Addresses:         addresses,
		Topic0:            topic0,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, storageSink, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
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
