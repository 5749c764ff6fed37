package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakeScope/internal/chain"
	"stakeScope/internal/config"
	"stakeScope/internal/hex"
	"stakeScope/internal/model"
	"stakeScope/internal/storage"
)

func runDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDecode(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
	}
	if cfg.Schema == hex.SchemaLegacy && cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required for the legacy schema")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reader hex.ContractReader
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		reader = hex.NewChainReader(chainClient)
	}

	builder, err := hex.NewBuilder(cfg.Schema, reader, logger)
	if err != nil {
		return err
	}

	inputFile, err := os.Open(cfg.In)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer inputFile.Close()

	outWriter, err := storage.NewJSONLWriter(cfg.Out, false)
	if err != nil {
		return err
	}
	defer outWriter.Close()

	errWriter, err := storage.NewJSONLWriter(cfg.Errors, false)
	if err != nil {
		return err
	}
	defer errWriter.Close()

	logger.Info("decode start",
		zap.String("in", cfg.In),
		zap.String("out", cfg.Out),
		zap.String("errors", cfg.Errors),
		zap.String("schema", string(cfg.Schema)),
	)

	scanner := bufio.NewScanner(inputFile)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var total, decoded, skipped, failed int
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.LogRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			writeDecodeError(errWriter, model.DecodeError{Error: err.Error()})
			continue
		}
		if record.Topic0() == "" {
			failed++
			writeDecodeError(errWriter, decodeErrorFromRecord(record, fmt.Errorf("missing topic0")))
			continue
		}
		if _, ok := hex.EventName(record.Topic0()); !ok || record.Removed {
			skipped++
			continue
		}

		event, err := decodeRecord(ctx, builder, record)
		if err != nil {
			failed++
			writeDecodeError(errWriter, decodeErrorFromRecord(record, err))
			continue
		}

		if err := outWriter.Write(event); err != nil {
			return err
		}
		decoded++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	logger.Info("decode complete",
		zap.Int("total", total),
		zap.Int("decoded", decoded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func decodeRecord(ctx context.Context, builder *hex.Builder, record model.LogRecord) (model.TypedEvent, error) {
	raw, err := hex.BuildRawEvent(record)
	if err != nil {
		return model.TypedEvent{}, err
	}
	decoded, err := builder.Build(ctx, raw)
	if err != nil {
		return model.TypedEvent{}, err
	}

	return model.TypedEvent{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		BlockHash:   record.BlockHash,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		EventName:   raw.EventName,
		Timestamp:   record.Timestamp,
		Day:         hex.DayNumber(record.Timestamp),
		Schema:      string(builder.Schema()),
		Decoded:     decoded,
		Raw: &model.RawLogRef{
			Topic0: record.Topic0(),
			Data:   record.Data,
		},
	}, nil
}

func decodeErrorFromRecord(record model.LogRecord, err error) model.DecodeError {
	out := model.DecodeError{
		ChainID:     record.ChainID,
		BlockNumber: record.BlockNumber,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Address:     record.Address,
		Topic0:      record.Topic0(),
		Error:       err.Error(),
	}
	var decodeErr *hex.DecodeError
	if errors.As(err, &decodeErr) {
		out.EventName = decodeErr.Event
		out.StakeID = fmt.Sprintf("%d", decodeErr.StakeID)
	}
	return out
}

func writeDecodeError(writer *storage.JSONLWriter, errRecord model.DecodeError) {
	if writer == nil {
		return
	}
	_ = writer.Write(errRecord)
}
