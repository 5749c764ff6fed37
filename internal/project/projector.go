package project

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"stakeScope/internal/hex"
	"stakeScope/internal/model"
	"stakeScope/internal/prom"
	"stakeScope/internal/storage"
)

// DefaultCursorName keys the projector's cursor row.
const DefaultCursorName = "projector"

// RedundantPolicy selects how redundant events are treated.
type RedundantPolicy string

const (
	RedundantSkip RedundantPolicy = "skip"
	RedundantFail RedundantPolicy = "fail"
)

// ParseRedundantPolicy validates a policy name.
func ParseRedundantPolicy(name string) (RedundantPolicy, error) {
	switch RedundantPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", RedundantSkip:
		return RedundantSkip, nil
	case RedundantFail:
		return RedundantFail, nil
	default:
		return "", fmt.Errorf("unsupported redundant policy: %s", name)
	}
}

// Config controls projection behavior.
type Config struct {
	CursorName  string
	OnRedundant RedundantPolicy
	// Contract filters input logs by emitter. Empty accepts any address.
	Contract string
}

// Outcome reports what Handle did with one log.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeSkipped
	OutcomeRedundant
)

// Stats summarizes a Run.
type Stats struct {
	Total     int
	Applied   int
	Skipped   int
	Replayed  int
	Redundant int
	Cursor    model.Cursor
}

// Projector applies HEX logs to an entity store, one transaction per log.
type Projector struct {
	cfg       Config
	store     storage.EntityStore
	builder   *hex.Builder
	lifecycle *Lifecycle
	global    *GlobalAggregator
	logger    *zap.Logger
}

func NewProjector(cfg Config, store storage.EntityStore, builder *hex.Builder, reader hex.ContractReader, logger *zap.Logger) (*Projector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		return nil, fmt.Errorf("entity store is nil")
	}
	if builder == nil {
		return nil, fmt.Errorf("event builder is nil")
	}
	if cfg.CursorName == "" {
		cfg.CursorName = DefaultCursorName
	}
	if cfg.OnRedundant == "" {
		cfg.OnRedundant = RedundantSkip
	}
	return &Projector{
		cfg:       cfg,
		store:     store,
		builder:   builder,
		lifecycle: NewLifecycle(logger),
		global:    NewGlobalAggregator(reader, logger),
		logger:    logger,
	}, nil
}

// Handle decodes and applies one log together with the cursor update.
func (p *Projector) Handle(ctx context.Context, log model.LogRecord) (Outcome, error) {
	raw, err := hex.BuildRawEvent(log)
	if err != nil {
		prom.IncDecodeFailure()
		return OutcomeSkipped, decodeFailure(log, err)
	}
	rec, err := p.builder.Build(ctx, raw)
	if err != nil {
		prom.IncDecodeFailure()
		return OutcomeSkipped, decodeFailure(log, err)
	}

	cursor := log.Position()
	contract := common.HexToAddress(log.Address)
	start := time.Now()
	err = p.store.Apply(ctx, func(tx storage.EntityTx) error {
		if err := p.apply(ctx, tx, contract, rec); err != nil {
			return err
		}
		return tx.SaveCursor(ctx, p.cfg.CursorName, cursor)
	})
	prom.ObserveApply(time.Since(start))
	if err == nil {
		prom.IncApplied(raw.EventName)
		prom.SetCursorBlock(cursor.BlockNumber)
		return OutcomeApplied, nil
	}

	var redundant *RedundantEventError
	if errors.As(err, &redundant) {
		prom.IncRejected(raw.EventName, "redundant")
		if p.cfg.OnRedundant == RedundantFail {
			return OutcomeRedundant, err
		}
		p.logger.Warn("redundant event skipped",
			zap.String("event", raw.EventName),
			zap.String("stake_id", redundant.StakeID),
			zap.Uint64("block_number", log.BlockNumber),
			zap.Uint64("log_index", log.LogIndex),
			zap.String("reason", redundant.Reason),
		)
		if err := p.store.Apply(ctx, func(tx storage.EntityTx) error {
			return tx.SaveCursor(ctx, p.cfg.CursorName, cursor)
		}); err != nil {
			return OutcomeRedundant, fmt.Errorf("advance cursor: %w", err)
		}
		prom.SetCursorBlock(cursor.BlockNumber)
		return OutcomeRedundant, nil
	}

	var precondition *PreconditionError
	if errors.As(err, &precondition) {
		prom.IncRejected(raw.EventName, "precondition")
	}
	return OutcomeSkipped, err
}

func (p *Projector) apply(ctx context.Context, tx storage.EntityTx, contract common.Address, rec interface{}) error {
	switch r := rec.(type) {
	case model.StakeStartRecord:
		_, err := p.lifecycle.Open(ctx, tx, r)
		return err
	case model.StakeEndRecord:
		_, err := p.lifecycle.Close(ctx, tx, r)
		return err
	case model.ShareRateChangeRecord:
		_, err := p.global.ShareRateChange(ctx, tx, contract, r)
		return err
	default:
		return fmt.Errorf("unsupported record type %T", rec)
	}
}

// Run applies every log of a JSONL file that comes after the stored cursor.
func (p *Projector) Run(ctx context.Context, inputPath string) (Stats, error) {
	var stats Stats
	cursor, hasCursor, err := p.store.LoadCursor(ctx, p.cfg.CursorName)
	if err != nil {
		return stats, fmt.Errorf("load cursor: %w", err)
	}
	stats.Cursor = cursor

	file, err := os.Open(inputPath)
	if err != nil {
		return stats, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	p.logger.Info("projection start",
		zap.String("in", inputPath),
		zap.String("cursor_name", p.cfg.CursorName),
		zap.Bool("resume", hasCursor),
		zap.Uint64("cursor_block", cursor.BlockNumber),
		zap.Uint64("cursor_log_index", cursor.LogIndex),
		zap.String("schema", string(p.builder.Schema())),
	)

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		stats.Total++

		var record model.LogRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return stats, fmt.Errorf("parse line %d: %w", line, err)
		}
		if !p.accepts(record) {
			stats.Skipped++
			continue
		}
		if hasCursor && !cursor.After(record.BlockNumber, record.LogIndex) {
			stats.Replayed++
			continue
		}

		outcome, err := p.Handle(ctx, record)
		if err != nil {
			p.logger.Error("projection stopped",
				zap.Int("line", line),
				zap.Uint64("block_number", record.BlockNumber),
				zap.Uint64("log_index", record.LogIndex),
				zap.String("tx_hash", record.TxHash),
				zap.Error(err),
			)
			return stats, err
		}
		switch outcome {
		case OutcomeApplied:
			stats.Applied++
		case OutcomeRedundant:
			stats.Redundant++
		}
		cursor = record.Position()
		hasCursor = true
		stats.Cursor = cursor
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}

	p.logger.Info("projection complete",
		zap.Int("total", stats.Total),
		zap.Int("applied", stats.Applied),
		zap.Int("skipped", stats.Skipped),
		zap.Int("replayed", stats.Replayed),
		zap.Int("redundant", stats.Redundant),
		zap.Uint64("cursor_block", stats.Cursor.BlockNumber),
	)
	return stats, nil
}

func (p *Projector) accepts(record model.LogRecord) bool {
	if record.Removed || record.Topic0() == "" {
		return false
	}
	if p.cfg.Contract != "" && !strings.EqualFold(p.cfg.Contract, record.Address) {
		return false
	}
	_, ok := hex.EventName(record.Topic0())
	return ok
}

func decodeFailure(log model.LogRecord, err error) error {
	return fmt.Errorf("decode log block=%d index=%d tx=%s: %w", log.BlockNumber, log.LogIndex, log.TxHash, err)
}
