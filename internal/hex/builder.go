package hex

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"stakeScope/internal/bitfield"
	"stakeScope/internal/model"
)

// SchemaVersion selects the wire format a StakeStart payload was written in.
type SchemaVersion string

const (
	// SchemaPacked carries every stake field in data0.
	SchemaPacked SchemaVersion = "packed"
	// SchemaLegacy resolves stake fields from the contract's stake list.
	SchemaLegacy SchemaVersion = "legacy"
)

// ParseSchemaVersion validates a schema name.
func ParseSchemaVersion(name string) (SchemaVersion, error) {
	switch SchemaVersion(strings.ToLower(strings.TrimSpace(name))) {
	case "", SchemaPacked:
		return SchemaPacked, nil
	case SchemaLegacy:
		return SchemaLegacy, nil
	default:
		return "", fmt.Errorf("unsupported schema version: %s", name)
	}
}

type stakeStartDecoder interface {
	decodeStakeStart(ctx context.Context, raw model.RawEvent) (model.StakeStartRecord, error)
}

// Builder turns raw events into typed records.
type Builder struct {
	schema   SchemaVersion
	decoders map[SchemaVersion]stakeStartDecoder
	logger   *zap.Logger
}

// NewBuilder returns a Builder for schema. reader may be nil for SchemaPacked.
func NewBuilder(schema SchemaVersion, reader ContractReader, logger *zap.Logger) (*Builder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schema == SchemaLegacy && reader == nil {
		return nil, fmt.Errorf("legacy schema requires a contract reader")
	}
	b := &Builder{
		schema: schema,
		decoders: map[SchemaVersion]stakeStartDecoder{
			SchemaPacked: packedDecoder{logger: logger},
		},
		logger: logger,
	}
	if reader != nil {
		b.decoders[SchemaLegacy] = legacyDecoder{reader: reader, logger: logger}
	}
	if _, ok := b.decoders[schema]; !ok {
		return nil, fmt.Errorf("unsupported schema version: %s", schema)
	}
	return b, nil
}

// Schema returns the configured schema version.
func (b *Builder) Schema() SchemaVersion {
	return b.schema
}

// Build decodes raw into its typed record, dispatching on the event name.
func (b *Builder) Build(ctx context.Context, raw model.RawEvent) (interface{}, error) {
	switch raw.EventName {
	case EventStakeStart:
		return b.StakeStart(ctx, raw)
	case EventStakeEnd:
		return b.StakeEnd(raw)
	case EventShareRateChange:
		return b.ShareRateChange(raw)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", raw.EventName)
	}
}

// StakeStart decodes a StakeStart event with the configured schema.
func (b *Builder) StakeStart(ctx context.Context, raw model.RawEvent) (model.StakeStartRecord, error) {
	if raw.EventName != EventStakeStart {
		return model.StakeStartRecord{}, fmt.Errorf("expected %s, got %s", EventStakeStart, raw.EventName)
	}
	return b.decoders[b.schema].decodeStakeStart(ctx, raw)
}

// StakeEnd decodes a StakeEnd event. Both schema versions share this layout.
func (b *Builder) StakeEnd(raw model.RawEvent) (model.StakeEndRecord, error) {
	if raw.EventName != EventStakeEnd {
		return model.StakeEndRecord{}, fmt.Errorf("expected %s, got %s", EventStakeEnd, raw.EventName)
	}
	f := fieldReader{event: EventStakeEnd, raw: raw}
	if err := f.require(raw.Data0, "data0", StakeEndPayout); err != nil {
		return model.StakeEndRecord{}, err
	}
	if err := f.require(raw.Data1, "data1", StakeEndPrevUnlocked); err != nil {
		return model.StakeEndRecord{}, err
	}

	rec := model.StakeEndRecord{
		StakeID:       formatStakeID(raw.StakeID),
		StakerAddress: raw.StakerAddress,
		StakedHearts:  f.readUint(raw.Data0, "stakedHearts", StakeEndStakedHearts),
		StakedShares:  f.readUint(raw.Data0, "stakedShares", StakeEndStakedShares),
		Payout:        f.readUint(raw.Data0, "payout", StakeEndPayout),
		Penalty:       f.readUint(raw.Data1, "penalty", StakeEndPenalty),
		ServedDays:    f.readUint64(raw.Data1, "servedDays", StakeEndServedDays),
		PrevUnlocked:  f.readBool(raw.Data1, "prevUnlocked", StakeEndPrevUnlocked),
		BlockNumber:   raw.BlockNumber,
		Timestamp:     raw.Timestamp,
	}
	if f.err != nil {
		return model.StakeEndRecord{}, f.err
	}

	b.logger.Debug("decoded stake end",
		zap.String("stake_id", rec.StakeID),
		zap.String("data0", hexutil.Encode(raw.Data0)),
		zap.String("data1", hexutil.Encode(raw.Data1)),
		zap.Stringer("staked_hearts", rec.StakedHearts),
		zap.Stringer("staked_shares", rec.StakedShares),
		zap.Stringer("payout", rec.Payout),
		zap.Stringer("penalty", rec.Penalty),
		zap.Uint64("served_days", rec.ServedDays),
		zap.Bool("prev_unlocked", rec.PrevUnlocked),
	)
	return rec, nil
}

// ShareRateChange decodes a ShareRateChange event. The legacy schema carries
// no usable payload, so ShareRate stays nil there.
func (b *Builder) ShareRateChange(raw model.RawEvent) (model.ShareRateChangeRecord, error) {
	if raw.EventName != EventShareRateChange {
		return model.ShareRateChangeRecord{}, fmt.Errorf("expected %s, got %s", EventShareRateChange, raw.EventName)
	}
	rec := model.ShareRateChangeRecord{
		StakeID:     formatStakeID(raw.StakeID),
		BlockNumber: raw.BlockNumber,
		Timestamp:   raw.Timestamp,
	}
	if b.schema == SchemaLegacy {
		return rec, nil
	}

	f := fieldReader{event: EventShareRateChange, raw: raw}
	if err := f.require(raw.Data0, "data0", ShareRateChangeShareRate); err != nil {
		return model.ShareRateChangeRecord{}, err
	}
	rec.ShareRate = f.readUint(raw.Data0, "shareRate", ShareRateChangeShareRate)
	if f.err != nil {
		return model.ShareRateChangeRecord{}, f.err
	}
	return rec, nil
}

type packedDecoder struct {
	logger *zap.Logger
}

func (d packedDecoder) decodeStakeStart(_ context.Context, raw model.RawEvent) (model.StakeStartRecord, error) {
	f := fieldReader{event: EventStakeStart, raw: raw}
	if err := f.require(raw.Data0, "data0", StakeStartIsAutoStake); err != nil {
		return model.StakeStartRecord{}, err
	}

	rec := model.StakeStartRecord{
		StakeID:       formatStakeID(raw.StakeID),
		StakerAddress: raw.StakerAddress,
		StakedHearts:  f.readUint(raw.Data0, "stakedHearts", StakeStartStakedHearts),
		StakedShares:  f.readUint(raw.Data0, "stakedShares", StakeStartStakedShares),
		StakedDays:    f.readUint64(raw.Data0, "stakedDays", StakeStartStakedDays),
		IsAutoStake:   f.readBool(raw.Data0, "isAutoStake", StakeStartIsAutoStake),
		BlockNumber:   raw.BlockNumber,
		Timestamp:     raw.Timestamp,
	}
	if f.err != nil {
		return model.StakeStartRecord{}, f.err
	}

	d.logger.Debug("decoded stake start",
		zap.String("stake_id", rec.StakeID),
		zap.String("data0", hexutil.Encode(raw.Data0)),
		zap.Stringer("staked_hearts", rec.StakedHearts),
		zap.Stringer("staked_shares", rec.StakedShares),
		zap.Uint64("staked_days", rec.StakedDays),
		zap.Bool("is_auto_stake", rec.IsAutoStake),
	)
	return rec, nil
}

// legacyDecoder reads the newest stake list entry of the staker at the event
// block. If two stakes are opened by the same address in the same block,
// index-based lookup cannot disambiguate them.
type legacyDecoder struct {
	reader ContractReader
	logger *zap.Logger
}

func (d legacyDecoder) decodeStakeStart(ctx context.Context, raw model.RawEvent) (model.StakeStartRecord, error) {
	if !common.IsHexAddress(raw.Address) {
		return model.StakeStartRecord{}, fmt.Errorf("invalid contract address: %s", raw.Address)
	}
	if !common.IsHexAddress(raw.StakerAddress) {
		return model.StakeStartRecord{}, &DecodeError{Event: EventStakeStart, StakeID: raw.StakeID, Field: "stakerAddr", Err: fmt.Errorf("invalid address %q", raw.StakerAddress)}
	}
	contract := common.HexToAddress(raw.Address)
	staker := common.HexToAddress(raw.StakerAddress)

	count, err := d.reader.StakeCount(ctx, contract, staker, raw.BlockNumber)
	if err != nil {
		return model.StakeStartRecord{}, fmt.Errorf("stake count: %w", err)
	}
	if count == 0 {
		return model.StakeStartRecord{}, fmt.Errorf("staker %s has no stakes at block %d", staker.Hex(), raw.BlockNumber)
	}
	entry, err := d.reader.StakeListEntry(ctx, contract, staker, count-1, raw.BlockNumber)
	if err != nil {
		return model.StakeStartRecord{}, fmt.Errorf("stake list entry: %w", err)
	}
	if entry.StakeID != raw.StakeID {
		d.logger.Warn("stake list entry does not match event",
			zap.Uint64("event_stake_id", raw.StakeID),
			zap.Uint64("entry_stake_id", entry.StakeID),
			zap.String("staker", staker.Hex()),
			zap.Uint64("block_number", raw.BlockNumber),
		)
	}

	return model.StakeStartRecord{
		StakeID:       formatStakeID(raw.StakeID),
		StakerAddress: raw.StakerAddress,
		StakedHearts:  entry.StakedHearts,
		StakedShares:  entry.StakedShares,
		StakedDays:    uint64(entry.StakedDays),
		IsAutoStake:   entry.IsAutoStake,
		BlockNumber:   raw.BlockNumber,
		Timestamp:     raw.Timestamp,
	}, nil
}

// fieldReader keeps the first decode failure so field reads can be chained.
type fieldReader struct {
	event string
	raw   model.RawEvent
	err   error
}

func (f *fieldReader) fail(field string, err error) {
	if f.err == nil {
		f.err = &DecodeError{Event: f.event, StakeID: f.raw.StakeID, Field: field, Err: err}
	}
}

func (f *fieldReader) require(buf []byte, field string, last bitfield.Range) error {
	if err := bitfield.Require(buf, last); err != nil {
		f.fail(field, err)
		return f.err
	}
	return nil
}

func (f *fieldReader) readUint(buf []byte, field string, r bitfield.Range) *big.Int {
	v, err := bitfield.Uint(buf, r)
	if err != nil {
		f.fail(field, err)
		return nil
	}
	return v
}

func (f *fieldReader) readUint64(buf []byte, field string, r bitfield.Range) uint64 {
	v, err := bitfield.Uint64(buf, r)
	if err != nil {
		f.fail(field, err)
		return 0
	}
	return v
}

func (f *fieldReader) readBool(buf []byte, field string, r bitfield.Range) bool {
	v, err := bitfield.Bool(buf, r)
	if err != nil {
		f.fail(field, err)
		return false
	}
	return v
}

func formatStakeID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
