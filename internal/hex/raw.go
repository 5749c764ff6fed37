package hex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"stakeScope/internal/model"
)

// EventName resolves topic0 to a handled event name.
func EventName(topic0 string) (string, bool) {
	parsed, err := ContractABI()
	if err != nil {
		return "", false
	}
	event, err := parsed.EventByID(common.HexToHash(topic0))
	if err != nil || event == nil {
		return "", false
	}
	return event.Name, true
}

// BuildRawEvent splits a normalized log into indexed params and payload blobs.
// Each uint256 data word is reversed so that blob byte 0 is the lowest byte.
func BuildRawEvent(log model.LogRecord) (model.RawEvent, error) {
	if len(log.Topics) == 0 {
		return model.RawEvent{}, fmt.Errorf("missing topics")
	}
	name, ok := EventName(log.Topics[0])
	if !ok {
		return model.RawEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}
	parsed, err := ContractABI()
	if err != nil {
		return model.RawEvent{}, err
	}
	event := parsed.Events[name]

	raw := model.RawEvent{
		EventName:   name,
		Address:     log.Address,
		BlockNumber: log.BlockNumber,
		Timestamp:   log.Timestamp,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
	}

	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.RawEvent{}, &DecodeError{Event: name, Err: err}
	}
	var indexed struct {
		StakerAddr common.Address
		StakeId    *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.RawEvent{}, &DecodeError{Event: name, Err: fmt.Errorf("parse topics: %w", err)}
	}
	if indexed.StakeId == nil || !indexed.StakeId.IsUint64() {
		return model.RawEvent{}, &DecodeError{Event: name, Field: "stakeId", Err: fmt.Errorf("missing or oversized stake id")}
	}
	raw.StakeID = indexed.StakeId.Uint64()
	if name != EventShareRateChange {
		raw.StakerAddress = indexed.StakerAddr.Hex()
	}

	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return model.RawEvent{}, &DecodeError{Event: name, StakeID: raw.StakeID, Err: fmt.Errorf("invalid data: %w", err)}
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return model.RawEvent{}, &DecodeError{Event: name, StakeID: raw.StakeID, Err: fmt.Errorf("unpack: %w", err)}
	}
	blobs := make([][]byte, 0, len(values))
	for i, value := range values {
		word, ok := value.(*big.Int)
		if !ok {
			return model.RawEvent{}, &DecodeError{Event: name, StakeID: raw.StakeID, Field: fmt.Sprintf("data%d", i), Err: fmt.Errorf("unexpected type %T", value)}
		}
		blobs = append(blobs, wordToBlob(word))
	}
	if len(blobs) > 0 {
		raw.Data0 = blobs[0]
	}
	if len(blobs) > 1 {
		raw.Data1 = blobs[1]
	}
	return raw, nil
}

// wordToBlob converts a uint256 into its 32-byte little-endian form.
func wordToBlob(word *big.Int) []byte {
	be := math.PaddedBigBytes(word, WordSize)
	blob := make([]byte, len(be))
	for i, b := range be {
		blob[len(be)-1-i] = b
	}
	return blob
}

// BlobToWord is the inverse of the data word reversal.
func BlobToWord(blob []byte) *big.Int {
	be := make([]byte, len(blob))
	for i, b := range blob {
		be[len(blob)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	out := make([]common.Hash, 0, indexedCount)
	for _, topic := range topics[1:] {
		data, err := hexutil.Decode(strings.TrimSpace(topic))
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
