package hex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Event names emitted by the contract.
const (
	EventStakeStart      = "StakeStart"
	EventStakeEnd        = "StakeEnd"
	EventShareRateChange = "ShareRateChange"
)

// ContractAddress is the mainnet deployment.
const ContractAddress = "0x2b591e99afE9f32eAA6214f7B7629768c40Eeb39"

const contractABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "data0", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "stakerAddr", "type": "address"},
      {"indexed": true, "internalType": "uint40", "name": "stakeId", "type": "uint40"}
    ],
    "name": "StakeStart",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "data0", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "data1", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "stakerAddr", "type": "address"},
      {"indexed": true, "internalType": "uint40", "name": "stakeId", "type": "uint40"}
    ],
    "name": "StakeEnd",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "data0", "type": "uint256"},
      {"indexed": true, "internalType": "uint40", "name": "stakeId", "type": "uint40"}
    ],
    "name": "ShareRateChange",
    "type": "event"
  },
  {
    "inputs": [],
    "name": "globalInfo",
    "outputs": [{"internalType": "uint256[13]", "name": "", "type": "uint256[13]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address", "name": "stakerAddr", "type": "address"}],
    "name": "stakeCount",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "", "type": "address"},
      {"internalType": "uint256", "name": "", "type": "uint256"}
    ],
    "name": "stakeLists",
    "outputs": [
      {"internalType": "uint40", "name": "stakeId", "type": "uint40"},
      {"internalType": "uint72", "name": "stakedHearts", "type": "uint72"},
      {"internalType": "uint72", "name": "stakeShares", "type": "uint72"},
      {"internalType": "uint16", "name": "lockedDay", "type": "uint16"},
      {"internalType": "uint16", "name": "stakedDays", "type": "uint16"},
      {"internalType": "uint16", "name": "unlockedDay", "type": "uint16"},
      {"internalType": "bool", "name": "isAutoStake", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	contractABI     abi.ABI
	contractABIOnce sync.Once
	contractABIErr  error
)

// ContractABI returns the parsed contract ABI.
func ContractABI() (abi.ABI, error) {
	contractABIOnce.Do(func() {
		contractABI, contractABIErr = abi.JSON(strings.NewReader(contractABIJSON))
	})
	return contractABI, contractABIErr
}

// EventTopics returns topic0 of every handled event.
func EventTopics() ([]string, error) {
	parsed, err := ContractABI()
	if err != nil {
		return nil, err
	}
	names := []string{EventStakeStart, EventStakeEnd, EventShareRateChange}
	topics := make([]string, 0, len(names))
	for _, name := range names {
		topics = append(topics, parsed.Events[name].ID.Hex())
	}
	return topics, nil
}
