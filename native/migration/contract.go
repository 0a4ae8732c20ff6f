package migration

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// LegacyStakingABI describes the predecessor contract's read method.
const LegacyStakingABI = `[{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"stakeOf","outputs":[{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"uint256","name":"reward","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// ContractCaller is the read-only slice of an EVM client. *ethclient.Client
// satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// DialLegacyClient connects to the chain hosting the predecessor contract.
func DialLegacyClient(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("migration: evm endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// ContractSource reads legacy stakes from the predecessor contract.
type ContractSource struct {
	client   ContractCaller
	contract common.Address
	abi      abi.ABI
}

// NewContractSource binds the source to the contract at address.
func NewContractSource(client ContractCaller, address common.Address) (*ContractSource, error) {
	if client == nil {
		return nil, fmt.Errorf("migration: contract caller required")
	}
	if address == (common.Address{}) {
		return nil, fmt.Errorf("migration: legacy contract address required")
	}
	parsed, err := abi.JSON(strings.NewReader(LegacyStakingABI))
	if err != nil {
		return nil, fmt.Errorf("migration: parse legacy abi: %w", err)
	}
	return &ContractSource{client: client, contract: address, abi: parsed}, nil
}

// StakeOf implements Source.
func (s *ContractSource) StakeOf(ctx context.Context, account [20]byte) (LegacyStake, error) {
	input, err := s.abi.Pack("stakeOf", common.BytesToAddress(account[:]))
	if err != nil {
		return LegacyStake{}, fmt.Errorf("pack stakeOf: %w", err)
	}
	contract := s.contract
	output, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return LegacyStake{}, fmt.Errorf("call stakeOf: %w", err)
	}
	values, err := s.abi.Unpack("stakeOf", output)
	if err != nil {
		return LegacyStake{}, fmt.Errorf("unpack stakeOf: %w", err)
	}
	if len(values) != 2 {
		return LegacyStake{}, fmt.Errorf("stakeOf returned %d values", len(values))
	}
	principal, ok := values[0].(*big.Int)
	if !ok {
		return LegacyStake{}, fmt.Errorf("stakeOf amount has type %T", values[0])
	}
	reward, ok := values[1].(*big.Int)
	if !ok {
		return LegacyStake{}, fmt.Errorf("stakeOf reward has type %T", values[1])
	}
	return LegacyStake{Principal: principal, Reward: reward}, nil
}
