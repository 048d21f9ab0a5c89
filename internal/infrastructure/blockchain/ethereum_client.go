package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// RPCClient is the narrow subset of an Ethereum JSON-RPC client the entity
// classifier needs: bytecode lookups for EOA/contract detection.
type RPCClient interface {
	CodeAt(ctx context.Context, address string, blockNumber *big.Int) ([]byte, error)
}

// ethClient adapts go-ethereum's ethclient.Client to RPCClient.
type ethClient struct {
	client *ethclient.Client
}

// NewEthereumClient dials an Ethereum JSON-RPC endpoint.
func NewEthereumClient(rpcURL string) (RPCClient, error) {
	c, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	return &ethClient{client: c}, nil
}

func (e *ethClient) CodeAt(ctx context.Context, address string, blockNumber *big.Int) ([]byte, error) {
	return e.client.CodeAt(ctx, common.HexToAddress(address), blockNumber)
}

// MockRPCClient is a deterministic stand-in for RPCClient used in tests and
// in environments with no chain access: every address not explicitly
// registered is treated as an EOA (empty bytecode).
type MockRPCClient struct {
	Bytecode map[string][]byte
}

func NewMockRPCClient() *MockRPCClient {
	return &MockRPCClient{Bytecode: make(map[string][]byte)}
}

func (m *MockRPCClient) CodeAt(ctx context.Context, address string, blockNumber *big.Int) ([]byte, error) {
	return m.Bytecode[address], nil
}
