package blockchain

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	transferArgs     = abi.Arguments{{Type: addressType}, {Type: uint256Type}}
	transferFromArgs = abi.Arguments{{Type: addressType}, {Type: addressType}, {Type: uint256Type}}
)

// knownFunctionSignatures maps a 4-byte function selector (hex, no 0x) to
// the ERC20 method it identifies, the same table the bubble-map indexer
// used to tell transfer-shaped calls apart from approvals and swaps.
var knownFunctionSignatures = map[string]string{
	"a9059cbb": "transfer(address,uint256)",
	"23b872dd": "transferFrom(address,address,uint256)",
	"095ea7b3": "approve(address,uint256)",
}

// TransferEventSignature is the Keccak256 hash of the ERC20 Transfer event,
// computed the same way the indexer derives topic0 for log filtering.
var TransferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// DecodedTransfer is the method, recipient and raw token amount an
// ERC20Decoder extracts from raw call data. It carries no asset
// identifier: the token contract is not part of the call data.
type DecodedTransfer struct {
	Method string
	To     string
	Amount *big.Int
}

// ERC20Decoder decodes ERC20 transfer-shaped call data. Native-asset
// transfers never reach it; it exists only for token movements reported
// with raw input data instead of pre-decoded amounts.
type ERC20Decoder struct{}

func NewERC20Decoder() *ERC20Decoder {
	return &ERC20Decoder{}
}

// Decode parses raw call data into a DecodedTransfer. Returns ok=false for
// call data that isn't a transfer/transferFrom the decoder recognises.
func (d *ERC20Decoder) Decode(data []byte) (DecodedTransfer, bool) {
	if len(data) < 4 {
		return DecodedTransfer{}, false
	}
	selector := hex.EncodeToString(data[:4])
	method, known := knownFunctionSignatures[selector]
	if !known {
		return DecodedTransfer{}, false
	}

	switch {
	case strings.HasPrefix(method, "transfer("):
		values, err := transferArgs.Unpack(data[4:])
		if err != nil || len(values) != 2 {
			return DecodedTransfer{}, false
		}
		to := values[0].(common.Address)
		amount := values[1].(*big.Int)
		return DecodedTransfer{Method: method, To: strings.ToLower(to.Hex()), Amount: amount}, true

	case strings.HasPrefix(method, "transferFrom("):
		values, err := transferFromArgs.Unpack(data[4:])
		if err != nil || len(values) != 3 {
			return DecodedTransfer{}, false
		}
		to := values[1].(common.Address)
		amount := values[2].(*big.Int)
		return DecodedTransfer{Method: method, To: strings.ToLower(to.Hex()), Amount: amount}, true

	default:
		return DecodedTransfer{}, false
	}
}

// AmountAsFloat converts a raw token amount to a human-scaled float given
// the token's decimals, for use as a Transaction's Amount field.
func AmountAsFloat(raw *big.Int, decimals int) float64 {
	if raw == nil {
		return 0
	}
	f := new(big.Float).SetInt(raw)
	scale := new(big.Float).SetFloat64(pow10(decimals))
	f.Quo(f, scale)
	v, _ := f.Float64()
	return v
}

func pow10(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
