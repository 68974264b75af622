package quoter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Uniswap V3 QuoterV2 view functions used for simulation. Only the
// single-hop variants are bound; multi-hop routing is out of scope.
const quoterV2ABI = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "tokenIn", "type": "address"},
          {"internalType": "address", "name": "tokenOut", "type": "address"},
          {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
          {"internalType": "uint24", "name": "fee", "type": "uint24"},
          {"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
        ],
        "internalType": "struct IQuoterV2.QuoteExactInputSingleParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "quoteExactInputSingle",
    "outputs": [
      {"internalType": "uint256", "name": "amountOut", "type": "uint256"},
      {"internalType": "uint160", "name": "sqrtPriceX96After", "type": "uint160"},
      {"internalType": "uint32", "name": "initializedTicksCrossed", "type": "uint32"},
      {"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {
        "components": [
          {"internalType": "address", "name": "tokenIn", "type": "address"},
          {"internalType": "address", "name": "tokenOut", "type": "address"},
          {"internalType": "uint256", "name": "amount", "type": "uint256"},
          {"internalType": "uint24", "name": "fee", "type": "uint24"},
          {"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
        ],
        "internalType": "struct IQuoterV2.QuoteExactOutputSingleParams",
        "name": "params",
        "type": "tuple"
      }
    ],
    "name": "quoteExactOutputSingle",
    "outputs": [
      {"internalType": "uint256", "name": "amountIn", "type": "uint256"},
      {"internalType": "uint160", "name": "sqrtPriceX96After", "type": "uint160"},
      {"internalType": "uint32", "name": "initializedTicksCrossed", "type": "uint32"},
      {"internalType": "uint256", "name": "gasEstimate", "type": "uint256"}
    ],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

type exactInputParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Amount            *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

func mustParseQuoterABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(quoterV2ABI))
	if err != nil {
		panic(fmt.Sprintf("quoter ABI is malformed: %v", err))
	}
	return parsed
}

func packExactInput(parsed abi.ABI, tokenIn, tokenOut common.Address, amountIn *big.Int, fee uint32) ([]byte, error) {
	return parsed.Pack("quoteExactInputSingle", exactInputParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
}

func packExactOutput(parsed abi.ABI, tokenIn, tokenOut common.Address, amountOut *big.Int, fee uint32) ([]byte, error) {
	return parsed.Pack("quoteExactOutputSingle", exactOutputParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Amount:            amountOut,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
}

// simulationResult holds the decoded quoter return tuple.
type simulationResult struct {
	Amount      *big.Int
	GasEstimate uint64
}

func unpackSimulation(parsed abi.ABI, method string, data []byte) (*simulationResult, error) {
	values, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s return data: %w", method, err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected %s return arity: %d", method, len(values))
	}

	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s amount type %T", method, values[0])
	}
	gas, ok := values[3].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s gas estimate type %T", method, values[3])
	}
	return &simulationResult{Amount: amount, GasEstimate: gas.Uint64()}, nil
}
