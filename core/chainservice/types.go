// Package chainservice specifies and adapts the ChainService capability:
// the abstract interface the pool and machine use over the underlying
// JSON-RPC chain node. The node's raw JSON-RPC client is an external
// collaborator; this package is the thin, concretely-typed adapter the
// rest of the relayer consumes.
package chainservice

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/fstnetwork/relayer/core/types"
)

// BlockIDKind selects how a block is identified in a query.
type BlockIDKind uint8

const (
	BlockByNumber BlockIDKind = iota
	BlockByHash
	BlockLatest
	BlockPending
	BlockEarliest
)

// BlockID identifies a block by number, hash, or one of the named tags.
type BlockID struct {
	Kind   BlockIDKind
	Number uint64
	Hash   common.Hash
}

func Latest() BlockID   { return BlockID{Kind: BlockLatest} }
func Pending() BlockID  { return BlockID{Kind: BlockPending} }
func Earliest() BlockID { return BlockID{Kind: BlockEarliest} }
func ByNumber(n uint64) BlockID {
	return BlockID{Kind: BlockByNumber, Number: n}
}
func ByHash(h common.Hash) BlockID { return BlockID{Kind: BlockByHash, Hash: h} }

// String renders the block ID the way the JSON-RPC node expects it.
func (b BlockID) String() string {
	switch b.Kind {
	case BlockLatest:
		return "latest"
	case BlockPending:
		return "pending"
	case BlockEarliest:
		return "earliest"
	case BlockByHash:
		return b.Hash.Hex()
	default:
		return strconv.FormatUint(b.Number, 10)
	}
}

// CurrencyKind selects which balance/nonce a state query resolves.
type CurrencyKind uint8

const (
	Ether CurrencyKind = iota
	Token
)

// Currency names the asset a state query resolves: the chain's native
// ether, or a specific ERC-20/ERC-1376 token contract.
type Currency struct {
	Kind  CurrencyKind
	Token common.Address
}

// EtherCurrency is the native-asset Currency value.
func EtherCurrency() Currency { return Currency{Kind: Ether} }

// TokenCurrency builds a Currency resolving balances/nonces against token.
func TokenCurrency(token common.Address) Currency {
	return Currency{Kind: Token, Token: token}
}

// AccountState is the merged result of a state_of query.
type AccountState struct {
	Address common.Address
	Nonce   *uint256.Int
	Balance *uint256.Int
}

// GasEstimationKind selects what estimate_gas is asked to price.
type GasEstimationKind uint8

const (
	EstimateTransaction GasEstimationKind = iota
	EstimateTokenTransferRequest
)

// GasEstimation is the union type estimate_gas accepts: either a fully
// built (fake-signed) transaction, or a {relayer, signed TTR} pair.
type GasEstimation struct {
	Kind        GasEstimationKind
	Transaction *gethtypes.Transaction
	Relayer     common.Address
	Request     *types.SignedRequest
}

// Confirmation is the result of a get_transaction_confirmation query.
type Confirmation struct {
	LatestBlockNumber  uint64
	ReceiptBlockNumber *uint64
}
