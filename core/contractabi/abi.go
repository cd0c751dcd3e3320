// Package contractabi implements the two ABI encoder entry points the rest
// of the relayer treats as an opaque capability: packing a single
// delegated transfer call against the token contract, and packing a batch
// dispatch call against the dispatcher contract. It also decodes the
// handful of view-call return values the relayer reads back
// (isDelegateEnable).
package contractabi

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fstnetwork/relayer/core/types"
)

var (
	ErrInvalidReturnValue      = errors.New("invalid return value")
	ErrInvalidDispatcherOutput = errors.New("invalid dispatcher output")
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("contractabi: bad type %q: %v", t, err))
	}
	return typ
}

func args(types ...string) abi.Arguments {
	out := make(abi.Arguments, len(types))
	for i, t := range types {
		out[i] = abi.Argument{Type: mustType(t)}
	}
	return out
}

func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

var (
	delegateTransferAndCallSig  = "delegateTransferAndCall(uint256,uint256,uint256,address,uint256,bytes,uint8,uint8,bytes32,bytes32)"
	delegateTransferAndCallArgs = args("uint256", "uint256", "uint256", "address", "uint256", "bytes", "uint8", "uint8", "bytes32", "bytes32")

	singleTokenDispatchSig  = "singleTokenDispatch(address,bytes[])"
	singleTokenDispatchArgs = args("address", "bytes[]")

	multipleTokenDispatchSig  = "multipleTokenDispatch(address[],bytes[])"
	multipleTokenDispatchArgs = args("address[]", "bytes[]")

	isDelegateEnableSig = "isDelegateEnable(address)"
	balanceOfSig        = "balanceOf(address)"
	nonceOfSig          = "nonceOf(address)"
)

// EncodeDelegateTransferAndCall packs a single TTR as a direct call into
// its token contract: `delegateTransferAndCall`.
func EncodeDelegateTransferAndCall(req *types.SignedRequest) ([]byte, error) {
	packed, err := delegateTransferAndCallArgs.Pack(
		req.Request.Nonce.ToBig(),
		req.Request.Fee.ToBig(),
		req.Request.GasAmount.ToBig(),
		req.Request.Receiver,
		req.Request.Value.ToBig(),
		req.Request.Data,
		uint8(req.Request.DelegateMode),
		req.Signature.V,
		req.Signature.R,
		req.Signature.S,
	)
	if err != nil {
		return nil, err
	}
	return append(selector(delegateTransferAndCallSig), packed...), nil
}

// encodePayloads encodes each request as a standalone delegateTransferAndCall
// calldata blob, the dispatcher's per-request payload element.
func encodePayloads(reqs []*types.SignedRequest) ([][]byte, error) {
	payloads := make([][]byte, len(reqs))
	for i, r := range reqs {
		payload, err := EncodeDelegateTransferAndCall(r)
		if err != nil {
			return nil, err
		}
		payloads[i] = payload
	}
	return payloads, nil
}

// EncodeSingleTokenDispatch packs a multi-request batch that all share one
// token as a call into the dispatcher's `singleTokenDispatch`.
func EncodeSingleTokenDispatch(token common.Address, reqs []*types.SignedRequest) ([]byte, error) {
	payloads, err := encodePayloads(reqs)
	if err != nil {
		return nil, err
	}
	packed, err := singleTokenDispatchArgs.Pack(token, payloads)
	if err != nil {
		return nil, err
	}
	return append(selector(singleTokenDispatchSig), packed...), nil
}

// EncodeMultipleTokenDispatch packs a multi-request, multi-token batch as
// a call into the dispatcher's `multipleTokenDispatch`.
func EncodeMultipleTokenDispatch(reqs []*types.SignedRequest) ([]byte, error) {
	tokens := make([]common.Address, len(reqs))
	for i, r := range reqs {
		tokens[i] = r.Request.Token
	}
	payloads, err := encodePayloads(reqs)
	if err != nil {
		return nil, err
	}
	packed, err := multipleTokenDispatchArgs.Pack(tokens, payloads)
	if err != nil {
		return nil, err
	}
	return append(selector(multipleTokenDispatchSig), packed...), nil
}

// EncodeIsDelegateEnableCall packs the `isDelegateEnable(address)` call
// data used to probe a token contract.
func EncodeIsDelegateEnableCall(token common.Address) []byte {
	packed, _ := args("address").Pack(token)
	return append(selector(isDelegateEnableSig), packed...)
}

// EncodeBalanceOfCall packs the ERC-1376 `balanceOf(address)` call used to
// read a token-denominated balance.
func EncodeBalanceOfCall(owner common.Address) ([]byte, error) {
	packed, err := args("address").Pack(owner)
	if err != nil {
		return nil, err
	}
	return append(selector(balanceOfSig), packed...), nil
}

// EncodeNonceOfCall packs the ERC-1376 `nonceOf(address)` call used to read
// the next delegated-transfer nonce for an address.
func EncodeNonceOfCall(owner common.Address) ([]byte, error) {
	packed, err := args("address").Pack(owner)
	if err != nil {
		return nil, err
	}
	return append(selector(nonceOfSig), packed...), nil
}

// DecodeIsDelegateEnableReturn decodes the boolean return value of
// `isDelegateEnable`.
func DecodeIsDelegateEnableReturn(output []byte) (bool, error) {
	values, err := args("bool").Unpack(output)
	if err != nil || len(values) != 1 {
		return false, ErrInvalidReturnValue
	}
	enabled, ok := values[0].(bool)
	if !ok {
		return false, ErrInvalidReturnValue
	}
	return enabled, nil
}
