package rpcutil

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fstnetwork/relayer/core/types"
)

// TokenTransferRequest is the wire form of an UnverifiedRequest. Hash is
// populated on output (the pool's admission identifier) and
// accepted-but-ignored on input if the caller echoes it back.
type TokenTransferRequest struct {
	Token     common.Address `json:"token"`
	Nonce     *U256          `json:"nonce"`
	Fee       *U256          `json:"fee"`
	GasAmount *U256          `json:"gasAmount"`
	To        common.Address `json:"to"`
	Value     *U256          `json:"value"`
	Data      hexutil.Bytes  `json:"data"`
	Mode      uint8          `json:"mode"`
	Relayer   common.Address `json:"relayer"`
	V         uint8          `json:"v"`
	R         common.Hash    `json:"r"`
	S         common.Hash    `json:"s"`
	Hash      *common.Hash   `json:"hash,omitempty"`
}

// FromDomain builds the wire form of an already-signed request, echoing
// its pool hash.
func FromDomain(req *types.UnverifiedRequest) TokenTransferRequest {
	hash := req.Hash()
	return TokenTransferRequest{
		Token:     req.Request.Token,
		Nonce:     NewU256(req.Request.Nonce),
		Fee:       NewU256(req.Request.Fee),
		GasAmount: NewU256(req.Request.GasAmount),
		To:        req.Request.Receiver,
		Value:     NewU256(req.Request.Value),
		Data:      req.Request.Data,
		Mode:      uint8(req.Request.DelegateMode),
		Relayer:   req.Request.RelayerAddress,
		V:         req.Signature.V,
		R:         req.Signature.R,
		S:         req.Signature.S,
		Hash:      &hash,
	}
}

// ToDomain parses the wire form into an UnverifiedRequest ready for
// core/pool.Pool.Import. The optional echoed Hash field is ignored: the
// domain hash is always recomputed from the packed request.
func (w TokenTransferRequest) ToDomain() (*types.UnverifiedRequest, error) {
	mode, err := types.DelegateModeFromUint8(w.Mode)
	if err != nil {
		return nil, err
	}
	req := &types.Request{
		Token:          w.Token,
		Nonce:          w.Nonce.Value(),
		Fee:            w.Fee.Value(),
		GasAmount:      w.GasAmount.Value(),
		Receiver:       w.To,
		Value:          w.Value.Value(),
		Data:           w.Data,
		DelegateMode:   mode,
		RelayerAddress: w.Relayer,
	}
	return &types.UnverifiedRequest{
		Request: req,
		Signature: types.Signature{
			V: w.V,
			R: w.R,
			S: w.S,
		},
	}, nil
}
