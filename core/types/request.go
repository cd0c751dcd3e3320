// Package types defines the token transfer request (TTR) model: canonical
// packing, hashing, signing and signer recovery.
package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// IntrinsicGas is subtracted from a contract-call gas estimate to recover
// the contract-side-only estimate used for admission scoring.
const IntrinsicGas = 21000

// unsignedSenderPlaceholder is the sender address assigned to a request
// whose signature is the all-zero (r, s) pair.
var unsignedSenderPlaceholder = common.HexToAddress("0xFFfFfFffFFfffFFfFFfFFFFFffFFFffffFfFFFfF")

// Request is a Token Transfer Request: a delegated transfer of `token`
// value/data, nonced per-sender-per-token (not the chain account nonce).
type Request struct {
	Token          common.Address
	Nonce          *uint256.Int
	Fee            *uint256.Int
	GasAmount      *uint256.Int
	Receiver       common.Address
	Value          *uint256.Int
	Data           []byte
	DelegateMode   DelegateMode
	RelayerAddress common.Address
}

// Empty returns the zero-valued Request used as the canonical 189-byte
// packing fixture (scenario S2).
func Empty() *Request {
	return &Request{
		Nonce:     new(uint256.Int),
		Fee:       new(uint256.Int),
		GasAmount: new(uint256.Int),
		Value:     new(uint256.Int),
	}
}

func put32(dst []byte, v *uint256.Int) {
	if v == nil {
		return
	}
	b := v.Bytes32()
	copy(dst, b[:])
}

// Pack produces the canonical byte encoding the on-chain contract hashes:
// token(20) || nonce(32) || fee(32) || gas_amount(32) || receiver(20) ||
// value(32) || data(variable) || delegate_mode(1) || relayer_address(20).
func (r *Request) Pack() []byte {
	out := make([]byte, 189+len(r.Data))
	off := 0
	copy(out[off:off+20], r.Token[:])
	off += 20
	put32(out[off:off+32], r.Nonce)
	off += 32
	put32(out[off:off+32], r.Fee)
	off += 32
	put32(out[off:off+32], r.GasAmount)
	off += 32
	copy(out[off:off+20], r.Receiver[:])
	off += 20
	put32(out[off:off+32], r.Value)
	off += 32
	copy(out[off:off+len(r.Data)], r.Data)
	off += len(r.Data)
	out[off] = byte(r.DelegateMode)
	off++
	copy(out[off:off+20], r.RelayerAddress[:])
	return out
}

// Hash is the keccak-256 of the canonical packing, i.e. the message the
// sender actually signs.
func (r *Request) Hash() common.Hash {
	return crypto.Keccak256Hash(r.Pack())
}

// Signature is an ECDSA signature in the chain-id-free "Electrum" form: v
// is stored as 27/28 rather than a recovery id.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// IsZero reports whether (r, s) is the all-zero pair marking an unsigned
// request.
func (s Signature) IsZero() bool {
	var zero [32]byte
	return s.R == zero && s.S == zero
}

// StandardV normalises the stored v (27/28) into the 0/1 recovery id the
// secp256k1 recovery routines expect. Any other stored value is invalid
// (represented as 4, matching the source format).
func (s Signature) StandardV() uint8 {
	switch s.V {
	case 27:
		return 0
	case 28:
		return 1
	default:
		return 4
	}
}

// UnverifiedRequest pairs a Request with a signature whose signer has not
// yet been recovered.
type UnverifiedRequest struct {
	Request   *Request
	Signature Signature
}

var (
	ErrInvalidSignature = errors.New("invalid signature")
)

// packedWithSignature builds packed(TTR) || r(32) || s(32) || standard_v(1),
// the preimage of the request's hash (including its own signature).
func (u *UnverifiedRequest) packedWithSignature() []byte {
	packed := u.Request.Pack()
	out := make([]byte, len(packed)+65)
	copy(out, packed)
	copy(out[len(packed):len(packed)+32], u.Signature.R[:])
	copy(out[len(packed)+32:len(packed)+64], u.Signature.S[:])
	out[len(packed)+64] = u.Signature.StandardV()
	return out
}

// Hash is keccak(packed(TTR) || r || s || standard_v), the pool's unique
// request identifier.
func (u *UnverifiedRequest) Hash() common.Hash {
	return crypto.Keccak256Hash(u.packedWithSignature())
}

// Recover verifies the signature and produces a SignedRequest bound to the
// recovered sender address. A zero signature yields the reserved
// "unsigned" sender placeholder without attempting recovery.
func (u *UnverifiedRequest) Recover() (*SignedRequest, error) {
	if u.Signature.IsZero() {
		return &SignedRequest{UnverifiedRequest: u, Sender: unsignedSenderPlaceholder}, nil
	}
	standardV := u.Signature.StandardV()
	if standardV > 1 {
		return nil, ErrInvalidSignature
	}
	sig := make([]byte, 65)
	copy(sig[0:32], u.Signature.R[:])
	copy(sig[32:64], u.Signature.S[:])
	sig[64] = standardV

	preimage := u.Request.Hash()
	pub, err := crypto.SigToPub(preimage[:], sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	sender := crypto.PubkeyToAddress(*pub)
	return &SignedRequest{UnverifiedRequest: u, Sender: sender}, nil
}

// SignedRequest is an UnverifiedRequest whose signer has been recovered.
type SignedRequest struct {
	*UnverifiedRequest
	Sender common.Address
}

// VerifiedRequest is a SignedRequest admitted to the pool: it carries the
// pool-wide admission tiebreaker and the gas estimate obtained at
// admission time.
type VerifiedRequest struct {
	*SignedRequest
	InsertionID  uint64
	EstimatedGas *uint256.Int
}

// Sign produces an UnverifiedRequest by signing the request's hash with the
// given private key, storing v in Electrum form (27/28).
func Sign(req *Request, prv *ecdsa.PrivateKey) (*UnverifiedRequest, error) {
	hash := req.Hash()
	sig, err := crypto.Sign(hash[:], prv)
	if err != nil {
		return nil, err
	}
	var s Signature
	copy(s.R[:], sig[0:32])
	copy(s.S[:], sig[32:64])
	s.V = sig[64] + 27
	return &UnverifiedRequest{Request: req, Signature: s}, nil
}

// PoolRequestTag is the single mutable per-request field after admission.
type PoolRequestTag uint8

const (
	TagInvalid PoolRequestTag = iota
	TagReady
	TagProcessing
	TagExecuted
)

func (t PoolRequestTag) String() string {
	switch t {
	case TagReady:
		return "Ready"
	case TagProcessing:
		return "Processing"
	case TagExecuted:
		return "Executed"
	default:
		return "Invalid"
	}
}
