// Package collation groups signed requests into one unsigned, then signed,
// on-chain transaction.
package collation

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/fstnetwork/relayer/core/contractabi"
	"github.com/fstnetwork/relayer/core/types"
)

// unsignedTx holds the fields of a built-but-unsigned chain transaction.
type unsignedTx struct {
	to    common.Address
	value *uint256.Int
	data  []byte
}

// Collation is an ordered batch of signed requests plus the chain
// transaction it has been (or will be) packaged into. It moves through
// four states: Open, Open+Unestimated, Closed(fake), Closed(real).
type Collation struct {
	requests []*types.SignedRequest
	hashes   map[common.Hash]bool

	nonce    *uint256.Int
	gasPrice *uint256.Int
	unsigned *unsignedTx

	signedTx *gethtypes.Transaction
	isFake   bool
}

// New returns an empty, Open collation.
func New() *Collation {
	return &Collation{hashes: map[common.Hash]bool{}}
}

// Add appends req to the collation, rejecting duplicates by hash (O(1)
// via the hash set).
func (c *Collation) Add(req *types.SignedRequest) error {
	h := req.Hash()
	if c.hashes[h] {
		return ErrDuplicateRequest
	}
	c.requests = append(c.requests, req)
	c.hashes[h] = true
	return nil
}

// Requests returns the collation's current request set.
func (c *Collation) Requests() []*types.SignedRequest { return c.requests }

// Hashes returns the hash of every request in the collation.
func (c *Collation) Hashes() []common.Hash {
	out := make([]common.Hash, 0, len(c.requests))
	for _, r := range c.requests {
		out = append(out, r.Hash())
	}
	return out
}

// Contains reports whether hash belongs to this collation.
func (c *Collation) Contains(hash common.Hash) bool { return c.hashes[hash] }

// Empty reports whether the collation has no requests.
func (c *Collation) Empty() bool { return len(c.requests) == 0 }

// IsFake reports whether the collation was closed purely for gas
// estimation (gas=0), rather than for real broadcast.
func (c *Collation) IsFake() bool { return c.isFake }

// SignedTx returns the signed chain transaction, if the collation has been
// closed.
func (c *Collation) SignedTx() *gethtypes.Transaction { return c.signedTx }

// RequestConverter chooses between the dispatcher's singleTokenDispatch and
// multipleTokenDispatch ABI calls depending on whether every request in the
// batch shares one token.
type RequestConverter struct{}

// Convert packs reqs for a call into the dispatcher contract.
func (RequestConverter) Convert(reqs []*types.SignedRequest) ([]byte, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyCollation
	}
	token := reqs[0].Request.Token
	allSame := true
	for _, r := range reqs[1:] {
		if r.Request.Token != token {
			allSame = false
			break
		}
	}
	if allSame {
		return contractabi.EncodeSingleTokenDispatch(token, reqs)
	}
	return contractabi.EncodeMultipleTokenDispatch(reqs)
}

// UpdateUnestimated computes the unsigned chain transaction for the
// collation's current request set: a direct token-contract call for a
// single request, or a dispatcher call for a batch. An empty collation
// leaves the collation without an unsigned transaction (a later Close*
// call then fails with ErrCloseWithNoTransaction).
func (c *Collation) UpdateUnestimated(dispatcher common.Address, accountNonce, gasPrice, value *uint256.Int, converter RequestConverter) error {
	if c.Empty() {
		c.unsigned = nil
		return nil
	}
	var (
		to   common.Address
		data []byte
		err  error
	)
	if len(c.requests) == 1 {
		to = c.requests[0].Request.Token
		data, err = contractabi.EncodeDelegateTransferAndCall(c.requests[0])
	} else {
		to = dispatcher
		data, err = converter.Convert(c.requests)
	}
	if err != nil {
		return err
	}
	c.nonce = accountNonce
	c.gasPrice = gasPrice
	c.unsigned = &unsignedTx{to: to, value: value, data: data}
	return nil
}

func (c *Collation) buildTx(gas uint64) *gethtypes.Transaction {
	return gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    c.nonce.Uint64(),
		GasPrice: c.gasPrice.ToBig(),
		Gas:      gas,
		To:       &c.unsigned.to,
		Value:    c.unsigned.value.ToBig(),
		Data:     c.unsigned.data,
	})
}

// FakeClose signs the unsigned transaction with gas=0, purely to obtain a
// gas estimate from the chain. The resulting Collation is flagged IsFake.
func (c *Collation) FakeClose(prv *ecdsa.PrivateKey, chainID *big.Int) error {
	if c.unsigned == nil {
		return ErrCloseWithNoTransaction
	}
	tx, err := gethtypes.SignTx(c.buildTx(0), gethtypes.NewEIP155Signer(chainID), prv)
	if err != nil {
		return err
	}
	c.signedTx = tx
	c.isFake = true
	return nil
}

// CloseWithGas signs the unsigned transaction with the real, estimated gas
// limit.
func (c *Collation) CloseWithGas(prv *ecdsa.PrivateKey, chainID *big.Int, gas *uint256.Int) error {
	if c.unsigned == nil {
		return ErrCloseWithNoTransaction
	}
	tx, err := gethtypes.SignTx(c.buildTx(gas.Uint64()), gethtypes.NewEIP155Signer(chainID), prv)
	if err != nil {
		return err
	}
	c.signedTx = tx
	c.isFake = false
	return nil
}

// Reopen recovers the collation's underlying request set, discarding its
// signed/unsigned transaction state. Used by the relayer machine on reset,
// so the same requests can be rebuilt into a fresh collation on the next
// attempt.
func (c *Collation) Reopen() []*types.SignedRequest {
	c.signedTx = nil
	c.unsigned = nil
	c.isFake = false
	return c.requests
}
