package rpcutil

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/fstnetwork/relayer/core/types"
)

func TestU256RoundTripsThroughJSON(t *testing.T) {
	u := NewU256(uint256.NewInt(123456789))
	data, err := json.Marshal(u)
	require.NoError(t, err)

	var out U256
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, u.Value(), out.Value())
}

func TestTokenTransferRequestRoundTrip(t *testing.T) {
	prv, err := crypto.GenerateKey()
	require.NoError(t, err)
	req := &types.Request{
		Token:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Nonce:        uint256.NewInt(1),
		Fee:          uint256.NewInt(20000),
		GasAmount:    uint256.NewInt(1200000),
		Receiver:     common.HexToAddress("0x7195601982f8f75F7B27F06567936D1d5f4abf46"),
		Value:        uint256.NewInt(20000000),
		DelegateMode: types.PublicMsgSender,
	}
	unverified, err := types.Sign(req, prv)
	require.NoError(t, err)

	wire := FromDomain(unverified)
	require.NotNil(t, wire.Hash)
	require.Equal(t, unverified.Hash(), *wire.Hash)

	data, err := json.Marshal(wire)
	require.NoError(t, err)
	var decoded TokenTransferRequest
	require.NoError(t, json.Unmarshal(data, &decoded))

	back, err := decoded.ToDomain()
	require.NoError(t, err)
	require.Equal(t, unverified.Hash(), back.Hash())
}
