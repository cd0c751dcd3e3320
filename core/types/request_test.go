package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func templateRequest(mode DelegateMode) *Request {
	return &Request{
		Token:          common.HexToAddress("0x89cF87c35e69A9B84F7A3e50EAf54bFc3Cabc377"),
		Nonce:          uint256.NewInt(1),
		Fee:            uint256.NewInt(20000),
		GasAmount:      uint256.NewInt(1200000),
		Receiver:       common.HexToAddress("0x7195eb47570cF0aeCe30893e8e7e56C4Da5f0AC2"),
		Value:          uint256.NewInt(20000000),
		Data:           nil,
		DelegateMode:   mode,
		RelayerAddress: common.Address{},
	}
}

func TestEmptyRequestPacking(t *testing.T) {
	e := Empty()
	packed := e.Pack()
	require.Len(t, packed, 189)
	for _, b := range packed {
		require.EqualValues(t, 0, b)
	}
	require.Equal(t, common.HexToHash("0x785ea77dec5a8f92f2a76716538b2d1763c493f4aa9ede26df1a527eae82c171"), e.Hash())
}

func TestSignedRequestRoundTrip(t *testing.T) {
	prv, err := crypto.HexToECDSA("8eeda46d11c1630bd1d9c4aace189513d3153b739f56ba6dfb5143b13dcb1eab")
	require.NoError(t, err)

	req := templateRequest(PublicTxOrigin)
	require.Equal(t, common.HexToHash("0x1fd931cc809dbb13f1c7af7d0a7d57be9be73459e8c35e887adfd618245d6b5a"), req.Hash())

	unverified, err := Sign(req, prv)
	require.NoError(t, err)

	require.EqualValues(t, 28, unverified.Signature.V)
	require.EqualValues(t, 1, unverified.Signature.StandardV())
	require.Equal(t, common.HexToHash("0x95c2586dacf49683fc8493b7bde081470473fdaca62b0d495a83e40d8608e2b8"), common.Hash(unverified.Signature.R))
	require.Equal(t, common.HexToHash("0x02f034976a6161f125ae6be425f730ec702981f9bed2cb81899071f3d5fb25fa"), common.Hash(unverified.Signature.S))

	signed, err := unverified.Recover()
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(prv.PublicKey), signed.Sender)
	require.Equal(t, common.HexToAddress("0x0172bf37b2ff1bc5ff140634d9981011f54ae6aa"), signed.Sender)
}

func TestDelegateModeDistinctHashes(t *testing.T) {
	expected := map[DelegateMode]common.Hash{
		PublicMsgSender:  common.HexToHash("0x242a95bdb71a264da8bd30585d6ae66114c101329894d4d56018c9444a8aa597"),
		PublicTxOrigin:   common.HexToHash("0x1fd931cc809dbb13f1c7af7d0a7d57be9be73459e8c35e887adfd618245d6b5a"),
		PrivateMsgSender: common.HexToHash("0x688d3fcdcf2c977d01ac314716a1a95bf28349238fdc51635ecc73181f32a0e2"),
		PrivateTxOrigin:  common.HexToHash("0x23efba2a0f73a5b629d1afa3eff356e84e9c441ec66f99bd702f004a16492246"),
	}
	seen := map[common.Hash]bool{}
	for mode, want := range expected {
		h := templateRequest(mode).Hash()
		require.Equal(t, want, h, "mode %v", mode)
		require.False(t, seen[h], "mode %v collided with another mode's hash", mode)
		seen[h] = true
	}
}

func TestDelegateModeFromUint8Validation(t *testing.T) {
	for v := uint8(0); v <= 3; v++ {
		mode, err := DelegateModeFromUint8(v)
		require.NoError(t, err)
		require.EqualValues(t, v, mode)
	}
	_, err := DelegateModeFromUint8(4)
	require.ErrorIs(t, err, ErrInvalidDelegateMode)
}

func TestUnsignedRequestSenderPlaceholder(t *testing.T) {
	req := templateRequest(PublicMsgSender)
	u := &UnverifiedRequest{Request: req}
	signed, err := u.Recover()
	require.NoError(t, err)
	require.Equal(t, unsignedSenderPlaceholder, signed.Sender)
}

func TestDelegateModePriorityOrdering(t *testing.T) {
	require.Greater(t, PublicMsgSender.Priority(), PublicTxOrigin.Priority())
	require.Greater(t, PublicTxOrigin.Priority(), PrivateMsgSender.Priority())
	require.Greater(t, PrivateMsgSender.Priority(), PrivateTxOrigin.Priority())
}
