package chainservice

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestBlockIDStringTags(t *testing.T) {
	require.Equal(t, "latest", Latest().String())
	require.Equal(t, "pending", Pending().String())
	require.Equal(t, "earliest", Earliest().String())
	require.Equal(t, "12", ByNumber(12).String())
	h := common.HexToHash("0xabc")
	require.Equal(t, h.Hex(), ByHash(h).String())
}

func TestGroupRejectsOperationsWithNoEndpoints(t *testing.T) {
	g := NewGroup()
	require.Empty(t, g.Endpoints())
	_, err := g.BlockNumber(nil)
	require.ErrorIs(t, err, ErrNoEndpoints)
}
