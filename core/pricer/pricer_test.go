package pricer

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestFixedAlwaysReturnsConfiguredPrice(t *testing.T) {
	f := Fixed{Price: uint256.NewInt(7)}
	price, err := f.GasPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(7), price)
}
