package chainmonitor

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	receiptBlock *uint64
	latest       uint64
}

func (f *fakeChain) GetTransactionConfirmation(context.Context, common.Hash) (uint64, *uint64, error) {
	return f.latest, f.receiptBlock, nil
}

func (f *fakeChain) GetBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func TestMonitorDeduplicatesSharedTask(t *testing.T) {
	block := uint64(100)
	chain := &fakeChain{receiptBlock: &block, latest: 112}
	svc := New(chain, time.Millisecond)

	hash := common.HexToHash("0x1234")
	task := TransactionExecuted(hash, 12)

	id1, ch1, sub1 := svc.RegisterAndSubscribe(task)
	defer sub1.Unsubscribe()
	id2, ch2, sub2 := svc.RegisterAndSubscribe(task)
	defer sub2.Unsubscribe()
	require.NotEqual(t, id1, id2)
	require.Equal(t, 1, svc.TaskCount())

	svc.PollOnce(context.Background())

	select {
	case r := <-ch1:
		require.Equal(t, hash, r.TxHash)
	case <-time.After(time.Second):
		t.Fatal("watcher 1 did not receive response")
	}
	select {
	case r := <-ch2:
		require.Equal(t, hash, r.TxHash)
	case <-time.After(time.Second):
		t.Fatal("watcher 2 did not receive response")
	}
	require.Equal(t, 0, svc.TaskCount())
}

func TestMonitorNotReadyStaysSubscribed(t *testing.T) {
	block := uint64(100)
	chain := &fakeChain{receiptBlock: &block, latest: 101}
	svc := New(chain, time.Millisecond)

	task := TransactionExecuted(common.HexToHash("0xabcd"), 12)
	_, ch, sub := svc.RegisterAndSubscribe(task)
	defer sub.Unsubscribe()

	svc.PollOnce(context.Background())
	require.Equal(t, 1, svc.TaskCount())

	select {
	case <-ch:
		t.Fatal("should not have fired yet")
	default:
	}
}

func TestBlockNumberReachedTask(t *testing.T) {
	chain := &fakeChain{latest: 50}
	svc := New(chain, time.Millisecond)

	_, ch, sub := svc.RegisterAndSubscribe(BlockNumberReached(50))
	defer sub.Unsubscribe()

	svc.PollOnce(context.Background())
	select {
	case r := <-ch:
		require.EqualValues(t, 50, r.BlockNumber)
	case <-time.After(time.Second):
		t.Fatal("expected block-number response")
	}
}
