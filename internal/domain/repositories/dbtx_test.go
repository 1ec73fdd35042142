package repositories

import (
	"context"
	"testing"
)

func TestDeferToCommitOutsideTransaction(t *testing.T) {
	ran := false
	if DeferToCommit(context.Background(), func(context.Context) { ran = true }) {
		t.Fatal("DeferToCommit() = true outside a transaction, want false")
	}
	if ran {
		t.Error("deferred function ran without a transaction")
	}
}

func TestFlushCommittedRunsQueueInOrder(t *testing.T) {
	txCtx := SetTx(context.Background(), nil)

	var order []int
	for i := 1; i <= 3; i++ {
		if !DeferToCommit(txCtx, func(context.Context) { order = append(order, i) }) {
			t.Fatalf("DeferToCommit(%d) = false inside a transaction, want true", i)
		}
	}

	// Nothing runs before the commit flush. A rollback simply never
	// flushes, so this is also the rollback behavior.
	if len(order) != 0 {
		t.Fatalf("queue ran before flush: %v", order)
	}

	FlushCommitted(txCtx, context.Background())
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("flush order = %v, want [1 2 3]", order)
	}

	// The queue is drained; a second flush is a no-op.
	FlushCommitted(txCtx, context.Background())
	if len(order) != 3 {
		t.Errorf("second flush re-ran the queue: %v", order)
	}
}

func TestFlushCommittedPassesTransactionFreeContext(t *testing.T) {
	txCtx := SetTx(context.Background(), nil)

	var sawTx bool
	DeferToCommit(txCtx, func(ctx context.Context) {
		sawTx = ctx.Value(txKey) != nil
	})

	FlushCommitted(txCtx, context.Background())
	if sawTx {
		t.Error("deferred function received a context still carrying the transaction")
	}
}
