package cancelctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_ChildCancelledWithParent(t *testing.T) {
	root := NewRoot()
	child := root.Child()

	root.Cancel()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child was not cancelled when parent was")
	}
}

func TestToken_CancellingChildDoesNotCancelParent(t *testing.T) {
	root := NewRoot()
	child := root.Child()

	child.Cancel()

	select {
	case <-root.Done():
		t.Fatal("parent was cancelled by child cancellation")
	default:
	}
}

func TestToken_CancelIsIdempotent(t *testing.T) {
	root := NewRoot()
	assert.NotPanics(t, func() {
		root.Cancel()
		root.Cancel()
	})
}

func TestToken_ContextRoundTrips(t *testing.T) {
	root := NewRoot()
	ctx := root.Context()

	got := FromContext(ctx)
	require.NotNil(t, got)
	assert.Same(t, root, got)
}

func TestFromContext_MissingTokenReturnsNil(t *testing.T) {
	root := NewRoot()
	assert.Nil(t, FromContext(root.ctx))
}

func TestGuard_ReleaseCancelsOnce(t *testing.T) {
	root := NewRoot()
	guard := root.NewGuard()

	assert.True(t, guard.Release(), "first Release should report it fired the cancellation")
	select {
	case <-root.Done():
	default:
		t.Fatal("guard release did not cancel token")
	}

	assert.False(t, guard.Release(), "second Release should report it did not fire anything")
}

func TestGuard_MultipleGuardsShareOneCancellation(t *testing.T) {
	root := NewRoot()
	g1 := root.NewGuard()
	g2 := root.NewGuard()

	// Each Guard tracks its own sync.Once, so both independently report
	// having fired even though the underlying token only cancels once.
	assert.True(t, g1.Release())
	assert.True(t, g2.Release())

	select {
	case <-root.Done():
	default:
		t.Fatal("token was never cancelled")
	}
}

func TestGuard_SameGuardReleasedFromTwoSitesOnlyOneFires(t *testing.T) {
	root := NewRoot()
	guard := root.NewGuard()

	results := make(chan bool, 2)
	go func() { results <- guard.Release() }()
	go func() { results <- guard.Release() }()

	r1, r2 := <-results, <-results
	assert.True(t, r1 != r2, "exactly one of two concurrent Release calls on the same Guard should report firing it")
}
