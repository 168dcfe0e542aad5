package connwatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatch_StartsAtWant(t *testing.T) {
	w := New()
	assert.Equal(t, Want, w.State())

	select {
	case <-w.Recv():
		t.Fatal("Recv channel closed before Flip")
	default:
	}
}

func TestWatch_FlipTransitionsToRecv(t *testing.T) {
	w := New()
	w.Flip()

	assert.Equal(t, Recv, w.State())

	select {
	case <-w.Recv():
	case <-time.After(time.Second):
		t.Fatal("Recv channel did not close after Flip")
	}
}

func TestWatch_FlipIsIdempotent(t *testing.T) {
	w := New()
	assert.NotPanics(t, func() {
		w.Flip()
		w.Flip()
		w.Flip()
	})
	assert.Equal(t, Recv, w.State())
}

func TestWatch_ConcurrentFlipIsSafe(t *testing.T) {
	w := New()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			w.Flip()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.Equal(t, Recv, w.State())
}
