package pool

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopbackStartup_ServesRequestsUntilStopped(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(r.Method))
	})

	startup := LoopbackStartup(handler)
	ctx := context.Background()

	handle, err := startup(ctx, WorkerInitOptions{ServicePath: "/x"})
	require.NoError(t, err)
	require.NotNil(t, handle.Stop)

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	responseReturn := make(chan ResponseResult, 1)

	require.NoError(t, handle.Send(ctx, RequestMsg{Request: req, ResponseReturn: responseReturn}))

	result := <-responseReturn
	require.NoError(t, result.Err)
	assert.Equal(t, http.StatusCreated, result.Response.StatusCode)

	body, err := io.ReadAll(result.Response.Body)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, string(body))

	handle.Stop()
	handle.Stop() // idempotent
}

func TestLoopbackStartup_DefaultStatusIsOK(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("implicit 200"))
	})

	startup := LoopbackStartup(handler)
	ctx := context.Background()
	handle, err := startup(ctx, WorkerInitOptions{ServicePath: "/y"})
	require.NoError(t, err)
	defer handle.Stop()

	req := httptest.NewRequest(http.MethodGet, "/y", nil)
	responseReturn := make(chan ResponseResult, 1)
	require.NoError(t, handle.Send(ctx, RequestMsg{Request: req, ResponseReturn: responseReturn}))

	result := <-responseReturn
	require.NoError(t, result.Err)
	assert.Equal(t, http.StatusOK, result.Response.StatusCode)
}
