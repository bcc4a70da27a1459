package main

import (
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeHTTP_ListenFailureStopsWorkers(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stopped atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		stopped.Store(true)
	}()

	srv := &http.Server{Addr: taken.Addr().String(), Handler: http.NewServeMux()}
	err = serveHTTP(ctx, cancel, srv, nil, &wg, "eager")
	require.Error(t, err, "the port is already bound")
	assert.True(t, stopped.Load(), "workers finish before serveHTTP returns")
}
