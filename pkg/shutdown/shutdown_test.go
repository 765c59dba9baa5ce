package shutdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManager_ShutdownIsLIFO(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	var order []string
	for _, name := range []string{"database", "redis", "http"} {
		name := name
		m.RegisterNoErr(name, func() { order = append(order, name) })
	}

	require.NoError(t, m.Shutdown())
	assert.Equal(t, []string{"http", "redis", "database"}, order)
}

func TestManager_ErrorsDoNotStopOthers(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)

	closed := false
	m.RegisterNoErr("database", func() { closed = true })
	m.Register("http", func(context.Context) error { return errors.New("listener stuck") })

	err := m.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http: listener stuck")
	assert.True(t, closed)
}

func TestManager_ShutdownRunsOnce(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)
	calls := 0
	m.RegisterNoErr("x", func() { calls++ })

	require.NoError(t, m.Shutdown())
	require.NoError(t, m.Shutdown())
	assert.Equal(t, 1, calls)

	m.RegisterNoErr("late", func() { calls++ })
	require.NoError(t, m.Shutdown())
	assert.Equal(t, 1, calls)
}

func TestManager_WaitForShutdownOnContext(t *testing.T) {
	m := NewManager(zap.NewNop(), time.Second)
	stopped := make(chan struct{})
	m.RegisterNoErr("worker", func() { close(stopped) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, m.WaitForShutdown(ctx))
	select {
	case <-stopped:
	default:
		t.Fatal("component was not stopped")
	}
}

func TestInFlightTracker_WaitsForRequests(t *testing.T) {
	tracker := NewInFlightTracker("http", zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	handler := tracker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}()
	<-started

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- tracker.Shutdown(context.Background()) }()

	// new requests are refused while the first one drains
	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		return rec.Code == http.StatusServiceUnavailable
	}, time.Second, 10*time.Millisecond)

	close(release)
	wg.Wait()
	assert.NoError(t, <-shutdownErr)
}

func TestInFlightTracker_ShutdownTimeout(t *testing.T) {
	tracker := NewInFlightTracker("http", zap.NewNop())
	require.True(t, tracker.Add())
	defer tracker.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tracker.Shutdown(ctx), context.DeadlineExceeded)
}

func TestBackgroundWorker_Shutdown(t *testing.T) {
	w := NewBackgroundWorker("ticker", zap.NewNop())
	w.Start(func(ctx context.Context) { <-ctx.Done() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, w.Shutdown(ctx))
	assert.NoError(t, w.Shutdown(ctx))
}
