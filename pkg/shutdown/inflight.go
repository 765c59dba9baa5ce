package shutdown

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// InFlightTracker counts requests being served so shutdown can wait for them
type InFlightTracker struct {
	mu           sync.RWMutex
	wg           sync.WaitGroup
	shuttingDown bool
	logger       *zap.Logger
	name         string
}

// NewInFlightTracker creates a new in-flight work tracker
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{
		logger: logger,
		name:   name,
	}
}

// Add registers one unit of work. It returns false once shutdown has begun.
func (ift *InFlightTracker) Add() bool {
	ift.mu.RLock()
	defer ift.mu.RUnlock()

	if ift.shuttingDown {
		return false
	}
	ift.wg.Add(1)
	return true
}

// Done marks one unit of work as finished
func (ift *InFlightTracker) Done() {
	ift.wg.Done()
}

// Shutdown rejects new work and waits for the current work or ctx
func (ift *InFlightTracker) Shutdown(ctx context.Context) error {
	ift.mu.Lock()
	ift.shuttingDown = true
	ift.mu.Unlock()

	done := make(chan struct{})
	go func() {
		ift.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		ift.logger.Warn("In-flight work still running at shutdown deadline",
			zap.String("tracker", ift.name),
		)
		return ctx.Err()
	}
}

// Middleware answers 503 once shutdown has begun and tracks every other request.
// A CloudPayments notification rejected this way is redelivered later.
func (ift *InFlightTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ift.Add() {
			w.Header().Set("Connection", "close")
			http.Error(w, "Service is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer ift.Done()
		next.ServeHTTP(w, r)
	})
}

// BackgroundWorker runs one long-lived goroutine bound to its own context
type BackgroundWorker struct {
	name   string
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewBackgroundWorker creates a new background worker
func NewBackgroundWorker(name string, logger *zap.Logger) *BackgroundWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &BackgroundWorker{
		name:   name,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start runs work in a goroutine. work must return when ctx is done.
func (bw *BackgroundWorker) Start(work func(ctx context.Context)) {
	go func() {
		defer close(bw.done)
		work(bw.ctx)
		bw.logger.Debug("Background worker exited", zap.String("worker", bw.name))
	}()
}

// Shutdown cancels the worker and waits for it or ctx
func (bw *BackgroundWorker) Shutdown(ctx context.Context) error {
	bw.once.Do(bw.cancel)

	select {
	case <-bw.done:
		return nil
	case <-ctx.Done():
		bw.logger.Warn("Background worker shutdown timeout",
			zap.String("worker", bw.name),
		)
		return ctx.Err()
	}
}
