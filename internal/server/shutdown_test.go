package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/grpc"
)

type closeRecorder struct {
	name  string
	order *[]string
}

func (c closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestShutdown_ClosersRunInReverse(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{})
	var order []string
	sm.RegisterCloser(closeRecorder{"engine", &order})
	sm.RegisterCloser(closeRecorder{"http", &order})

	started := false
	sm.OnShutdownStart(func() { started = true })

	if err := sm.Shutdown(context.Background(), "test"); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !started {
		t.Error("start callback did not run")
	}
	if len(order) != 2 || order[0] != "http" || order[1] != "engine" {
		t.Errorf("close order = %v", order)
	}
	if err := sm.Shutdown(context.Background(), "again"); err != nil {
		t.Errorf("second Shutdown should be a no-op, got %v", err)
	}
	if len(order) != 2 {
		t.Error("closers must run once")
	}
}

func TestShutdown_WaitsForWorkers(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	sm.OnShutdownStart(cancel)

	stopped := make(chan struct{})
	sm.Go("consumer", func() error {
		<-ctx.Done()
		close(stopped)
		return nil
	})
	sm.Go("failing", func() error { return errors.New("boom") })

	if err := sm.Shutdown(context.Background(), "test"); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	select {
	case <-stopped:
	default:
		t.Error("Shutdown returned before the worker stopped")
	}
	if err := sm.Err(); err == nil || err.Error() != "failing: boom" {
		t.Errorf("Err() = %v", err)
	}
}

func TestShutdownMiddleware_RejectsDuringShutdown(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{DrainTimeout: time.Second})
	release := make(chan struct{})
	entered := make(chan struct{})
	h := ShutdownMiddleware(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	}))

	done := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		done <- rec.Code
	}()
	<-entered
	if sm.InFlightCount() != 1 {
		t.Fatalf("in-flight = %d", sm.InFlightCount())
	}

	shutdownDone := make(chan error)
	go func() { shutdownDone <- sm.Shutdown(context.Background(), "test") }()
	<-sm.ShutdownCh()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("new request status = %d", rec.Code)
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("in-flight request status = %d", code)
	}
	if err := <-shutdownDone; err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestServeHTTPAndGRPC(t *testing.T) {
	sm := NewShutdownManager(ShutdownConfig{})

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	sm.ServeHTTP(srv)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	sm.ServeGRPC(grpc.NewServer(), lis)

	if err := sm.Shutdown(context.Background(), "test"); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := sm.Err(); err != nil {
		t.Errorf("servers should stop cleanly, got %v", err)
	}
}
