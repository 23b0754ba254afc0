package lifecycle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/arbor/pkg/lifecycle"
)

func TestStartupHooksMarkReady(t *testing.T) {
	c := lifecycle.New()

	var ran atomic.Int32
	c.OnStartup(func() { ran.Add(1) })
	c.OnStartup(func() { ran.Add(1) })

	if c.Ready() {
		t.Error("coordinator ready before startup completed")
	}

	c.WaitForStartup()

	if ran.Load() != 2 {
		t.Errorf("startup hooks ran %d times, want 2", ran.Load())
	}
	if !c.Ready() {
		t.Error("coordinator not ready after startup")
	}
}

func TestShutdownCancelsContext(t *testing.T) {
	c := lifecycle.New()

	var cleaned atomic.Bool
	c.OnShutdown(func() {
		<-c.Context().Done()
		cleaned.Store(true)
	})

	if err := c.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !cleaned.Load() {
		t.Error("shutdown hook did not run")
	}

	select {
	case <-c.Context().Done():
	default:
		t.Error("context not cancelled after shutdown")
	}
}

func TestShutdownTimeout(t *testing.T) {
	c := lifecycle.New()

	block := make(chan struct{})
	c.OnShutdown(func() {
		<-c.Context().Done()
		<-block
	})

	if err := c.Shutdown(10 * time.Millisecond); err == nil {
		t.Error("expected timeout error from stuck shutdown hook")
	}
	close(block)
}
