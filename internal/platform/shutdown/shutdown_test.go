package shutdown

import (
	"context"
	"errors"
	"testing"

	"github.com/SlpAus/aura-wager-backend/pkg/lifecycle"
)

func TestShutdownStopsServicesThenRunsFinalSteps(t *testing.T) {
	graceful := lifecycle.NewManager("graceful")
	forceful := lifecycle.NewManager("forceful")
	c := NewCoordinator(graceful, forceful)

	h, err := graceful.NewServiceHandle("worker")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	stopped := make(chan struct{})
	go func() {
		defer h.Close()
		<-h.Done()
		close(stopped)
	}()

	var order []string
	c.AddFinalStep("first", func(context.Context) error {
		select {
		case <-stopped:
		default:
			t.Error("final step ran before the worker stopped")
		}
		order = append(order, "first")
		return errors.New("ignored")
	})
	c.AddFinalStep("second", func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	c.Shutdown()
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("final steps = %v, want [first second]", order)
	}
}
