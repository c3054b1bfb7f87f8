package internal

import (
	"context"
	"errors"
	"github.com/barkimedes/go-deepcopy"
	"github.com/subchen/go-trylock/v2"
	"log"
	"net/rpc"
	"os"
	"time"
)

// ControlService is an internal struct that has to be exported for RPC.
// It is the server counterpart to the control client in the root package, and provides remote
// access to a running producer.
type ControlService struct {
	target     ControlTarget
	redrawLock trylock.TryLocker
	done       chan os.Signal
}

// NewControlService see ControlService. A Shutdown call sends on done.
func NewControlService(target ControlTarget, done chan os.Signal) *rpc.Server {
	server := rpc.NewServer()
	srv := ControlService{
		target:     target,
		redrawLock: trylock.New(),
		done:       done,
	}
	err := server.Register(&srv)
	if err != nil {
		panic(err) // Shouldn't happen (only on bad implementation)
	}
	return server
}

// Status is an internal method that has to be exported for RPC.
func (d *ControlService) Status(_ int, out *Status) error {
	*out = *deepcopy.MustAnything(d.target.Status()).(*Status)
	return nil
}

var errRedrawRunning = errors.New("a redraw is already running")

// Redraw is an internal method that has to be exported for RPC.
// Redraw re-renders the surface. Concurrent requests are rejected while one is waiting for the
// render thread.
func (d *ControlService) Redraw(_ int, out *int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if !d.redrawLock.TryLock(ctx) {
		return errRedrawRunning
	}
	defer d.redrawLock.Unlock()
	if err := d.target.Redraw(); err != nil {
		log.Println("[Control] Redraw error:", err)
		return err
	}
	*out = d.target.Status().Draws
	return nil
}

// Shutdown is an internal method that has to be exported for RPC.
// Shutdown sends a signal on the configured channel (with a timeout)
func (d *ControlService) Shutdown(t time.Duration, _ *int) error {
	select {
	case d.done <- os.Interrupt:
		return nil
	case <-time.After(t):
		return errors.New("shutdown timeout")
	}
}
