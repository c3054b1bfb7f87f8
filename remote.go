package sharegl

import (
	"context"
	"github.com/cenkalti/backoff/v4"
	"log"
	"net/rpc"
	"time"
)

// ControlClient controls a running producer by calling its control service (using Go's net/rpc)
type ControlClient struct {
	cl *rpc.Client
}

// DialControl connects to the control address of a producer (see OptPControl), retrying with
// exponential backoff for up to timeout as the producer may still be starting.
func DialControl(ctx context.Context, addr string, timeout time.Duration) (*ControlClient, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = timeout
	var cl *rpc.Client
	err := backoff.RetryNotify(func() error {
		var err error
		cl, err = rpc.Dial("tcp", addr)
		return err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Println("[Control] Dial error (retrying in", next.Round(time.Millisecond), "):", err)
	})
	if err != nil {
		return nil, err
	}
	return &ControlClient{cl: cl}, nil
}

// NewControlClient wraps an existing connection to a control service.
func NewControlClient(client *rpc.Client) *ControlClient {
	return &ControlClient{cl: client}
}

// Status returns a snapshot of the producer state.
func (d *ControlClient) Status() (*Status, error) {
	var out Status
	if err := d.cl.Call("ControlService.Status", 0, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Redraw makes the producer render and flush again, returning its completed render passes.
func (d *ControlClient) Redraw() (int, error) {
	var draws int
	err := d.cl.Call("ControlService.Redraw", 0, &draws)
	return draws, err
}

// Shutdown asks the producer to stop, failing if it does not accept the request within timeout.
func (d *ControlClient) Shutdown(timeout time.Duration) error {
	var out int
	return d.cl.Call("ControlService.Shutdown", timeout, &out)
}

func (d *ControlClient) Close() error {
	return d.cl.Close()
}
