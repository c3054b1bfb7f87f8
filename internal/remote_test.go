package internal

import (
	"errors"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net"
	"net/rpc"
	"os"
	"sync"
	"testing"
	"time"
)

type fakeTarget struct {
	mu      sync.Mutex
	status  Status
	failErr error
}

func (f *fakeTarget) Status() *Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &f.status
}

func (f *fakeTarget) Redraw() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.status.Draws++
	return nil
}

func newTestClient(t *testing.T, target ControlTarget, done chan os.Signal) *rpc.Client {
	t.Helper()
	server := NewControlService(target, done)
	cliConn, srvConn := net.Pipe()
	go server.ServeConn(srvConn)
	cl := rpc.NewClient(cliConn)
	t.Cleanup(func() { _ = cl.Close() })
	return cl
}

func TestControlServiceStatus(t *testing.T) {
	target := &fakeTarget{status: Status{
		SurfaceID: 42, Width: 800, Height: 600, BytesPerRow: 3200, Global: true,
		Geometry: &GeometryInfo{Mode: "triangle_strip", Vertices: 3,
			Bounds: sdf.Box3{Max: v3.Vec{X: 1, Y: 1}}},
	}}
	cl := newTestClient(t, target, make(chan os.Signal, 1))

	var st Status
	require.NoError(t, cl.Call("ControlService.Status", 0, &st))
	assert.Equal(t, uint32(42), st.SurfaceID)
	assert.Equal(t, 3200, st.BytesPerRow)
	require.NotNil(t, st.Geometry)
	assert.Equal(t, 3, st.Geometry.Vertices)
	assert.Equal(t, 1.0, st.Geometry.Bounds.Max.Y)
}

func TestControlServiceStatusIsACopy(t *testing.T) {
	target := &fakeTarget{status: Status{Geometry: &GeometryInfo{Vertices: 3}}}
	srv := &ControlService{target: target}
	var st Status
	require.NoError(t, srv.Status(0, &st))
	st.Geometry.Vertices = 100
	assert.Equal(t, 3, target.status.Geometry.Vertices)
}

func TestControlServiceRedraw(t *testing.T) {
	target := &fakeTarget{}
	cl := newTestClient(t, target, make(chan os.Signal, 1))
	var draws int
	require.NoError(t, cl.Call("ControlService.Redraw", 0, &draws))
	require.NoError(t, cl.Call("ControlService.Redraw", 0, &draws))
	assert.Equal(t, 2, draws)

	target.failErr = errors.New("boom")
	err := cl.Call("ControlService.Redraw", 0, &draws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestControlServiceShutdown(t *testing.T) {
	done := make(chan os.Signal, 1)
	cl := newTestClient(t, &fakeTarget{}, done)
	var ignored int
	require.NoError(t, cl.Call("ControlService.Shutdown", time.Second, &ignored))
	select {
	case <-done:
	default:
		t.Fatal("expected a shutdown signal")
	}
}

func TestControlServiceShutdownTimeout(t *testing.T) {
	done := make(chan os.Signal) // Nobody listens
	cl := newTestClient(t, &fakeTarget{}, done)
	var ignored int
	err := cl.Call("ControlService.Shutdown", 10*time.Millisecond, &ignored)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown timeout")
}
