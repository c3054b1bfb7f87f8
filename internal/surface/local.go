package surface

import (
	"sync"
	"sync/atomic"
)

type localEntry struct {
	props  Properties
	pix    []byte
	frames atomic.Uint32
}

var local = struct {
	sync.Mutex
	last    ID
	entries map[ID]*localEntry
}{entries: map[ID]*localEntry{}}

type localBacking struct {
	id ID
	e  *localEntry
}

func createLocal(props Properties) *Surface {
	e := &localEntry{props: props, pix: make([]byte, props.BytesPerRow*props.Height)}
	local.Lock()
	local.last++
	id := local.last
	local.entries[id] = e
	local.Unlock()
	return &Surface{id: id, props: props, owner: true, b: &localBacking{id: id, e: e}}
}

func lookupLocal(id ID) (*Surface, bool) {
	local.Lock()
	e, ok := local.entries[id]
	local.Unlock()
	if !ok {
		return nil, false
	}
	return &Surface{id: id, props: e.props, b: &localBacking{id: id, e: e}}, true
}

func (b *localBacking) bytes() []byte { return b.e.pix }
func (b *localBacking) lock() error   { return nil }
func (b *localBacking) unlock() error { return nil }
func (b *localBacking) frame() uint32 { return b.e.frames.Load() }
func (b *localBacking) flush()        { b.e.frames.Add(1) }

func (b *localBacking) close(owner bool) error {
	if owner {
		local.Lock()
		delete(local.entries, b.id)
		local.Unlock()
	}
	return nil
}
