//go:build linux

package surface

import (
	"encoding/binary"
	"errors"
	"fmt"
	"golang.org/x/sys/unix"
	"sync/atomic"
	"unsafe"
)

// Global surfaces are System V shared memory segments: a header followed by the pixels.
const (
	shmHeaderSize = 64
	shmMagic      = 0x53474c53 // "SGLS"
	shmVersion    = 1
)

// header field offsets
const (
	offMagic = 4 * iota
	offVersion
	offWidth
	offHeight
	offBytesPerRow
	offBytesPerElement
	offFrame
)

type shmBacking struct {
	id   int
	data []byte
}

func createGlobal(props Properties) (ID, backing, error) {
	size := shmHeaderSize + props.BytesPerRow*props.Height
	id, err := unix.SysvShmGet(unix.IPC_PRIVATE, size, unix.IPC_CREAT|unix.IPC_EXCL|0o600)
	if err != nil {
		return 0, nil, fmt.Errorf("shmget %d bytes: %w", size, err)
	}
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		_, _ = unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return 0, nil, fmt.Errorf("shmat %d: %w", id, err)
	}
	le := binary.LittleEndian
	le.PutUint32(data[offMagic:], shmMagic)
	le.PutUint32(data[offVersion:], shmVersion)
	le.PutUint32(data[offWidth:], uint32(props.Width))
	le.PutUint32(data[offHeight:], uint32(props.Height))
	le.PutUint32(data[offBytesPerRow:], uint32(props.BytesPerRow))
	le.PutUint32(data[offBytesPerElement:], uint32(props.BytesPerElement))
	return ID(id), &shmBacking{id: id, data: data}, nil
}

func lookupGlobal(id ID) (Properties, backing, error) {
	if id > ID(^uint32(0)>>1) {
		return Properties{}, nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	var desc unix.SysvShmDesc
	if _, err := unix.SysvShmCtl(int(id), unix.IPC_STAT, &desc); err != nil {
		if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EIDRM) || errors.Is(err, unix.EACCES) {
			return Properties{}, nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return Properties{}, nil, fmt.Errorf("shmctl %d: %w", id, err)
	}
	if uint64(desc.Segsz) < shmHeaderSize {
		return Properties{}, nil, fmt.Errorf("%w: segment %d is not a shared surface", ErrNotFound, id)
	}
	data, err := unix.SysvShmAttach(int(id), 0, 0)
	if err != nil {
		return Properties{}, nil, fmt.Errorf("shmat %d: %w", id, err)
	}
	le := binary.LittleEndian
	props := Properties{
		Width:           int(le.Uint32(data[offWidth:])),
		Height:          int(le.Uint32(data[offHeight:])),
		BytesPerRow:     int(le.Uint32(data[offBytesPerRow:])),
		BytesPerElement: int(le.Uint32(data[offBytesPerElement:])),
		Global:          true,
	}
	_, verr := props.withDefaults()
	if le.Uint32(data[offMagic:]) != shmMagic || le.Uint32(data[offVersion:]) != shmVersion || verr != nil ||
		len(data) < shmHeaderSize+props.BytesPerRow*props.Height {
		_ = unix.SysvShmDetach(data)
		return Properties{}, nil, fmt.Errorf("%w: segment %d is not a shared surface", ErrNotFound, id)
	}
	return props, &shmBacking{id: int(id), data: data}, nil
}

func (b *shmBacking) bytes() []byte { return b.data[shmHeaderSize:] }
func (b *shmBacking) lock() error   { return nil }
func (b *shmBacking) unlock() error { return nil }

func (b *shmBacking) frameCounter() *uint32 {
	return (*uint32)(unsafe.Pointer(&b.data[offFrame]))
}

func (b *shmBacking) frame() uint32 { return atomic.LoadUint32(b.frameCounter()) }
func (b *shmBacking) flush()        { atomic.AddUint32(b.frameCounter(), 1) }

func (b *shmBacking) close(owner bool) error {
	var err error
	if owner {
		// The segment is destroyed once the last process detaches.
		_, err = unix.SysvShmCtl(b.id, unix.IPC_RMID, nil)
	}
	return errors.Join(err, unix.SysvShmDetach(b.data))
}
