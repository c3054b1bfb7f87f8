//go:build darwin

package surface

import (
	"fmt"
	"github.com/ebitengine/purego"
	"sync"
	"unsafe"
)

// Global surfaces are IOSurfaces created with kIOSurfaceIsGlobal, which IOSurfaceLookup can find
// from any process.

const (
	kCFNumberSInt32Type = 3
	pixelFormatBGRA     = 'B'<<24 | 'G'<<16 | 'R'<<8 | 'A'
)

var (
	ioInitOnce sync.Once
	ioInitErr  error

	cfNumberCreate            func(allocator uintptr, theType int32, valuePtr unsafe.Pointer) uintptr
	cfDictionaryCreateMutable func(allocator uintptr, capacity int, keyCallBacks, valueCallBacks uintptr) uintptr
	cfDictionarySetValue      func(dict, key, value uintptr)
	cfRelease                 func(ref uintptr)

	ioSurfaceCreate          func(properties uintptr) uintptr
	ioSurfaceLookup          func(id uint32) uintptr
	ioSurfaceGetID           func(ref uintptr) uint32
	ioSurfaceLock            func(ref uintptr, options uint32, seed *uint32) int32
	ioSurfaceUnlock          func(ref uintptr, options uint32, seed *uint32) int32
	ioSurfaceGetBaseAddress  func(ref uintptr) uintptr
	ioSurfaceGetWidth        func(ref uintptr) uintptr
	ioSurfaceGetHeight       func(ref uintptr) uintptr
	ioSurfaceGetBytesPerRow  func(ref uintptr) uintptr
	ioSurfaceGetBytesPerElem func(ref uintptr) uintptr
	ioSurfaceGetSeed         func(ref uintptr) uint32

	keyWidth, keyHeight, keyBytesPerRow, keyBytesPerElement, keyPixelFormat, keyIsGlobal uintptr
	cfBooleanTrue                                                                       uintptr
	keyCallBacks, valueCallBacks                                                        uintptr
)

// symbolValue dereferences an exported pointer variable such as a CFStringRef constant.
func symbolValue(lib uintptr, name string) (uintptr, error) {
	sym, err := purego.Dlsym(lib, name)
	if err != nil {
		return 0, err
	}
	return *(*uintptr)(unsafe.Pointer(sym)), nil
}

func loadIOSurface() error {
	ioInitOnce.Do(func() {
		cf, err := purego.Dlopen("/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation", purego.RTLD_GLOBAL)
		if err != nil {
			ioInitErr = err
			return
		}
		io, err := purego.Dlopen("/System/Library/Frameworks/IOSurface.framework/IOSurface", purego.RTLD_GLOBAL)
		if err != nil {
			ioInitErr = err
			return
		}
		purego.RegisterLibFunc(&cfNumberCreate, cf, "CFNumberCreate")
		purego.RegisterLibFunc(&cfDictionaryCreateMutable, cf, "CFDictionaryCreateMutable")
		purego.RegisterLibFunc(&cfDictionarySetValue, cf, "CFDictionarySetValue")
		purego.RegisterLibFunc(&cfRelease, cf, "CFRelease")
		purego.RegisterLibFunc(&ioSurfaceCreate, io, "IOSurfaceCreate")
		purego.RegisterLibFunc(&ioSurfaceLookup, io, "IOSurfaceLookup")
		purego.RegisterLibFunc(&ioSurfaceGetID, io, "IOSurfaceGetID")
		purego.RegisterLibFunc(&ioSurfaceLock, io, "IOSurfaceLock")
		purego.RegisterLibFunc(&ioSurfaceUnlock, io, "IOSurfaceUnlock")
		purego.RegisterLibFunc(&ioSurfaceGetBaseAddress, io, "IOSurfaceGetBaseAddress")
		purego.RegisterLibFunc(&ioSurfaceGetWidth, io, "IOSurfaceGetWidth")
		purego.RegisterLibFunc(&ioSurfaceGetHeight, io, "IOSurfaceGetHeight")
		purego.RegisterLibFunc(&ioSurfaceGetBytesPerRow, io, "IOSurfaceGetBytesPerRow")
		purego.RegisterLibFunc(&ioSurfaceGetBytesPerElem, io, "IOSurfaceGetBytesPerElement")
		purego.RegisterLibFunc(&ioSurfaceGetSeed, io, "IOSurfaceGetSeed")

		for _, k := range []struct {
			dst  *uintptr
			lib  uintptr
			name string
		}{
			{&keyWidth, io, "kIOSurfaceWidth"},
			{&keyHeight, io, "kIOSurfaceHeight"},
			{&keyBytesPerRow, io, "kIOSurfaceBytesPerRow"},
			{&keyBytesPerElement, io, "kIOSurfaceBytesPerElement"},
			{&keyPixelFormat, io, "kIOSurfacePixelFormat"},
			{&keyIsGlobal, io, "kIOSurfaceIsGlobal"},
			{&cfBooleanTrue, cf, "kCFBooleanTrue"},
		} {
			if *k.dst, err = symbolValue(k.lib, k.name); err != nil {
				ioInitErr = err
				return
			}
		}
		// The callback structs are passed by address, not dereferenced.
		if keyCallBacks, err = purego.Dlsym(cf, "kCFTypeDictionaryKeyCallBacks"); err != nil {
			ioInitErr = err
			return
		}
		if valueCallBacks, err = purego.Dlsym(cf, "kCFTypeDictionaryValueCallBacks"); err != nil {
			ioInitErr = err
		}
	})
	return ioInitErr
}

type ioSurfaceBacking struct {
	ref  uintptr
	size int
	mu   sync.Mutex
	mem  []byte
}

func cfNumber(v int) uintptr {
	n := int32(v)
	return cfNumberCreate(0, kCFNumberSInt32Type, unsafe.Pointer(&n))
}

func createGlobal(props Properties) (ID, backing, error) {
	if err := loadIOSurface(); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	dict := cfDictionaryCreateMutable(0, 0, keyCallBacks, valueCallBacks)
	defer cfRelease(dict)
	for _, kv := range []struct {
		key uintptr
		v   int
	}{
		{keyWidth, props.Width},
		{keyHeight, props.Height},
		{keyBytesPerRow, props.BytesPerRow},
		{keyBytesPerElement, props.BytesPerElement},
		{keyPixelFormat, pixelFormatBGRA},
	} {
		n := cfNumber(kv.v)
		cfDictionarySetValue(dict, kv.key, n)
		cfRelease(n)
	}
	cfDictionarySetValue(dict, keyIsGlobal, cfBooleanTrue)
	ref := ioSurfaceCreate(dict)
	if ref == 0 {
		return 0, nil, fmt.Errorf("IOSurfaceCreate %dx%d failed", props.Width, props.Height)
	}
	return ID(ioSurfaceGetID(ref)), &ioSurfaceBacking{ref: ref, size: props.BytesPerRow * props.Height}, nil
}

func lookupGlobal(id ID) (Properties, backing, error) {
	if err := loadIOSurface(); err != nil {
		return Properties{}, nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	ref := ioSurfaceLookup(uint32(id))
	if ref == 0 {
		return Properties{}, nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	props := Properties{
		Width:           int(ioSurfaceGetWidth(ref)),
		Height:          int(ioSurfaceGetHeight(ref)),
		BytesPerRow:     int(ioSurfaceGetBytesPerRow(ref)),
		BytesPerElement: int(ioSurfaceGetBytesPerElem(ref)),
		Global:          true,
	}
	if _, err := props.withDefaults(); err != nil {
		cfRelease(ref)
		return Properties{}, nil, err
	}
	return props, &ioSurfaceBacking{ref: ref, size: props.BytesPerRow * props.Height}, nil
}

// bytes is only valid while locked: IOSurface may move the memory otherwise.
func (b *ioSurfaceBacking) bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mem
}

func (b *ioSurfaceBacking) lock() error {
	if ret := ioSurfaceLock(b.ref, 0, nil); ret != 0 {
		return fmt.Errorf("IOSurfaceLock: kern_return %d", ret)
	}
	base := ioSurfaceGetBaseAddress(b.ref)
	b.mu.Lock()
	b.mem = unsafe.Slice((*byte)(unsafe.Pointer(base)), b.size)
	b.mu.Unlock()
	return nil
}

func (b *ioSurfaceBacking) unlock() error {
	b.mu.Lock()
	b.mem = nil
	b.mu.Unlock()
	if ret := ioSurfaceUnlock(b.ref, 0, nil); ret != 0 {
		return fmt.Errorf("IOSurfaceUnlock: kern_return %d", ret)
	}
	return nil
}

// IOSurface bumps its seed on every locked modification, so the seed doubles as frame counter.
func (b *ioSurfaceBacking) frame() uint32 { return ioSurfaceGetSeed(b.ref) }
func (b *ioSurfaceBacking) flush()        {}

func (b *ioSurfaceBacking) close(bool) error {
	// The owner's release destroys the surface once no other process holds it.
	cfRelease(b.ref)
	return nil
}
