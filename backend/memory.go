package backend

import (
	"unsafe"

	"github.com/wippyai/wasmbench/errors"
)

// AppToNative translates a guest address into a pointer inside mem, the
// host view of a sandbox's linear memory.
func AppToNative(mem []byte, addr uint32) (unsafe.Pointer, error) {
	if uint64(addr) >= uint64(len(mem)) {
		return nil, errors.OutOfBounds(uint64(addr), len(mem))
	}
	return unsafe.Pointer(&mem[addr]), nil
}

// NativeToApp translates a pointer inside mem back to a guest address.
func NativeToApp(mem []byte, p unsafe.Pointer) (uint32, error) {
	if len(mem) == 0 || p == nil {
		return 0, errors.OutOfBounds(uint64(uintptr(p)), len(mem))
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
	ptr := uintptr(p)
	if ptr < base || ptr-base >= uintptr(len(mem)) {
		return 0, errors.OutOfBounds(uint64(ptr), len(mem))
	}
	return uint32(ptr - base), nil
}

// GuestSlice returns a host view of size bytes of guest memory at addr. The
// view is only valid until the guest grows its memory.
func GuestSlice(c Context, addr, size uint32) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	p, err := c.AddrAppToNative(addr)
	if err != nil {
		return nil, err
	}
	end := uint64(addr) + uint64(size) - 1
	if end > 0xffffffff {
		return nil, errors.OutOfBounds(end, 0)
	}
	if _, err := c.AddrAppToNative(uint32(end)); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), size), nil
}
