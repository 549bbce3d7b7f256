package wasmbench

// Handle locates a buffer in guest linear memory. On the guest ABI it travels
// as a single 64-bit scalar: address in the high 32 bits, size in the low 32.
type Handle struct {
	Addr uint32
	Size uint32
}

// EncodeHandle packs addr and size into one scalar.
func EncodeHandle(addr, size uint32) uint64 {
	return uint64(addr)<<32 | uint64(size)
}

// DecodeHandle is the inverse of EncodeHandle.
func DecodeHandle(v uint64) (addr, size uint32) {
	return uint32(v >> 32), uint32(v & 0xffffffff)
}

// Pack returns the scalar form of h.
func (h Handle) Pack() uint64 {
	return EncodeHandle(h.Addr, h.Size)
}

// Int64 returns the scalar form of h in a signed container, as exchanged
// with guest i64 values.
func (h Handle) Int64() int64 {
	return int64(h.Pack())
}

// UnpackHandle decodes a scalar handle.
func UnpackHandle(v uint64) Handle {
	addr, size := DecodeHandle(v)
	return Handle{Addr: addr, Size: size}
}

// HandleFromInt64 decodes a handle stored in a signed container. Both fields
// are unsigned regardless of the sign bit.
func HandleFromInt64(v int64) Handle {
	return UnpackHandle(uint64(v))
}

// IsZero reports whether h points nowhere.
func (h Handle) IsZero() bool {
	return h.Addr == 0 && h.Size == 0
}
