package wasmbench

import (
	"math"
	"math/rand"
	"testing"
)

func TestEncodeHandle_Layout(t *testing.T) {
	v := EncodeHandle(0x12345678, 0x9abcdef0)
	if v != 0x123456789abcdef0 {
		t.Errorf("EncodeHandle = %#x, want 0x123456789abcdef0", v)
	}
}

func TestHandle_RoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		addr, size uint32
	}{
		{"zero", 0, 0},
		{"addr only", 1024, 0},
		{"size only", 0, 4096},
		{"max", math.MaxUint32, math.MaxUint32},
		{"high bit addr", 0x80000000, 1},
		{"high bit size", 1, 0x80000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, size := DecodeHandle(EncodeHandle(tt.addr, tt.size))
			if addr != tt.addr || size != tt.size {
				t.Errorf("DecodeHandle(EncodeHandle(%d, %d)) = (%d, %d)", tt.addr, tt.size, addr, size)
			}

			h := HandleFromInt64(Handle{Addr: tt.addr, Size: tt.size}.Int64())
			if h.Addr != tt.addr || h.Size != tt.size {
				t.Errorf("signed round trip = %+v", h)
			}
		})
	}
}

func TestHandle_RoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		addr, size := rng.Uint32(), rng.Uint32()
		h := UnpackHandle(EncodeHandle(addr, size))
		if h.Addr != addr || h.Size != size {
			t.Fatalf("round trip (%d, %d) = %+v", addr, size, h)
		}
	}
}

func TestHandleFromInt64_NegativeContainer(t *testing.T) {
	h := HandleFromInt64(-1)
	if h.Addr != math.MaxUint32 || h.Size != math.MaxUint32 {
		t.Errorf("HandleFromInt64(-1) = %+v, want both fields max", h)
	}
}

func TestHandle_IsZero(t *testing.T) {
	if !(Handle{}).IsZero() {
		t.Error("zero handle should report IsZero")
	}
	if (Handle{Size: 1}).IsZero() {
		t.Error("non-zero handle should not report IsZero")
	}
}
