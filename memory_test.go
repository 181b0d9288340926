package main

import "testing"

func TestNewMemoryEnforcesMinimumSize(t *testing.T) {
	m := NewMemory(16)
	if got := m.Len(); got != 0xF2040 {
		t.Fatalf("Len() = 0x%X, expected the enforced minimum 0xF2040", got)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	m := NewMemory(0x10000)

	if !m.WriteU8WithFault(0x100, 0xAB) {
		t.Fatalf("WriteU8WithFault failed within bounds")
	}
	if v, ok := m.ReadU8WithFault(0x100); !ok || v != 0xAB {
		t.Fatalf("ReadU8WithFault = (0x%X, %v), expected (0xAB, true)", v, ok)
	}

	if !m.WriteU16WithFault(0x200, 0xCAFE) {
		t.Fatalf("WriteU16WithFault failed within bounds")
	}
	if v, ok := m.ReadU16WithFault(0x200); !ok || v != 0xCAFE {
		t.Fatalf("ReadU16WithFault = (0x%X, %v), expected (0xCAFE, true)", v, ok)
	}

	if !m.WriteU32WithFault(0x300, 0xDEADBEEF) {
		t.Fatalf("WriteU32WithFault failed within bounds")
	}
	if v, ok := m.ReadU32WithFault(0x300); !ok || v != 0xDEADBEEF {
		t.Fatalf("ReadU32WithFault = (0x%X, %v), expected (0xDEADBEEF, true)", v, ok)
	}
}

func TestOutOfBoundsAccessesFault(t *testing.T) {
	m := NewMemory(0x10000)
	size := m.Len()

	if _, ok := m.ReadU8WithFault(size); ok {
		t.Fatalf("ReadU8WithFault at the first byte past the array should fault")
	}
	if m.WriteU32WithFault(size-2, 0x11223344) {
		t.Fatalf("WriteU32WithFault straddling the end of the array should fault")
	}
}

func TestMapIOInterceptsBeforeBackingArray(t *testing.T) {
	m := NewMemory(0x10000)
	var lastWrite byte
	region := &IORegion{
		Base:  0x400,
		Limit: 0x400,
		Read:  func(addr uint32) (byte, bool) { return 0x42, true },
		Write: func(addr uint32, value byte) bool { lastWrite = value; return true },
	}
	m.MapIO(region)

	if v, ok := m.ReadU8WithFault(0x400); !ok || v != 0x42 {
		t.Fatalf("ReadU8WithFault through a mapped region = (0x%X, %v), expected (0x42, true)", v, ok)
	}
	if !m.WriteU8WithFault(0x400, 0x7) {
		t.Fatalf("WriteU8WithFault through a mapped region should succeed")
	}
	if lastWrite != 0x7 {
		t.Fatalf("mapped region saw write value 0x%X, expected 0x7", lastWrite)
	}

	// An address just outside the region falls through to plain backing RAM.
	if !m.WriteU8WithFault(0x401, 0x99) {
		t.Fatalf("WriteU8WithFault just past the mapped region should hit plain RAM")
	}
	if v, ok := m.ReadU8WithFault(0x401); !ok || v != 0x99 {
		t.Fatalf("ReadU8WithFault just past the mapped region = (0x%X, %v), expected (0x99, true)", v, ok)
	}
}

func TestLoadBootRejectsOversizedImage(t *testing.T) {
	m := NewMemory(0xF2040)
	img := make([]byte, m.Len())
	if err := m.LoadBoot(img); err == nil {
		t.Fatalf("LoadBoot should reject an image that doesn't fit at offset 0x200 in the given memory size")
	}
}

func TestLoadBootPlacesImageAtEntryPoint(t *testing.T) {
	m := NewMemory(0x10000)
	img := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := m.LoadBoot(img); err != nil {
		t.Fatalf("LoadBoot failed: %v", err)
	}
	v, ok := m.ReadU32WithFault(bootLoadAddress)
	if !ok || v != 0xEFBEADDE {
		t.Fatalf("ReadU32WithFault at boot entry = (0x%X, %v), expected (0xEFBEADDE, true)", v, ok)
	}
}

func TestBulkReadWriteBytesWithFault(t *testing.T) {
	m := NewMemory(0x10000)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !m.WriteBytesWithFault(0x500, data) {
		t.Fatalf("WriteBytesWithFault within bounds should succeed")
	}
	out := make([]byte, len(data))
	if !m.ReadBytesWithFault(0x500, out) {
		t.Fatalf("ReadBytesWithFault within bounds should succeed")
	}
	for i := range data {
		if out[i] != data[i] {
			t.Fatalf("byte %d = 0x%X, expected 0x%X", i, out[i], data[i])
		}
	}

	size := m.Len()
	if m.ReadBytesWithFault(size-4, make([]byte, 8)) {
		t.Fatalf("ReadBytesWithFault straddling the end of the array should fault")
	}
}

func TestAddressNearTopOf32BitSpaceFaultsInsteadOfWrapping(t *testing.T) {
	m := NewMemory(0x10000)

	if _, ok := m.ReadU32WithFault(0xFFFFFFFE); ok {
		t.Fatalf("ReadU32WithFault whose addr+width overflows 32 bits should fault, not wrap to a low address")
	}
	if m.WriteU32WithFault(0xFFFFFFFE, 0x11223344) {
		t.Fatalf("WriteU32WithFault whose addr+width overflows 32 bits should fault, not wrap and corrupt low memory")
	}
	if got, ok := m.ReadU32WithFault(0); !ok || got != 0 {
		t.Fatalf("low memory = (0x%X, %v) after a wrapping write attempt, expected it untouched at (0, true)", got, ok)
	}

	if _, ok := m.ReadU16WithFault(0xFFFFFFFF); ok {
		t.Fatalf("ReadU16WithFault at the last addressable byte should fault, not wrap")
	}
	if m.WriteBytesWithFault(0xFFFFFFFC, make([]byte, 8)) {
		t.Fatalf("WriteBytesWithFault whose span overflows 32 bits should fault, not wrap")
	}
}
