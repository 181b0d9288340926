// memory.go - flat physical memory with fault-returning accessors and a
// page-bucketed memory-mapped I/O dispatch table.
//
// Concurrency and cache optimisation: every accessor locks a single
// sync.RWMutex for the whole memory array. The emulated model makes no
// stronger ordering promise than "each individual access is atomic with
// respect to itself", so one coarse lock is sufficient; device goroutines
// and the CPU goroutine contend on it the same way real hardware peripherals
// contend on a shared bus.

package main

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const (
	bootLoadAddress = 0x200
	pageSize        = 0x100
	pageMask        = ^uint32(pageSize - 1)
)

// IORegion is a byte-granular memory-mapped device window. Read/Write are
// called with the mutex held, so implementations must not call back into
// Memory.
type IORegion struct {
	Base, Limit uint32
	Read        func(addr uint32) (byte, bool)
	Write       func(addr uint32, value byte) bool
}

func (r *IORegion) contains(addr uint32) bool {
	return addr >= r.Base && addr <= r.Limit
}

// Memory is the VM's sole shared mutable resource: a flat byte buffer plus
// a small number of registered MMIO windows.
type Memory struct {
	mu      sync.RWMutex
	bytes   []byte
	mapping map[uint32][]*IORegion
}

// NewMemory allocates size bytes of physical memory, zeroed.
func NewMemory(size int) *Memory {
	if size < 0xF2040 {
		size = 0xF2040
	}
	return &Memory{
		bytes:   make([]byte, size),
		mapping: make(map[uint32][]*IORegion),
	}
}

// Len returns the size of the backing array in bytes.
func (m *Memory) Len() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint32(len(m.bytes))
}

// MapIO registers a device window covering [region.Base, region.Limit].
// Must be called before the CPU starts stepping; there is no unmap.
func (m *Memory) MapIO(region *IORegion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	first := region.Base & pageMask
	last := region.Limit & pageMask
	for page := first; ; page += pageSize {
		m.mapping[page] = append(m.mapping[page], region)
		if page == last {
			break
		}
	}
}

func (m *Memory) findRegion(addr uint32) *IORegion {
	for _, region := range m.mapping[addr&pageMask] {
		if region.contains(addr) {
			return region
		}
	}
	return nil
}

// LoadBoot copies img into memory starting at byte 0x200, the fixed firmware
// entry point. It fails rather than truncating the image.
func (m *Memory) LoadBoot(img []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := uint64(bootLoadAddress) + uint64(len(img))
	if end > uint64(len(m.bytes)) {
		return fmt.Errorf("boot image of %d bytes does not fit at 0x%X in %d bytes of memory", len(img), bootLoadAddress, len(m.bytes))
	}
	copy(m.bytes[bootLoadAddress:], img)
	return nil
}

func (m *Memory) readByteLocked(addr uint32) (byte, bool) {
	if region := m.findRegion(addr); region != nil {
		return region.Read(addr)
	}
	if uint64(addr) >= uint64(len(m.bytes)) {
		return 0, false
	}
	return m.bytes[addr], true
}

func (m *Memory) writeByteLocked(addr uint32, value byte) bool {
	if region := m.findRegion(addr); region != nil {
		return region.Write(addr, value)
	}
	if uint64(addr) >= uint64(len(m.bytes)) {
		return false
	}
	m.bytes[addr] = value
	return true
}

// overflows32 reports whether a width-byte access starting at addr would
// need an address past the top of the 32-bit space, computing addr+width
// in 64 bits. Per-byte bounds checks alone aren't enough: addr+i wrapping
// around uint32 as the multi-byte accessors below iterate would otherwise
// let a request near 0xFFFFFFFF silently land on an unrelated low address
// (e.g. the IVT) instead of faulting.
func overflows32(addr, width uint32) bool {
	return uint64(addr)+uint64(width) > 1<<32
}

// ReadU8WithFault reads one byte at addr.
func (m *Memory) ReadU8WithFault(addr uint32) (byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readByteLocked(addr)
}

// ReadU16WithFault reads a little-endian 16-bit value at addr.
func (m *Memory) ReadU16WithFault(addr uint32) (uint16, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if overflows32(addr, 2) {
		return 0, false
	}
	b0, ok0 := m.readByteLocked(addr)
	b1, ok1 := m.readByteLocked(addr + 1)
	if !ok0 || !ok1 {
		return 0, false
	}
	return binary.LittleEndian.Uint16([]byte{b0, b1}), true
}

// ReadU32WithFault reads a little-endian 32-bit value at addr.
func (m *Memory) ReadU32WithFault(addr uint32) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if overflows32(addr, 4) {
		return 0, false
	}
	var buf [4]byte
	for i := uint32(0); i < 4; i++ {
		b, ok := m.readByteLocked(addr + i)
		if !ok {
			return 0, false
		}
		buf[i] = b
	}
	return binary.LittleEndian.Uint32(buf[:]), true
}

// ReadBytesWithFault reads len(out) bytes starting at addr into out under a
// single lock acquisition, for callers (the monitor and disk devices) that
// would otherwise pay a per-byte lock/unlock to drain a whole window.
func (m *Memory) ReadBytesWithFault(addr uint32, out []byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if overflows32(addr, uint32(len(out))) {
		return false
	}
	for i := range out {
		b, ok := m.readByteLocked(addr + uint32(i))
		if !ok {
			return false
		}
		out[i] = b
	}
	return true
}

// WriteBytesWithFault writes data starting at addr under a single lock
// acquisition.
func (m *Memory) WriteBytesWithFault(addr uint32, data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if overflows32(addr, uint32(len(data))) {
		return false
	}
	for i, b := range data {
		if !m.writeByteLocked(addr+uint32(i), b) {
			return false
		}
	}
	return true
}

// WriteU8WithFault writes one byte at addr.
func (m *Memory) WriteU8WithFault(addr uint32, value byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeByteLocked(addr, value)
}

// WriteU16WithFault writes a little-endian 16-bit value at addr.
func (m *Memory) WriteU16WithFault(addr uint32, value uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if overflows32(addr, 2) {
		return false
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], value)
	if !m.writeByteLocked(addr, buf[0]) {
		return false
	}
	return m.writeByteLocked(addr+1, buf[1])
}

// WriteU32WithFault writes a little-endian 32-bit value at addr.
func (m *Memory) WriteU32WithFault(addr uint32, value uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if overflows32(addr, 4) {
		return false
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	for i, b := range buf {
		if !m.writeByteLocked(addr+uint32(i), b) {
			return false
		}
	}
	return true
}

// Snapshot returns a copy of the whole backing array, for debugging/tests.
func (m *Memory) Snapshot() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]byte, len(m.bytes))
	copy(out, m.bytes)
	return out
}
