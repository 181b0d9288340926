// device_memory.go - the always-present class-0x1 device describing the
// VM's own backing RAM through the enumeration port. Grounded on the
// original Rust source's vm::Memory::new, which registers a Class::Memory
// record with limit_0 set to the backing array's length before any other
// device exists.

package main

import "context"

// MemoryDevice has no mapped registers of its own; it only publishes its
// record so firmware can discover how much RAM is installed.
type MemoryDevice struct {
	record DeviceRecord
}

// NewMemoryDevice describes size bytes of RAM as device id.
func NewMemoryDevice(id byte, size uint32) *MemoryDevice {
	return &MemoryDevice{record: DeviceRecord{
		ID:     id,
		Class:  ClassMemory,
		Limit0: size,
	}}
}

func (d *MemoryDevice) Record() DeviceRecord { return d.record }

// Run returns immediately on cancellation; the memory device has no
// background work of its own.
func (d *MemoryDevice) Run(ctx context.Context) {
	<-ctx.Done()
}
