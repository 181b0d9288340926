// device.go - the device record, class codes, and the device-enumeration
// port (§6). Grounded on the teacher's bus-mapped-I/O devices (video_chip.go,
// file_io.go): a device owns a small shadow-register struct and a
// HandleRead/HandleWrite pair mapped into the shared bus, except here the
// "bus" is our Memory and the registers are bytes rather than 32-bit words.

package main

import (
	"context"
	"encoding/binary"
)

// Class identifies the kind of device a DeviceRecord describes.
type Class byte

const (
	ClassUnspecified         Class = 0x0
	ClassMemory              Class = 0x1
	ClassDiskController      Class = 0x2
	ClassInterruptController Class = 0x3
	ClassTimer               Class = 0x4
	ClassPowerManager        Class = 0x5
	ClassMouse               Class = 0x10
	ClassKeyboard            Class = 0x11
	ClassMonitor             Class = 0x20
)

// DeviceRecord is the 19-byte, little-endian, packed structure firmware
// reads through the enumeration port.
type DeviceRecord struct {
	ID            byte
	Class         Class
	InterruptLine byte
	Base0, Limit0 uint32
	Base1, Limit1 uint32
}

// Encode packs the record into its wire form.
func (r DeviceRecord) Encode() [DevicePortRecordSize]byte {
	var buf [DevicePortRecordSize]byte
	buf[0] = r.ID
	buf[1] = byte(r.Class)
	buf[2] = r.InterruptLine
	binary.LittleEndian.PutUint32(buf[3:7], r.Base0)
	binary.LittleEndian.PutUint32(buf[7:11], r.Limit0)
	binary.LittleEndian.PutUint32(buf[11:15], r.Base1)
	binary.LittleEndian.PutUint32(buf[15:19], r.Limit1)
	return buf
}

// InterruptRaiser is the narrow handle devices hold instead of a full *CPU,
// breaking the device<->CPU reference cycle the specification's design
// notes call out: a device only ever needs to raise an interrupt, never to
// read registers or step the CPU.
type InterruptRaiser interface {
	Interrupt(line uint8, errorCode uint32) *Fault
}

// Device is anything the enumeration port can describe and the device host
// can run as a goroutine.
type Device interface {
	Record() DeviceRecord
	// Run executes the device's loop until ctx is canceled. Devices with no
	// background work (the memory device, the enumeration port itself) may
	// return immediately after ctx.Done() fires.
	Run(ctx context.Context)
}
