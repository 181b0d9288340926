// device_keyboard.go - the class-0x11 keyboard: a status/ack byte and a
// 16-bit scan code latch mapped into Memory, plus an interrupt line raised
// on each new key. Grounded on the original Rust source's keyboard.rs
// (status 0x01 idle / 0x02 pending, ack-to-reopen), wired to a host input
// adapter the way the teacher's terminal_io.go MMIO device is fed by
// terminal_host.go's raw-stdin reader.

package main

import (
	"context"
	"encoding/binary"
	"sync"
	"time"
)

const (
	keyboardStatusIdle    = 0x01
	keyboardStatusPending = 0x02
)

// Keyboard holds a 4-byte register window: status, a reserved byte, and the
// little-endian scan code.
type Keyboard struct {
	record   DeviceRecord
	raiser   InterruptRaiser
	scanCode chan uint16

	mu     sync.Mutex
	status byte
	code   uint16
}

// NewKeyboard creates a keyboard device at base, raising interruptLine when
// a scan code is latched. raiser is typically a *GatedInterruptRaiser
// wrapping the CPU and the interrupt controller.
func NewKeyboard(id byte, base uint32, interruptLine byte, raiser InterruptRaiser, mem *Memory) *Keyboard {
	k := &Keyboard{
		record: DeviceRecord{
			ID:            id,
			Class:         ClassKeyboard,
			InterruptLine: interruptLine,
			Base0:         base,
			Limit0:        base + 3,
		},
		raiser:   raiser,
		scanCode: make(chan uint16, 64),
		status:   keyboardStatusIdle,
	}
	mem.MapIO(&IORegion{
		Base:  base,
		Limit: base + 3,
		Read:  k.handleRead,
		Write: k.handleWrite,
	})
	return k
}

func (k *Keyboard) Record() DeviceRecord { return k.record }

// PushScanCode queues a scan code for delivery; called by a host input
// adapter (e.g. TerminalHost) from outside the device's own goroutine.
func (k *Keyboard) PushScanCode(code uint16) {
	select {
	case k.scanCode <- code:
	default:
		// Drop if the queue is full; firmware that never acknowledges
		// forfeits further key events, matching the single-slot latch the
		// original source implements (at most one pending code).
	}
}

// Run latches queued scan codes one at a time, waiting for firmware to
// acknowledge the previous one (status returns to idle) before raising the
// next interrupt.
func (k *Keyboard) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case code := <-k.scanCode:
			k.mu.Lock()
			for k.status == keyboardStatusPending {
				k.mu.Unlock()
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Millisecond):
				}
				k.mu.Lock()
			}
			k.code = code
			k.status = keyboardStatusPending
			k.mu.Unlock()
			k.raiser.Interrupt(k.record.InterruptLine, 0)
		}
	}
}

func (k *Keyboard) handleRead(addr uint32) (byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var buf [4]byte
	buf[0] = k.status
	binary.LittleEndian.PutUint16(buf[2:4], k.code)
	return buf[addr-k.record.Base0], true
}

func (k *Keyboard) handleWrite(addr uint32, value byte) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if addr == k.record.Base0 && value == keyboardStatusIdle {
		k.status = keyboardStatusIdle
	}
	return true
}
