// device_interrupt.go - the class-0x3 interrupt controller: a software
// front door onto the CPU's own interrupt gate. Grounded on the original
// Rust source's interrupt_controller.rs (InterruptController::new/
// write_memory), adapted from its single-threaded bytes.write_u8 register
// file to a MapIO'd IORegion guarded by a mutex, matching this
// implementation's "one Memory lock, many device windows" convention.

package main

import (
	"context"
	"encoding/binary"
	"sync"
)

// InterruptController exposes an enable byte and a 16-bit per-line mask at
// base_0; a set mask bit suppresses delivery of that line regardless of the
// CPU's own flags.interrupt.
type InterruptController struct {
	record DeviceRecord

	mu      sync.Mutex
	enabled bool
	mask    uint16
}

// NewInterruptController creates the controller at physical address base,
// covering 3 register bytes (enable + 16-bit mask).
func NewInterruptController(id byte, base uint32, mem *Memory) *InterruptController {
	c := &InterruptController{
		record: DeviceRecord{
			ID:     id,
			Class:  ClassInterruptController,
			Base0:  base,
			Limit0: base + 2,
		},
		mask: 0xFFFF,
	}
	mem.MapIO(&IORegion{
		Base:  base,
		Limit: base + 2,
		Read:  c.handleRead,
		Write: c.handleWrite,
	})
	return c
}

func (c *InterruptController) Record() DeviceRecord { return c.record }

// Run has no background work; the controller only reacts to register
// writes and is consulted by Allows.
func (c *InterruptController) Run(ctx context.Context) {
	<-ctx.Done()
}

// Allows reports whether line is permitted to interrupt, i.e. hardware
// interrupts are enabled and the line's mask bit is clear.
func (c *InterruptController) Allows(line uint8) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && c.mask&(1<<line) == 0
}

func (c *InterruptController) handleRead(addr uint32) (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf [3]byte
	if c.enabled {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint16(buf[1:], c.mask)
	return buf[addr-c.record.Base0], true
}

func (c *InterruptController) handleWrite(addr uint32, value byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch addr - c.record.Base0 {
	case 0:
		c.enabled = value != 0
	case 1:
		c.mask = c.mask&0xFF00 | uint16(value)
	case 2:
		c.mask = c.mask&0x00FF | uint16(value)<<8
	}
	return true
}

// GatedInterruptRaiser wraps a CPU with an InterruptController's mask,
// giving hardware devices an InterruptRaiser that enforces §6's masking
// contract without needing their own reference to the controller.
type GatedInterruptRaiser struct {
	CPU        *CPU
	Controller *InterruptController
}

// Interrupt drops the delivery before it reaches the CPU if the controller
// masks line, and otherwise forwards to CPU.Interrupt.
func (g *GatedInterruptRaiser) Interrupt(line uint8, errorCode uint32) *Fault {
	if g.Controller != nil && !g.Controller.Allows(line) {
		return nil
	}
	return g.CPU.Interrupt(line, errorCode)
}
