// device_monitor.go - the class-0x20 monitor: a one-byte ready status at
// base_0 and a raw RGBA framebuffer at base_1. Grounded on the original
// Rust source's monitor.rs (a render thread fed the framebuffer's host
// address on every write), adapted to Go's no-raw-pointers-across-threads
// convention the teacher's video_chip.go uses instead: the device
// goroutine periodically snapshots the framebuffer region out of Memory
// and hands the copy to a VideoOutput backend.

package main

import (
	"context"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"
)

const (
	monitorStatusReady = 0x01
	monitorRefreshRate = 60
)

// Monitor owns the framebuffer window and refreshes a VideoOutput backend
// at a fixed rate from whatever the CPU or firmware has written into it.
type Monitor struct {
	record DeviceRecord
	base0  uint32
	base1  uint32
	width  int
	height int

	mem    *Memory
	output VideoOutput
}

// NewMonitor creates a monitor device at base with the given pixel
// dimensions, backed by output. The framebuffer occupies
// base1..base1+width*height*4 in Memory's flat backing array.
func NewMonitor(id byte, base uint32, width, height int, output VideoOutput, mem *Memory) *Monitor {
	fbSize := uint32(width * height * 4)
	m := &Monitor{
		record: DeviceRecord{
			ID:     id,
			Class:  ClassMonitor,
			Base0:  base,
			Limit0: base,
			Base1:  base + 1,
			Limit1: base + 1 + fbSize - 1,
		},
		base0:  base,
		base1:  base + 1,
		width:  width,
		height: height,
		mem:    mem,
		output: output,
	}
	mem.MapIO(&IORegion{Base: m.base0, Limit: m.base0, Read: m.handleStatusRead, Write: m.handleStatusWrite})
	m.paintTestPattern()
	return m
}

func (m *Monitor) Record() DeviceRecord { return m.record }

// Run refreshes the backend from the framebuffer until ctx is canceled.
func (m *Monitor) Run(ctx context.Context) {
	if err := m.output.Start(); err != nil {
		return
	}
	defer m.output.Stop()
	_ = m.output.SetDisplayConfig(DisplayConfig{Width: m.width, Height: m.height})

	ticker := time.NewTicker(time.Second / monitorRefreshRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh()
		}
	}
}

func (m *Monitor) refresh() {
	frame := make([]byte, m.width*m.height*4)
	if !m.mem.ReadBytesWithFault(m.base1, frame) {
		return
	}
	_ = m.output.UpdateFrame(frame)
}

func (m *Monitor) handleStatusRead(addr uint32) (byte, bool) {
	return monitorStatusReady, true
}

func (m *Monitor) handleStatusWrite(addr uint32, value byte) bool {
	// The status byte is read-only from firmware's perspective; the
	// monitor is always ready once constructed.
	return true
}

// paintTestPattern writes a small built-in checkerboard into the
// framebuffer at power-on, bilinear-scaled up to the live resolution, the
// same "splash before firmware draws anything" convention the teacher's
// video_chip.go uses for its own splash image.
func (m *Monitor) paintTestPattern() {
	const srcSize = 8
	src := image.NewRGBA(image.Rect(0, 0, srcSize, srcSize))
	for y := 0; y < srcSize; y++ {
		for x := 0; x < srcSize; x++ {
			c := byte(0x20)
			if (x+y)%2 == 0 {
				c = 0x60
			}
			src.Set(x, y, color.RGBA{c, c, c, 0xFF})
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	m.mem.WriteBytesWithFault(m.base1, dst.Pix)
}

