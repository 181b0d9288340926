// device_disk.go - the class-0x2 disk controller: a command/status register
// window at base_0 and a 512-byte sector buffer at base_1, backing up to 8
// host files. Grounded on the original Rust source's disk_controller.rs
// (command codes 0x01/0x02/0x04/0x08, selected-disk bitmap, sector-count
// readback), generalized from an in-memory Vec<u8> per disk to an *os.File
// the way the teacher's file_io.go reads/writes host files under a base
// directory.

package main

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"sync"
)

const sectorSize = 512

const (
	diskCmdRead   = 0x01
	diskCmdWrite  = 0x02
	diskCmdSelect = 0x04
	diskCmdCount  = 0x08
)

const (
	diskStatusOK    = 0x01
	diskStatusError = 0x04
)

const (
	diskErrNoSuchDisk     = 0x01
	diskErrSectorOOR      = 0x02
)

// DiskController manages up to 8 disk slots, each optionally backed by a
// host file opened read/write.
type DiskController struct {
	record DeviceRecord
	base0  uint32 // command/status window
	base1  uint32 // 512-byte sector buffer

	mem *Memory

	mu       sync.Mutex
	disks    [8]*os.File
	selected int
	input    [4]byte // pending sector number / select index

	status   byte
	errCode  byte
	present  byte // bitmap of attached disks
}

// NewDiskController creates the controller with its command window at base
// and a 512-byte sector buffer immediately following it, matching the
// original source's address+512 offset convention.
func NewDiskController(id byte, base uint32, mem *Memory) *DiskController {
	c := &DiskController{
		record: DeviceRecord{
			ID:     id,
			Class:  ClassDiskController,
			Base0:  base,
			Limit0: base + 6,
			Base1:  base + 512,
			Limit1: base + 512 + sectorSize - 1,
		},
		base0:  base,
		base1:  base + 512,
		mem:    mem,
		status: diskStatusOK,
	}
	// Only base0 (the command/status window) needs interception; base1's
	// 512-byte sector buffer is ordinary backing RAM the CPU and the
	// transfer below both address directly, so it is never mapped through
	// MapIO.
	mem.MapIO(&IORegion{Base: c.base0, Limit: c.base0 + 6, Read: c.handleCommandRead, Write: c.handleCommandWrite})
	return c
}

func (c *DiskController) Record() DeviceRecord { return c.record }

// Run has no background work; all activity happens synchronously inside
// register writes, matching the original source's disk controller.
func (c *DiskController) Run(ctx context.Context) {
	<-ctx.Done()
}

// AttachDisk opens path read/write and installs it as disk slot.
func (c *DiskController) AttachDisk(slot int, path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disks[slot] != nil {
		c.disks[slot].Close()
	}
	c.disks[slot] = f
	c.present |= 1 << uint(slot)
	return nil
}

// Close releases all open disk images.
func (c *DiskController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, f := range c.disks {
		if f != nil {
			f.Close()
			c.disks[i] = nil
		}
	}
}

func (c *DiskController) handleCommandRead(addr uint32) (byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch addr - c.base0 {
	case 0:
		return c.status, true
	case 1:
		return c.present, true
	case 2:
		return c.errCode, true
	case 3, 4, 5, 6:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], c.sectorCountLocked())
		return buf[addr-c.base0-3], true
	default:
		return 0, true
	}
}

func (c *DiskController) handleCommandWrite(addr uint32, value byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch addr - c.base0 {
	case 0:
		c.dispatchLocked(value)
	case 1, 2, 3, 4:
		c.input[addr-c.base0-1] = value
	}
	return true
}

func (c *DiskController) dispatchLocked(cmd byte) {
	switch cmd {
	case diskCmdRead:
		c.transferLocked(true)
	case diskCmdWrite:
		c.transferLocked(false)
	case diskCmdSelect:
		slot := int(c.input[0])
		if slot < 0 || slot >= len(c.disks) || c.disks[slot] == nil {
			c.status = diskStatusError
			c.errCode = diskErrNoSuchDisk
			return
		}
		c.selected = slot
		c.status = diskStatusOK
	case diskCmdCount:
		// handled via handleCommandRead's sectorCountLocked; nothing to do
		// here beyond acknowledging the command.
		c.status = diskStatusOK
	}
}

func (c *DiskController) transferLocked(read bool) {
	disk := c.disks[c.selected]
	if disk == nil {
		c.status = diskStatusError
		c.errCode = diskErrNoSuchDisk
		return
	}
	sector := binary.LittleEndian.Uint32(c.input[:4])
	offset := int64(sector) * sectorSize

	info, err := disk.Stat()
	if err != nil || offset+sectorSize > info.Size() {
		c.status = diskStatusError
		c.errCode = diskErrSectorOOR
		return
	}

	buf := make([]byte, sectorSize)
	if read {
		if _, err := disk.ReadAt(buf, offset); err != nil && err != io.EOF {
			c.status = diskStatusError
			c.errCode = diskErrSectorOOR
			return
		}
		for i := 0; i < sectorSize; i++ {
			c.mem.writeByteLocked(c.base1 + uint32(i), buf[i])
		}
	} else {
		for i := 0; i < sectorSize; i++ {
			b, _ := c.mem.readByteLocked(c.base1 + uint32(i))
			buf[i] = b
		}
		if _, err := disk.WriteAt(buf, offset); err != nil {
			c.status = diskStatusError
			c.errCode = diskErrSectorOOR
			return
		}
	}
	c.status = diskStatusOK
}

func (c *DiskController) sectorCountLocked() uint32 {
	disk := c.disks[c.selected]
	if disk == nil {
		return 0
	}
	info, err := disk.Stat()
	if err != nil {
		return 0
	}
	return uint32(info.Size() / sectorSize)
}
