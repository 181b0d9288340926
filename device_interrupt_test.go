package main

import "testing"

func TestInterruptControllerDefaultsToDisabled(t *testing.T) {
	mem := NewMemory(0x20000)
	ctl := NewInterruptController(1, 0x5000, mem)
	if ctl.Allows(0) {
		t.Fatalf("a freshly constructed controller should not allow any line before being enabled")
	}
}

func TestInterruptControllerEnableAndMaskGatesLines(t *testing.T) {
	mem := NewMemory(0x20000)
	base := uint32(0x5000)
	ctl := NewInterruptController(1, base, mem)

	if !mem.WriteU8WithFault(base, 1) { // enable
		t.Fatalf("failed to write enable byte")
	}
	if ctl.Allows(3) {
		t.Fatalf("enabling without clearing the mask should still block every line")
	}

	if !mem.WriteU8WithFault(base+1, 0x00) { // clear mask bits 0-7
		t.Fatalf("failed to write low mask byte")
	}
	if !ctl.Allows(3) {
		t.Fatalf("line 3 should be allowed once enabled and its mask bit cleared")
	}
	if !ctl.Allows(7) {
		t.Fatalf("line 7 should be allowed once enabled and its mask bit cleared")
	}
	if ctl.Allows(9) {
		t.Fatalf("line 9 should remain masked; only the low mask byte was cleared")
	}
}

func TestInterruptControllerRegisterReadReflectsState(t *testing.T) {
	mem := NewMemory(0x20000)
	base := uint32(0x5000)
	NewInterruptController(1, base, mem)
	mem.WriteU8WithFault(base, 1)
	mem.WriteU8WithFault(base+1, 0xAA)
	mem.WriteU8WithFault(base+2, 0x55)

	enabled, _ := mem.ReadU8WithFault(base)
	lo, _ := mem.ReadU8WithFault(base + 1)
	hi, _ := mem.ReadU8WithFault(base + 2)
	if enabled != 1 || lo != 0xAA || hi != 0x55 {
		t.Fatalf("register readback = (%d, 0x%X, 0x%X), expected (1, 0xAA, 0x55)", enabled, lo, hi)
	}
}

func TestGatedInterruptRaiserDropsMaskedLine(t *testing.T) {
	mem := NewMemory(0x20000)
	base := uint32(0x5000)
	ctl := NewInterruptController(1, base, mem)
	cpu := NewCPU(mem)

	program := concatBytes(encMovi(15, 0x8000), []byte{0x43}) // SP, STI
	if err := mem.LoadBoot(program); err != nil {
		t.Fatalf("LoadBoot failed: %v", err)
	}
	stepN(t, cpu, 2)

	ipBefore := cpu.IP()
	raiser := &GatedInterruptRaiser{CPU: cpu, Controller: ctl}
	if f := raiser.Interrupt(4, 0); f != nil {
		t.Fatalf("Interrupt() through a fully masked controller should not fault, got %v", f)
	}
	if cpu.IP() != ipBefore {
		t.Fatalf("IP() changed after an interrupt the controller should have masked")
	}
}

func TestGatedInterruptRaiserDeliversUnmaskedLine(t *testing.T) {
	mem := NewMemory(0x20000)
	base := uint32(0x5000)
	ctl := NewInterruptController(1, base, mem)
	cpu := NewCPU(mem)

	program := concatBytes(encMovi(15, 0x8000), []byte{0x43}) // SP, STI
	if err := mem.LoadBoot(program); err != nil {
		t.Fatalf("LoadBoot failed: %v", err)
	}
	stepN(t, cpu, 2)

	mem.WriteU8WithFault(base, 1)
	mem.WriteU8WithFault(base+1, 0x00)
	mem.WriteU8WithFault(base+2, 0x00)

	handler := uint32(0x900)
	mem.WriteU32WithFault(IVTBase+4*4, handler)

	raiser := &GatedInterruptRaiser{CPU: cpu, Controller: ctl}
	if f := raiser.Interrupt(4, 0); f != nil {
		t.Fatalf("Interrupt() through an unmasked controller failed: %v", f)
	}
	if cpu.IP() != handler {
		t.Fatalf("IP() = 0x%X after delivery, expected handler 0x%X", cpu.IP(), handler)
	}
}
