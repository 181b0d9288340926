// cpu.go - the fetch-decode-execute core: sixteen general-purpose
// registers, an instruction pointer, packed flags, and Step, which performs
// exactly one instruction atomically against staged local copies of that
// state, committing only once every memory access for the instruction has
// succeeded.
//
// The register file is a plain [16]uint32 rather than the teacher's named
// struct fields (A, X, Y, Z, B..W) because this ISA addresses registers
// purely by a 4-bit index baked into instruction encodings; an indexed array
// is the natural fit, the same way cpu_ie32.go's getRegister switch maps a
// register index onto a field, just inverted into direct indexing.

package main

import (
	"fmt"
	"sync"
)

// FaultKind classifies why Step or Interrupt stopped making progress.
type FaultKind int

const (
	FaultInvalidOpcode FaultKind = iota
	FaultProtection
	FaultArithmetic
)

func (k FaultKind) String() string {
	switch k {
	case FaultInvalidOpcode:
		return "InvalidOpcode"
	case FaultProtection:
		return "ProtectionFault"
	case FaultArithmetic:
		return "ArithmeticFault"
	default:
		return "UnknownFault"
	}
}

// Fault is the error type Step and Interrupt return. It carries enough
// context (the faulting address and, where relevant, the opcode byte) for a
// host to print a useful diagnostic without re-deriving it.
type Fault struct {
	Kind   FaultKind
	IP     uint32
	Addr   uint32
	Opcode byte
	Detail string
}

func (f *Fault) Error() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s at ip=0x%08X: %s", f.Kind, f.IP, f.Detail)
	}
	return fmt.Sprintf("%s at ip=0x%08X addr=0x%08X opcode=0x%02X", f.Kind, f.IP, f.Addr, f.Opcode)
}

// Flag bit positions within CPU.flags.
const (
	flagUserMode = 1 << 0
	flagInterrupt = 1 << 1
	flagCompare   = 1 << 2
	flagPaging    = 1 << 3
)

// CPU holds the sixteen registers, instruction pointer and flags defined by
// the ISA, plus a reference to the Memory it fetches from and writes to.
//
// State is guarded by a mutex because device goroutines call Interrupt
// concurrently with the CPU goroutine's Step loop; the specification's
// "interrupts race, at most one wins" model describes the *semantic*
// outcome of that contention, not a license for data races at the Go
// memory-model level, so every access to registers/ip/flags is serialized.
type CPU struct {
	mu        sync.Mutex
	mem       *Memory
	registers [16]uint32
	ip        uint32
	flags     uint8
}

// NewCPU creates a CPU bound to mem, with ip at the firmware entry point and
// all registers zeroed.
func NewCPU(mem *Memory) *CPU {
	return &CPU{
		mem: mem,
		ip:  BootEntryPoint,
	}
}

// IP returns the current instruction pointer.
func (c *CPU) IP() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ip
}

// Register returns the current value of register n (0..15).
func (c *CPU) Register(n int) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registers[n]
}

// Flags returns the current packed flags byte.
func (c *CPU) Flags() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags
}

// InterruptsEnabled reports flags.interrupt without requiring the caller to
// decode the packed byte.
func (c *CPU) InterruptsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags&flagInterrupt != 0
}

func regPair(mode byte) (hi, lo int) {
	return int(mode >> 4), int(mode & 0xF)
}

// stepState is the staged copy of mutable CPU state an instruction computes
// against. Nothing in c is touched until the instruction fully succeeds.
type stepState struct {
	regs  [16]uint32
	ip    uint32
	flags uint8
}

// Step decodes and executes exactly one instruction. On success it returns
// nil and registers[0] is guaranteed to read 0 afterward. On a Fault, no
// register or memory mutation from the attempted instruction is observable.
func (c *CPU) Step() *Fault {
	c.mu.Lock()
	defer c.mu.Unlock()

	startIP := c.ip
	opcode, ok := c.mem.ReadU8WithFault(startIP)
	if !ok {
		return &Fault{Kind: FaultProtection, IP: startIP, Addr: startIP}
	}

	st := stepState{regs: c.registers, ip: startIP, flags: c.flags}

	fetchMode := func(addr uint32) (byte, *Fault) {
		b, ok := c.mem.ReadU8WithFault(addr)
		if !ok {
			return 0, &Fault{Kind: FaultInvalidOpcode, IP: startIP, Addr: addr, Opcode: opcode, Detail: "mode byte out of range"}
		}
		return b, nil
	}
	fetchImm := func(addr uint32) (uint32, *Fault) {
		v, ok := c.mem.ReadU32WithFault(addr)
		if !ok {
			return 0, &Fault{Kind: FaultInvalidOpcode, IP: startIP, Addr: addr, Opcode: opcode, Detail: "immediate out of range"}
		}
		return v, nil
	}
	invalid := func(detail string) *Fault {
		return &Fault{Kind: FaultInvalidOpcode, IP: startIP, Opcode: opcode, Detail: detail}
	}
	protect := func(addr uint32) *Fault {
		return &Fault{Kind: FaultProtection, IP: startIP, Addr: addr, Opcode: opcode}
	}

	switch opcode {
	case 0x00: // NOP
		st.ip = startIP + 1

	case 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F:
		mode, f := fetchMode(startIP + 1)
		if f != nil {
			return f
		}
		a, b := regPair(mode)
		f = execRR(&st, c.mem, opcode, a, b, startIP)
		if f != nil {
			return f
		}
		st.ip = startIP + 2

	case 0x10: // RI arithmetic group
		mode, f := fetchMode(startIP + 1)
		if f != nil {
			return f
		}
		sub, a := regPair(mode)
		imm, f := fetchImm(startIP + 2)
		if f != nil {
			return f
		}
		f = execRIArith(&st, c.mem, opcode, sub, a, imm, startIP)
		if f != nil {
			return f
		}
		st.ip = startIP + 6

	case 0x20: // register branch/stack group
		mode, f := fetchMode(startIP + 1)
		if f != nil {
			return f
		}
		sub, a := regPair(mode)
		f = execRBranch(&st, c.mem, sub, a, startIP, opcode)
		if f != nil {
			return f
		}

	case 0x21: // PUSHI imm
		imm, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		addr := st.regs[15] - 4
		if !c.mem.WriteU32WithFault(addr, imm) {
			return protect(addr)
		}
		st.regs[15] = addr
		st.ip = startIP + 5

	case 0x23: // JI imm
		imm, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		st.ip = imm

	case 0x24: // JTI imm
		imm, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		if st.flags&flagCompare != 0 {
			st.ip = imm
		} else {
			st.ip = startIP + 5
		}

	case 0x25: // JFI imm
		imm, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		if st.flags&flagCompare == 0 {
			st.ip = imm
		} else {
			st.ip = startIP + 5
		}

	case 0x26: // BI imm
		imm, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		st.ip = startIP + imm

	case 0x27: // BTI imm
		imm, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		if st.flags&flagCompare != 0 {
			st.ip = startIP + imm
		} else {
			st.ip = startIP + 5
		}

	case 0x28: // BFI imm
		imm, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		if st.flags&flagCompare == 0 {
			st.ip = startIP + imm
		} else {
			st.ip = startIP + 5
		}

	case 0x29: // CALLI imm
		imm, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		addr := st.regs[15] - 4
		if !c.mem.WriteU32WithFault(addr, startIP+5) {
			return protect(addr)
		}
		st.regs[15] = addr
		st.ip = imm

	case 0x2A, 0x2B, 0x2C, 0x2D, 0x2E, 0x2F:
		mode, f := fetchMode(startIP + 1)
		if f != nil {
			return f
		}
		a, b := regPair(mode)
		execCompareRR(&st, opcode, a, b)
		st.ip = startIP + 2

	case 0x30: // RI compare/move/call group
		mode, f := fetchMode(startIP + 1)
		if f != nil {
			return f
		}
		sub, a := regPair(mode)
		imm, f := fetchImm(startIP + 2)
		if f != nil {
			return f
		}
		f = execRICompareMoveCall(&st, c.mem, opcode, sub, a, imm, startIP)
		if f != nil {
			return f
		}
		if sub != 0x6 { // BAL sets ip itself
			st.ip = startIP + 6
		}

	case 0x31: // MOV a b
		mode, f := fetchMode(startIP + 1)
		if f != nil {
			return f
		}
		a, b := regPair(mode)
		st.regs[b] = st.regs[a]
		st.ip = startIP + 2

	case 0x32, 0x33, 0x34: // STBII/STWII/STDII imm1 imm2
		imm1, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		imm2, f := fetchImm(startIP + 5)
		if f != nil {
			return f
		}
		if !writeTruncated(c.mem, opcode-0x32, imm2, imm1) {
			return protect(imm2)
		}
		st.ip = startIP + 9

	case 0x35: // RET
		addr := st.regs[15]
		v, ok := c.mem.ReadU32WithFault(addr)
		if !ok {
			return protect(addr)
		}
		st.regs[15] = addr + 4
		st.ip = v

	case 0x36: // BALI imm
		imm, f := fetchImm(startIP + 1)
		if f != nil {
			return f
		}
		addr := st.regs[15] - 4
		if !c.mem.WriteU32WithFault(addr, startIP+5) {
			return protect(addr)
		}
		st.regs[15] = addr
		st.ip = startIP + imm

	case 0x40: // SYSCALL
		retIP := startIP + 1
		newSP, newIP, newFlags, delivered, f := computeInterruptFrame(c.mem, retIP, st.regs[15], st.flags, SyscallLine, 0)
		if f != nil {
			return f
		}
		if delivered {
			st.regs[15] = newSP
			st.ip = newIP
			st.flags = newFlags
		} else {
			st.ip = retIP
		}

	case 0x41: // IRET
		sp := st.regs[15]
		ipVal, ok := c.mem.ReadU32WithFault(sp)
		if !ok {
			return protect(sp)
		}
		spSaved, ok := c.mem.ReadU32WithFault(sp + 4)
		if !ok {
			return protect(sp + 4)
		}
		flagsWord, ok := c.mem.ReadU32WithFault(sp + 8)
		if !ok {
			return protect(sp + 8)
		}
		st.ip = ipVal
		st.regs[15] = spSaved
		// Bits 4-7 are reserved and must always read as zero in the core.
		st.flags = uint8(flagsWord) & 0x0F

	case 0x42: // CLI
		st.flags &^= flagInterrupt
		st.ip = startIP + 1

	case 0x43: // STI
		st.flags |= flagInterrupt
		st.ip = startIP + 1

	default:
		return invalid("unrecognized primary opcode")
	}

	c.registers = st.regs
	c.ip = st.ip
	c.flags = st.flags
	c.registers[0] = 0
	return nil
}

// Interrupt delivers interrupt line with an optional error code, following
// the normalized frame layout of §4.2: if interrupts are disabled, the
// delivery is silently dropped.
func (c *CPU) Interrupt(line uint8, errorCode uint32) *Fault {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interruptLocked(line, errorCode)
}

func (c *CPU) interruptLocked(line uint8, errorCode uint32) *Fault {
	newSP, newIP, newFlags, delivered, f := computeInterruptFrame(c.mem, c.ip, c.registers[15], c.flags, line, errorCode)
	if f != nil {
		return f
	}
	if !delivered {
		return nil
	}
	c.registers[15] = newSP
	c.ip = newIP
	c.flags = newFlags
	c.registers[0] = 0
	return nil
}

// computeInterruptFrame stages the push-three-words-and-vector frame for
// interrupt delivery without mutating any CPU state, so callers (SYSCALL's
// in-Step staging and the external Interrupt entry point alike) can commit
// only once every write and the vector fetch have succeeded. delivered is
// false when flags.interrupt is clear, in which case the caller must leave
// ip/sp/flags untouched, matching the "silently dropped" contract of §4.2.
func computeInterruptFrame(mem *Memory, ip, sp uint32, flags uint8, line uint8, errorCode uint32) (newSP, newIP uint32, newFlags uint8, delivered bool, fault *Fault) {
	if flags&flagInterrupt == 0 {
		return 0, 0, 0, false, nil
	}
	frameSP := sp - 16
	if !mem.WriteU32WithFault(frameSP, ip) {
		return 0, 0, 0, false, &Fault{Kind: FaultProtection, IP: ip, Addr: frameSP}
	}
	if !mem.WriteU32WithFault(frameSP+4, sp) {
		return 0, 0, 0, false, &Fault{Kind: FaultProtection, IP: ip, Addr: frameSP + 4}
	}
	if !mem.WriteU32WithFault(frameSP+8, uint32(flags)) {
		return 0, 0, 0, false, &Fault{Kind: FaultProtection, IP: ip, Addr: frameSP + 8}
	}
	if !mem.WriteU32WithFault(frameSP+12, errorCode) {
		return 0, 0, 0, false, &Fault{Kind: FaultProtection, IP: ip, Addr: frameSP + 12}
	}
	vector, ok := mem.ReadU32WithFault(IVTBase + uint32(line)*4)
	if !ok {
		return 0, 0, 0, false, &Fault{Kind: FaultProtection, IP: ip, Addr: IVTBase + uint32(line)*4}
	}
	newFlags = flags &^ (flagUserMode | flagInterrupt)
	return frameSP, vector, newFlags, true, nil
}
