package main

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recordingRaiser captures every Interrupt call for assertions, standing in
// for a *GatedInterruptRaiser so device tests don't need a live CPU.
type recordingRaiser struct {
	mu    sync.Mutex
	calls []uint8
	fired chan struct{}
}

func newRecordingRaiser() *recordingRaiser {
	return &recordingRaiser{fired: make(chan struct{}, 16)}
}

func (r *recordingRaiser) Interrupt(line uint8, errorCode uint32) *Fault {
	r.mu.Lock()
	r.calls = append(r.calls, line)
	r.mu.Unlock()
	r.fired <- struct{}{}
	return nil
}

func waitFired(t *testing.T, r *recordingRaiser) {
	t.Helper()
	select {
	case <-r.fired:
	case <-time.After(time.Second):
		t.Fatalf("expected an interrupt to fire within a second")
	}
}

func TestKeyboardLatchesScanCodeAndRaisesInterrupt(t *testing.T) {
	mem := NewMemory(0x20000)
	raiser := newRecordingRaiser()
	base := uint32(0x6000)
	kbd := NewKeyboard(2, base, 1, raiser, mem)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go kbd.Run(ctx)

	kbd.PushScanCode(0x41)
	waitFired(t, raiser)

	status, _ := mem.ReadU8WithFault(base)
	if status != keyboardStatusPending {
		t.Fatalf("status = 0x%X, expected keyboardStatusPending (0x%X)", status, keyboardStatusPending)
	}
	lo, _ := mem.ReadU8WithFault(base + 2)
	hi, _ := mem.ReadU8WithFault(base + 3)
	code := uint16(lo) | uint16(hi)<<8
	if code != 0x41 {
		t.Fatalf("latched code = 0x%X, expected 0x41", code)
	}
	if len(raiser.calls) != 1 || raiser.calls[0] != 1 {
		t.Fatalf("raiser.calls = %v, expected a single call on line 1", raiser.calls)
	}
}

func TestKeyboardWaitsForAckBeforeNextCode(t *testing.T) {
	mem := NewMemory(0x20000)
	raiser := newRecordingRaiser()
	base := uint32(0x6000)
	kbd := NewKeyboard(2, base, 1, raiser, mem)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go kbd.Run(ctx)

	kbd.PushScanCode(0x41)
	waitFired(t, raiser)
	kbd.PushScanCode(0x42)

	select {
	case <-raiser.fired:
		t.Fatalf("a second interrupt fired before firmware acknowledged the first scan code")
	case <-time.After(50 * time.Millisecond):
	}

	if !mem.WriteU8WithFault(base, keyboardStatusIdle) {
		t.Fatalf("failed to write the acknowledgement byte")
	}
	waitFired(t, raiser)

	lo, _ := mem.ReadU8WithFault(base + 2)
	hi, _ := mem.ReadU8WithFault(base + 3)
	code := uint16(lo) | uint16(hi)<<8
	if code != 0x42 {
		t.Fatalf("latched code after ack = 0x%X, expected 0x42", code)
	}
}
