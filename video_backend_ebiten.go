//go:build !headless

// video_backend_ebiten.go - windows the monitor device's shared framebuffer
// with ebiten. Grounded on the teacher's video_backend_ebiten.go
// (EbitenOutput): a double-buffered RGBA slice guarded by a mutex, fed by
// UpdateFrame and drawn back out on ebiten's own Draw callback, trimmed of
// the teacher's input/clipboard/status-bar extras this ISA has no use for.

package main

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

func init() {
	compiledFeatures = append(compiledFeatures, "video: ebiten")
}

// EbitenOutput windows a live RGBA framebuffer the monitor device refreshes.
type EbitenOutput struct {
	mu          sync.Mutex
	width       int
	height      int
	frameBuffer []byte
	image       *ebiten.Image
	running     bool
}

func newPlatformVideoOutput() (VideoOutput, error) {
	return &EbitenOutput{width: 640, height: 360, frameBuffer: make([]byte, 640*360*4)}, nil
}

func (eo *EbitenOutput) Start() error {
	eo.mu.Lock()
	if eo.running {
		eo.mu.Unlock()
		return nil
	}
	eo.running = true
	eo.image = ebiten.NewImage(eo.width, eo.height)
	eo.mu.Unlock()

	ebiten.SetWindowSize(eo.width*2, eo.height*2)
	ebiten.SetWindowTitle("vm")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)

	go func() {
		if err := ebiten.RunGame(eo); err != nil {
			fmt.Printf("video: ebiten run loop exited: %v\n", err)
		}
	}()
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.mu.Lock()
	eo.running = false
	eo.mu.Unlock()
	return nil
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.mu.Lock()
	defer eo.mu.Unlock()
	eo.width, eo.height = config.Width, config.Height
	eo.frameBuffer = make([]byte, eo.width*eo.height*4)
	if eo.image != nil {
		eo.image = ebiten.NewImage(eo.width, eo.height)
	}
	return nil
}

func (eo *EbitenOutput) UpdateFrame(rgba []byte) error {
	eo.mu.Lock()
	defer eo.mu.Unlock()
	if len(rgba) != len(eo.frameBuffer) {
		return &VideoError{Operation: "UpdateFrame", Details: fmt.Sprintf("got %d bytes, want %d", len(rgba), len(eo.frameBuffer))}
	}
	copy(eo.frameBuffer, rgba)
	return nil
}

// Update satisfies ebiten.Game; the monitor device drives frame content via
// UpdateFrame, so there is nothing to do here.
func (eo *EbitenOutput) Update() error {
	eo.mu.Lock()
	running := eo.running
	eo.mu.Unlock()
	if !running {
		return ebiten.Termination
	}
	return nil
}

// Draw satisfies ebiten.Game by blitting the most recent framebuffer.
func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	eo.mu.Lock()
	eo.image.WritePixels(eo.frameBuffer)
	img := eo.image
	eo.mu.Unlock()
	screen.DrawImage(img, nil)
}

// Layout satisfies ebiten.Game, keeping the internal image resolution fixed
// regardless of window size.
func (eo *EbitenOutput) Layout(outsideWidth, outsideHeight int) (int, int) {
	eo.mu.Lock()
	defer eo.mu.Unlock()
	return eo.width, eo.height
}
