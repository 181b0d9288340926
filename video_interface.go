// video_interface.go - the minimal backend contract a monitor device drives.
// Grounded on the teacher's video_interface.go VideoOutput interface,
// trimmed to the operations the monitor actually needs (no palette/texture/
// sprite capability interfaces, since this ISA's framebuffer is raw RGBA
// with no indirection).

package main

import "fmt"

// VideoError carries context for a failed video backend operation, the
// same shape as the teacher's own VideoError.
type VideoError struct {
	Operation string
	Details   string
	Err       error
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

// DisplayConfig is the hardware-independent description of the monitor's
// output surface.
type DisplayConfig struct {
	Width, Height int
}

// VideoOutput is implemented by each presentation backend (ebiten, headless).
type VideoOutput interface {
	Start() error
	Stop() error
	SetDisplayConfig(config DisplayConfig) error
	UpdateFrame(rgba []byte) error
}

// NewVideoOutput constructs the backend selected at build time: the ebiten
// backend by default, or the headless stub when built with -tags headless.
func NewVideoOutput() (VideoOutput, error) {
	return newPlatformVideoOutput()
}
