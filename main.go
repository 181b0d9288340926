// main.go - CLI entry point: parses the boot image, memory size, disk, and
// display flags described in §6, wires Memory, CPU, and every device
// together, then drives the CPU's Step loop. Grounded on the teacher's
// main.go for the overall "parse flags with flag.NewFlagSet, report, wire,
// run" shape; the flag surface itself (-b<path>, -m<size>, -disk<n>=<path>)
// glues a value directly onto its flag with no separator, which the
// standard flag package cannot parse, so argument scanning here is
// hand-rolled instead — see DESIGN.md for why flag.FlagSet was dropped for
// this one surface.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type cliConfig struct {
	bootPath   string
	memSize    int
	diskPaths  map[int]string
	headless   bool
	showVer    bool
}

func parseArgs(args []string) *cliConfig {
	cfg := &cliConfig{memSize: DefaultMemorySize, diskPaths: make(map[int]string)}

	takeValue := func(arg, prefix string) (string, bool) {
		if strings.HasPrefix(arg, prefix) {
			return arg[len(prefix):], true
		}
		return "", false
	}

	for _, arg := range args {
		switch {
		case arg == "-headless":
			cfg.headless = true
		case arg == "-version" || arg == "-features":
			cfg.showVer = true
		case hasAny(arg, "-boot="):
			v, _ := takeValue(arg, "-boot=")
			if cfg.bootPath == "" {
				cfg.bootPath = v
			}
		case hasAny(arg, "-b") && arg != "-b":
			v, _ := takeValue(arg, "-b")
			if cfg.bootPath == "" {
				cfg.bootPath = v
			}
		case hasAny(arg, "-mem="):
			v, _ := takeValue(arg, "-mem=")
			if n, err := strconv.Atoi(v); err == nil {
				cfg.memSize = n
			}
		case hasAny(arg, "-m") && arg != "-m":
			v, _ := takeValue(arg, "-m")
			if n, err := strconv.Atoi(v); err == nil {
				cfg.memSize = n
			}
		case hasAny(arg, "-disk"):
			v, _ := takeValue(arg, "-disk")
			eq := strings.IndexByte(v, '=')
			if eq < 0 {
				fmt.Fprintf(os.Stderr, "vm: malformed -disk flag %q, ignoring\n", arg)
				continue
			}
			slot, err := strconv.Atoi(v[:eq])
			if err != nil || slot < 0 || slot > 7 {
				fmt.Fprintf(os.Stderr, "vm: invalid disk slot in %q, ignoring\n", arg)
				continue
			}
			cfg.diskPaths[slot] = v[eq+1:]
		default:
			fmt.Fprintf(os.Stderr, "vm: unrecognized flag %q, ignoring\n", arg)
		}
	}
	return cfg
}

func hasAny(arg, prefix string) bool {
	return strings.HasPrefix(arg, prefix)
}

func main() {
	cfg := parseArgs(os.Args[1:])

	if cfg.showVer {
		printFeatures()
		return
	}

	mem := NewMemory(cfg.memSize)
	cpu := NewCPU(mem)
	host := NewDeviceHost(mem)

	host.Register(NewMemoryDevice(0, mem.Len()))

	interruptController := NewInterruptController(1, 0xF2040, mem)
	host.Register(interruptController)

	raiser := &GatedInterruptRaiser{CPU: cpu, Controller: interruptController}

	disk := NewDiskController(2, 0xF1000, mem)
	for slot, path := range cfg.diskPaths {
		if err := disk.AttachDisk(slot, path); err != nil {
			fmt.Fprintf(os.Stderr, "vm: failed to attach disk %d (%s): %v\n", slot, path, err)
		}
	}
	host.Register(disk)

	kbd := NewKeyboard(3, 0xF3000, 1, raiser, mem)
	host.Register(kbd)

	output, err := NewVideoOutput()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vm: failed to initialize video backend: %v\n", err)
		os.Exit(1)
	}
	monitor := NewMonitor(4, 0x100000, 640, 360, output, mem)
	host.Register(monitor)

	if cfg.bootPath != "" {
		img, err := os.ReadFile(cfg.bootPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vm: failed to read boot image %s: %v\n", cfg.bootPath, err)
			os.Exit(1)
		}
		if err := mem.LoadBoot(img); err != nil {
			fmt.Fprintf(os.Stderr, "vm: %v\n", err)
			os.Exit(1)
		}
	}

	host.Start()
	defer host.Stop()
	defer disk.Close()

	var kbdHost *KeyboardHost
	if !cfg.headless {
		kbdHost = NewKeyboardHost(kbd)
		kbdHost.Start()
		defer kbdHost.Stop()
	}

	for {
		if fault := cpu.Step(); fault != nil {
			fmt.Fprintf(os.Stderr, "vm: halted: %v\n", fault)
			return
		}
	}
}
