package main

import (
	"fmt"
	"runtime"
	"sort"
)

// Version is stamped at build time via -ldflags; left as a default for
// go run/go build invocations that don't set it.
var Version = "dev"

// compiledFeatures tracks build-time feature flags via init() registration,
// e.g. the monitor backend selected by the headless build tag.
var compiledFeatures []string

func printFeatures() {
	fmt.Printf("vm %s\n", Version)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Println()
	fmt.Println("Compiled features:")

	sort.Strings(compiledFeatures)
	for _, f := range compiledFeatures {
		fmt.Printf("  %s\n", f)
	}
	if len(compiledFeatures) == 0 {
		fmt.Println("  (none)")
	}
}
