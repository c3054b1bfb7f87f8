//go:build linux

package sharegl

import (
	"os"
	"syscall"
)

// Signals are the signals that stop a producer or viewer started through the examples.
func Signals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
