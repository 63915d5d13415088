//go:build windows

package cmd

import (
	"os"
	"os/exec"
)

// setDaemonAttrs is a no-op; Windows has no Setsid.
func setDaemonAttrs(_ *exec.Cmd) {}

// shutdownSignals are the signals that stop `itrack serve` gracefully.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
