//go:build windows

package cmd

import "os"

// gracefulSignals returns the OS signals that trigger a graceful shutdown of
// the agent and client commands. SIGTERM does not exist on Windows; only os.Interrupt is
// reliably delivered.
func gracefulSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
