// Package transport defines the byte-level device transport the wire
// codec runs over, plus the reopen factory used after a device-initiated
// re-enumeration.
//
// The package does not implement USB. Callers provide whatever bulk
// transport their hardware needs; a TCP transport is included so the
// tool can drive devices (or device simulators) that expose the
// protocol over a socket.
package transport

import "io"

// Transport is a single open connection to a device in bootloader mode.
// Reads and writes map to bulk transfers and block until the device
// responds or the transport fails.
type Transport interface {
	io.Reader
	io.Writer

	// WaitForDisconnect blocks until the device drops off the transport.
	// Used when the device announces it will re-enumerate mid-flash.
	WaitForDisconnect() error

	Close() error
}

// ReopenFunc produces a fresh Transport after the device re-enumerated.
// The previous Transport must be considered dead once this is called.
type ReopenFunc func() (Transport, error)
