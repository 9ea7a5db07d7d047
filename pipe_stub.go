//go:build !windows

package svcctl

import "time"

// dialSCM has no pipe endpoint to reach on this platform. Connections
// here must supply a Transport through WithTransport.
func dialSCM(machine string, timeout time.Duration) (Transport, error) {
	_ = machine
	_ = timeout
	return nil, ErrUnsupported
}
