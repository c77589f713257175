//go:build !linux

package relay

import "errors"

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// NewRealOutput returns an error on non-Linux platforms.
func NewRealOutput(chipName string, pin int, activeLow bool) (*RealOutput, error) {
	return nil, errors.New("relay: not supported on this platform (requires Linux)")
}

// Write is not implemented on non-Linux platforms.
func (o *RealOutput) Write(on bool) error {
	return errors.New("relay: not supported")
}

// Close is not implemented on non-Linux platforms.
func (o *RealOutput) Close() error {
	return nil
}
