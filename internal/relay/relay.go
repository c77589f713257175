// Package relay drives the lamp relay output with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package relay

// Output writes the logical relay state to hardware.
type Output interface {
	// Write energizes the relay when on is true. Electrical polarity is
	// handled by the implementation.
	Write(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Defaults for a Raspberry Pi relay hat (BCM numbering).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)
