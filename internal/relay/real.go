//go:build linux

package relay

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives a relay through the Linux GPIO character device.
type RealOutput struct {
	chip      *gpiocdev.Chip
	line      *gpiocdev.Line
	activeLow bool
}

// NewRealOutput requests pin on the named chip as an output, initially off.
// With activeLow set, logical on drives the line low (common on opto-isolated
// relay boards).
func NewRealOutput(chipName string, pin int, activeLow bool) (*RealOutput, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("plant-light")}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := chip.RequestLine(pin, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", pin, err)
	}

	return &RealOutput{chip: chip, line: line, activeLow: activeLow}, nil
}

// Write sets the logical relay state.
func (o *RealOutput) Write(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set relay pin: %w", err)
	}
	return nil
}

// Close de-energizes the relay, returns the pin to input biased to the
// relay's off level and releases the chip.
func (o *RealOutput) Close() error {
	var errs []error

	if o.line != nil {
		if err := o.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive relay off: %w", err))
		}
		if err := o.line.Reconfigure(gpiocdev.AsInput, releaseBias(o.activeLow)); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure relay pin: %w", err))
		}
		if err := o.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// releaseBias returns the pull that holds a released line at the relay's
// off level. An active-low board energizes when its input is pulled low, so
// it must be pulled up once the driver lets go.
func releaseBias(activeLow bool) gpiocdev.LineConfigOption {
	if activeLow {
		return gpiocdev.WithPullUp
	}
	return gpiocdev.WithPullDown
}
