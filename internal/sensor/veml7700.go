package sensor

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// VEML7700 register map and settings.
const (
	DefaultVEML7700Addr = 0x10

	regALSConf = 0x00
	regALS     = 0x04

	// Gain x1, 100 ms integration, powered on.
	alsConfGain1IT100 = 0x0000

	// Lux per count at gain x1 and 100 ms integration.
	resolutionGain1IT100 = 0.0672

	// SaturationLux is the highest reading at the fixed gain and integration
	// time: a full-scale count of 65535 is about 4404 lux. Brighter light
	// reads as SaturationLux, well under DefaultCeilingLux, so the ceiling
	// only rejects values this driver cannot produce. Both are far above
	// any useful lamp threshold.
	SaturationLux = math.MaxUint16 * resolutionGain1IT100

	// Time for the first integration cycle to complete after power-on.
	settleTime = 150 * time.Millisecond
)

// VEML7700 reads a Vishay VEML7700 ambient light sensor over I2C.
type VEML7700 struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// NewVEML7700 opens the named I2C bus ("" selects the first available),
// configures the sensor for indoor light levels and waits for it to settle.
func NewVEML7700(busName string, addr uint16) (*VEML7700, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	if addr == 0 {
		addr = DefaultVEML7700Addr
	}
	s := &VEML7700{
		bus: bus,
		dev: &i2c.Dev{Bus: bus, Addr: addr},
	}

	if err := s.writeReg(regALSConf, alsConfGain1IT100); err != nil {
		bus.Close()
		return nil, fmt.Errorf("configure veml7700 at 0x%02x: %w", addr, err)
	}
	time.Sleep(settleTime)

	return s, nil
}

// ReadLux returns the current illuminance in lux.
func (s *VEML7700) ReadLux() (float64, error) {
	raw, err := s.readReg(regALS)
	if err != nil {
		return 0, fmt.Errorf("read als: %w", err)
	}
	return float64(raw) * resolutionGain1IT100, nil
}

// Close powers the sensor down and releases the bus.
func (s *VEML7700) Close() error {
	var errs []error
	// Bit 0 of ALS_CONF is the shutdown bit.
	if err := s.writeReg(regALSConf, alsConfGain1IT100|0x0001); err != nil {
		errs = append(errs, fmt.Errorf("shutdown sensor: %w", err))
	}
	if err := s.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close bus: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// Registers are 16-bit little-endian.
func (s *VEML7700) writeReg(reg byte, v uint16) error {
	w := []byte{reg, 0, 0}
	binary.LittleEndian.PutUint16(w[1:], v)
	return s.dev.Tx(w, nil)
}

func (s *VEML7700) readReg(reg byte) (uint16, error) {
	r := make([]byte, 2)
	if err := s.dev.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r), nil
}
