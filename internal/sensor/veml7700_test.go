package sensor

import (
	"math"
	"testing"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func newPlaybackVEML7700(ops ...i2ctest.IO) (*VEML7700, *i2ctest.Playback) {
	bus := &i2ctest.Playback{Ops: ops}
	return &VEML7700{bus: bus, dev: &i2c.Dev{Bus: bus, Addr: DefaultVEML7700Addr}}, bus
}

func TestVEML7700ReadLux(t *testing.T) {
	s, bus := newPlaybackVEML7700(
		// 1488 counts, little-endian.
		i2ctest.IO{Addr: DefaultVEML7700Addr, W: []byte{regALS}, R: []byte{0xd0, 0x05}},
	)
	lux, err := s.ReadLux()
	if err != nil {
		t.Fatalf("ReadLux: %v", err)
	}
	if math.Abs(lux-1488*0.0672) > 1e-9 {
		t.Errorf("lux: got %v, want %v", lux, 1488*0.0672)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("unconsumed bus ops: %v", err)
	}
}

func TestVEML7700SaturatesBelowCeiling(t *testing.T) {
	s, _ := newPlaybackVEML7700(
		i2ctest.IO{Addr: DefaultVEML7700Addr, W: []byte{regALS}, R: []byte{0xff, 0xff}},
	)
	lux, err := s.ReadLux()
	if err != nil {
		t.Fatalf("ReadLux: %v", err)
	}
	if math.Abs(lux-SaturationLux) > 1e-9 {
		t.Errorf("full scale: got %v, want %v", lux, SaturationLux)
	}
	if SaturationLux < 4400 || SaturationLux > 4410 {
		t.Errorf("SaturationLux: got %v, want about 4404", SaturationLux)
	}
	if SaturationLux >= DefaultCeilingLux {
		t.Error("saturated reading should pass the aggregator ceiling")
	}
}

func TestVEML7700Close(t *testing.T) {
	// Closing the playback bus fails if the shutdown write was not issued.
	s, _ := newPlaybackVEML7700(
		i2ctest.IO{Addr: DefaultVEML7700Addr, W: []byte{regALSConf, 0x01, 0x00}},
	)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
