package sensor

import (
	"fmt"

	"github.com/ericogr/envframe/pkg/config"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// BME280Source reads a Bosch BME280 over I²C through periph.io.
type BME280Source struct {
	dev     *bmxx80.Dev
	bus     i2c.BusCloser
	env     physic.Env
	fetched bool
}

func NewBME280Source(cfg config.Config) (*BME280Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	dev, err := bmxx80.NewI2C(bus, uint16(cfg.I2CAddress), &bmxx80.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("bme280 at %#x: %w", cfg.I2CAddress, err)
	}
	return &BME280Source{dev: dev, bus: bus}, nil
}

func (s *BME280Source) Ready() bool { return s.dev != nil }

func (s *BME280Source) Fetch() error {
	if s.dev == nil {
		return ErrNotReady
	}
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		s.fetched = false
		return fmt.Errorf("sense: %w", err)
	}
	s.env = env
	s.fetched = true
	return nil
}

func (s *BME280Source) Get(ch Channel) (float64, error) {
	if !s.fetched {
		return 0, ErrNotFetched
	}
	return envValue(s.env, ch)
}

func (s *BME280Source) Close() error {
	var err error
	if s.dev != nil {
		err = s.dev.Halt()
	}
	if s.bus != nil {
		if cerr := s.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// envValue converts periph's fixed-point units to °C and %RH.
func envValue(env physic.Env, ch Channel) (float64, error) {
	switch ch {
	case ChannelTemperature:
		return env.Temperature.Celsius(), nil
	case ChannelHumidity:
		return float64(env.Humidity) / float64(physic.PercentRH), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
}
