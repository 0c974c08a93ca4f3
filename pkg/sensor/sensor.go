package sensor

import (
	"errors"
	"fmt"
)

type Channel int

const (
	ChannelTemperature Channel = iota // ambient temperature, °C
	ChannelHumidity                   // relative humidity, %
)

func (c Channel) String() string {
	switch c {
	case ChannelTemperature:
		return "temperature"
	case ChannelHumidity:
		return "humidity"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

var (
	ErrNotReady       = errors.New("sensor not ready")
	ErrNotFetched     = errors.New("sensor: no sample fetched")
	ErrUnknownChannel = errors.New("sensor: unknown channel")
)

// Source is a capability-gated environmental sensor. A sample is taken by
// Fetch and then read per channel with Get.
type Source interface {
	Ready() bool
	Fetch() error
	Get(ch Channel) (float64, error)
	Close() error
}

// Reason tells why a Reading holds fallback values. It is empty for real
// measurements.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonAbsent   Reason = "absent"
	ReasonNotReady Reason = "not_ready"
	ReasonFetch    Reason = "fetch"
	ReasonGet      Reason = "get"
)

type Reading struct {
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct"`
	SourceValid  bool    `json:"source_valid"`
	Reason       Reason  `json:"reason,omitempty"`
}

// Fallback returns the substitute reading used when no measurement is available.
func Fallback(temperatureC, humidityPct float64) Reading {
	return Reading{TemperatureC: temperatureC, HumidityPct: humidityPct}
}

// DefaultFallback is 22.0 °C / 45.0 %RH.
var DefaultFallback = Fallback(22.0, 45.0)
