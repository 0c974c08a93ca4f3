// Package codec converts physical quantities to the scaled integers carried
// in a telemetry frame and back.
package codec

import "math"

const (
	DefaultTemperatureScale = 100.0 // 0.01 °C per unit
	DefaultHumidityScale    = 10.0  // 0.1 %RH per unit
)

// Codec holds the fixed-point scale factors. Conversions truncate toward zero
// and wrap to the target width; they never saturate or fail.
type Codec struct {
	TemperatureScale float64
	HumidityScale    float64
}

// Default is the codec used by the wire format.
var Default = Codec{TemperatureScale: DefaultTemperatureScale, HumidityScale: DefaultHumidityScale}

func (c Codec) EncodeTemp(celsius float64) int16 {
	return int16(truncate(celsius * c.TemperatureScale))
}

func (c Codec) EncodeHumidity(pct float64) uint16 {
	return uint16(truncate(pct * c.HumidityScale))
}

func (c Codec) DecodeTemp(v int16) float64 {
	return float64(v) / c.TemperatureScale
}

func (c Codec) DecodeHumidity(v uint16) float64 {
	return float64(v) / c.HumidityScale
}

func EncodeTemp(celsius float64) int16  { return Default.EncodeTemp(celsius) }
func EncodeHumidity(pct float64) uint16 { return Default.EncodeHumidity(pct) }
func DecodeTemp(v int16) float64        { return Default.DecodeTemp(v) }
func DecodeHumidity(v uint16) float64   { return Default.DecodeHumidity(v) }

// truncate drops the fractional part and returns the value as int64 so the
// caller's narrowing conversion wraps instead of hitting Go's undefined
// out-of-range float conversion. NaN and infinities map to 0; magnitudes past
// the int64 range are reduced modulo 2^64 first.
func truncate(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Trunc(v)
	if v >= math.MaxInt64 || v < math.MinInt64 {
		v = math.Mod(v, 1<<64)
		if v >= math.MaxInt64 {
			v -= 1 << 64
		} else if v < math.MinInt64 {
			v += 1 << 64
		}
	}
	return int64(v)
}
