package sensor

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	ready    bool
	fetchErr error
	getErr   map[Channel]error
	values   map[Channel]float64
	fetches  int
}

func (s *stubSource) Ready() bool { return s.ready }

func (s *stubSource) Fetch() error {
	s.fetches++
	return s.fetchErr
}

func (s *stubSource) Get(ch Channel) (float64, error) {
	if err := s.getErr[ch]; err != nil {
		return 0, err
	}
	return s.values[ch], nil
}

func (s *stubSource) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSamplerRealReading(t *testing.T) {
	src := &stubSource{ready: true, values: map[Channel]float64{ChannelTemperature: 19.87, ChannelHumidity: 61.2}}
	s := NewSampler(src, DefaultFallback, quietLogger())

	r := s.Read()
	assert.Equal(t, Reading{TemperatureC: 19.87, HumidityPct: 61.2, SourceValid: true}, r)
	assert.Equal(t, 1, src.fetches)
}

func TestSamplerFallback(t *testing.T) {
	boom := errors.New("i2c nack")
	tests := []struct {
		name   string
		src    Source
		reason Reason
	}{
		{"nil source", nil, ReasonAbsent},
		{"no source", NoSource{}, ReasonAbsent},
		{"no source pointer", &NoSource{}, ReasonAbsent},
		{"not ready", &stubSource{ready: false}, ReasonNotReady},
		{"fetch error", &stubSource{ready: true, fetchErr: boom}, ReasonFetch},
		{"temperature get error", &stubSource{ready: true, getErr: map[Channel]error{ChannelTemperature: boom}}, ReasonGet},
		{"humidity get error", &stubSource{ready: true, getErr: map[Channel]error{ChannelHumidity: boom}}, ReasonGet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSampler(tt.src, DefaultFallback, quietLogger())
			r := s.Read()
			assert.Equal(t, Reading{TemperatureC: 22.0, HumidityPct: 45.0, SourceValid: false, Reason: tt.reason}, r)
		})
	}
}

func TestSamplerFallbackIsDeterministic(t *testing.T) {
	s := NewSampler(nil, DefaultFallback, nil)
	first := s.Read()
	for i := 0; i < 10; i++ {
		require.Equal(t, first, s.Read())
	}
}

func TestSamplerCustomFallbackIgnoresValidFlag(t *testing.T) {
	fb := Reading{TemperatureC: -5, HumidityPct: 80, SourceValid: true, Reason: ReasonGet}
	s := NewSampler(nil, fb, quietLogger())
	r := s.Read()
	assert.False(t, r.SourceValid)
	assert.Equal(t, ReasonAbsent, r.Reason)
	assert.Equal(t, -5.0, r.TemperatureC)
	assert.Equal(t, 80.0, r.HumidityPct)
}

func TestSamplerRecoversAfterFailure(t *testing.T) {
	src := &stubSource{ready: true, fetchErr: errors.New("busy"), values: map[Channel]float64{ChannelTemperature: 25, ChannelHumidity: 40}}
	s := NewSampler(src, DefaultFallback, quietLogger())

	assert.False(t, s.Read().SourceValid)
	src.fetchErr = nil
	r := s.Read()
	assert.True(t, r.SourceValid)
	assert.Equal(t, 25.0, r.TemperatureC)
}
