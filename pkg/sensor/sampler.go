package sensor

import (
	"fmt"
	"log/slog"
)

// Sampler turns a Source into a total reading function: every failure is
// replaced by the configured fallback and reported only through
// Reading.SourceValid and Reading.Reason.
type Sampler struct {
	src      Source
	fallback Reading
	logger   *slog.Logger
}

// NewSampler wraps src. A nil src or NoSource means no sensor is fitted.
func NewSampler(src Source, fallback Reading, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.Default()
	}
	fallback.SourceValid = false
	fallback.Reason = ReasonNone
	return &Sampler{src: src, fallback: fallback, logger: logger}
}

func (s *Sampler) Read() Reading {
	switch s.src.(type) {
	case nil, NoSource, *NoSource:
		return s.substitute(ReasonAbsent, nil)
	}
	if !s.src.Ready() {
		return s.substitute(ReasonNotReady, ErrNotReady)
	}
	if err := s.src.Fetch(); err != nil {
		return s.substitute(ReasonFetch, err)
	}
	t, err := s.src.Get(ChannelTemperature)
	if err != nil {
		return s.substitute(ReasonGet, fmt.Errorf("%s: %w", ChannelTemperature, err))
	}
	h, err := s.src.Get(ChannelHumidity)
	if err != nil {
		return s.substitute(ReasonGet, fmt.Errorf("%s: %w", ChannelHumidity, err))
	}
	return Reading{TemperatureC: t, HumidityPct: h, SourceValid: true}
}

func (s *Sampler) substitute(reason Reason, err error) Reading {
	r := s.fallback
	r.Reason = reason
	if reason == ReasonAbsent {
		s.logger.Debug("no sensor fitted, using fallback reading")
	} else {
		s.logger.Warn("sensor read failed, using fallback reading", "reason", string(reason), "error", err)
	}
	return r
}
