// Package scheduler drives the sample, encode and emit cycle at a fixed period.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericogr/envframe/pkg/codec"
	"github.com/ericogr/envframe/pkg/frame"
	"github.com/ericogr/envframe/pkg/metrics"
	"github.com/ericogr/envframe/pkg/output"
	"github.com/ericogr/envframe/pkg/sensor"
)

const DefaultInterval = 3 * time.Second

// Reader is satisfied by *sensor.Sampler.
type Reader interface {
	Read() sensor.Reading
}

// Sink is an output with the name used in logs and metric labels.
type Sink struct {
	Name   string
	Output output.Output
}

type Options struct {
	Interval time.Duration
	Position frame.Position
	Codec    codec.Codec
	Metrics  *metrics.Metrics // optional
	Logger   *slog.Logger
}

// Scheduler owns the sequence counter; only Tick mutates it.
type Scheduler struct {
	reader   Reader
	sinks    []Sink
	interval time.Duration
	pos      frame.Position
	codec    codec.Codec
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	seq      uint8
}

func New(reader Reader, sinks []Sink, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Codec.TemperatureScale == 0 || opts.Codec.HumidityScale == 0 {
		opts.Codec = codec.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		reader:   reader,
		sinks:    sinks,
		interval: opts.Interval,
		pos:      opts.Position,
		codec:    opts.Codec,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      time.Now,
	}
}

// Seq returns the sequence number of the last frame built (0 before the first tick).
func (s *Scheduler) Seq() uint8 { return s.seq }

// Tick runs one cycle. The sequence counter advances first, so the first
// frame carries seq 1 and 255 is followed by 0. Output errors are logged and
// counted; they never abort the cycle.
func (s *Scheduler) Tick() output.Emission {
	s.seq++
	r := s.reader.Read()
	f := frame.Build(s.seq, s.codec.EncodeTemp(r.TemperatureC), s.codec.EncodeHumidity(r.HumidityPct), s.pos)
	e := output.Emission{
		Seq:       s.seq,
		Frame:     f,
		Hex:       frame.Render(f[:]),
		Reading:   r,
		Timestamp: s.now(),
	}

	for _, sink := range s.sinks {
		if err := sink.Output.Publish(e); err != nil {
			s.logger.Error("publish failed", "output", sink.Name, "seq", e.Seq, "error", err)
			if s.metrics != nil {
				s.metrics.PublishError.WithLabelValues(sink.Name).Inc()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.Published.WithLabelValues(sink.Name).Inc()
		}
	}
	s.observe(e)
	return e
}

func (s *Scheduler) observe(e output.Emission) {
	s.logger.Debug("frame emitted",
		"seq", e.Seq,
		"hex", e.Hex,
		"temperature_c", e.Reading.TemperatureC,
		"humidity_pct", e.Reading.HumidityPct,
		"source_valid", e.Reading.SourceValid,
	)
	if s.metrics == nil {
		return
	}
	s.metrics.Cycles.Inc()
	s.metrics.LastSeq.Set(float64(e.Seq))
	s.metrics.TemperatureC.Set(e.Reading.TemperatureC)
	s.metrics.HumidityPct.Set(e.Reading.HumidityPct)
	if !e.Reading.SourceValid {
		s.metrics.Fallbacks.WithLabelValues(string(e.Reading.Reason)).Inc()
	}
}

// Run ticks immediately and then once per interval until ctx is cancelled.
// The wait is a plain fixed delay after each cycle, with no jitter or catch-up.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("sampling started", "interval", s.interval.String(), "lat_e5", s.pos.LatE5, "lon_e5", s.pos.LonE5)
	for {
		s.Tick()
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sampling stopped", "last_seq", s.seq)
			return ctx.Err()
		case <-timer.C:
		}
	}
}
