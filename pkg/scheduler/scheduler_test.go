package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ericogr/envframe/pkg/frame"
	"github.com/ericogr/envframe/pkg/metrics"
	"github.com/ericogr/envframe/pkg/output"
	"github.com/ericogr/envframe/pkg/sensor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refPosition = frame.Position{LatE5: 6341710, LonE5: 1040280}

type fixedReader struct{ r sensor.Reading }

func (f fixedReader) Read() sensor.Reading { return f.r }

type recordingOutput struct {
	mu    sync.Mutex
	got   []output.Emission
	err   error
	onPub func(int)
}

func (o *recordingOutput) Publish(e output.Emission) error {
	o.mu.Lock()
	o.got = append(o.got, e)
	n := len(o.got)
	o.mu.Unlock()
	if o.onPub != nil {
		o.onPub(n)
	}
	return o.err
}

func (o *recordingOutput) Close() error { return nil }

func (o *recordingOutput) emissions() []output.Emission {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]output.Emission(nil), o.got...)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fallbackScheduler(out output.Output) *Scheduler {
	sampler := sensor.NewSampler(nil, sensor.DefaultFallback, quietLogger())
	return New(sampler, []Sink{{Name: "rec", Output: out}}, Options{Position: refPosition, Logger: quietLogger()})
}

func TestFirstTickMatchesReferenceFrame(t *testing.T) {
	out := &recordingOutput{}
	s := fallbackScheduler(out)

	e := s.Tick()
	assert.Equal(t, uint8(1), e.Seq)
	assert.Equal(t, "019808C2014EC4600098DF0F00", e.Hex)
	assert.Equal(t, sensor.Reading{TemperatureC: 22, HumidityPct: 45, Reason: sensor.ReasonAbsent}, e.Reading)
	require.Len(t, out.emissions(), 1)
	assert.Equal(t, e, out.emissions()[0])
}

func TestSequenceWrapsAndOnlySeqChanges(t *testing.T) {
	out := &recordingOutput{}
	s := fallbackScheduler(out)

	seen := make(map[string]bool)
	var first frame.Frame
	for i := 0; i < 256; i++ {
		e := s.Tick()
		require.Equal(t, uint8(i+1), e.Seq)
		require.Len(t, e.Hex, 2*frame.Size)
		seen[e.Hex] = true
		if i == 0 {
			first = e.Frame
			continue
		}
		assert.Equal(t, first[1:], e.Frame[1:], "tick %d changed more than seq", i)
	}
	assert.Len(t, seen, 256)
	assert.Equal(t, uint8(0), s.Seq())

	// 255 is followed by 0, then 1 again
	assert.Equal(t, uint8(1), s.Tick().Seq)
}

func TestTickEncodesRealReading(t *testing.T) {
	out := &recordingOutput{}
	r := fixedReader{sensor.Reading{TemperatureC: -12.349, HumidityPct: 87.66, SourceValid: true}}
	s := New(r, []Sink{{Name: "rec", Output: out}}, Options{Position: frame.Position{LatE5: -1, LonE5: 2}, Logger: quietLogger()})

	e := s.Tick()
	f, err := frame.Decode(e.Frame[:])
	require.NoError(t, err)
	assert.Equal(t, frame.Fields{Seq: 1, TempX100: -1234, HumidityX10: 876, Position: frame.Position{LatE5: -1, LonE5: 2}}, f)
}

func TestPublishErrorDoesNotStopOtherSinks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	bad := &recordingOutput{err: errors.New("broker down")}
	good := &recordingOutput{}
	sampler := sensor.NewSampler(nil, sensor.DefaultFallback, quietLogger())
	s := New(sampler, []Sink{{Name: "mqtt", Output: bad}, {Name: "console", Output: good}}, Options{Position: refPosition, Metrics: m, Logger: quietLogger()})

	s.Tick()
	s.Tick()

	assert.Len(t, good.emissions(), 2)
	assert.Len(t, bad.emissions(), 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PublishError.WithLabelValues("mqtt")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Published.WithLabelValues("console")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Cycles))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("absent")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LastSeq))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &recordingOutput{onPub: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	sampler := sensor.NewSampler(nil, sensor.DefaultFallback, quietLogger())
	s := New(sampler, []Sink{{Name: "rec", Output: out}}, Options{Interval: 10 * time.Millisecond, Position: refPosition, Logger: quietLogger()})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	got := out.emissions()
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, uint8(i+1), e.Seq)
	}
}

func TestDefaults(t *testing.T) {
	s := New(fixedReader{}, nil, Options{})
	assert.Equal(t, DefaultInterval, s.interval)
	assert.Equal(t, 100.0, s.codec.TemperatureScale)
	assert.Equal(t, 10.0, s.codec.HumidityScale)
}

func TestDebugLogCarriesHex(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := New(fixedReader{sensor.DefaultFallback}, nil, Options{Position: refPosition, Logger: logger})
	s.Tick()
	assert.Contains(t, buf.String(), "hex=019808C2014EC4600098DF0F00")
}
