package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ericogr/envframe/pkg/codec"
	"github.com/ericogr/envframe/pkg/config"
	"github.com/ericogr/envframe/pkg/frame"
	"github.com/ericogr/envframe/pkg/logging"
	"github.com/ericogr/envframe/pkg/metrics"
	"github.com/ericogr/envframe/pkg/output"
	"github.com/ericogr/envframe/pkg/output/console"
	mqttout "github.com/ericogr/envframe/pkg/output/mqtt"
	"github.com/ericogr/envframe/pkg/scheduler"
	"github.com/ericogr/envframe/pkg/sensor"
)

var version = "dev"

// replaced in tests
var newMQTT = mqttout.NewMQTT

func main() {
	decodeHex := flag.String("decode", "", "Decode a 26-character hex frame, print its fields and exit")

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	if *decodeHex != "" {
		if err := decodeFrame(os.Stdout, *decodeHex, scaleCodec(cfg)); err != nil {
			fmt.Fprintf(os.Stderr, "decode: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)
	logger.Info("starting", "version", version, "sensor_type", cfg.SensorType, "interval_ms", cfg.IntervalMs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	src := openSource(cfg, logger)
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warn("sensor close", "error", err)
		}
	}()

	sinks, err := initOutputs(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSinks(sinks, logger)

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, logger); err != nil {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	sampler := sensor.NewSampler(src, sensor.Fallback(cfg.Fallback.TemperatureC, cfg.Fallback.HumidityPct), logger)
	sched := scheduler.New(sampler, sinks, scheduler.Options{
		Interval: time.Duration(cfg.IntervalMs) * time.Millisecond,
		Position: cfg.Position,
		Codec:    scaleCodec(cfg),
		Metrics:  m,
		Logger:   logger,
	})
	return sched.Run(ctx)
}

// openSource picks the sensor once at startup. A BME280 that cannot be
// opened is treated as absent so sampling continues on fallback values.
func openSource(cfg config.Config, logger *slog.Logger) sensor.Source {
	switch strings.ToLower(cfg.SensorType) {
	case config.SensorBME280, config.SensorReal:
		src, err := sensor.NewBME280Source(cfg)
		if err != nil {
			logger.Warn("bme280 unavailable, sampling fallback values", "bus", cfg.I2CBus, "address", fmt.Sprintf("%#x", cfg.I2CAddress), "error", err)
			return sensor.NoSource{}
		}
		logger.Info("bme280 opened", "bus", cfg.I2CBus, "address", fmt.Sprintf("%#x", cfg.I2CAddress))
		return src
	case config.SensorSimulation:
		return sensor.NewFakeSource()
	default:
		return sensor.NoSource{}
	}
}

func initOutputs(cfg config.Config, logger *slog.Logger) ([]scheduler.Sink, error) {
	sinks := make([]scheduler.Sink, 0, len(cfg.Outputs))
	for _, o := range cfg.Outputs {
		var (
			out output.Output
			err error
		)
		name := strings.ToLower(o.Type)
		switch name {
		case config.OutputConsole:
			out = console.NewConsole()
		case config.OutputMQTT:
			mc := config.DefaultMQTTConfig()
			if o.MQTT != nil {
				mc = *o.MQTT
			}
			out, err = newMQTT(mc, logger)
		default:
			err = fmt.Errorf("unknown output type %q", o.Type)
		}
		if err != nil {
			closeSinks(sinks, logger)
			return nil, fmt.Errorf("init output %s: %w", name, err)
		}
		sinks = append(sinks, scheduler.Sink{Name: name, Output: out})
	}
	return sinks, nil
}

func closeSinks(sinks []scheduler.Sink, logger *slog.Logger) {
	for _, s := range sinks {
		if err := s.Output.Close(); err != nil {
			logger.Warn("output close", "output", s.Name, "error", err)
		}
	}
}

func scaleCodec(cfg config.Config) codec.Codec {
	return codec.Codec{TemperatureScale: cfg.Scale.Temperature, HumidityScale: cfg.Scale.Humidity}
}

func decodeFrame(w io.Writer, s string, c codec.Codec) error {
	f, err := frame.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	fields := f.Fields()
	_, err = fmt.Fprintf(w, "seq=%d temperature_c=%.2f humidity_pct=%.1f lat=%.5f lon=%.5f\n",
		fields.Seq,
		c.DecodeTemp(fields.TempX100),
		c.DecodeHumidity(fields.HumidityX10),
		float64(fields.Position.LatE5)/1e5,
		float64(fields.Position.LonE5)/1e5,
	)
	return err
}
