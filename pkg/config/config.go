package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ericogr/envframe/pkg/frame"
)

const (
	SensorBME280     = "bme280"
	SensorReal       = "real" // alias for bme280
	SensorSimulation = "simulation"
	SensorNone       = "none"

	OutputConsole = "console"
	OutputMQTT    = "mqtt"

	PayloadHex = "hex"
	PayloadRaw = "raw"
)

var ErrInvalid = errors.New("invalid config")

type MQTTConfig struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
	// Payload selects "hex" (26-char string, default) or "raw" (13 bytes).
	Payload string `json:"payload,omitempty"`
}

type OutputConfig struct {
	Type string      `json:"type"`
	MQTT *MQTTConfig `json:"mqtt,omitempty"`
}

type FallbackConfig struct {
	TemperatureC float64 `json:"temperature_c"`
	HumidityPct  float64 `json:"humidity_pct"`
}

type ScaleConfig struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

type Config struct {
	I2CBus      string         `json:"i2c_bus"`
	I2CAddress  int            `json:"i2c_address"`
	SensorType  string         `json:"sensor_type"`
	IntervalMs  int            `json:"interval_ms"`
	Position    frame.Position `json:"position"`
	Fallback    FallbackConfig `json:"fallback"`
	Scale       ScaleConfig    `json:"scale"`
	Outputs     []OutputConfig `json:"outputs"`
	LogLevel    string         `json:"log_level"`
	LogFormat   string         `json:"log_format"`
	MetricsAddr string         `json:"metrics_addr"`
}

func DefaultConfig() Config {
	return Config{
		I2CBus:     "",
		I2CAddress: 0x76,
		SensorType: SensorBME280,
		IntervalMs: 3000,
		Position:   frame.Position{LatE5: 6341710, LonE5: 1040280},
		Fallback:   FallbackConfig{TemperatureC: 22.0, HumidityPct: 45.0},
		Scale:      ScaleConfig{Temperature: 100, Humidity: 10},
		Outputs:    []OutputConfig{{Type: OutputConsole}},
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Server:   "tcp://localhost:1883",
		ClientID: "envframe",
		Topic:    "envframe/frame",
		Payload:  PayloadHex,
	}
}

// LoadFromFlags loads configuration from a JSON file (optional) and flags.
// Flags override values present in the JSON file.
func LoadFromFlags() (Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load is LoadFromFlags on an explicit flag set and argument list.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	cfgPath := fs.String("config", "", "Path to JSON config file")
	flagI2CBus := fs.String("i2c-bus", "", "I2C bus (e.g., '1' -> /dev/i2c-1, empty for default)")
	flagI2CAddStr := fs.String("i2c-address", "", "BME280 I2C address (decimal or 0x hex)")
	flagSensorType := fs.String("sensor-type", "", "sensor type: bme280|simulation|none")
	flagInterval := fs.Int("interval-ms", -1, "Sample period in ms")
	flagLat := fs.Float64("lat", math.NaN(), "Fixed latitude in degrees")
	flagLon := fs.Float64("lon", math.NaN(), "Fixed longitude in degrees")
	flagFallbackTemp := fs.Float64("fallback-temp", math.NaN(), "Fallback temperature (°C)")
	flagFallbackHum := fs.Float64("fallback-humidity", math.NaN(), "Fallback relative humidity (%)")
	flagOutputs := fs.String("outputs", "", "Comma-separated outputs (console,mqtt)")
	flagMQTTServer := fs.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := fs.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := fs.String("mqtt-pass", "", "MQTT password")
	flagClientID := fs.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := fs.String("mqtt-topic", "", "MQTT topic for frames")
	flagPayload := fs.String("mqtt-payload", "", "MQTT payload encoding: hex|raw")
	flagLogLevel := fs.String("log-level", "", "debug|info|warn|error")
	flagLogFormat := fs.String("log-format", "", "text|json")
	flagMetricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagI2CBus != "" {
		cfg.I2CBus = *flagI2CBus
	}
	if *flagI2CAddStr != "" {
		v, err := parseIntOrHex(*flagI2CAddStr)
		if err != nil {
			return cfg, fmt.Errorf("i2c-address: %w", err)
		}
		cfg.I2CAddress = v
	}
	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if !math.IsNaN(*flagLat) {
		cfg.Position.LatE5 = DegreesToE5(*flagLat)
	}
	if !math.IsNaN(*flagLon) {
		cfg.Position.LonE5 = DegreesToE5(*flagLon)
	}
	if !math.IsNaN(*flagFallbackTemp) {
		cfg.Fallback.TemperatureC = *flagFallbackTemp
	}
	if !math.IsNaN(*flagFallbackHum) {
		cfg.Fallback.HumidityPct = *flagFallbackHum
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: strings.ToLower(p)})
		}
		cfg.Outputs = outs
	}
	// map mqtt flags into every mqtt output, creating one if none exists
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" || *flagPayload != "" {
		applied := false
		for i := range cfg.Outputs {
			if strings.ToLower(cfg.Outputs[i].Type) != OutputMQTT {
				continue
			}
			if cfg.Outputs[i].MQTT == nil {
				cfg.Outputs[i].MQTT = &MQTTConfig{}
			}
			applyMQTTFlags(cfg.Outputs[i].MQTT, *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagClientID, *flagTopic, *flagPayload)
			applied = true
		}
		if !applied {
			m := &MQTTConfig{}
			applyMQTTFlags(m, *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagClientID, *flagTopic, *flagPayload)
			cfg.Outputs = append(cfg.Outputs, OutputConfig{Type: OutputMQTT, MQTT: m})
		}
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}
	if *flagLogFormat != "" {
		cfg.LogFormat = *flagLogFormat
	}
	if *flagMetricsAddr != "" {
		cfg.MetricsAddr = *flagMetricsAddr
	}

	cfg.fillMQTTDefaults()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyMQTTFlags(m *MQTTConfig, server, user, pass, clientID, topic, payload string) {
	if server != "" {
		m.Server = server
	}
	if user != "" {
		m.Username = user
	}
	if pass != "" {
		m.Password = pass
	}
	if clientID != "" {
		m.ClientID = clientID
	}
	if topic != "" {
		m.Topic = topic
	}
	if payload != "" {
		m.Payload = payload
	}
}

// fillMQTTDefaults completes partially specified mqtt outputs.
func (c *Config) fillMQTTDefaults() {
	def := DefaultMQTTConfig()
	for i := range c.Outputs {
		if strings.ToLower(c.Outputs[i].Type) != OutputMQTT {
			continue
		}
		if c.Outputs[i].MQTT == nil {
			c.Outputs[i].MQTT = &MQTTConfig{}
		}
		m := c.Outputs[i].MQTT
		if m.Server == "" {
			m.Server = def.Server
		}
		if m.ClientID == "" {
			m.ClientID = def.ClientID
		}
		if m.Topic == "" {
			m.Topic = def.Topic
		}
		if m.Payload == "" {
			m.Payload = def.Payload
		}
	}
}

func (c Config) Validate() error {
	if c.IntervalMs <= 0 {
		return fmt.Errorf("%w: interval-ms must be > 0, got %d", ErrInvalid, c.IntervalMs)
	}
	if c.Scale.Temperature == 0 || c.Scale.Humidity == 0 {
		return fmt.Errorf("%w: scale factors must be non-zero", ErrInvalid)
	}
	switch strings.ToLower(c.SensorType) {
	case SensorBME280, SensorReal, SensorSimulation, SensorNone:
	default:
		return fmt.Errorf("%w: unknown sensor type %q", ErrInvalid, c.SensorType)
	}
	if len(c.Outputs) == 0 {
		return fmt.Errorf("%w: at least one output is required", ErrInvalid)
	}
	for _, o := range c.Outputs {
		switch strings.ToLower(o.Type) {
		case OutputConsole:
		case OutputMQTT:
			if o.MQTT != nil && o.MQTT.Payload != "" && o.MQTT.Payload != PayloadHex && o.MQTT.Payload != PayloadRaw {
				return fmt.Errorf("%w: unknown mqtt payload %q", ErrInvalid, o.MQTT.Payload)
			}
		default:
			return fmt.Errorf("%w: unknown output type %q", ErrInvalid, o.Type)
		}
	}
	return nil
}

// DegreesToE5 scales a coordinate by 1e5, rounding to the nearest unit.
// 10.40280 * 1e5 is 1040279.9999999999 in float64.
func DegreesToE5(deg float64) int32 {
	return int32(math.Round(deg * 1e5))
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
