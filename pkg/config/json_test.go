package config

import (
	"encoding/json"
	"testing"
)

func TestUnmarshalConfigJSON(t *testing.T) {
	js := `{
        "i2c_bus": "1",
        "i2c_address": 119,
        "sensor_type": "bme280",
        "interval_ms": 3000,
        "position": { "lat_e5": 6341710, "lon_e5": 1040280 },
        "fallback": { "temperature_c": 20.5, "humidity_pct": 50 },
        "scale": { "temperature": 100, "humidity": 10 },
        "outputs": [
            {"type": "console"},
            {"type": "mqtt", "mqtt": {"server": "tcp://10.0.0.2:1883", "topic": "node_a/frame", "payload": "raw"}}
        ],
        "log_level": "debug",
        "metrics_addr": ":9100"
    }`

	cfg := DefaultConfig()
	if err := json.Unmarshal([]byte(js), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.I2CBus != "1" || cfg.I2CAddress != 119 {
		t.Fatalf("i2c: bus=%q address=%d", cfg.I2CBus, cfg.I2CAddress)
	}
	if cfg.Position.LatE5 != 6341710 || cfg.Position.LonE5 != 1040280 {
		t.Fatalf("position: %+v", cfg.Position)
	}
	if cfg.Fallback.TemperatureC != 20.5 || cfg.Fallback.HumidityPct != 50 {
		t.Fatalf("fallback: %+v", cfg.Fallback)
	}
	if len(cfg.Outputs) != 2 || cfg.Outputs[1].MQTT == nil {
		t.Fatalf("outputs: %+v", cfg.Outputs)
	}
	if cfg.Outputs[1].MQTT.Topic != "node_a/frame" || cfg.Outputs[1].MQTT.Payload != PayloadRaw {
		t.Fatalf("mqtt: %+v", *cfg.Outputs[1].MQTT)
	}
	// untouched keys keep their defaults
	if cfg.LogFormat != "text" {
		t.Fatalf("log_format: %q", cfg.LogFormat)
	}
	if cfg.LogLevel != "debug" || cfg.MetricsAddr != ":9100" {
		t.Fatalf("log_level=%q metrics_addr=%q", cfg.LogLevel, cfg.MetricsAddr)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
