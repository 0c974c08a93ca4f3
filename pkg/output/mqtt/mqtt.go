package mqtt

import (
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/envframe/pkg/config"
	"github.com/ericogr/envframe/pkg/output"
)

const (
	// frames are fire-and-forget
	qosAtMostOnce = 0
	disconnectMs  = 250
)

type MQTTOutput struct {
	client  mqtt.Client
	topic   string
	payload string
	logger  *slog.Logger
}

func NewMQTT(cfg config.MQTTConfig, logger *slog.Logger) (output.Output, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "server", cfg.Server, "error", err)
	})
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	logger.Info("mqtt connected", "server", cfg.Server, "client_id", cfg.ClientID, "topic", cfg.Topic)
	return newWithClient(client, cfg, logger), nil
}

func newWithClient(client mqtt.Client, cfg config.MQTTConfig, logger *slog.Logger) *MQTTOutput {
	payload := cfg.Payload
	if payload == "" {
		payload = config.PayloadHex
	}
	return &MQTTOutput{client: client, topic: cfg.Topic, payload: payload, logger: logger}
}

func (m *MQTTOutput) Publish(e output.Emission) error {
	token := m.client.Publish(m.topic, qosAtMostOnce, false, payloadFor(e, m.payload))
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", m.topic, err)
	}
	m.logger.Debug("mqtt frame published", "topic", m.topic, "seq", e.Seq)
	return nil
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(disconnectMs)
	}
	return nil
}

// payloadFor returns the 13 raw frame bytes or their hex rendering.
func payloadFor(e output.Emission, mode string) []byte {
	if mode == config.PayloadRaw {
		b := e.Frame
		return b[:]
	}
	return []byte(e.Hex)
}
