package sink

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig describes the broker connection for the MQTT sink.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string
	QoS      byte
}

// MQTT publishes correction chunks to a broker topic so downstream
// consumers (rovers, recorders) can subscribe to the stream.
type MQTT struct {
	client mqtt.Client
	topic  string
	qos    byte
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "ntripc"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return &MQTT{client: client, topic: cfg.Topic, qos: cfg.QoS}, nil
}

// Write publishes the chunk without waiting for broker acknowledgement,
// so a slow broker cannot stall the stream loop. The chunk is copied
// because the caller reuses its buffer.
func (m *MQTT) Write(p []byte) (int, error) {
	payload := append([]byte(nil), p...)
	m.client.Publish(m.topic, m.qos, false, payload)
	return len(p), nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
