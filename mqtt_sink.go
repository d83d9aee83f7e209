package main

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPacketSink publishes decoded packets to a broker as JSON messages.
// Grounded on mqtt_publisher.go's MQTTPublisher/NewMQTTPublisher/
// generateClientID/loadTLSConfig; generalized from periodic metric
// publishing to one QoS-1, non-retained publish per decoded packet.
type MQTTPacketSink struct {
	client      mqtt.Client
	topicPrefix string
}

// mqttPacketPayload is the wire JSON shape published per packet.
type mqttPacketPayload struct {
	Timestamp       int64  `json:"timestamp"`
	RawHex          string `json:"raw_hex"`
	CorrectedHex    string `json:"corrected_hex"`
	ErrorsCorrected bool   `json:"errors_corrected"`
	Error           string `json:"error,omitempty"`
}

// generateMQTTClientID creates a random client ID for the MQTT connection,
// following generateClientID's approach in mqtt_publisher.go.
func generateMQTTClientID(prefix string) string {
	b := make([]byte, 8)
	rand.Read(b)
	return prefix + hex.EncodeToString(b)
}

// loadMQTTTLSConfig loads TLS configuration from files, mirroring
// mqtt_publisher.go's loadTLSConfig.
func loadMQTTTLSConfig(cfg MQTTTLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	tlsConfig := &tls.Config{}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// NewMQTTPacketSink connects to the configured broker and returns a ready
// PacketSink. Connection options (auto-reconnect, keepalive, TLS) mirror
// NewMQTTPublisher.
func NewMQTTPacketSink(cfg MQTTConfig) (*MQTTPacketSink, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(generateMQTTClientID(cfg.ClientPrefix))

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	if cfg.TLS.Enabled {
		tlsConfig, err := loadMQTTTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("mqtt packet sink: tls: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("mqtt packet sink: connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("mqtt packet sink: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt packet sink: connect: %w", token.Error())
	}

	return &MQTTPacketSink{client: client, topicPrefix: cfg.TopicPrefix}, nil
}

func (s *MQTTPacketSink) Publish(pkt DecodedPacket) error {
	payload := mqttPacketPayload{
		Timestamp:       time.Now().Unix(),
		RawHex:          string(pkt.RawHex),
		CorrectedHex:    string(pkt.CorrectedHex),
		ErrorsCorrected: pkt.ErrorsCorrected,
	}
	if pkt.Err != nil {
		payload.Error = pkt.Err.Error()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mqtt packet sink: marshal: %w", err)
	}

	topic := s.topicPrefix + "/packets"
	token := s.client.Publish(topic, 1, false, body)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("mqtt packet sink: publish failed: %v", err)
		return fmt.Errorf("mqtt packet sink: publish: %w", err)
	}
	return nil
}

func (s *MQTTPacketSink) Close() {
	s.client.Disconnect(250)
}
