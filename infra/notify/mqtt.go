// Package notify delivers ride notifications over MQTT. Apps subscribe to
// their own topics; delivery is at-most-once unless QoS raises it.
package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ubi-africa/ride-core/core/logger"
	"github.com/ubi-africa/ride-core/core/model"
)

const (
	offerTopicPrefix  = "rides/offer/"
	statusTopicPrefix = "rides/status/"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string      `json:"broker"`
	ClientID   string      `json:"client_id"`
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	UseTLS     bool        `json:"use_tls"`
	ClientCert string      `json:"client_cert"`
	ClientKey  string      `json:"client_key"`
	CABundle   string      `json:"ca_bundle"`
	QoS        byte        `json:"qos"`
	TimeoutMS  int         `json:"timeout_ms"`
	TLSConfig  *tls.Config `json:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTSink publishes ride offers and status updates to per-user topics.
type MQTTSink struct {
	cli     pahoClient
	qos     byte
	timeout time.Duration
	log     logger.Logger
}

// NewMQTTSink connects to the broker and returns a ready sink.
func NewMQTTSink(cfg Config, log logger.Logger) (*MQTTSink, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("MQTT connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("notify: connect mqtt: %w", token.Error())
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTSink{cli: c, qos: cfg.QoS, timeout: timeout, log: log}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// OfferRide publishes a ride offer to the driver's offer topic.
func (s *MQTTSink) OfferRide(ctx context.Context, driverID string, ride *model.Ride, etaSeconds int64) error {
	msg := struct {
		RideID       string            `json:"ride_id"`
		Pickup       model.Location    `json:"pickup"`
		Dropoff      model.Location    `json:"dropoff"`
		VehicleClass string            `json:"vehicle_class"`
		ETASeconds   int64             `json:"eta_seconds"`
		Quote        *model.PriceQuote `json:"quote,omitempty"`
		SentAt       int64             `json:"sent_at"`
	}{
		RideID:       ride.ID,
		Pickup:       ride.Pickup,
		Dropoff:      ride.Dropoff,
		VehicleClass: string(ride.VehicleClass),
		ETASeconds:   etaSeconds,
		Quote:        ride.Quote,
		SentAt:       time.Now().UnixMilli(),
	}
	return s.publish(ctx, offerTopicPrefix+driverID, msg)
}

// PushStatus publishes the ride's current state to the user's status topic.
func (s *MQTTSink) PushStatus(ctx context.Context, userID string, ride *model.Ride) error {
	msg := struct {
		RideID       string `json:"ride_id"`
		Status       string `json:"status"`
		DriverID     string `json:"driver_id,omitempty"`
		CancelReason string `json:"cancel_reason,omitempty"`
		SentAt       int64  `json:"sent_at"`
	}{
		RideID:       ride.ID,
		Status:       string(ride.Status),
		DriverID:     ride.DriverID,
		CancelReason: ride.CancelReason,
		SentAt:       time.Now().UnixMilli(),
	}
	return s.publish(ctx, statusTopicPrefix+userID, msg)
}

func (s *MQTTSink) publish(_ context.Context, topic string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: encode message for %s: %w", topic, err)
	}
	token := s.cli.Publish(topic, s.qos, false, payload)
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("notify: publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", topic, err)
	}
	return nil
}

// Close gracefully disconnects from the broker.
func (s *MQTTSink) Close() {
	if s.cli != nil && s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
}
