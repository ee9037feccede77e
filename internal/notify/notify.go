// Package notify publishes agent health alerts over MQTT so operators
// can watch the agent from a broker dashboard. The publisher is
// optional; when disabled the pipeline runs exactly the same, just
// silently.
package notify

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/soline/banter/internal/config"
)

// Alert is one health observation worth pushing to operators.
type Alert struct {
	Severity  string    `json:"severity"` // high, medium, low
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher manages the MQTT connection and pushes alerts and a
// periodic availability heartbeat.
type Publisher struct {
	cfg    config.AlertsConfig
	logger *slog.Logger
	cm     *autopaho.ConnectionManager
}

// New creates a Publisher but does not connect. Call [Publisher.Start]
// to begin the connection.
func New(cfg config.AlertsConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{cfg: cfg, logger: logger}
}

// Start connects to the broker and blocks until ctx is cancelled. On
// every (re-)connect it publishes an "online" availability message; the
// will message marks the agent offline if the connection drops.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	availTopic := p.availabilityTopic()

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   availTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("mqtt connected to broker", "broker", p.cfg.Broker)
			p.publishAvailability(ctx, cm, "online")
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "banter-" + p.cfg.DeviceName,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		// autopaho keeps retrying in the background.
		p.logger.Warn("mqtt initial connection timed out, will retry in background", "error", err)
	}

	<-ctx.Done()
	return nil
}

// Stop publishes an "offline" availability message and disconnects.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	p.publishAvailability(ctx, p.cm, "offline")
	return p.cm.Disconnect(ctx)
}

// PublishAlert pushes one alert to the broker. Publish failures are
// logged, not returned: alerting must never break the pipeline.
func (p *Publisher) PublishAlert(ctx context.Context, alert Alert) {
	if p.cm == nil {
		return
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		p.logger.Error("mqtt marshal alert", "error", err)
		return
	}

	if _, err := p.cm.Publish(ctx, &paho.Publish{
		Topic:   p.alertTopic(alert.Severity),
		Payload: payload,
		QoS:     1,
	}); err != nil {
		p.logger.Warn("mqtt alert publish failed", "severity", alert.Severity, "error", err)
		return
	}
	p.logger.Debug("mqtt alert published", "severity", alert.Severity)
}

func (p *Publisher) baseTopic() string {
	return "banter/" + p.cfg.DeviceName
}

func (p *Publisher) availabilityTopic() string {
	return p.baseTopic() + "/availability"
}

func (p *Publisher) alertTopic(severity string) string {
	return p.baseTopic() + "/alerts/" + severity
}

func (p *Publisher) publishAvailability(ctx context.Context, cm *autopaho.ConnectionManager, status string) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   p.availabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		p.logger.Warn("mqtt availability publish failed", "status", status, "error", err)
	} else {
		p.logger.Info("mqtt availability published", "status", status)
	}
}
