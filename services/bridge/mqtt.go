package bridge

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// MQTTConfig selects the broker. Credentials ride in the URL userinfo.
type MQTTConfig struct {
	URL              string `json:"url"`
	ClientID         string `json:"client_id,omitempty"`
	QoS              byte   `json:"qos,omitempty"`
	PublishTimeoutMS int    `json:"publish_timeout_ms,omitempty"`
}

const defaultPublishTimeout = 5 * time.Second

type mqttTransport struct {
	cfg    MQTTConfig
	broker string
	scheme string
	user   *url.Userinfo
	log    *logrus.Entry
}

// brokerURL maps mqtt:// and mqtts:// onto the schemes paho dials.
func brokerURL(raw string) (string, *url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, fmt.Errorf("invalid MQTT URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return raw, u, nil
	case "mqtt":
		return strings.Replace(raw, "mqtt://", "tcp://", 1), u, nil
	case "mqtts":
		return strings.Replace(raw, "mqtts://", "ssl://", 1), u, nil
	default:
		return "", nil, fmt.Errorf("unsupported protocol scheme: %q (supported: ws, wss, mqtt, mqtts)", u.Scheme)
	}
}

func newMQTTTransport(cfg MQTTConfig, log *logrus.Entry) (Transport, error) {
	if cfg.URL == "" {
		return nil, errors.New("mqtt url required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("mqtt qos %d out of range", cfg.QoS)
	}
	b, u, err := brokerURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "chargerd"
	}
	return &mqttTransport{cfg: cfg, broker: b, scheme: u.Scheme, user: u.User, log: log}, nil
}

func (t *mqttTransport) String() string { return "mqtt" }

func (t *mqttTransport) Open(ctx context.Context, prefix string) (Link, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.broker)
	opts.SetClientID(t.cfg.ClientID)
	opts.SetCleanSession(true)
	// The supervisor redials; paho must not race it.
	opts.SetAutoReconnect(false)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(time.Second)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetWill(prefix+"/availability", "offline", 1, true)
	if t.scheme == "mqtts" || t.scheme == "wss" {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if t.user != nil {
		opts.SetUsername(t.user.Username())
		pw, _ := t.user.Password()
		opts.SetPassword(pw)
	}

	lost := make(chan error, 1)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		t.log.WithError(err).Warn("MQTT connection lost")
		select {
		case lost <- err:
		default:
		}
	})

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		c.Disconnect(0)
		return nil, ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	t.log.WithFields(logrus.Fields{
		"broker":    cleanURL(t.cfg.URL),
		"protocol":  t.scheme,
		"client_id": t.cfg.ClientID,
	}).Info("MQTT client connected")

	timeout := defaultPublishTimeout
	if t.cfg.PublishTimeoutMS > 0 {
		timeout = time.Duration(t.cfg.PublishTimeoutMS) * time.Millisecond
	}
	return &mqttLink{c: c, qos: t.cfg.QoS, timeout: timeout, lost: lost, log: t.log}, nil
}

type mqttLink struct {
	c       mqtt.Client
	qos     byte
	timeout time.Duration
	lost    chan error
	log     *logrus.Entry
}

func (l *mqttLink) Publish(topic string, payload []byte, retained bool) error {
	tok := l.c.Publish(topic, l.qos, retained, payload)
	if !tok.WaitTimeout(l.timeout) {
		return fmt.Errorf("publish to topic %s timed out after %s", topic, l.timeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	l.log.WithFields(logrus.Fields{
		"topic":    topic,
		"size":     len(payload),
		"retained": retained,
	}).Debug("published")
	return nil
}

func (l *mqttLink) Lost() <-chan error { return l.lost }

func (l *mqttLink) Close() error {
	if l.c.IsConnected() {
		l.c.Disconnect(250)
	}
	return nil
}

// cleanURL masks credentials for logging.
func cleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		u.User = url.UserPassword("***", "***")
	}
	return u.String()
}
