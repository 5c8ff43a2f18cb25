package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"chargerd-go/bus"
	"chargerd-go/x/jsonx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

var ErrUnknownDevice = errors.New("no embedded config for device")

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Devices lists the embedded board names.
func Devices() []string {
	out := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		out = append(out, k)
	}
	return out
}

// Document is a board config split by service key ("charger", "bridge", ...).
type Document map[string]json.RawMessage

// Embedded returns the document built into the binary for device.
func Embedded(device string) (Document, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, device)
	}
	return parse(raw)
}

// Load reads a document from a JSON file.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw)
}

func parse(raw []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("config is not a JSON object: %w", err)
	}
	return d, nil
}

// Profile decodes the "charger" section over DefaultProfile. A document
// without one yields the defaults.
func (d Document) Profile() (Profile, error) {
	p := DefaultProfile()
	raw, ok := d["charger"]
	if !ok {
		return p, nil
	}
	if err := jsonx.Decode([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("charger section: %w", err)
	}
	return p, nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	log  *logrus.Entry
}

func NewConfigService(log *logrus.Logger) *ConfigService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ConfigService{Name: serviceName, log: log.WithField("svc", serviceName)}
}

// Publish puts every section of doc on config/<key> as a retained raw
// JSON payload.
func (s *ConfigService) Publish(conn *bus.Connection, doc Document) {
	for k, v := range doc {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  []byte(v),
			Retained: true,
		})
	}
	s.log.WithField("sections", len(doc)).Info("config published")
}

// publishConfig resolves the device named in ctx and publishes its document.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}
	doc, err := Embedded(device)
	if err != nil {
		return err
	}
	s.Publish(conn, doc)
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.log.WithError(err).Error("config publish failed")
		}
	}()
}
