// bridge/bridge.go
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"chargerd-go/bus"
	"chargerd-go/x/jsonx"
)

// -----------------------------------------------------------------------------
// Public entry point
// -----------------------------------------------------------------------------

// Start runs the exporter until ctx is cancelled. It listens for JSON config
// on {"config","bridge"} and (re)establishes the broker link on every change.
func Start(ctx context.Context, conn *bus.Connection, log *logrus.Logger) {
	s := newService(conn, log)
	s.run(ctx)
}

func newService(conn *bus.Connection, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		conn:       conn,
		log:        log.WithField("svc", "bridge"),
		stateTopic: bus.T("bridge", "state"),
	}
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config is the JSON-encoded configuration expected on "config/bridge".
type Config struct {
	Transport TransportConfig `json:"transport"`

	// Prefix is prepended to every exported topic. Empty means "chargerd".
	Prefix string `json:"prefix,omitempty"`
	// Export lists bus filters to forward. Empty means power/#.
	Export []string `json:"export,omitempty"`
}

type TransportConfig struct {
	// "mqtt" (provided here) or other names registered via RegisterTransport.
	Type string      `json:"type"`
	MQTT *MQTTConfig `json:"mqtt,omitempty"`
}

const defaultPrefix = "chargerd"

func (c Config) prefix() string {
	if p := strings.Trim(c.Prefix, "/"); p != "" {
		return p
	}
	return defaultPrefix
}

func (c Config) filters() []bus.Topic {
	if len(c.Export) == 0 {
		return []bus.Topic{bus.T("power", "#")}
	}
	out := make([]bus.Topic, 0, len(c.Export))
	for _, f := range c.Export {
		if f = strings.Trim(f, "/"); f != "" {
			out = append(out, bus.Topic(strings.Split(f, "/")))
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	conn       *bus.Connection
	log        *logrus.Entry
	stateTopic bus.Topic

	mu     sync.Mutex
	curRun context.CancelFunc
	curCfg atomic.Value // stores Config

	exported atomic.Uint64
}

// run waits for config and supervises a single link instance.
func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.T("config", "bridge"))
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			var cfg Config
			if err := jsonx.Decode(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.mu.Lock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
	ctx, cancel := context.WithCancel(parent)
	s.curRun = cancel
	s.mu.Unlock()

	s.curCfg.Store(cfg)
	s.log.WithFields(logrus.Fields{
		"transport": cfg.Transport.Type,
		"prefix":    cfg.prefix(),
	}).Info("bridge reconfigured")
	go s.runLink(ctx, cfg)
}

// -----------------------------------------------------------------------------
// Link supervision and export
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg Config) {
	tr, err := newTransport(cfg.Transport, s.log)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		link, err := tr.Open(ctx, cfg.prefix())
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		err = s.handleLink(ctx, cfg, link)
		_ = link.Close()
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		// Clean close: restart only on new config.
		return
	}
}

// handleLink forwards matching bus traffic until ctx ends or a publish fails.
// Retained bus values are replayed on subscribe, so a fresh link always
// carries the current supply and charger state.
func (s *Service) handleLink(ctx context.Context, cfg Config, link Link) error {
	prefix := cfg.prefix()
	if err := link.Publish(prefix+"/availability", []byte("online"), true); err != nil {
		return err
	}

	fwdCtx, cancel := context.WithCancel(ctx)
	in := make(chan *bus.Message, 32)
	var wg sync.WaitGroup
	for _, f := range cfg.filters() {
		sub := s.conn.Subscribe(f)
		defer s.conn.Unsubscribe(sub)
		wg.Add(1)
		go func(ch <-chan *bus.Message) {
			defer wg.Done()
			for {
				select {
				case <-fwdCtx.Done():
					return
				case m, ok := <-ch:
					if !ok {
						return
					}
					select {
					case in <- m:
					case <-fwdCtx.Done():
						return
					}
				}
			}
		}(sub.Channel())
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = link.Publish(prefix+"/availability", []byte("offline"), true)
			return nil
		case err := <-link.Lost():
			return fmt.Errorf("connection lost: %w", err)
		case m := <-in:
			payload, err := encodePayload(m.Payload)
			if err != nil {
				s.log.WithError(err).WithField("topic", m.Topic.String()).Warn("export encode failed")
				continue
			}
			if err := link.Publish(prefix+"/"+m.Topic.String(), payload, m.Retained); err != nil {
				return err
			}
			s.exported.Add(1)
		}
	}
}

// Exported reports how many bus messages reached the broker.
func (s *Service) Exported() uint64 { return s.exported.Load() }

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Link is one live broker session.
type Link interface {
	Publish(topic string, payload []byte, retained bool) error
	// Lost yields once if the session drops underneath the exporter.
	Lost() <-chan error
	Close() error
}

// Transport is a pluggable link dialler.
type Transport interface {
	Open(ctx context.Context, prefix string) (Link, error)
	String() string
}

type transportFactory func(TransportConfig, *logrus.Entry) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]transportFactory{}
)

// RegisterTransport allows external packages to add transports.
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig, log *logrus.Entry) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg, log)
	}
	switch cfg.Type {
	case "mqtt":
		if cfg.MQTT == nil {
			return nil, errors.New("mqtt transport requires mqtt config")
		}
		return newMQTTTransport(*cfg.MQTT, log)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Type)
	}
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func encodePayload(p any) ([]byte, error) {
	switch v := p.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

func (s *Service) publishState(level, status string, err error) {
	payload := map[string]any{
		"level":  level,  // "up", "degraded", "error", "idle"
		"status": status, // short machine string
		"ts_ms":  time.Now().UnixMilli(),
	}
	e := s.log.WithFields(logrus.Fields{"level": level, "status": status})
	if err != nil {
		payload["error"] = err.Error()
		e = e.WithError(err)
	}
	switch level {
	case "error":
		e.Error("bridge state")
	case "degraded":
		e.Warn("bridge state")
	default:
		e.Info("bridge state")
	}
	s.conn.Publish(s.conn.NewMessage(s.stateTopic, payload, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
