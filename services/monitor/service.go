// Package monitor polls the charger on a fixed interval. Polling the
// consumer supply view is what advances the low-power debouncer, so a
// depleted battery reported as "discharging while plugged" eventually
// shows up as offline on the bus.
package monitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"chargerd-go/bus"
	"chargerd-go/types"
	"chargerd-go/x/jsonx"
)

var (
	topicConfigMonitor = bus.T("config", "monitor")
	TopicBattery       = bus.T("power", "battery", "value")
	topicSupply        = bus.T("power", "supply")
)

const DefaultInterval = 5 * time.Second

// Source is the slice of the charger the monitor reads.
type Source interface {
	Supply(kind types.SupplyKind) types.SupplyValue
	Battery() types.BatteryValue
}

// Config is the JSON payload on config/monitor.
type Config struct {
	IntervalMS int `json:"interval_ms"`
}

type Service struct {
	src Source
	log *logrus.Entry

	last map[types.SupplyKind]types.SupplyValue
}

func New(src Source, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		src:  src,
		log:  log.WithField("svc", "monitor"),
		last: map[types.SupplyKind]types.SupplyValue{},
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, interval time.Duration) {
	cfgSub := conn.Subscribe(topicConfigMonitor)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(interval)
	defer tick.Stop()

	s.poll(conn)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("monitor stopping")
			return
		case <-tick.C:
			s.poll(conn)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			var cfg Config
			if err := jsonx.Decode(msg.Payload, &cfg); err != nil || cfg.IntervalMS <= 0 {
				s.log.WithError(err).WithField("payload", msg.Payload).Warn("ignoring monitor config")
				continue
			}
			d := time.Duration(cfg.IntervalMS) * time.Millisecond
			tick.Reset(d)
			s.log.WithField("interval", d).Info("monitor interval set")
		}
	}
}

// poll publishes battery telemetry every time and a supply view only when
// it differs from the last one seen here.
func (s *Service) poll(conn *bus.Connection) {
	for _, k := range []types.SupplyKind{types.SupplyAC, types.SupplyUSB} {
		v := s.src.Supply(k)
		if old, ok := s.last[k]; ok && old == v {
			continue
		}
		s.last[k] = v
		conn.Publish(conn.NewMessage(topicSupply.Append(k.String(), "value"), v, true))
	}
	b := s.src.Battery()
	conn.Publish(conn.NewMessage(TopicBattery, b, true))
	s.log.WithFields(logrus.Fields{
		"soc":     b.SOC,
		"avg_mA":  b.AvgMilliA,
		"plugged": b.Plugged,
	}).Debug("poll")
}

// Start runs the monitor until ctx is cancelled.
func (s *Service) Start(ctx context.Context, conn *bus.Connection, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	go s.serviceLoop(ctx, conn, interval)
}
