package main

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"chargerd-go/drivers/rk818"
	"chargerd-go/services/charger"
	"chargerd-go/services/config"
	"chargerd-go/services/irq"
	"chargerd-go/services/platform"
	"chargerd-go/types"
)

type hardware struct {
	regs   rk818.Regmap
	dc     charger.DCPin
	dcIRQ  irq.Pin
	intIRQ irq.Pin
	cable  charger.CableState

	closers []func() error
}

func (h *hardware) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		_ = h.closers[i]()
	}
}

func openHardware(o options, p config.Profile, log *logrus.Logger) (*hardware, error) {
	switch o.Transport {
	case "sim":
		return openSim(o, p, log), nil
	case "periph":
		return openPeriph(p, log)
	default:
		return nil, fmt.Errorf("unknown transport %q (want sim or periph)", o.Transport)
	}
}

func openSim(o options, p config.Profile, log *logrus.Logger) *hardware {
	sim := rk818.NewSim()
	if !p.VirtualPower {
		sim.Set(rk818.RegSupSts, rk818.BatExists)
	}
	sim.Set(rk818.RegTSCtrl, rk818.GaugeEn)
	sim.Set(rk818.RegSOC, 50)

	dc := &simPin{}
	dc.level.Store(o.SimDC != p.DCActiveLow)

	regs := rk818.New(sim, rk818.Config{})
	log.WithField("dc", o.SimDC).Info("Using simulated PMIC")
	return &hardware{
		regs:  regs,
		dc:    dc,
		dcIRQ: dc,
		cable: &pmicCable{regs: regs, log: log},
	}
}

func openPeriph(p config.Profile, log *logrus.Logger) (*hardware, error) {
	h := &hardware{}
	b, err := platform.OpenI2C(p.I2CBus)
	if err != nil {
		return nil, err
	}
	h.closers = append(h.closers, b.Close)
	dev := rk818.New(b, rk818.Config{Address: p.Addr})
	h.regs = dev
	h.cable = &pmicCable{regs: h.regs, log: log}

	if p.DCPin != "" {
		pin, err := platform.OpenPin(p.DCPin, false)
		if err != nil {
			h.Close()
			return nil, err
		}
		h.dc, h.dcIRQ = pin, pin
	}
	if p.IntPin != "" {
		pin, err := platform.OpenPin(p.IntPin, true)
		if err != nil {
			h.Close()
			return nil, err
		}
		h.intIRQ = pin
	}
	log.WithFields(logrus.Fields{
		"i2c":  p.I2CBus,
		"addr": fmt.Sprintf("%#02x", dev.Addr()),
		"dc":   p.DCPin,
		"int":  p.IntPin,
	}).Info("Using periph hardware")
	return h, nil
}

// simPin is a DC-detect line with a fixed level.
type simPin struct{ level atomic.Bool }

func (s *simPin) Get() bool                     { return s.level.Load() }
func (s *simPin) SetIRQ(irq.Edge, func()) error { return nil }
func (s *simPin) ClearIRQ() error               { return nil }

// pmicCable answers cable queries from the PMIC plug status on boards
// without a Type-C port controller: a present plug reads as a standard
// downstream port and VBUS output is never requested.
type pmicCable struct {
	regs rk818.Regmap
	log  *logrus.Logger
}

func (c *pmicCable) CableState(k types.Cable) bool {
	switch k {
	case types.CableSDP, types.CableUSB:
		on, err := rk818.PlugPresent(c.regs)
		if err != nil {
			c.log.WithError(err).WithField("cable", k.String()).Warn("cable query failed")
			return false
		}
		return on
	default:
		return false
	}
}
