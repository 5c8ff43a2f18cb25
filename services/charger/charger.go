// Package charger arbitrates RK818 power-source events (BC or Type-C cable
// detection, PMIC plug interrupts, a GPIO-sensed DC adapter, OTG requests)
// into one charging configuration written to the PMIC.
//
// Producers never touch state directly: each posts a task to its domain's
// Serializer. Every task takes Charger.mu for its whole run, so handlers
// from different domains are mutually exclusive as well.
package charger

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"chargerd-go/bus"
	"chargerd-go/drivers/rk818"
	"chargerd-go/errcode"
	"chargerd-go/types"
	"chargerd-go/x/timex"

	"github.com/sirupsen/logrus"
)

// DCPin reports the raw level of the DC-detect line.
type DCPin interface {
	Get() bool
}

// CableState answers Type-C cable-state queries.
type CableState interface {
	CableState(c types.Cable) bool
}

// Options carries the collaborators of a Charger.
type Options struct {
	Regs rk818.Regmap
	// Required when Config.DCDetect is set.
	DCPin DCPin
	// Required when Config.TypeC is set.
	Cable CableState
	// BC type already detected at attach (BC mode only).
	InitialBC types.BCEvent

	Conn  *bus.Connection
	Clock timex.Clock
	Log   *logrus.Logger
}

type state struct {
	ac, usb, dc, otg bool
	status           types.SupplyStatus

	// Last OTG request from the cable path; survives a DC-forced off.
	otgWanted bool
}

func (s *state) online() bool { return s.ac || s.usb || s.dc }

type Diagnostics struct {
	IOErrors       uint64
	Invariants     uint64
	MaskedIRQDrops uint64
}

type Charger struct {
	cfg   Config
	regs  rk818.Regmap
	dcPin DCPin
	cable CableState
	conn  *bus.Connection
	clock timex.Clock
	log   *logrus.Entry

	codes   rk818.ChargeCodes
	div     int
	virtual bool

	usbQ *Serializer // BC / Type-C / plug IRQ
	dcQ  *Serializer
	finQ *Serializer // finish signal refresh

	mu        sync.Mutex
	st        state
	lowpwr    *Debouncer
	sleepOff  byte
	suspended bool
	lastErr   errcode.Code

	otgMasked  atomic.Bool
	closed     atomic.Bool
	closeOnce  sync.Once
	ioErrs     atomic.Uint64
	invariants atomic.Uint64
	irqDrops   atomic.Uint64
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Attach validates the configuration, programs the charger registers and
// applies the initial DC and USB source states. No Charger is returned on
// a configuration error.
func Attach(cfg Config, opts Options) (*Charger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Regs == nil {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "attach", Err: ErrNoRegmap}
	}
	if cfg.DCDetect && opts.DCPin == nil {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "attach", Err: ErrDCPinMissing}
	}
	if cfg.TypeC && opts.Cable == nil {
		return nil, &errcode.E{C: errcode.InvalidConfig, Op: "attach", Err: ErrCableMissing}
	}
	lg := opts.Log
	if lg == nil {
		lg = discardLogger()
	}
	clk := opts.Clock
	if clk == nil {
		clk = timex.System()
	}

	c := &Charger{
		cfg:     cfg,
		regs:    opts.Regs,
		dcPin:   opts.DCPin,
		cable:   opts.Cable,
		conn:    opts.Conn,
		clock:   clk,
		log:     lg.WithField("svc", "charger"),
		virtual: cfg.VirtualPower,
		lowpwr:  NewDebouncer(cfg.LowPowerDwell),
	}
	c.codes, c.div = cfg.codes()

	if ok, err := rk818.BatteryPresent(c.regs); err != nil {
		c.ioFail("read", rk818.RegSupSts, err)
	} else if !ok {
		c.log.Info("battery absent, forcing virtual power")
		c.virtual = true
	}

	c.usbQ = NewSerializer("usb", c.log)
	c.dcQ = NewSerializer("dc", c.log)
	c.finQ = NewSerializer("finish_sig", c.log)

	c.log.WithFields(logrus.Fields{
		"input_mA":  cfg.MaxInputMilliA,
		"chrg_mA":   cfg.MaxChargeMilliA,
		"chrg_mV":   cfg.MaxChargeMilliV,
		"res_mOhm":  cfg.SampleResMilliOhm,
		"type_c":    cfg.TypeC,
		"dc_detect": cfg.DCDetect,
		"dc2otg":    cfg.PowerDC2OTG,
		"virtual":   c.virtual,
	}).Debug("attach")

	dcSrc := SourceDCNone
	if cfg.DCDetect && c.dcPresent() {
		dcSrc = SourceDC
	}
	usbSrc := NoSource
	if !cfg.TypeC {
		usbSrc = initialBCSource(opts.InitialBC)
	}

	c.handle("init", func(n *notes) {
		c.check("init_config", rk818.RegChrgCtrl1, rk818.ApplyChargeCodes(c.regs, c.codes))
		c.setFinishSig(c.st.online())
		c.apply(dcSrc, n)
		c.apply(usbSrc, n)
		c.log.WithFields(c.flagFields()).Info("initial state")
	})

	if cfg.TypeC {
		c.usbQ.Post(0, c.hostWork)
		c.usbQ.Post(0, c.chargerWork)
	}
	return c, nil
}

// Close cancels all pending work, forces OTG off and puts the termination
// detector back in analog mode. Producers calling in afterwards are no-ops.
func (c *Charger) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.usbQ.Close()
		c.dcQ.Close()
		c.finQ.Close()

		var n notes
		c.mu.Lock()
		c.setOTG(false, &n)
		c.setFinishSig(false)
		c.log.WithFields(c.flagFields()).Info("shutdown")
		c.mu.Unlock()
		c.flush(&n)
	})
	return nil
}

// Flush waits for every task queued so far in all domains, including the
// finish signal refresh they arm.
func (c *Charger) Flush(ctx context.Context) error {
	for _, q := range []*Serializer{c.usbQ, c.dcQ, c.finQ} {
		if err := q.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Charger) Diagnostics() Diagnostics {
	return Diagnostics{
		IOErrors:       c.ioErrs.Load(),
		Invariants:     c.invariants.Load(),
		MaskedIRQDrops: c.irqDrops.Load(),
	}
}

// Virtual reports whether virtual power mode is in effect.
func (c *Charger) Virtual() bool { return c.virtual }

// handle runs fn under the state lock, logs the resulting snapshot and then
// publishes whatever fn noted.
func (c *Charger) handle(what string, fn func(n *notes)) {
	var n notes
	c.mu.Lock()
	fn(&n)
	if n.changed {
		c.prInfo(what)
	}
	c.mu.Unlock()
	c.flush(&n)
}

// ---------------- Register access with best-effort semantics ----------------

func (c *Charger) ioFail(op string, reg rk818.Reg, err error) {
	c.ioErrs.Add(1)
	c.lastErr = errcode.MapDriverErr(err)
	c.log.WithFields(logrus.Fields{
		"op":  op,
		"reg": reg,
		"err": err,
	}).Warn("register access failed")
}

// check logs and counts a failed write; it reports success.
func (c *Charger) check(op string, reg rk818.Reg, err error) bool {
	if err != nil {
		c.ioFail(op, reg, err)
		return false
	}
	return true
}

// read returns the register value, or zero after logging a failure.
func (c *Charger) read(reg rk818.Reg) byte {
	v, err := c.regs.Read(reg)
	if err != nil {
		c.ioFail("read", reg, err)
		return 0
	}
	return v
}

func (c *Charger) soc() int { return int(c.read(rk818.RegSOC)) }

func (c *Charger) plugPresent() bool { return c.read(rk818.RegVBMon)&rk818.PlugInSts != 0 }

func (c *Charger) dcPresent() bool {
	if c.dcPin == nil {
		return false
	}
	return c.dcPin.Get() != c.cfg.DCActiveLow
}

func (c *Charger) setInput(code byte) {
	if c.virtual {
		c.log.Warn("virtual power mode, using configured input limit")
		code = c.codes.Input
	}
	c.check("set_input", rk818.RegUSBCtrl, rk818.SetInputCode(c.regs, code))
}

func (c *Charger) setFinishSig(digital bool) {
	c.check("finish_sig", rk818.RegChrgCtrl3, rk818.SetFinishMode(c.regs, digital))
}

func (c *Charger) flagFields() logrus.Fields {
	return logrus.Fields{
		"ac":     c.st.ac,
		"usb":    c.st.usb,
		"dc":     c.st.dc,
		"otg":    c.st.otg,
		"status": c.st.status,
	}
}
