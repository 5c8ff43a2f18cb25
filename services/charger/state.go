package charger

import (
	"chargerd-go/drivers/rk818"
	"chargerd-go/types"

	"github.com/sirupsen/logrus"
)

// Source is one charge-source transition.
type Source uint8

const (
	NoSource Source = iota
	SourceUSB
	SourceAC
	SourceCDP // high-current USB downstream port
	SourceDC
	SourceDCNone // DC adapter departed
)

func (s Source) String() string {
	switch s {
	case NoSource:
		return "none"
	case SourceUSB:
		return "usb"
	case SourceAC:
		return "ac"
	case SourceCDP:
		return "cdp"
	case SourceDC:
		return "dc"
	case SourceDCNone:
		return "dc_none"
	default:
		return "unknown"
	}
}

const finishSigKey = "finish_sig"

// apply runs one transition. Caller holds c.mu.
func (c *Charger) apply(src Source, n *notes) {
	st := &c.st
	switch src {
	case NoSource:
		st.usb, st.ac = false, false
		if !st.dc {
			st.status = types.StatusDischarging
			c.setInput(rk818.InputCode450mA)
		}
	case SourceUSB:
		st.usb, st.ac = true, false
		st.status = types.StatusCharging
		if !st.dc {
			c.setInput(rk818.InputCode450mA)
		}
	case SourceAC, SourceCDP:
		st.ac, st.usb = true, false
		st.status = types.StatusCharging
		if src == SourceAC {
			c.setInput(c.codes.Input)
		} else {
			c.setInput(rk818.InputCode1500mA)
		}
	case SourceDC:
		st.dc = true
		st.status = types.StatusCharging
		c.setInput(c.codes.Input)
	case SourceDCNone:
		st.dc = false
		if !c.plugPresent() {
			st.ac, st.usb = false, false
			st.status = types.StatusDischarging
			c.setInput(rk818.InputCode450mA)
		} else if st.usb {
			// usb_in is trusted here without re-probing the cable.
			c.setInput(rk818.InputCode450mA)
			st.status = types.StatusCharging
		}
	default:
		st.status = types.StatusDischarging
	}

	if st.online() && c.soc() == 100 {
		st.status = types.StatusFull
	}
	if !st.online() {
		// The next source starts a fresh dwell.
		c.lowpwr.Reset()
	}
	n.changed = true

	c.finQ.PostCoalesced(finishSigKey, c.cfg.FinishSigDelay, c.finishSigWork)
	c.checkInvariant(src, n)
}

// checkInvariant flags a status claiming charge with no source behind it.
func (c *Charger) checkInvariant(src Source, n *notes) {
	if c.virtual || c.st.online() || c.st.status == types.StatusDischarging {
		return
	}
	c.invariants.Add(1)
	f := c.flagFields()
	f["source"] = src
	f["invariant"] = "status_without_source"
	c.log.WithFields(f).Error("charger state invariant violated")
	n.event("invariant", "status "+c.st.status.String()+" without source after "+src.String())
}

func (c *Charger) finishSigWork() {
	c.mu.Lock()
	defer c.mu.Unlock()
	online := c.st.online()
	c.setFinishSig(online)
	c.log.WithField("digital", online).Debug("finish signal refreshed")
}

// prInfo logs flags and the limits read back from the registers.
func (c *Charger) prInfo(what string) {
	v := c.valueLocked()
	c.log.WithFields(logrus.Fields{
		"event":    what,
		"ac":       v.AC,
		"usb":      v.USB,
		"dc":       v.DC,
		"otg":      v.OTG,
		"status":   v.Status,
		"chrg_mV":  v.ChargeMilliV,
		"chrg_mA":  v.ChargeMilliA,
		"input_mA": v.InputMilliA,
		"virtual":  v.Virtual,
	}).Info("charger state")
}
