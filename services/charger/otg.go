package charger

import (
	"chargerd-go/drivers/rk818"
)

// setOTG switches the 5V boost. Plug interrupts are masked while the boost
// runs since its transition glitches the plug-detect line. Caller holds c.mu.
func (c *Charger) setOTG(on bool, n *notes) {
	if on == c.st.otg {
		c.log.WithField("on", on).Info("otg5v already in requested state, ignoring")
		return
	}
	if on {
		c.otgMasked.Store(true)
		c.check("mask_plug_irq", rk818.RegIntStsMsk2, rk818.MaskPlugIRQ(c.regs, true))
		c.check("otg_on", rk818.RegDCDCEn, rk818.SetOTGBoost(c.regs, true))
		c.st.otg = true
		c.log.Info("enable otg5v")
		n.event("otg_on", "")
	} else {
		c.check("otg_off", rk818.RegDCDCEn, rk818.SetOTGBoost(c.regs, false))
		c.check("unmask_plug_irq", rk818.RegIntStsMsk2, rk818.MaskPlugIRQ(c.regs, false))
		c.otgMasked.Store(false)
		c.st.otg = false
		c.log.Info("disable otg5v")
		n.event("otg_off", "")
	}
	n.changed = true
}

// requestOTG records a cable-side OTG request and honours the DC power
// sharing interlock. Caller holds c.mu.
func (c *Charger) requestOTG(on bool, n *notes) {
	c.st.otgWanted = on
	if on && c.cfg.PowerDC2OTG && c.st.dc {
		c.log.Info("otg power from dc adapter")
		return
	}
	c.setOTG(on, n)
}
