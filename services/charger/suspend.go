package charger

import (
	"chargerd-go/drivers/rk818"
	"chargerd-go/errcode"
)

// Suspend snapshots the sleep-off register and decides whether the OTG
// boost stays powered through system sleep.
func (c *Charger) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.regs.Read(rk818.RegSleepSetOffReg)
	if err != nil {
		c.ioFail("read", rk818.RegSleepSetOffReg, err)
		return errcode.Wrap(errcode.MapDriverErr(err), "suspend", err)
	}
	c.sleepOff = v
	c.suspended = true

	if c.cfg.OTGSuspendRetain && c.st.otg && (!c.st.dc || !c.cfg.PowerDC2OTG) {
		err = rk818.ClearBits(c.regs, rk818.RegSleepSetOffReg, rk818.OTGBoostSleepOffMask)
		c.check("suspend", rk818.RegSleepSetOffReg, err)
		c.log.Info("suspend: otg 5v on")
		return errcode.Wrap(errcode.MapDriverErr(err), "suspend", err)
	}

	err = rk818.SetBits(c.regs, rk818.RegSleepSetOffReg, rk818.OTGSleepOff)
	c.check("suspend", rk818.RegSleepSetOffReg, err)
	c.log.Info("suspend: otg 5v off")
	return errcode.Wrap(errcode.MapDriverErr(err), "suspend", err)
}

// Resume restores the OTG and boost sleep-off bits saved by Suspend.
func (c *Charger) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.suspended {
		return nil
	}
	c.suspended = false
	err := c.regs.UpdateBits(rk818.RegSleepSetOffReg, rk818.OTGBoostSleepOffMask, c.sleepOff)
	c.check("resume", rk818.RegSleepSetOffReg, err)
	return errcode.Wrap(errcode.MapDriverErr(err), "resume", err)
}
