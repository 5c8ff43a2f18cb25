package charger

import (
	"chargerd-go/drivers/rk818"
	"chargerd-go/errcode"
	"chargerd-go/types"
	"chargerd-go/x/mathx"

	"github.com/sirupsen/logrus"
)

// Supply returns the consumer view of one supply. Transport errors never
// surface here; the last good or zero readings are used.
func (c *Charger) Supply(kind types.SupplyKind) types.SupplyValue {
	c.mu.Lock()
	defer c.mu.Unlock()

	fake := false
	if c.st.online() {
		fake = c.lowPowerCheck()
	}

	var v types.SupplyValue
	switch {
	case c.virtual:
		v = types.SupplyValue{Online: true, Status: types.StatusCharging}
	case fake:
		v = types.SupplyValue{Online: false, Status: types.StatusDischarging}
	default:
		v.Status = c.st.status
		if kind == types.SupplyAC {
			v.Online = c.st.ac || c.st.dc
		} else {
			v.Online = c.st.usb
		}
	}
	c.log.WithFields(logrus.Fields{
		"supply": kind,
		"online": v.Online,
		"status": v.Status,
	}).Debug("report")
	return v
}

// lowPowerCheck samples the gauge and feeds the debouncer. Caller holds c.mu.
func (c *Charger) lowPowerCheck() bool {
	var r Reading
	var err error
	if r.GaugeEnabled, err = rk818.GaugeEnabled(c.regs); err != nil {
		c.ioFail("read", rk818.RegTSCtrl, err)
		return false
	}
	if !r.GaugeEnabled {
		return false
	}
	r.SOC = c.soc()
	if r.AvgMilliA, err = rk818.AvgCurrentMilliA(c.regs, c.div); err != nil {
		c.ioFail("read", rk818.RegBatCurAvgH, err)
	}
	fake := c.lowpwr.Check(r, c.clock.Monotonic())
	if fake {
		c.log.WithFields(logrus.Fields{"soc": r.SOC, "current_mA": r.AvgMilliA}).Info("low power")
	}
	return fake
}

// Value returns the charger snapshot with limits read back from the PMIC.
func (c *Charger) Value() types.ChargerValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valueLocked()
}

func (c *Charger) valueLocked() types.ChargerValue {
	ctrl1 := c.read(rk818.RegChrgCtrl1)
	usb := c.read(rk818.RegUSBCtrl)

	vi := mathx.Clamp(int(ctrl1&rk818.ChrgVolMask)>>rk818.ChrgVolShift, 0, len(rk818.ChargeMilliVTable)-1)
	ci := mathx.Clamp(int(ctrl1&rk818.ChrgCurMask), 0, len(rk818.ChargeMilliATable)-1)
	ii := mathx.Clamp(int(usb&rk818.InputCurMask), 0, len(rk818.InputMilliATable)-1)

	return types.ChargerValue{
		AC:           c.st.ac,
		USB:          c.st.usb,
		DC:           c.st.dc,
		OTG:          c.st.otg,
		Status:       c.st.status,
		Virtual:      c.virtual,
		ChargeMilliV: int32(rk818.ChargeMilliVTable[vi]),
		ChargeMilliA: int32(rk818.ChargeMilliATable[ci] * c.div),
		InputMilliA:  int32(rk818.InputMilliATable[ii]),
		Err:          string(c.lastErr),
	}
}

// Battery reads gauge telemetry. Failed reads leave their fields zero and
// set Err.
func (c *Charger) Battery() types.BatteryValue {
	c.mu.Lock()
	defer c.mu.Unlock()

	in, err := rk818.ReadInfo(c.regs, c.div)
	v := types.BatteryValue{
		Present:   in.Battery,
		Plugged:   in.Plugged,
		Gauge:     in.GaugeEnabled,
		SOC:       int32(in.SOC),
		AvgMilliA: int32(in.AvgMilliA),
	}
	if err != nil {
		c.ioFail("read_info", 0, err)
		v.Err = string(errcode.MapDriverErr(err))
	}
	return v
}
