package config

import (
	"time"

	"chargerd-go/drivers/rk818"
	"chargerd-go/services/charger"
)

// Profile is the JSON form of a board's charger section. Durations are
// milliseconds.
type Profile struct {
	I2CBus string `json:"i2c_bus"`
	Addr   uint16 `json:"addr"`
	DCPin  string `json:"dc_pin,omitempty"`
	IntPin string `json:"int_pin,omitempty"`

	MaxInputMilliA    int  `json:"max_input_ma"`
	MaxChargeMilliA   int  `json:"max_charge_ma"`
	MaxChargeMilliV   int  `json:"max_charge_mv"`
	SampleResMilliOhm int  `json:"sample_res_mohm"`
	DCDetect          bool `json:"dc_detect"`
	DCActiveLow       bool `json:"dc_active_low"`
	PowerDC2OTG       bool `json:"power_dc2otg"`
	OTGSuspendRetain  bool `json:"otg_suspend_retain"`
	VirtualPower      bool `json:"virtual_power"`
	TypeC             bool `json:"typec"`

	SettleMS        int `json:"settle_ms"`
	FinishSigMS     int `json:"finish_sig_ms"`
	LowPowerDwellMS int `json:"low_power_dwell_ms"`
}

func DefaultProfile() Profile {
	c := charger.DefaultConfig()
	return Profile{
		I2CBus:            "1",
		Addr:              rk818.AddressDefault,
		MaxInputMilliA:    c.MaxInputMilliA,
		MaxChargeMilliA:   c.MaxChargeMilliA,
		MaxChargeMilliV:   c.MaxChargeMilliV,
		SampleResMilliOhm: c.SampleResMilliOhm,
		OTGSuspendRetain:  c.OTGSuspendRetain,
		SettleMS:          int(c.SettleDelay / time.Millisecond),
		FinishSigMS:       int(c.FinishSigDelay / time.Millisecond),
		LowPowerDwellMS:   int(c.LowPowerDwell / time.Millisecond),
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// ToCharger converts the profile; the result still needs Validate.
func (p Profile) ToCharger() charger.Config {
	return charger.Config{
		MaxInputMilliA:    p.MaxInputMilliA,
		MaxChargeMilliA:   p.MaxChargeMilliA,
		MaxChargeMilliV:   p.MaxChargeMilliV,
		SampleResMilliOhm: p.SampleResMilliOhm,
		DCDetect:          p.DCDetect,
		DCActiveLow:       p.DCActiveLow,
		PowerDC2OTG:       p.PowerDC2OTG,
		OTGSuspendRetain:  p.OTGSuspendRetain,
		VirtualPower:      p.VirtualPower,
		TypeC:             p.TypeC,
		SettleDelay:       ms(p.SettleMS),
		FinishSigDelay:    ms(p.FinishSigMS),
		LowPowerDwell:     ms(p.LowPowerDwellMS),
	}
}
