package charger

import (
	"errors"
	"time"

	"chargerd-go/drivers/rk818"
	"chargerd-go/errcode"
)

var (
	ErrInputCurrent  = errors.New("max input current must be positive")
	ErrChargeCurrent = errors.New("max charge current must be positive")
	ErrChargeVoltage = errors.New("max charge voltage must be positive")
	ErrSampleRes     = errors.New("sample resistor must be 10 or 20 mOhm")
	ErrTiming        = errors.New("timing knobs must not be negative")
	ErrLowPowerDwell = errors.New("low power dwell must be positive")
	ErrDCPinMissing  = errors.New("dc detect enabled without a dc pin")
	ErrCableMissing  = errors.New("type-c mode without a cable state source")
	ErrNoRegmap      = errors.New("no register access")
)

// Config is fixed for the lifetime of a Charger.
type Config struct {
	MaxInputMilliA    int
	MaxChargeMilliA   int
	MaxChargeMilliV   int
	SampleResMilliOhm int

	DCDetect    bool
	DCActiveLow bool

	// DC adapter feeds the OTG rail directly while present.
	PowerDC2OTG bool
	// Keep the OTG boost alive across system sleep.
	OTGSuspendRetain bool
	VirtualPower     bool
	// Cable state comes from Type-C queries instead of BC detection.
	TypeC bool

	SettleDelay    time.Duration
	FinishSigDelay time.Duration
	LowPowerDwell  time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxInputMilliA:    2000,
		MaxChargeMilliA:   1400,
		MaxChargeMilliV:   4200,
		SampleResMilliOhm: rk818.SampleRes20mOhm,
		OTGSuspendRetain:  true,
		SettleDelay:       10 * time.Millisecond,
		FinishSigDelay:    time.Second,
		LowPowerDwell:     30 * time.Second,
	}
}

func (c Config) Validate() error {
	var err error
	switch {
	case c.MaxInputMilliA <= 0:
		err = ErrInputCurrent
	case c.MaxChargeMilliA <= 0:
		err = ErrChargeCurrent
	case c.MaxChargeMilliV <= 0:
		err = ErrChargeVoltage
	case c.SampleResMilliOhm != rk818.SampleRes10mOhm && c.SampleResMilliOhm != rk818.SampleRes20mOhm:
		err = ErrSampleRes
	case c.SettleDelay < 0 || c.FinishSigDelay < 0:
		err = ErrTiming
	case c.LowPowerDwell <= 0:
		// A zero dwell would declare low power on the first depleted sample.
		err = ErrLowPowerDwell
	}
	if err != nil {
		return &errcode.E{C: errcode.InvalidConfig, Op: "validate", Err: err}
	}
	return nil
}

// codes quantizes the configured targets once; transitions reuse them.
func (c Config) codes() (rk818.ChargeCodes, int) {
	div := rk818.SampleResDivisor(c.SampleResMilliOhm)
	return rk818.Codes(c.MaxChargeMilliV, c.MaxChargeMilliA, c.MaxInputMilliA, div), div
}
