package rk818

import "chargerd-go/x/mathx"

// Current sense scaling: 1506 uA per LSB at 20 mOhm.
const curLSBuA = 1506

// GaugeEnabled reports whether the fuel gauge is running.
func GaugeEnabled(m Regmap) (bool, error) {
	v, err := m.Read(RegTSCtrl)
	return v&GaugeEn != 0, err
}

// SOC returns the reported capacity in percent.
func SOC(m Regmap) (int, error) {
	v, err := m.Read(RegSOC)
	return int(v), err
}

// AvgCurrentMilliA returns the gauge's averaged battery current; negative
// means discharge. div is the sample-resistor divisor (1 or 2).
func AvgCurrentMilliA(m Regmap, div int) (int, error) {
	hi, err := m.Read(RegBatCurAvgH)
	if err != nil {
		return 0, err
	}
	lo, err := m.Read(RegBatCurAvgL)
	if err != nil {
		return 0, err
	}
	raw := mathx.SignExtend(uint16(hi)<<8|uint16(lo), 12)
	if div <= 0 {
		div = 1
	}
	return int(raw) * div * curLSBuA / 1000, nil
}

func BatteryPresent(m Regmap) (bool, error) {
	v, err := m.Read(RegSupSts)
	return v&BatExists != 0, err
}

// PlugPresent reports the live VBUS plug-in status.
func PlugPresent(m Regmap) (bool, error) {
	v, err := m.Read(RegVBMon)
	return v&PlugInSts != 0, err
}

// Info is a point-in-time snapshot used for diagnostics.
type Info struct {
	Plugged      bool
	Battery      bool
	GaugeEnabled bool
	SOC          int
	AvgMilliA    int
	InputCode    byte
	ChrgCtrl1    byte
	DCDCEn       byte
	IRQMask2     byte
}

// ReadInfo gathers an Info. Fields whose reads fail stay zero; the first
// error is returned.
func ReadInfo(m Regmap, div int) (Info, error) {
	var (
		in    Info
		first error
	)
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	var err error
	in.Plugged, err = PlugPresent(m)
	keep(err)
	in.Battery, err = BatteryPresent(m)
	keep(err)
	in.GaugeEnabled, err = GaugeEnabled(m)
	keep(err)
	in.SOC, err = SOC(m)
	keep(err)
	in.AvgMilliA, err = AvgCurrentMilliA(m, div)
	keep(err)
	in.InputCode, err = InputCode(m)
	keep(err)
	in.ChrgCtrl1, err = m.Read(RegChrgCtrl1)
	keep(err)
	in.DCDCEn, err = m.Read(RegDCDCEn)
	keep(err)
	in.IRQMask2, err = m.Read(RegIntStsMsk2)
	keep(err)
	return in, first
}
