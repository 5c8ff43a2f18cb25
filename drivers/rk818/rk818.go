// Package rk818 provides a minimal driver for the charger block of the
// Rockchip RK818 PMIC.
//
// Design notes:
// • I2C, 8-bit register sub-address, single-byte data.
// • Only the registers the charger arbitration touches are mapped.
// • UpdateBits skips the bus write when the masked value is unchanged.
// • INT_STS registers are write-1-to-clear.
package rk818

import (
	"tinygo.org/x/drivers"
)

// Regmap is the register access shim the charger engine drives.
type Regmap interface {
	Read(reg Reg) (byte, error)
	Write(reg Reg, v byte) error
	UpdateBits(reg Reg, mask, val byte) error
}

type Config struct {
	Address uint16
}

type Device struct {
	i2c  drivers.I2C
	addr uint16

	// Fixed buffers to avoid per-call heap allocations.
	w [2]byte
	r [1]byte
}

func New(i2c drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	return &Device{i2c: i2c, addr: addr}
}

func (d *Device) Addr() uint16 { return d.addr }

func (d *Device) Read(reg Reg) (byte, error) {
	d.w[0] = byte(reg)
	if err := d.i2c.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) Write(reg Reg, v byte) error {
	d.w[0] = byte(reg)
	d.w[1] = v
	return d.i2c.Tx(d.addr, d.w[:2], nil)
}

func (d *Device) UpdateBits(reg Reg, mask, val byte) error {
	cur, err := d.Read(reg)
	if err != nil {
		return err
	}
	next := (cur &^ mask) | (val & mask)
	if next == cur {
		return nil
	}
	return d.Write(reg, next)
}

// ---------------- Bitmask helpers over any Regmap ----------------

func SetBits(m Regmap, reg Reg, mask byte) error   { return m.UpdateBits(reg, mask, mask) }
func ClearBits(m Regmap, reg Reg, mask byte) error { return m.UpdateBits(reg, mask, 0) }

// ---------------- Charger programming ----------------

// ChargeCodes are the quantized register codes programmed at init.
type ChargeCodes struct {
	Voltage byte // CHRG_CTRL1 6:4, already shifted
	Current byte // CHRG_CTRL1 3:0
	Input   byte // USB_CTRL 3:0
}

// ApplyChargeCodes programs the input limit and the CC/CV targets and
// enables charging. Voltage limiting on VBUS is disabled and current
// limiting enabled.
func ApplyChargeCodes(m Regmap, c ChargeCodes) error {
	if err := m.UpdateBits(RegSupSts, USBVLimitEn|USBCLimitEn, USBCLimitEn); err != nil {
		return err
	}
	if err := SetInputCode(m, c.Input); err != nil {
		return err
	}
	return m.Write(RegChrgCtrl1, ChrgEn|(c.Voltage&ChrgVolMask)|(c.Current&ChrgCurMask))
}

// SetInputCode writes the input current limit code.
func SetInputCode(m Regmap, code byte) error {
	return m.UpdateBits(RegUSBCtrl, InputCurMask, code)
}

// InputCode reads back the programmed input current limit code.
func InputCode(m Regmap) (byte, error) {
	v, err := m.Read(RegUSBCtrl)
	return v & InputCurMask, err
}

// SetFinishMode selects digital or analog charge termination detection.
func SetFinishMode(m Regmap, digital bool) error {
	val := ChrgFinishAnalog
	if digital {
		val = ChrgFinishDigital
	}
	return m.UpdateBits(RegChrgCtrl3, ChrgFinishModeMask, val)
}

// SetOTGBoost switches the 5V boost output.
func SetOTGBoost(m Regmap, on bool) error {
	if on {
		return SetBits(m, RegDCDCEn, OTGEnMask)
	}
	return ClearBits(m, RegDCDCEn, OTGEnMask)
}

// MaskPlugIRQ masks or unmasks both plug interrupt sources.
func MaskPlugIRQ(m Regmap, masked bool) error {
	if masked {
		return SetBits(m, RegIntStsMsk2, PlugIntMask)
	}
	return ClearBits(m, RegIntStsMsk2, PlugIntMask)
}
