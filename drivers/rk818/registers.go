// Package rk818 constants for the charger-related register addresses and
// bitfields of the RK818 PMIC.
package rk818

import "chargerd-go/x/conv"

// Reg is a byte register sub-address.
type Reg byte

func (r Reg) String() string {
	var b [4]byte
	return string(conv.U8Hex(b[:], uint8(r)))
}

const (
	// 7-bit I2C address.
	AddressDefault = 0x1C

	// --- Power path / boost ---
	RegVBMon          Reg = 0x21 // R: VBUS monitor
	RegDCDCEn         Reg = 0x23 // R/W: DC-DC and boost enables
	RegSleepSetOffReg Reg = 0x25 // R/W: rails forced off in sleep

	// --- Interrupts (bank 2: plug / charger) ---
	RegIntSts2    Reg = 0x4E // R/W1C
	RegIntStsMsk2 Reg = 0x4F // R/W: 1 = masked

	// --- Charger ---
	RegSupSts    Reg = 0xA0 // R/W
	RegUSBCtrl   Reg = 0xA1 // R/W
	RegChrgCtrl1 Reg = 0xA3 // R/W
	RegChrgCtrl3 Reg = 0xA5 // R/W
	RegTSCtrl    Reg = 0xAC // R/W

	// --- Fuel gauge readouts ---
	RegBatCurAvgH Reg = 0xBC // R: bits 11:8
	RegBatCurAvgL Reg = 0xBD // R: bits 7:0
	RegSOC        Reg = 0xE1 // R: reported capacity, percent
)

// VB_MON
const (
	PlugInSts byte = 1 << 6
)

// DCDC_EN
const (
	OTGEn   byte = 1 << 7
	BoostEn byte = 1 << 4

	OTGEnMask = OTGEn | BoostEn
)

// SLEEP_SET_OFF_REG1
const (
	OTGSleepOff   byte = 1 << 7
	BoostSleepOff byte = 1 << 4

	OTGBoostSleepOffMask = OTGSleepOff | BoostSleepOff
)

// INT_STS_REG2 / INT_STS_MSK_REG2
const (
	ChrgCVTLmtInt byte = 1 << 6
	PlugOutInt    byte = 1 << 1
	PlugInInt     byte = 1 << 0

	PlugIntMask = PlugInInt | PlugOutInt
)

// SUP_STS
const (
	BatExists   byte = 1 << 7
	USBVLimitEn byte = 1 << 3
	USBCLimitEn byte = 1 << 2
)

// USB_CTRL
const (
	InputCurMask byte = 0x0F
)

// CHRG_CTRL_REG1
const (
	ChrgEn       byte = 1 << 7
	ChrgVolMask  byte = 0x70
	ChrgVolShift      = 4
	ChrgCurMask  byte = 0x0F
)

// CHRG_CTRL_REG3
const (
	ChrgFinishModeMask byte = 1 << 5
	ChrgFinishAnalog   byte = 0
	ChrgFinishDigital  byte = 1 << 5
)

// TS_CTRL
const (
	GaugeEn byte = 1 << 7
)
