package rk818

// Supported hardware values, ascending. The table index is the register code.
var (
	ChargeMilliVTable = [...]int{4050, 4100, 4150, 4200, 4250, 4300, 4350}
	ChargeMilliATable = [...]int{1000, 1200, 1400, 1600, 1800, 2000, 2250, 2400, 2600, 2800, 3000}
	InputMilliATable  = [...]int{450, 800, 850, 1000, 1250, 1500, 1750, 2000, 2250, 2500, 2750, 3000}
)

// Fixed input limit codes used by the source transitions.
const (
	InputCode450mA  byte = 0x00
	InputCode1500mA byte = 0x05
)

// Sense resistor values in milliohm and their current divisors.
const (
	SampleRes20mOhm = 20
	SampleRes10mOhm = 10

	lowResFloorMilliA = 1000
	lowResKneeMilliA  = 2000
)

// SampleResDivisor returns the current divisor for a sense resistor.
func SampleResDivisor(mOhm int) int {
	if mOhm == SampleRes10mOhm {
		return 2
	}
	return 1
}

// Quantize returns the index of the largest entry not exceeding req. A
// request below the first entry yields 0; above the last, the last index.
func Quantize(req int, table []int) int {
	idx := 0
	for i, v := range table {
		if v > req {
			break
		}
		idx = i
	}
	return idx
}

// ChargeVoltageCode returns the CHRG_CTRL1 voltage field, already shifted.
func ChargeVoltageCode(mV int) byte {
	return byte(Quantize(mV, ChargeMilliVTable[:])) << ChrgVolShift
}

// InputCurrentCode returns the USB_CTRL input limit code.
func InputCurrentCode(mA int) byte {
	return byte(Quantize(mA, InputMilliATable[:]))
}

// ChargeCurrentCode returns the CHRG_CTRL1 current field. With the low
// resistance sense resistor the effective request is divided above 2 A
// and floored to 1 A otherwise.
func ChargeCurrentCode(mA, divisor int) byte {
	if divisor > 1 {
		if mA > lowResKneeMilliA {
			mA /= divisor
		} else {
			mA = lowResFloorMilliA
		}
	}
	return byte(Quantize(mA, ChargeMilliATable[:]))
}

// Codes quantizes a full set of charge targets.
func Codes(chargeMilliV, chargeMilliA, inputMilliA, divisor int) ChargeCodes {
	return ChargeCodes{
		Voltage: ChargeVoltageCode(chargeMilliV),
		Current: ChargeCurrentCode(chargeMilliA, divisor),
		Input:   InputCurrentCode(inputMilliA),
	}
}
