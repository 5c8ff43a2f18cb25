package types

// ------------------------
// Power supplies (consumer views)
// ------------------------

// SupplyKind selects one of the two consumer-facing supply views.
type SupplyKind uint8

const (
	SupplyAC SupplyKind = iota
	SupplyUSB
)

func (k SupplyKind) String() string {
	switch k {
	case SupplyAC:
		return "ac"
	case SupplyUSB:
		return "usb"
	default:
		return "unknown"
	}
}

// SupplyStatus is the externally reported charge status.
type SupplyStatus uint8

const (
	StatusDischarging SupplyStatus = iota
	StatusCharging
	StatusFull
)

func (s SupplyStatus) String() string {
	switch s {
	case StatusCharging:
		return "charging"
	case StatusFull:
		return "full"
	default:
		return "discharging"
	}
}

func (s SupplyStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Retained value: power/supply/<ac|usb>/value
type SupplyValue struct {
	Online bool         `json:"online"`
	Status SupplyStatus `json:"status"`
}

// Retained value: power/charger/value
type ChargerValue struct {
	AC      bool         `json:"ac"`
	USB     bool         `json:"usb"`
	DC      bool         `json:"dc"`
	OTG     bool         `json:"otg"`
	Status  SupplyStatus `json:"status"`
	Virtual bool         `json:"virtual"`

	// Read back from CHRG_CTRL1 / USB_CTRL after each worker run.
	ChargeMilliV int32 `json:"chrg_mV"`
	ChargeMilliA int32 `json:"chrg_mA"`
	InputMilliA  int32 `json:"input_mA"`

	Err string `json:"err,omitempty"`
}

// Retained value: power/battery/value
type BatteryValue struct {
	Present   bool  `json:"present"`
	Plugged   bool  `json:"plugged"`
	Gauge     bool  `json:"gauge"`
	SOC       int32 `json:"soc"`
	AvgMilliA int32 `json:"avg_mA"`

	Err string `json:"err,omitempty"`
}

// Non-retained: power/charger/event
type ChargerEvent struct {
	Tag  string `json:"tag"` // "wakeup", "otg_on", "otg_off", "invariant", ...
	TSms int64  `json:"ts_ms"`
	Msg  string `json:"msg,omitempty"`
}

// ------------------------
// Cable detection inputs
// ------------------------

// BCEvent is delivered by the USB battery-charging detector.
type BCEvent uint8

const (
	BCDisconnected BCEvent = iota
	BCSDP
	BCDCP
	BCCDP
	BCOtgOn
	BCOtgOff
)

func (e BCEvent) String() string {
	switch e {
	case BCDisconnected:
		return "DISCNT"
	case BCSDP:
		return "USB"
	case BCDCP:
		return "AC"
	case BCCDP:
		return "CDP1.5A"
	case BCOtgOn:
		return "OTG ON"
	case BCOtgOff:
		return "OTG OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseBCEvent accepts the lower-case control names used on the bus.
func ParseBCEvent(s string) (BCEvent, bool) {
	switch s {
	case "discnt":
		return BCDisconnected, true
	case "sdp":
		return BCSDP, true
	case "dcp":
		return BCDCP, true
	case "cdp":
		return BCCDP, true
	case "otg_on":
		return BCOtgOn, true
	case "otg_off":
		return BCOtgOff, true
	}
	return 0, false
}

// Cable identifies one Type-C cable-state query.
type Cable uint8

const (
	CableSDP Cable = iota
	CableDCP
	CableCDP
	CableVBUSEn
	CableUSB
)

func (c Cable) String() string {
	switch c {
	case CableSDP:
		return "sdp"
	case CableDCP:
		return "dcp"
	case CableCDP:
		return "cdp"
	case CableVBUSEn:
		return "vbus_en"
	case CableUSB:
		return "usb"
	default:
		return "unknown"
	}
}
