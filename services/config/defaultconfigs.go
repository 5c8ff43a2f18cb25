package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON document, one section per service
// -----------------------------------------------------------------------------

// BC detection, DC jack on a GPIO, boost kept through sleep.
const cfgRK3399Ref = `{
  "charger": {
    "i2c_bus": "1",
    "addr": 28,
    "dc_pin": "GPIO17",
    "int_pin": "GPIO4",
    "max_input_ma": 2000,
    "max_charge_ma": 1400,
    "max_charge_mv": 4200,
    "sample_res_mohm": 20,
    "dc_detect": true,
    "dc_active_low": false,
    "power_dc2otg": true,
    "otg_suspend_retain": true,
    "settle_ms": 10,
    "finish_sig_ms": 1000,
    "low_power_dwell_ms": 30000
  },
  "bridge": {
    "transport": {"type": "mqtt", "mqtt": {"url": "mqtt://localhost:1883", "client_id": "chargerd-rk3399"}},
    "prefix": "chargerd/rk3399-ref"
  },
  "monitor": {"interval_ms": 5000}
}`

const cfgTypeC = `{
  "charger": {
    "i2c_bus": "0",
    "addr": 28,
    "int_pin": "GPIO5",
    "max_input_ma": 3000,
    "max_charge_ma": 2500,
    "max_charge_mv": 4350,
    "sample_res_mohm": 10,
    "typec": true,
    "otg_suspend_retain": false
  }
}`

// No battery fitted.
const cfgBench = `{
  "charger": {
    "i2c_bus": "1",
    "virtual_power": true,
    "max_input_ma": 1500
  }
}`

var embeddedConfigs = map[string][]byte{
	"rk3399-ref": []byte(cfgRK3399Ref),
	"typec":      []byte(cfgTypeC),
	"bench":      []byte(cfgBench),
}
