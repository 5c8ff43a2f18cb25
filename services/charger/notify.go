package charger

import (
	"chargerd-go/bus"
	"chargerd-go/types"
	"chargerd-go/x/timex"
)

var (
	TopicSupply  = bus.T("power", "supply") // + <ac|usb>/value
	TopicCharger = bus.T("power", "charger", "value")
	TopicEvent   = bus.T("power", "charger", "event")
)

// notes collects what a handler wants published once the lock is dropped.
type notes struct {
	changed bool
	events  []types.ChargerEvent
}

func (n *notes) event(tag, msg string) {
	n.events = append(n.events, types.ChargerEvent{Tag: tag, TSms: timex.NowMs(), Msg: msg})
}

func (c *Charger) flush(n *notes) {
	if c.conn == nil {
		return
	}
	for _, e := range n.events {
		c.conn.Publish(c.conn.NewMessage(TopicEvent, e, false))
	}
	if n.changed {
		c.publishState()
	}
}

// publishState is the status-changed notification: both supply views are
// always refreshed and consumers de-duplicate.
func (c *Charger) publishState() {
	for _, k := range []types.SupplyKind{types.SupplyAC, types.SupplyUSB} {
		v := c.Supply(k)
		c.conn.Publish(c.conn.NewMessage(TopicSupply.Append(k.String(), "value"), v, true))
	}
	c.conn.Publish(c.conn.NewMessage(TopicCharger, c.Value(), true))
}
