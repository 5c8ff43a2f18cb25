package charger

import (
	"context"

	"github.com/sirupsen/logrus"

	"chargerd-go/bus"
	"chargerd-go/errcode"
	"chargerd-go/types"
	"chargerd-go/x/jsonx"
)

// TopicControl carries producer requests from other services:
//
//	charger/ctl/bc       "sdp" | "dcp" | "cdp" | "discnt" | "otg_on" | "otg_off"
//	charger/ctl/otg      bool
//	charger/ctl/cable    "charger" | "host" | "usb"
//	charger/ctl/dc       any (re-sample the DC line)
//	charger/ctl/suspend  bool (true suspends, false resumes)
var TopicControl = bus.T("charger", "ctl")

// ServeControl routes control messages into the producers until ctx ends.
// Rejected requests are answered on power/charger/event with tag "ctl_error".
func (c *Charger) ServeControl(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(TopicControl.Append("+"))
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-sub.Channel():
			if !ok {
				return
			}
			if err := c.control(m.Topic[len(m.Topic)-1], m.Payload); err != nil {
				c.log.WithError(err).WithField("topic", m.Topic.String()).Warn("control rejected")
				var n notes
				n.event("ctl_error", err.Error())
				c.flush(&n)
			}
		}
	}
}

func (c *Charger) control(verb string, payload any) error {
	switch verb {
	case "bc":
		s, err := decodeString(payload)
		if err != nil {
			return errcode.Wrap(errcode.InvalidPayload, verb, err)
		}
		ev, ok := types.ParseBCEvent(s)
		if !ok {
			return &errcode.E{C: errcode.InvalidParams, Op: verb, Msg: s}
		}
		c.BCEvent(ev)
	case "otg":
		var on bool
		if err := jsonx.Decode(payload, &on); err != nil {
			return errcode.Wrap(errcode.InvalidPayload, verb, err)
		}
		c.RequestOTG(on)
	case "cable":
		s, err := decodeString(payload)
		if err != nil {
			return errcode.Wrap(errcode.InvalidPayload, verb, err)
		}
		switch s {
		case "charger":
			c.ChargerCableChanged()
		case "host":
			c.HostCableChanged()
		case "usb":
			c.USBCableChanged()
		default:
			return &errcode.E{C: errcode.InvalidParams, Op: verb, Msg: s}
		}
	case "dc":
		c.DCChanged()
	case "suspend":
		var on bool
		if err := jsonx.Decode(payload, &on); err != nil {
			return errcode.Wrap(errcode.InvalidPayload, verb, err)
		}
		if on {
			return c.Suspend()
		}
		return c.Resume()
	default:
		return &errcode.E{C: errcode.Unsupported, Op: "control", Msg: verb}
	}
	c.log.WithFields(logrus.Fields{"verb": verb, "payload": payload}).Debug("control")
	return nil
}

// decodeString takes a bare Go string as-is; anything else must be JSON.
func decodeString(p any) (string, error) {
	if s, ok := p.(string); ok {
		return s, nil
	}
	var s string
	err := jsonx.Decode(p, &s)
	return s, err
}
