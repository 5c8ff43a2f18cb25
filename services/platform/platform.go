// Package platform binds the charger to Linux hardware through periph.io:
// an I2C bus for the PMIC and GPIO lines for DC detect and the PMIC INT.
package platform

import (
	"sync"
	"time"

	"chargerd-go/errcode"
	"chargerd-go/services/irq"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

var (
	_ drivers.I2C = (i2c.Bus)(nil)
	_ irq.Pin     = (*Pin)(nil)
)

var initOnce struct {
	sync.Once
	err error
}

// Init loads the periph host drivers once.
func Init() error {
	initOnce.Do(func() {
		_, initOnce.err = host.Init()
	})
	return initOnce.err
}

// OpenI2C opens an I2C bus by name ("1", "/dev/i2c-1", ...). The returned
// bus satisfies tinygo.org/x/drivers.I2C as-is.
func OpenI2C(name string) (i2c.BusCloser, error) {
	if err := Init(); err != nil {
		return nil, errcode.Wrap(errcode.Unavailable, "host_init", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, &errcode.E{C: errcode.UnknownBus, Op: "open_i2c", Msg: name, Err: err}
	}
	return b, nil
}

// Pin adapts a periph GPIO input to irq.Pin. Edges are waited for on a
// goroutine since periph has no callback API.
type Pin struct {
	p    gpio.PinIO
	pull gpio.Pull

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// poll bounds how long ClearIRQ waits for the edge goroutine.
const poll = 100 * time.Millisecond

// OpenPin looks up a GPIO line by name ("GPIO17", "17", ...).
func OpenPin(name string, pullUp bool) (*Pin, error) {
	if err := Init(); err != nil {
		return nil, errcode.Wrap(errcode.Unavailable, "host_init", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "open_pin", Msg: name}
	}
	pull := gpio.PullNoChange
	if pullUp {
		pull = gpio.PullUp
	}
	if err := p.In(pull, gpio.NoEdge); err != nil {
		return nil, &errcode.E{C: errcode.IOError, Op: "open_pin", Msg: name, Err: err}
	}
	return &Pin{p: p, pull: pull}, nil
}

func (p *Pin) Get() bool { return p.p.Read() == gpio.High }

func (p *Pin) SetIRQ(edge irq.Edge, h func()) error {
	var e gpio.Edge
	switch edge {
	case irq.EdgeRising:
		e = gpio.RisingEdge
	case irq.EdgeFalling:
		e = gpio.FallingEdge
	case irq.EdgeBoth:
		e = gpio.BothEdges
	default:
		return p.ClearIRQ()
	}
	_ = p.ClearIRQ()
	if err := p.p.In(p.pull, e); err != nil {
		return errcode.Wrap(errcode.IOError, "set_irq", err)
	}

	stop, done := make(chan struct{}), make(chan struct{})
	p.mu.Lock()
	p.stop, p.done = stop, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if p.p.WaitForEdge(poll) {
				h()
			}
		}
	}()
	return nil
}

func (p *Pin) ClearIRQ() error {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return errcode.Wrap(errcode.IOError, "clear_irq", p.p.In(p.pull, gpio.NoEdge))
}

func (p *Pin) String() string { return p.p.Name() }
