package rk818

import (
	"errors"
	"sync"
)

var ErrSimFault = errors.New("rk818 sim: injected fault")

// Sim is an in-memory RK818 register file reachable through drivers.I2C.
// It counts writes per register, supports fault injection, and emulates
// write-1-to-clear on the interrupt status register.
type Sim struct {
	mu     sync.Mutex
	addr   uint16
	regs   [256]byte
	writes [256]int
	failRd map[Reg]bool
	failWr map[Reg]bool
}

func NewSim() *Sim {
	return &Sim{
		addr:   AddressDefault,
		failRd: map[Reg]bool{},
		failWr: map[Reg]bool{},
	}
}

// Tx implements drivers.I2C.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr != s.addr {
		return errors.New("rk818 sim: no device at address")
	}
	if len(w) == 0 {
		return errors.New("rk818 sim: missing register address")
	}
	reg := Reg(w[0])
	if len(w) > 1 {
		if s.failWr[reg] {
			return ErrSimFault
		}
		for i, v := range w[1:] {
			rr := reg + Reg(i)
			s.writes[rr]++
			if rr == RegIntSts2 {
				s.regs[rr] &^= v
				continue
			}
			s.regs[rr] = v
		}
	}
	if len(r) > 0 {
		if s.failRd[reg] {
			return ErrSimFault
		}
		for i := range r {
			r[i] = s.regs[reg+Reg(i)]
		}
	}
	return nil
}

// Set pokes a register without counting a write.
func (s *Sim) Set(reg Reg, v byte) {
	s.mu.Lock()
	s.regs[reg] = v
	s.mu.Unlock()
}

// SetBits pokes bits without counting a write.
func (s *Sim) SetBits(reg Reg, mask byte, on bool) {
	s.mu.Lock()
	if on {
		s.regs[reg] |= mask
	} else {
		s.regs[reg] &^= mask
	}
	s.mu.Unlock()
}

func (s *Sim) Get(reg Reg) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}

// Writes returns the number of bus writes seen by reg.
func (s *Sim) Writes(reg Reg) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[reg]
}

func (s *Sim) ResetWrites() {
	s.mu.Lock()
	s.writes = [256]int{}
	s.mu.Unlock()
}

// FailRead makes reads of reg fail until cleared.
func (s *Sim) FailRead(reg Reg, fail bool) {
	s.mu.Lock()
	s.failRd[reg] = fail
	s.mu.Unlock()
}

// FailWrite makes writes to reg fail until cleared.
func (s *Sim) FailWrite(reg Reg, fail bool) {
	s.mu.Lock()
	s.failWr[reg] = fail
	s.mu.Unlock()
}

// Plug simulates VBUS presence.
func (s *Sim) Plug(present bool) { s.SetBits(RegVBMon, PlugInSts, present) }

// RaisePlugIRQ latches a plug interrupt status bit.
func (s *Sim) RaisePlugIRQ(in bool) {
	if in {
		s.SetBits(RegIntSts2, PlugInInt, true)
		return
	}
	s.SetBits(RegIntSts2, PlugOutInt, true)
}

// SetAvgCurrentRaw loads the 12-bit averaged current register pair.
func (s *Sim) SetAvgCurrentRaw(raw uint16) {
	s.mu.Lock()
	s.regs[RegBatCurAvgH] = byte(raw>>8) & 0x0F
	s.regs[RegBatCurAvgL] = byte(raw)
	s.mu.Unlock()
}
