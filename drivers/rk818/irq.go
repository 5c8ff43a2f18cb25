package rk818

// PlugIRQ is the decoded pending state of the plug interrupt bits.
type PlugIRQ struct {
	In, Out bool
}

// DrainPlugIRQ reads the pending plug interrupts and acknowledges them.
func DrainPlugIRQ(m Regmap) (PlugIRQ, error) {
	v, err := m.Read(RegIntSts2)
	if err != nil {
		return PlugIRQ{}, err
	}
	p := PlugIRQ{In: v&PlugInInt != 0, Out: v&PlugOutInt != 0}
	if v&PlugIntMask == 0 {
		return p, nil
	}
	return p, m.Write(RegIntSts2, v&PlugIntMask)
}
