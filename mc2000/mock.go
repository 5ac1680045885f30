package mc2000

import "sync"

// MockMC2000 is an in-memory stand-in for a chopper, used when the server
// runs with Mock: true and no hardware is on the bench
type MockMC2000 struct {
	sync.Mutex
	freq    int
	blade   int
	ref     int
	phase   int
	extFreq int
	enabled bool
}

// NewMockMC2000 returns a mock with the factory default state.
// The signature matches New so the two are interchangeable in factories.
func NewMockMC2000(addr string, connectSerial bool) *MockMC2000 {
	return &MockMC2000{freq: 100, blade: 1, extFreq: 87}
}

// GetInternalFrequency returns the stored internal frequency
func (m *MockMC2000) GetInternalFrequency() (int, error) {
	m.Lock()
	defer m.Unlock()
	return m.freq, nil
}

// SetInternalFrequency stores the internal frequency, enforcing the real domain
func (m *MockMC2000) SetInternalFrequency(hz int) error {
	if err := validateInt(propIntFreq, hz); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	m.freq = hz
	return nil
}

// GetBladeType returns the stored blade type
func (m *MockMC2000) GetBladeType() (string, error) {
	m.Lock()
	defer m.Unlock()
	label, _ := wireToLabel(propBlade, m.blade)
	return label, nil
}

// SetBladeType stores the blade type, enforcing the real enumeration
func (m *MockMC2000) SetBladeType(label string) error {
	wire, err := labelToWire(propBlade, label)
	if err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	m.blade = wire
	return nil
}

// GetReferenceMode returns the stored reference mode
func (m *MockMC2000) GetReferenceMode() (string, error) {
	m.Lock()
	defer m.Unlock()
	label, _ := wireToLabel(propRef, m.ref)
	return label, nil
}

// SetReferenceMode stores the reference mode, enforcing the real enumeration
func (m *MockMC2000) SetReferenceMode(mode string) error {
	wire, err := labelToWire(propRef, mode)
	if err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	m.ref = wire
	return nil
}

// GetPhase returns the stored phase
func (m *MockMC2000) GetPhase() (int, error) {
	m.Lock()
	defer m.Unlock()
	return m.phase, nil
}

// SetPhase stores the phase, enforcing the real domain
func (m *MockMC2000) SetPhase(degrees int) error {
	if err := validateInt(propPhase, degrees); err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	m.phase = degrees
	return nil
}

// GetEnabled returns whether the mock wheel is spinning
func (m *MockMC2000) GetEnabled() (bool, error) {
	m.Lock()
	defer m.Unlock()
	return m.enabled, nil
}

// SetEnabled starts or stops the mock wheel
func (m *MockMC2000) SetEnabled(b bool) error {
	m.Lock()
	defer m.Unlock()
	m.enabled = b
	return nil
}

// GetExternalFrequency returns a fixed external reference reading
func (m *MockMC2000) GetExternalFrequency() (int, error) {
	m.Lock()
	defer m.Unlock()
	return m.extFreq, nil
}

// Identification returns a string that passes the MC2000 handshake
func (m *MockMC2000) Identification() (string, error) {
	return simID + " (mock)", nil
}

// Snapshot reads every property of the mock
func (m *MockMC2000) Snapshot() (Status, error) {
	var (
		s   Status
		err error
	)
	if s.InternalFrequency, err = m.GetInternalFrequency(); err != nil {
		return s, err
	}
	if s.BladeType, err = m.GetBladeType(); err != nil {
		return s, err
	}
	if s.ReferenceMode, err = m.GetReferenceMode(); err != nil {
		return s, err
	}
	if s.Phase, err = m.GetPhase(); err != nil {
		return s, err
	}
	if s.Enabled, err = m.GetEnabled(); err != nil {
		return s, err
	}
	if s.ExternalFrequency, err = m.GetExternalFrequency(); err != nil {
		return s, err
	}
	return s, nil
}
