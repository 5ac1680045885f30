package mc2000

// Getters is a grouped view over the query methods of a controller.
// It holds a back-reference to the owning MC2000 and no state of its own;
// ch.Get.Phase() and ch.GetPhase() are the same call.
type Getters struct {
	c *MC2000
}

// InternalFrequency forwards to GetInternalFrequency
func (g Getters) InternalFrequency() (int, error) {
	return g.c.GetInternalFrequency()
}

// BladeType forwards to GetBladeType
func (g Getters) BladeType() (string, error) {
	return g.c.GetBladeType()
}

// ReferenceMode forwards to GetReferenceMode
func (g Getters) ReferenceMode() (string, error) {
	return g.c.GetReferenceMode()
}

// Phase forwards to GetPhase
func (g Getters) Phase() (int, error) {
	return g.c.GetPhase()
}

// Enabled forwards to GetEnabled
func (g Getters) Enabled() (bool, error) {
	return g.c.GetEnabled()
}

// ExternalFrequency forwards to GetExternalFrequency
func (g Getters) ExternalFrequency() (int, error) {
	return g.c.GetExternalFrequency()
}

// Setters is the commanding counterpart to Getters
type Setters struct {
	c *MC2000
}

// InternalFrequency forwards to SetInternalFrequency
func (s Setters) InternalFrequency(hz int) error {
	return s.c.SetInternalFrequency(hz)
}

// BladeType forwards to SetBladeType
func (s Setters) BladeType(label string) error {
	return s.c.SetBladeType(label)
}

// ReferenceMode forwards to SetReferenceMode
func (s Setters) ReferenceMode(mode string) error {
	return s.c.SetReferenceMode(mode)
}

// Phase forwards to SetPhase
func (s Setters) Phase(degrees int) error {
	return s.c.SetPhase(degrees)
}

// Enabled forwards to SetEnabled
func (s Setters) Enabled(b bool) error {
	return s.c.SetEnabled(b)
}
