/*Package mc2000 enables working with Thorlabs MC2000 optical chopper
controllers over their ASCII serial protocol.

Every queryable parameter of the instrument is described by an entry in a
static property table mapping a name to its wire token, value domain, and
parse rule.  Getters re-query the device on every call; setters validate
locally, write, then re-query to confirm the device accepted the value.

Properties may be accessed through the direct methods (GetPhase, SetPhase)
or through the grouped accessors (ch.Get.Phase(), ch.Set.Phase(90)), which
are forwarders over the same code.
*/
package mc2000

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/lightbench/chopper/comm"
)

// idSubstring must appear in the response to id? for the handshake to pass
const idSubstring = "MC2000"

var (
	// BladeTypes are the supported blade identifiers, indexed by wire value
	BladeTypes = []string{
		"MC1F2", "MC1F10", "MC1F15", "MC1F30", "MC1F60",
		"MC1F100", "MC2F330", "MC2F47", "MC2F57", "MC1F1"}

	// ReferenceModes are the supported reference sources, indexed by wire value
	ReferenceModes = []string{"internal", "external"}
)

// Kind describes how a property's wire value is interpreted
type Kind int

const (
	// IntKind is an integer with an inclusive [Lo, Hi] domain
	IntKind Kind = iota

	// EnumKind is an integer wire value indexing into Labels
	EnumKind

	// BoolKind is a 0/1 wire value
	BoolKind
)

// Property describes one controllable or queryable parameter of the chopper
type Property struct {
	// Name is the logical name of the property, e.g. "internal-frequency"
	Name string

	// Token is the wire command token, e.g. "freq"
	Token string

	// Kind declares how responses parse
	Kind Kind

	// Lo and Hi bound IntKind properties, inclusive
	Lo, Hi int

	// Labels holds the enumerated values for EnumKind properties,
	// index equals wire value
	Labels []string

	// ReadOnly properties reject sets locally
	ReadOnly bool
}

var properties = []Property{
	{Name: "internal-frequency", Token: "freq", Kind: IntKind, Lo: 1, Hi: 1000},
	{Name: "blade-type", Token: "blade", Kind: EnumKind, Labels: BladeTypes},
	{Name: "reference-mode", Token: "ref", Kind: EnumKind, Labels: ReferenceModes},
	{Name: "phase", Token: "phase", Kind: IntKind, Lo: 0, Hi: 360},
	{Name: "enabled", Token: "enable", Kind: BoolKind},
	{Name: "external-frequency", Token: "input", Kind: IntKind, Lo: 0, Hi: 100000, ReadOnly: true},
}

// ErrPropertyNotFound is generated when a property name is unknown
type ErrPropertyNotFound struct {
	Name string
}

func (e ErrPropertyNotFound) Error() string {
	return fmt.Sprintf("mc2000: property %s not found", e.Name)
}

// PropertyFromName looks a property up in the table by its logical name
func PropertyFromName(name string) (Property, error) {
	for _, p := range properties {
		if p.Name == name {
			return p, nil
		}
	}
	return Property{}, ErrPropertyNotFound{name}
}

// Properties returns a copy of the property table
func Properties() []Property {
	out := make([]Property, len(properties))
	copy(out, properties)
	return out
}

// RangeError is generated when a caller-supplied value falls outside a
// property's domain.  It is raised before any bytes hit the wire.
type RangeError struct {
	Property string
	Value    int
	Lo, Hi   int
}

func (e RangeError) Error() string {
	return fmt.Sprintf("mc2000: %d is out of range for %s, must be within [%d, %d]",
		e.Value, e.Property, e.Lo, e.Hi)
}

// EnumError is generated when a caller-supplied label is not one of a
// property's enumerated values.  It is raised before any bytes hit the wire.
type EnumError struct {
	Property string
	Label    string
	Allowed  []string
}

func (e EnumError) Error() string {
	return fmt.Sprintf("mc2000: %q is not a valid %s, must be one of %s",
		e.Label, e.Property, strings.Join(e.Allowed, ", "))
}

// ProtocolError is generated when the device responds with something
// malformed, out of domain, or different from the commanded value
type ProtocolError struct {
	Cmd    string
	Resp   string
	Reason string
}

func (e ProtocolError) Error() string {
	return fmt.Sprintf("mc2000: bad response %q to command %q: %s", e.Resp, e.Cmd, e.Reason)
}

// IdentificationError is generated when the device on the other end of the
// port does not identify as an MC2000
type IdentificationError struct {
	Resp string
}

func (e IdentificationError) Error() string {
	return fmt.Sprintf("mc2000: device did not identify as an MC2000, id? returned %q", e.Resp)
}

func validateInt(p Property, v int) error {
	if v < p.Lo || v > p.Hi {
		return RangeError{Property: p.Name, Value: v, Lo: p.Lo, Hi: p.Hi}
	}
	return nil
}

func labelToWire(p Property, label string) (int, error) {
	for i, l := range p.Labels {
		if l == label {
			return i, nil
		}
	}
	return 0, EnumError{Property: p.Name, Label: label, Allowed: p.Labels}
}

func wireToLabel(p Property, wire int) (string, bool) {
	if wire < 0 || wire >= len(p.Labels) {
		return "", false
	}
	return p.Labels[wire], true
}

// makeSerConf makes a new serial.Config with the parameters from the MC2000 manual
func makeSerConf(addr string) *serial.Config {
	return &serial.Config{
		Name:        addr,
		Baud:        115200,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: 1 * time.Second}
}

// Status holds one reading of every property of the chopper
type Status struct {
	InternalFrequency int    `json:"internalFrequency" yaml:"InternalFrequency"`
	BladeType         string `json:"bladeType" yaml:"BladeType"`
	ReferenceMode     string `json:"referenceMode" yaml:"ReferenceMode"`
	Phase             int    `json:"phase" yaml:"Phase"`
	Enabled           bool   `json:"enabled" yaml:"Enabled"`
	ExternalFrequency int    `json:"externalFrequency" yaml:"ExternalFrequency"`
}

// Chopper describes the full command surface of an MC2000, real or mock
type Chopper interface {
	GetInternalFrequency() (int, error)
	SetInternalFrequency(int) error
	GetBladeType() (string, error)
	SetBladeType(string) error
	GetReferenceMode() (string, error)
	SetReferenceMode(string) error
	GetPhase() (int, error)
	SetPhase(int) error
	GetEnabled() (bool, error)
	SetEnabled(bool) error
	GetExternalFrequency() (int, error)
	Identification() (string, error)
	Snapshot() (Status, error)
}

// MC2000 represents an MC2000 optical chopper controller.
// The zero value is not usable; create instances with New or NewFromConn.
type MC2000 struct {
	*comm.RemoteDevice

	// Get groups the query methods for call-site discoverability,
	// ch.Get.Phase() is identical to ch.GetPhase()
	Get Getters

	// Set is the counterpart to Get for the commanding methods
	Set Setters
}

// New makes a new MC2000 instance with the connection not yet opened.
// addr is a path like /dev/ttyUSB0 when connectSerial is true, or a
// host:port for a chopper behind a terminal server when it is false.
func New(addr string, connectSerial bool) *MC2000 {
	rd := comm.NewRemoteDevice(addr, connectSerial, nil, makeSerConf(addr))
	c := &MC2000{RemoteDevice: &rd}
	c.Get = Getters{c: c}
	c.Set = Setters{c: c}
	return c
}

// NewFromConn makes an MC2000 bound to an already-open transport.
// Used with simulators and in tests.
func NewFromConn(conn io.ReadWriteCloser) *MC2000 {
	rd := comm.NewRemoteDevice("", false, nil, nil)
	rd.Conn = conn
	c := &MC2000{RemoteDevice: &rd}
	c.Get = Getters{c: c}
	c.Set = Setters{c: c}
	return c
}

// Connect opens the port if it is not already open and verifies the device
// identifies as an MC2000.  On a failed handshake the port is closed and the
// controller is left disconnected.
func (c *MC2000) Connect() error {
	if !c.Connected() {
		if err := c.Open(); err != nil {
			return err
		}
	}
	id, err := c.Identification()
	if err != nil {
		c.Close()
		return err
	}
	if !strings.Contains(id, idSubstring) {
		c.Close()
		return IdentificationError{Resp: id}
	}
	return nil
}

// Identification queries the device identification string
func (c *MC2000) Identification() (string, error) {
	resp, err := c.SendRecv([]byte("id?"))
	if err != nil {
		return "", err
	}
	return cleanResponse("id?", string(resp)), nil
}

// cleanResponse strips the prompt and command echo the instrument prepends
// to its replies
func cleanResponse(cmd, resp string) string {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimLeft(resp, "> ")
	resp = strings.TrimPrefix(resp, cmd)
	return strings.TrimSpace(resp)
}

// query sends tok? and parses the one-line reply as the property's wire value
func (c *MC2000) query(p Property) (int, error) {
	cmd := p.Token + "?"
	resp, err := c.SendRecv([]byte(cmd))
	if err != nil {
		return 0, err
	}
	body := cleanResponse(cmd, string(resp))
	v, err := strconv.Atoi(body)
	if err != nil {
		return 0, ProtocolError{Cmd: cmd, Resp: string(resp), Reason: "response is not an integer"}
	}
	switch p.Kind {
	case IntKind:
		if v < p.Lo || v > p.Hi {
			return 0, ProtocolError{Cmd: cmd, Resp: body, Reason: "response out of domain"}
		}
	case EnumKind:
		if _, ok := wireToLabel(p, v); !ok {
			return 0, ProtocolError{Cmd: cmd, Resp: body, Reason: "response out of domain"}
		}
	case BoolKind:
		if v != 0 && v != 1 {
			return 0, ProtocolError{Cmd: cmd, Resp: body, Reason: "response out of domain"}
		}
	}
	return v, nil
}

// apply sends tok=v, then re-queries and compares; the MC2000 does not
// acknowledge sets so the confirmation read is the only feedback
func (c *MC2000) apply(p Property, wire int) error {
	cmd := fmt.Sprintf("%s=%d", p.Token, wire)
	if err := c.Send([]byte(cmd)); err != nil {
		return err
	}
	got, err := c.query(p)
	if err != nil {
		return err
	}
	if got != wire {
		return ProtocolError{
			Cmd:    cmd,
			Resp:   strconv.Itoa(got),
			Reason: "device did not confirm the commanded value"}
	}
	return nil
}

func mustProperty(name string) Property {
	p, err := PropertyFromName(name)
	if err != nil {
		panic(err)
	}
	return p
}

var (
	propIntFreq = mustProperty("internal-frequency")
	propBlade   = mustProperty("blade-type")
	propRef     = mustProperty("reference-mode")
	propPhase   = mustProperty("phase")
	propEnable  = mustProperty("enabled")
	propExtFreq = mustProperty("external-frequency")
)

// GetInternalFrequency queries the internal reference frequency in Hz
func (c *MC2000) GetInternalFrequency() (int, error) {
	return c.query(propIntFreq)
}

// SetInternalFrequency sets the internal reference frequency in Hz
func (c *MC2000) SetInternalFrequency(hz int) error {
	if err := validateInt(propIntFreq, hz); err != nil {
		return err
	}
	return c.apply(propIntFreq, hz)
}

// GetBladeType queries the installed blade type, e.g. MC1F10
func (c *MC2000) GetBladeType() (string, error) {
	v, err := c.query(propBlade)
	if err != nil {
		return "", err
	}
	label, _ := wireToLabel(propBlade, v)
	return label, nil
}

// SetBladeType tells the controller which blade is installed
func (c *MC2000) SetBladeType(label string) error {
	wire, err := labelToWire(propBlade, label)
	if err != nil {
		return err
	}
	return c.apply(propBlade, wire)
}

// GetReferenceMode queries the reference source, internal or external
func (c *MC2000) GetReferenceMode() (string, error) {
	v, err := c.query(propRef)
	if err != nil {
		return "", err
	}
	label, _ := wireToLabel(propRef, v)
	return label, nil
}

// SetReferenceMode sets the reference source, internal or external
func (c *MC2000) SetReferenceMode(mode string) error {
	wire, err := labelToWire(propRef, mode)
	if err != nil {
		return err
	}
	return c.apply(propRef, wire)
}

// GetPhase queries the phase offset between reference and wheel in degrees
func (c *MC2000) GetPhase() (int, error) {
	return c.query(propPhase)
}

// SetPhase sets the phase offset in degrees
func (c *MC2000) SetPhase(degrees int) error {
	if err := validateInt(propPhase, degrees); err != nil {
		return err
	}
	return c.apply(propPhase, degrees)
}

// GetEnabled queries whether the wheel is spinning
func (c *MC2000) GetEnabled() (bool, error) {
	v, err := c.query(propEnable)
	return v == 1, err
}

// SetEnabled starts (true) or stops (false) the wheel
func (c *MC2000) SetEnabled(b bool) error {
	wire := 0
	if b {
		wire = 1
	}
	return c.apply(propEnable, wire)
}

// Enable starts the wheel
func (c *MC2000) Enable() error {
	return c.SetEnabled(true)
}

// Disable stops the wheel
func (c *MC2000) Disable() error {
	return c.SetEnabled(false)
}

// GetExternalFrequency queries the frequency measured on the external
// reference input in Hz
func (c *MC2000) GetExternalFrequency() (int, error) {
	return c.query(propExtFreq)
}

// Snapshot reads every property and returns them in one struct
func (c *MC2000) Snapshot() (Status, error) {
	var (
		s   Status
		err error
	)
	if s.InternalFrequency, err = c.GetInternalFrequency(); err != nil {
		return s, err
	}
	if s.BladeType, err = c.GetBladeType(); err != nil {
		return s, err
	}
	if s.ReferenceMode, err = c.GetReferenceMode(); err != nil {
		return s, err
	}
	if s.Phase, err = c.GetPhase(); err != nil {
		return s, err
	}
	if s.Enabled, err = c.GetEnabled(); err != nil {
		return s, err
	}
	if s.ExternalFrequency, err = c.GetExternalFrequency(); err != nil {
		return s, err
	}
	return s, nil
}

// Raw sends a command and retrieves the reply if there is a question mark in
// the command, else returns "", err
func (c *MC2000) Raw(cmd string) (string, error) {
	if !strings.Contains(cmd, "?") {
		return "", c.Send([]byte(cmd))
	}
	resp, err := c.SendRecv([]byte(cmd))
	if err != nil {
		return "", err
	}
	return cleanResponse(cmd, string(resp)), nil
}
