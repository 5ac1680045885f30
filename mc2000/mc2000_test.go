package mc2000

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightbench/chopper/comm"
)

// countingConn counts writes and never responds; used to prove local
// validation happens before any bytes hit the wire
type countingConn struct {
	writes int
}

func (c *countingConn) Write(p []byte) (int, error) { c.writes++; return len(p), nil }
func (c *countingConn) Read(p []byte) (int, error)  { return 0, io.EOF }
func (c *countingConn) Close() error                { return nil }

// scriptedConn replies to queries with canned lines in order, regardless of
// what was asked; sets produce no reply, like the real instrument
type scriptedConn struct {
	replies []string
	buf     []byte
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	if bytes.ContainsRune(p, '?') && len(c.replies) > 0 {
		c.buf = append(c.buf, []byte(c.replies[0]+"\r")...)
		c.replies = c.replies[1:]
	}
	return len(p), nil
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	if len(c.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.buf)
	c.buf = c.buf[n:]
	return n, nil
}

func (c *scriptedConn) Close() error { return nil }

func TestRoundTripsAgainstSimulator(t *testing.T) {
	ch := NewFromConn(NewSimulator())

	require.NoError(t, ch.SetInternalFrequency(250))
	hz, err := ch.GetInternalFrequency()
	require.NoError(t, err)
	assert.Equal(t, 250, hz)

	require.NoError(t, ch.SetBladeType("MC2F57"))
	blade, err := ch.GetBladeType()
	require.NoError(t, err)
	assert.Equal(t, "MC2F57", blade)

	require.NoError(t, ch.SetReferenceMode("external"))
	ref, err := ch.GetReferenceMode()
	require.NoError(t, err)
	assert.Equal(t, "external", ref)

	require.NoError(t, ch.SetPhase(90))
	deg, err := ch.GetPhase()
	require.NoError(t, err)
	assert.Equal(t, 90, deg)

	require.NoError(t, ch.Enable())
	on, err := ch.GetEnabled()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, ch.Disable())
	on, err = ch.GetEnabled()
	require.NoError(t, err)
	assert.False(t, on)
}

func TestOutOfDomainSetSendsNothing(t *testing.T) {
	conn := &countingConn{}
	ch := NewFromConn(conn)

	err := ch.SetInternalFrequency(5000)
	var re RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "internal-frequency", re.Property)
	assert.Equal(t, 5000, re.Value)

	err = ch.SetPhase(-10)
	require.ErrorAs(t, err, &re)

	err = ch.SetBladeType("MC9F99")
	var ee EnumError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "blade-type", ee.Property)

	err = ch.SetReferenceMode("sideways")
	require.ErrorAs(t, err, &ee)

	assert.Zero(t, conn.writes, "validation failures must not touch the wire")
}

func TestMalformedResponseIsProtocolError(t *testing.T) {
	ch := NewFromConn(&scriptedConn{replies: []string{"bananas"}})
	_, err := ch.GetInternalFrequency()
	var pe ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "freq?", pe.Cmd)
}

func TestOutOfDomainResponseIsProtocolError(t *testing.T) {
	// 7000 Hz is not a frequency the instrument can produce
	ch := NewFromConn(&scriptedConn{replies: []string{"7000"}})
	_, err := ch.GetInternalFrequency()
	var pe ProtocolError
	require.ErrorAs(t, err, &pe)
}

func TestUnconfirmedSetIsProtocolError(t *testing.T) {
	// the confirmation query reads back 250 after commanding 300
	ch := NewFromConn(&scriptedConn{replies: []string{"250"}})
	err := ch.SetInternalFrequency(300)
	var pe ProtocolError
	require.ErrorAs(t, err, &pe)
}

func TestSilentDeviceIsTimeout(t *testing.T) {
	ch := NewFromConn(&countingConn{})
	_, err := ch.GetInternalFrequency()
	assert.True(t, errors.Is(err, comm.ErrTimeout))
}

func TestDisconnectedControllerErrors(t *testing.T) {
	ch := New("/dev/null", true)
	_, err := ch.GetInternalFrequency()
	assert.True(t, errors.Is(err, comm.ErrNotConnected))
}

func TestConnectHandshake(t *testing.T) {
	ch := NewFromConn(NewSimulator())
	require.NoError(t, ch.Connect())
	id, err := ch.Identification()
	require.NoError(t, err)
	assert.Contains(t, id, "MC2000")
}

func TestConnectRejectsWrongInstrument(t *testing.T) {
	ch := NewFromConn(&scriptedConn{replies: []string{"TDS 210 OSCILLOSCOPE"}})
	err := ch.Connect()
	var ie IdentificationError
	require.ErrorAs(t, err, &ie)
	assert.False(t, ch.Connected(), "failed handshake must close the port")
}

func TestConnectSurfacesSilenceAsTimeout(t *testing.T) {
	ch := NewFromConn(&countingConn{})
	err := ch.Connect()
	assert.True(t, errors.Is(err, comm.ErrTimeout))
}

func TestGroupedAccessorsMatchDirectMethods(t *testing.T) {
	direct := NewFromConn(NewSimulator())
	grouped := NewFromConn(NewSimulator())

	hz1, err1 := direct.GetInternalFrequency()
	hz2, err2 := grouped.Get.InternalFrequency()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, hz1, hz2)

	b1, err1 := direct.GetBladeType()
	b2, err2 := grouped.Get.BladeType()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, b1, b2)

	r1, err1 := direct.GetReferenceMode()
	r2, err2 := grouped.Get.ReferenceMode()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, r1, r2)

	p1, err1 := direct.GetPhase()
	p2, err2 := grouped.Get.Phase()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, p1, p2)

	e1, err1 := direct.GetEnabled()
	e2, err2 := grouped.Get.Enabled()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, e1, e2)

	x1, err1 := direct.GetExternalFrequency()
	x2, err2 := grouped.Get.ExternalFrequency()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, x1, x2)

	// and the Set view drives the same machinery as the direct call
	require.NoError(t, direct.SetPhase(45))
	require.NoError(t, grouped.Set.Phase(45))
	p1, _ = direct.GetPhase()
	p2, _ = grouped.Get.Phase()
	assert.Equal(t, p1, p2)
}

func TestSnapshotAgainstSimulator(t *testing.T) {
	ch := NewFromConn(NewSimulator())
	require.NoError(t, ch.SetInternalFrequency(500))
	require.NoError(t, ch.Enable())
	s, err := ch.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 500, s.InternalFrequency)
	assert.Equal(t, "MC1F10", s.BladeType)
	assert.Equal(t, "internal", s.ReferenceMode)
	assert.True(t, s.Enabled)
	assert.Equal(t, 87, s.ExternalFrequency)
}

func TestRawPassthrough(t *testing.T) {
	ch := NewFromConn(NewSimulator())
	resp, err := ch.Raw("freq?")
	require.NoError(t, err)
	assert.Equal(t, "100", resp)

	resp, err = ch.Raw("freq=123")
	require.NoError(t, err)
	assert.Empty(t, resp)
	hz, err := ch.GetInternalFrequency()
	require.NoError(t, err)
	assert.Equal(t, 123, hz)
}

func TestPropertyTableLookup(t *testing.T) {
	p, err := PropertyFromName("internal-frequency")
	require.NoError(t, err)
	assert.Equal(t, "freq", p.Token)

	_, err = PropertyFromName("beam-splitter")
	var nf ErrPropertyNotFound
	assert.ErrorAs(t, err, &nf)
}
