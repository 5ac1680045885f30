/*Package comm provides interfaces and an embeddable type for communication
with lab hardware over serial or TCP.

Most usages of this package boil down to:
	1.  embed RemoteDevice in a type that represents your hardware.
	2.  pass Terminators to NewRemoteDevice if the device does not use
		carriage returns on both ends of the exchange (CR is the default)
	3.  write any methods you see fit based on this low-level communication
		implementation.

A minimal example for a temperature sensor that responds to "RD?" with the
current temperature:

	import "strconv"

	type MySensor struct {
		comm.RemoteDevice
	}

	func (ms *MySensor) ReadTemp() (float64, error) {
		resp, err := ms.SendRecv([]byte("RD?"))
		if err != nil {
			return 0, err
		}
		return strconv.ParseFloat(string(resp), 64)
	}
*/
package comm

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/tarm/serial"
	"golang.org/x/time/rate"
)

var (
	terminator = byte('\r')

	// ErrNoSerialConf is generated when a serial RemoteDevice is opened
	// without a serial config
	ErrNoSerialConf = errors.New("comm: serial device has no serial config")

	// ErrNotConnected is generated when Conn is nil and Send or Recv is called
	ErrNotConnected = errors.New("comm: conn is nil, not connected to remote")

	// ErrTerminatorNotFound is generated when the termination byte is not
	// found in a response
	ErrTerminatorNotFound = errors.New("comm: termination byte not found")

	// ErrTimeout is generated when the remote does not produce a terminated
	// response within the configured read window
	ErrTimeout = errors.New("comm: timeout waiting for response")
)

// Sender has a Send method that passes along a byte slice as well as a
// TxTerminator returning the transmission termination byte
type Sender interface {
	Send([]byte) error
	TxTerminator() byte
}

// Recver has a Recv method that gets a byte slice as well as an
// RxTerminator returning the receipt termination byte
type Recver interface {
	Recv() ([]byte, error)
	RxTerminator() byte
}

// SendRecver can send and recieve, and provides a method that sends then recieves
type SendRecver interface {
	Sender
	Recver

	SendRecv([]byte) ([]byte, error)
}

// Opener can open ("establish a connection" but in io language)
type Opener interface {
	Open() error
}

// A Communicator can Open, Send, Recv and Close
type Communicator interface {
	io.Closer
	Opener
	SendRecver
}

// Terminators holds the Tx and Rx termination bytes for a device
type Terminators struct {
	Tx byte
	Rx byte
}

/*RemoteDevice has an address and implements Communicator.

The Conn variable is exported so that tests and simulators may inject an
arbitrary io.ReadWriteCloser in place of a real port.  Sends are paced by a
rate limiter; some instruments (the MC2000 among them) drop characters when
commands arrive back to back.
*/
type RemoteDevice struct {
	Addr     string
	IsSerial bool
	Conn     io.ReadWriteCloser

	terms   Terminators
	serCfg  *serial.Config
	limiter *rate.Limiter
}

// NewRemoteDevice creates a new RemoteDevice instance.  terms may be nil,
// in which case carriage returns are used on both ends.  serCfg may be nil
// for TCP devices.
func NewRemoteDevice(addr string, isSerial bool, terms *Terminators, serCfg *serial.Config) RemoteDevice {
	if terms == nil {
		terms = &Terminators{Tx: terminator, Rx: terminator}
	}
	return RemoteDevice{
		Addr:     addr,
		IsSerial: isSerial,
		terms:    *terms,
		serCfg:   serCfg,
		limiter:  rate.NewLimiter(rate.Every(50*time.Millisecond), 1)}
}

// Open the connection, setting the Conn variable
func (rd *RemoteDevice) Open() error {
	// we use an exponential backoff, serial-to-ethernet adapters
	// do not like being connection thrashed
	wasTimeout := false
	op := func() error {
		err := rd.open()
		if err != nil {
			errS := strings.ToLower(err.Error())
			if strings.Contains(errS, "refused") {
				return err
			}
			wasTimeout = true
			return nil
		}
		return nil
	}

	// backoff ceases on a timeout so we don't wait forever, so we need to
	// check for err != nil && !wasTimeout
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err == nil && !wasTimeout {
		return nil
	}
	if wasTimeout {
		return fmt.Errorf("comm: connection timeout to %s", rd.Addr)
	}
	return err
}

func (rd *RemoteDevice) open() error {
	var (
		err  error
		conn io.ReadWriteCloser
	)
	if rd.IsSerial {
		if rd.serCfg == nil {
			return ErrNoSerialConf
		}
		conn, err = serial.OpenPort(rd.serCfg)
	} else {
		conn, err = TCPSetup(rd.Addr, 3*time.Second)
	}
	if err != nil {
		return err
	}
	rd.Conn = conn
	return nil
}

// Close the connection, nil-ing the Conn variable
func (rd *RemoteDevice) Close() error {
	if rd.Conn == nil {
		return nil
	}
	err := rd.Conn.Close()
	if err == nil {
		rd.Conn = nil
	}
	return err
}

// Connected returns true if the device currently holds an open connection
func (rd *RemoteDevice) Connected() bool {
	return rd.Conn != nil
}

// TxTerminator returns the transmission termination byte
func (rd *RemoteDevice) TxTerminator() byte {
	return rd.terms.Tx
}

// RxTerminator returns the receipt termination byte
func (rd *RemoteDevice) RxTerminator() byte {
	return rd.terms.Rx
}

// Send writes data to the remote with the Tx terminator appended
func (rd *RemoteDevice) Send(b []byte) error {
	if rd.Conn == nil {
		return ErrNotConnected
	}
	rd.limiter.Wait(context.Background())
	b = append(b, rd.TxTerminator())
	_, err := rd.Conn.Write(b)
	return err
}

// Recv recieves data from the remote and strips the Rx terminator.
// An EOF before the terminator arrives is reported as ErrTimeout; serial
// ports surface an expired read window that way.
func (rd *RemoteDevice) Recv() ([]byte, error) {
	if rd.Conn == nil {
		return nil, ErrNotConnected
	}
	term := rd.RxTerminator()
	buf, err := bufio.NewReader(rd.Conn).ReadBytes(term)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []byte{}, ErrTimeout
		}
		return []byte{}, err
	}
	if bytes.HasSuffix(buf, []byte{term}) {
		idx := bytes.IndexByte(buf, term)
		return buf[:idx], nil
	}
	return buf, ErrTerminatorNotFound
}

// SendRecv sends a buffer after appending the Tx terminator,
// then returns the response with the Rx terminator stripped
func (rd *RemoteDevice) SendRecv(b []byte) ([]byte, error) {
	if rd.Conn == nil {
		return []byte{}, ErrNotConnected
	}
	err := rd.Send(b)
	if err != nil {
		return []byte{}, err
	}
	return rd.Recv()
}

// TCPSetup opens a new TCP connection and sets a timeout on connect, read, and write
func TCPSetup(addr string, timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)
	return conn, nil
}
