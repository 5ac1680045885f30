package comm_test

import (
	"bufio"
	"io"
	"log"
	"net"
	"testing"

	"github.com/lightbench/chopper/comm"
)

// tcpLineEchoServer echoes CR-terminated lines back to the client,
// which is what a terminal server in loopback looks like
func tcpLineEchoServer(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func() {
			r := bufio.NewReader(conn)
			for {
				line, err := r.ReadBytes('\r')
				if err != nil {
					conn.Close()
					return
				}
				conn.Write(line)
			}
		}()
	}
}

func startEcho(t *testing.T) string {
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatal("could not listen, test aborted:", err)
	}
	t.Cleanup(func() { ln.Close() })
	go tcpLineEchoServer(ln)
	return ln.Addr().String()
}

func TestSendRecvRoundTripsOverTCP(t *testing.T) {
	addr := startEcho(t)
	rd := comm.NewRemoteDevice(addr, false, nil, nil)
	err := rd.Open()
	if err != nil {
		t.Fatal("could not open remote device:", err)
	}
	defer rd.Close()
	resp, err := rd.SendRecv([]byte("freq?"))
	if err != nil {
		t.Fatal("SendRecv errored:", err)
	}
	if string(resp) != "freq?" {
		t.Errorf("expected echo of freq?, got %q", resp)
	}
}

func TestSendBeforeOpenIsNotConnected(t *testing.T) {
	rd := comm.NewRemoteDevice("localhost:1", false, nil, nil)
	if err := rd.Send([]byte("freq?")); err != comm.ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if _, err := rd.Recv(); err != comm.ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

type eofConn struct{}

func (eofConn) Read(p []byte) (int, error)  { return 0, io.EOF }
func (eofConn) Write(p []byte) (int, error) { return len(p), nil }
func (eofConn) Close() error                { return nil }

func TestRecvEOFReportsTimeout(t *testing.T) {
	rd := comm.NewRemoteDevice("", false, nil, nil)
	rd.Conn = eofConn{}
	_, err := rd.SendRecv([]byte("freq?"))
	if err != comm.ErrTimeout {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestCloseNilsConn(t *testing.T) {
	addr := startEcho(t)
	rd := comm.NewRemoteDevice(addr, false, nil, nil)
	if err := rd.Open(); err != nil {
		log.Fatal("could not open remote device:", err)
	}
	if !rd.Connected() {
		t.Fatal("device should report connected after Open")
	}
	if err := rd.Close(); err != nil {
		t.Fatal("close errored:", err)
	}
	if rd.Connected() {
		t.Error("device should report disconnected after Close")
	}
}
