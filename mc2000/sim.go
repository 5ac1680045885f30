package mc2000

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
)

// simID is the identification line the simulator replies to id? with
const simID = "THORLABS MC2000 Optical Chopper v1.07"

// Simulator behaves like the instrument side of the serial link: it accepts
// CR-terminated tok? and tok=value commands and produces the replies a real
// MC2000 would.  It implements io.ReadWriteCloser so it can stand in for
// the port via NewFromConn.
//
// Reads return EOF when no reply is pending, which is how a serial port
// with an expired read window behaves.
type Simulator struct {
	mu      sync.Mutex
	pending []byte // un-terminated command bytes
	out     []byte // reply bytes not yet read
	vals    map[string]int
	closed  bool
}

// NewSimulator returns a Simulator with the factory default state
func NewSimulator() *Simulator {
	return &Simulator{
		vals: map[string]int{
			"freq":   100,
			"blade":  1, // MC1F10
			"ref":    0,
			"phase":  0,
			"enable": 0,
			"input":  87,
		},
	}
}

// Write accepts command bytes, executing each complete CR-terminated command
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("mc2000: simulator is closed")
	}
	s.pending = append(s.pending, p...)
	for {
		idx := strings.IndexByte(string(s.pending), '\r')
		if idx < 0 {
			break
		}
		cmd := string(s.pending[:idx])
		s.pending = s.pending[idx+1:]
		s.execute(cmd)
	}
	return len(p), nil
}

func (s *Simulator) execute(cmd string) {
	cmd = strings.TrimSpace(cmd)
	switch {
	case cmd == "id?":
		s.reply(simID)
	case strings.HasSuffix(cmd, "?"):
		tok := strings.TrimSuffix(cmd, "?")
		v, ok := s.vals[tok]
		if !ok {
			return // unknown query, the real device prints an error prompt we never parse
		}
		s.reply(strconv.Itoa(v))
	case strings.Contains(cmd, "="):
		pieces := strings.SplitN(cmd, "=", 2)
		tok := strings.TrimSpace(pieces[0])
		v, err := strconv.Atoi(strings.TrimSpace(pieces[1]))
		if err != nil {
			return
		}
		if _, ok := s.vals[tok]; !ok || tok == "input" {
			return
		}
		s.vals[tok] = s.quantize(tok, v)
	}
}

// quantize clamps a commanded value into the domain the hardware accepts,
// mirroring the instrument's nearest-value behavior
func (s *Simulator) quantize(tok string, v int) int {
	for _, p := range properties {
		if p.Token != tok {
			continue
		}
		switch p.Kind {
		case IntKind:
			if v < p.Lo {
				return p.Lo
			}
			if v > p.Hi {
				return p.Hi
			}
		case EnumKind:
			if v < 0 {
				return 0
			}
			if v >= len(p.Labels) {
				return len(p.Labels) - 1
			}
		case BoolKind:
			if v != 0 {
				return 1
			}
		}
	}
	return v
}

func (s *Simulator) reply(line string) {
	s.out = append(s.out, []byte(line+"\r")...)
}

// Read drains pending reply bytes, or EOF if there are none
func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("mc2000: simulator is closed")
	}
	if len(s.out) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// Close marks the simulator closed; further use errors
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
