package tcp

import (
	"encoding/binary"
	"io"
	"math"
	"net"
	"os"
	"sync"
	"time"

	"github.com/mlazoy/Chord-DHT/transport"
	"golang.org/x/xerrors"
)

// maxFrameSize bounds a single frame. Store transfers during membership
// changes are the largest frames on the wire.
const maxFrameSize = 16 << 20

const insBacklog = 128

// NewTCP returns a new tcp transport implementation.
func NewTCP() transport.Transport {
	return &TCP{}
}

// TCP implements a transport layer using length-prefixed frames over TCP.
//
// - implements transport.Transport
type TCP struct{}

// CreateSocket implements transport.Transport. It binds the listener and
// starts the accept loop.
func (t *TCP) CreateSocket(address string) (transport.ClosableSocket, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, xerrors.Errorf("TCP CreateSocket listen error: %v", err)
	}

	s := &Socket{
		listener: listener,
		ins:      make(chan transport.Packet, insBacklog),
		done:     make(chan struct{}),
	}
	go s.acceptLoop()

	return s, nil
}

// Socket implements a network socket using TCP.
//
// - implements transport.Socket
// - implements transport.ClosableSocket
type Socket struct {
	listener  net.Listener
	ins       chan transport.Packet
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Socket) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			// The listener is gone, no further connections will arrive
			return
		}
		go s.serveConn(conn)
	}
}

// serveConn reads frames from one inbound connection until EOF. A malformed
// frame disconnects the peer.
func (s *Socket) serveConn(conn net.Conn) {
	defer conn.Close()

	for {
		data, err := readFrame(conn)
		if err != nil {
			return
		}

		var pkt transport.Packet
		if err := pkt.Unmarshal(data); err != nil {
			return
		}

		select {
		case s.ins <- pkt:
		case <-s.done:
			return
		}
	}
}

// Close implements transport.ClosableSocket. It returns an error if already
// closed.
func (s *Socket) Close() error {
	err := xerrors.Errorf("TCP socket already closed")
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.listener.Close()
	})
	return err
}

// Send implements transport.Socket. It dials the destination, writes the
// packet as a single frame, and closes the connection.
func (s *Socket) Send(dest string, pkt transport.Packet, timeout time.Duration) error {
	if timeout == 0 {
		timeout = math.MaxInt64
	}

	data, err := pkt.Marshal()
	if err != nil {
		return err
	}
	if len(data) > maxFrameSize {
		return xerrors.Errorf("TCP Send: frame of %d bytes exceeds limit", len(data))
	}

	conn, err := net.DialTimeout("tcp", dest, timeout)
	if err != nil {
		if os.IsTimeout(err) {
			return transport.TimeoutError(timeout)
		}
		return xerrors.Errorf("TCP Send dial %s: %v", dest, err)
	}
	defer conn.Close()

	err = conn.SetWriteDeadline(time.Now().Add(timeout))
	if err != nil {
		return err
	}

	frame := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[4:], data)

	_, err = conn.Write(frame)
	if err != nil {
		if os.IsTimeout(err) {
			return transport.TimeoutError(timeout)
		}
		return xerrors.Errorf("TCP Send write %s: %v", dest, err)
	}
	return nil
}

// Recv implements transport.Socket. It blocks until a packet is received, or
// the timeout is reached. In the case the timeout is reached, return a
// TimeoutError.
func (s *Socket) Recv(timeout time.Duration) (transport.Packet, error) {
	if timeout == 0 {
		timeout = math.MaxInt64
	}

	select {
	case pkt := <-s.ins:
		return pkt, nil
	case <-time.After(timeout):
		return transport.Packet{}, transport.TimeoutError(timeout)
	case <-s.done:
		return transport.Packet{}, xerrors.Errorf("TCP Recv: socket closed")
	}
}

// GetAddress implements transport.Socket. It returns the address assigned. Can
// be useful in the case one provided a :0 address, which makes the system use a
// random free port.
func (s *Socket) GetAddress() string {
	return s.listener.Addr().String()
}

func readFrame(conn net.Conn) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(lenBuf[:])
	if size == 0 || size > maxFrameSize {
		return nil, xerrors.Errorf("invalid frame size %d", size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(conn, data); err != nil {
		return nil, err
	}
	return data, nil
}
