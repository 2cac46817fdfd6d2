package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mlazoy/Chord-DHT/types"
	"golang.org/x/xerrors"
)

// Transport describes the primitives to create a listening socket.
type Transport interface {
	// CreateSocket binds a listening endpoint and returns the socket.
	CreateSocket(address string) (ClosableSocket, error)
}

// Factory describes the function used to instantiate a transport.
type Factory func() Transport

// Socket describes the primitives of a network socket: frames go out with
// Send and come in with Recv.
type Socket interface {
	// Send opens a connection to dest, writes the packet as one frame, and
	// closes the connection. A zero timeout means no timeout.
	Send(dest string, pkt Packet, timeout time.Duration) error

	// Recv blocks until a frame is received or the timeout elapses, in which
	// case it returns a TimeoutError.
	Recv(timeout time.Duration) (Packet, error)

	// GetAddress returns the address the socket is listening on.
	GetAddress() string
}

// ClosableSocket augments Socket with a close primitive.
type ClosableSocket interface {
	Socket

	// Close shuts the listener down. It returns an error if already closed.
	Close() error
}

// TimeoutError is returned by a socket operation that exceeded its deadline.
type TimeoutError time.Duration

// Error implements error.
func (err TimeoutError) Error() string {
	return fmt.Sprintf("timeout reached after %d", time.Duration(err))
}

// Is implements the errors.Is contract so every timeout matches.
func (err TimeoutError) Is(other error) bool {
	_, ok := other.(TimeoutError)
	return ok
}

// Header carries the routing metadata of a frame: the request identifier used
// to correlate replies, the originator of the request, and the hop counter
// that bounds forwarding.
type Header struct {
	RequestID string         `json:"request_id"`
	Origin    types.Endpoint `json:"origin"`
	HopCount  uint           `json:"hop_count"`
}

// NewHeader builds a header for a freshly originated request.
func NewHeader(requestID string, origin types.Endpoint) Header {
	return Header{
		RequestID: requestID,
		Origin:    origin,
		HopCount:  0,
	}
}

func (h Header) String() string {
	return fmt.Sprintf("[%s from %s hop %d]", h.RequestID, h.Origin, h.HopCount)
}

// Message is the payload of a frame: the message kind and its JSON encoding.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Copy returns a deep copy of the message.
func (m Message) Copy() Message {
	payload := make(json.RawMessage, len(m.Payload))
	copy(payload, m.Payload)
	return Message{Type: m.Type, Payload: payload}
}

// Packet is one frame on the wire.
type Packet struct {
	Header *Header  `json:"header"`
	Msg    *Message `json:"msg"`
}

// Marshal encodes the packet to its wire form.
func (p Packet) Marshal() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, xerrors.Errorf("Packet Marshal: %v", err)
	}
	return data, nil
}

// Unmarshal decodes the wire form into the packet.
func (p *Packet) Unmarshal(data []byte) error {
	err := json.Unmarshal(data, p)
	if err != nil {
		return xerrors.Errorf("Packet Unmarshal: %v", err)
	}
	if p.Header == nil || p.Msg == nil {
		return xerrors.Errorf("Packet Unmarshal: missing header or msg")
	}
	return nil
}

// Copy returns a deep copy of the packet.
func (p Packet) Copy() Packet {
	header := *p.Header
	msg := p.Msg.Copy()
	return Packet{Header: &header, Msg: &msg}
}

func (p Packet) String() string {
	return fmt.Sprintf("%s %s", p.Header, p.Msg.Type)
}
