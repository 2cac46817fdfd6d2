package registry

import (
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
)

// Exec is the type of function executed on a message of a registered kind.
type Exec func(types.Message, transport.Packet) error

// Registry defines the functions for a node to handle the messages it
// receives. Every message kind of the wire set must be registered; processing
// a packet of an unknown kind is a protocol error.
type Registry interface {
	// RegisterMessageCallback registers the handler executed for the kind of
	// the given message.
	RegisterMessageCallback(m types.Message, exec Exec)

	// ProcessPacket decodes the packet's payload and calls the handler
	// registered for its kind.
	ProcessPacket(pkt transport.Packet) error

	// MarshalMessage wraps a message into its transport form.
	MarshalMessage(m types.Message) (transport.Message, error)

	// UnmarshalMessage decodes a transport message into the provided concrete
	// message, which must be of the matching kind.
	UnmarshalMessage(m *transport.Message, into types.Message) error
}
