package types

// Message defines the type of message sent among nodes. Every kind of the
// wire message set implements it so the registry can dispatch on the name.
type Message interface {
	// NewEmpty returns a new empty message of this kind, used by the registry
	// to decode an incoming payload.
	NewEmpty() Message

	// Name returns the unique kind of the message on the wire.
	Name() string

	// String returns a human readable form used in log lines.
	String() string
}
