package types

// FindSuccessorMessage describes the join lookup for a joining node. It
// travels clockwise until it reaches the node whose arc contains the joiner's
// identifier.
//
// - implements types.Message
type FindSuccessorMessage struct {
	// Node is the endpoint of the joining node.
	Node Endpoint
}

// FindSuccessorReplyMessage answers a FindSuccessorMessage. It carries the
// joiner's new neighbors, the ring parameters fixed at bootstrap, and the
// portion of the successor's store that becomes the joiner's initial arc.
//
// - implements types.Message
type FindSuccessorReplyMessage struct {
	// Successor is the node owning the joiner's identifier.
	Successor Endpoint

	// Predecessor is the successor's former predecessor, i.e. the joiner's
	// new predecessor.
	Predecessor Endpoint

	// Factor is the replica factor R of the ring.
	Factor uint

	// Mode is the consistency mode of the ring.
	Mode Consistency

	// RingLen is the successor's view of the ring size after the join.
	RingLen uint

	// Items are the records whose identifiers fall inside the joiner's arc.
	// The joiner installs them as primaries.
	Items []Item
}

// NotifyMessage tells a node that the sender is its new predecessor.
//
// - implements types.Message
type NotifyMessage struct {
	Node Endpoint
}

// NotifyAsSuccMessage tells a node that the sender is its new successor.
//
// - implements types.Message
type NotifyAsSuccMessage struct {
	Node Endpoint
}

// SetSuccMessage rewires the receiver's successor link during a departure.
//
// - implements types.Message
type SetSuccMessage struct {
	Node Endpoint
}

// SetPredMessage rewires the receiver's predecessor link during a departure.
//
// - implements types.Message
type SetPredMessage struct {
	Node Endpoint
}

// DepartMessage asks the receiving node to leave the ring gracefully.
//
// - implements types.Message
type DepartMessage struct{}

// TransferStoreMessage hands records over to the receiver during a departure.
// Items arriving with depth 0 become the receiver's primaries.
//
// - implements types.Message
type TransferStoreMessage struct {
	Items []Item
}

// OverlayMessage walks the ring collecting the endpoint of every node. The
// walk terminates at the node whose successor is the first collected peer.
//
// - implements types.Message
type OverlayMessage struct {
	Peers []Endpoint
}

// OverlayReplyMessage returns the full ordered ring to the originator.
//
// - implements types.Message
type OverlayReplyMessage struct {
	Peers []Endpoint
}

// Error codes carried by ErrorMessage.
const (
	ErrProtocol   = "protocol"
	ErrTransport  = "transport"
	ErrMembership = "membership"
)

// ErrorMessage reports a failed request to its originator.
//
// - implements types.Message
type ErrorMessage struct {
	Code   string
	Reason string
}
