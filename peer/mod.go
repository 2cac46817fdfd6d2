package peer

import (
	"time"

	"github.com/mlazoy/Chord-DHT/registry"
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
)

// Peer defines the interface of a node in the Chord ring. It embeds all the
// interfaces that will have to be implemented.
type Peer interface {
	Service
	Store
	Membership
}

// Factory is the type of function we are using to create new instances of
// peers.
type Factory func(Configuration) Peer

// Service defines the lifecycle of a node.
type Service interface {
	// Start runs the node: the listen loop and the background replica repair.
	Start() error

	// Stop shuts the node down. It does not perform a graceful departure.
	Stop() error

	// Done is closed once the node has departed the ring.
	Done() <-chan struct{}

	// GetAddr returns the node's listening address.
	GetAddr() string

	// GetChordID returns the node's position on the identifier space.
	GetChordID() types.ID
}

// Store defines the client-facing data operations. Each call may be served
// locally or routed through the ring to the responsible node.
type Store interface {
	// Insert stores or overwrites the mapping key -> value at its primary and
	// replicates it according to the consistency mode.
	Insert(key, value string) error

	// Query returns the current value for the key, or ok == false on a miss.
	Query(key string) (value string, ok bool, err error)

	// Delete removes the key from its primary and every replica. It returns
	// whether the key existed.
	Delete(key string) (bool, error)

	// Scan returns every primary item of the ring, grouped per node in
	// clockwise order starting at this node.
	Scan() ([]types.NodeItems, error)

	// Overlay returns every live endpoint in clockwise order starting at this
	// node.
	Overlay() ([]types.Endpoint, error)
}

// Membership defines the ring membership operations.
type Membership interface {
	// Join inserts the node into the ring through the configured bootstrap
	// endpoint.
	Join() error

	// Depart removes the node from the ring gracefully, handing its records
	// to the successor.
	Depart() error

	// GetPredecessor returns the counterclockwise neighbor, if any.
	GetPredecessor() (types.Endpoint, bool)

	// GetSuccessor returns the clockwise neighbor. It equals the node itself
	// when the node is alone.
	GetSuccessor() types.Endpoint

	// RingLen returns the node's view of the number of live nodes.
	RingLen() uint
}

// Configuration is the struct that will contain the configuration argument
// when creating a peer.
type Configuration struct {
	Socket          transport.ClosableSocket
	MessageRegistry registry.Registry

	// Self is the endpoint this node advertises to the ring.
	Self types.Endpoint

	// Bootstrap is the well-known endpoint used to join. It is nil on the
	// bootstrap node, which creates the ring.
	Bootstrap *types.Endpoint

	// ReplicaFactor is the number of copies R kept of every item. Only the
	// bootstrap node sets it; joiners learn it from their successor.
	// Must be >= 1.
	ReplicaFactor uint

	// Mode is the consistency model of the ring. Only the bootstrap node sets
	// it; joiners learn it from their successor.
	Mode types.Consistency

	// RequestTimeout bounds every blocking network exchange.
	// Default: 10s
	RequestTimeout time.Duration

	// RepairInterval is the period of the background replica repair pass. A
	// value of 0 disables the repair daemon.
	// Default: 5s
	RepairInterval time.Duration
}
