package chord

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/mlazoy/Chord-DHT/peer"
	"github.com/mlazoy/Chord-DHT/peer/impl/message"
	"github.com/mlazoy/Chord-DHT/peer/impl/store"
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
	"golang.org/x/xerrors"
)

// NewChord creates the ring membership module and registers its message
// callbacks.
func NewChord(conf *peer.Configuration, message *message.Message, store *store.Store) *Chord {
	c := Chord{
		self:    conf.Self,
		conf:    conf,
		message: message,
		store:   store,
		logger:  message.Logger("chord"),
		done:    make(chan struct{}),
	}

	/* Register the membership and control message callbacks */
	conf.MessageRegistry.RegisterMessageCallback(types.FindSuccessorMessage{}, c.execFindSuccessorMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.NotifyMessage{}, c.execNotifyMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.NotifyAsSuccMessage{}, c.execNotifyAsSuccMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.SetSuccMessage{}, c.execSetSuccMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.SetPredMessage{}, c.execSetPredMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.DepartMessage{}, c.execDepartMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.TransferStoreMessage{}, c.execTransferStoreMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.OverlayMessage{}, c.execOverlayMessage)

	return &c
}

// Chord holds the ring state of a node: its two neighbors, the ring
// parameters fixed at bootstrap, and the node's view of the ring size. All
// membership mutations go through the single writer lock.
type Chord struct {
	self    types.Endpoint
	conf    *peer.Configuration
	message *message.Message
	store   *store.Store
	logger  zerolog.Logger

	mu      sync.RWMutex
	pred    types.Endpoint
	hasPred bool
	succ    types.Endpoint
	ringLen uint
	factor  uint
	mode    types.Consistency

	done     chan struct{}
	doneOnce sync.Once
}

// Create initializes the ring on the bootstrap node: the node is alone, its
// successor is itself, and it fixes R and the consistency mode.
func (c *Chord) Create() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.succ = c.self
	c.hasPred = false
	c.ringLen = 1
	c.factor = c.conf.ReplicaFactor
	c.mode = c.conf.Mode
}

// Join inserts this node into the ring through the configured bootstrap
// endpoint: it locates its successor, installs its initial arc, and notifies
// both new neighbors.
func (c *Chord) Join() error {
	if c.conf.Bootstrap == nil {
		return xerrors.Errorf("Join: no bootstrap endpoint configured")
	}

	reply, err := c.message.SendAndWait(*c.conf.Bootstrap,
		types.FindSuccessorMessage{Node: c.self}, c.conf.RequestTimeout)
	if err != nil {
		return xerrors.Errorf("Join via %s: %v", c.conf.Bootstrap, err)
	}

	fsReply, ok := reply.(*types.FindSuccessorReplyMessage)
	if !ok {
		return xerrors.Errorf("Join: wrong reply type: %T", reply)
	}

	c.mu.Lock()
	c.succ = fsReply.Successor
	c.pred = fsReply.Predecessor
	c.hasPred = true
	c.factor = fsReply.Factor
	c.mode = fsReply.Mode
	c.ringLen = fsReply.RingLen
	c.mu.Unlock()

	// The transferred records constitute this node's initial arc
	for _, item := range fsReply.Items {
		c.store.Put(item.Key, item.Value, 0)
	}

	c.logger.Info().
		Str("successor", fsReply.Successor.String()).
		Str("predecessor", fsReply.Predecessor.String()).
		Int("items", len(fsReply.Items)).
		Msg("joined the ring")

	_, err = c.message.Request(fsReply.Successor, types.NotifyMessage{Node: c.self})
	if err != nil {
		return xerrors.Errorf("Join notify successor: %v", err)
	}
	_, err = c.message.Request(fsReply.Predecessor, types.NotifyAsSuccMessage{Node: c.self})
	if err != nil {
		return xerrors.Errorf("Join notify predecessor: %v", err)
	}
	return nil
}

// Self returns this node's endpoint.
func (c *Chord) Self() types.Endpoint {
	return c.self
}

// Successor returns the clockwise neighbor.
func (c *Chord) Successor() types.Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.succ
}

// Predecessor returns the counterclockwise neighbor, if any.
func (c *Chord) Predecessor() (types.Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pred, c.hasPred
}

// Factor returns the replica factor R of the ring.
func (c *Chord) Factor() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.factor
}

// Mode returns the consistency mode of the ring.
func (c *Chord) Mode() types.Consistency {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// RingLen returns this node's view of the number of live nodes.
func (c *Chord) RingLen() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ringLen
}

// ChainLen returns the effective replica chain length: R capped by the ring
// size.
func (c *Chord) ChainLen() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ringLen < c.factor {
		return c.ringLen
	}
	return c.factor
}

// Owns reports whether the given identifier lies on this node's arc
// (pred, self]. A node without predecessor is alone and owns everything.
func (c *Chord) Owns(id types.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owns(id)
}

// owns requires c.mu held.
func (c *Chord) owns(id types.ID) bool {
	if !c.hasPred {
		return true
	}
	return id.Between(c.pred.ID, c.self.ID)
}

// ObserveRing raises the ring size estimate from evidence gathered on a ring
// walk passing through this node.
func (c *Chord) ObserveRing(n uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.ringLen {
		c.ringLen = n
	}
}

// Done is closed once this node has departed the ring.
func (c *Chord) Done() <-chan struct{} {
	return c.done
}

func (c *Chord) signalDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// hopLimit requires c.mu held for reading.
func (c *Chord) hopLimit() uint {
	limit := 2 * c.ringLen
	if limit < 2 {
		limit = 2
	}
	return limit
}

// ForwardClockwise relays the packet to the successor, enforcing the hop
// bound. Exceeding twice the ring size means a routing loop: the originator
// is told and the packet dropped.
func (c *Chord) ForwardClockwise(pkt transport.Packet) error {
	c.mu.RLock()
	succ := c.succ
	limit := c.hopLimit()
	c.mu.RUnlock()

	if pkt.Header.HopCount+1 > limit {
		err := c.message.ReplyError(pkt, types.ErrProtocol, "hop count exceeded: routing loop")
		if err != nil {
			c.logger.Err(err).Msg("failed to report routing loop")
		}
		return xerrors.Errorf("hop count %d exceeds limit %d", pkt.Header.HopCount+1, limit)
	}

	err := c.message.Forward(pkt, succ)
	if err != nil {
		// The successor is unreachable, tell the originator
		c.logger.Err(err).Str("successor", succ.String()).Msg("forward failed")
		return c.message.ReplyError(pkt, types.ErrTransport, err.Error())
	}
	return nil
}

// ContinueClockwise sends a new message to the successor within the request
// context of pkt, enforcing the hop bound.
func (c *Chord) ContinueClockwise(pkt transport.Packet, msg types.Message) error {
	c.mu.RLock()
	succ := c.succ
	limit := c.hopLimit()
	c.mu.RUnlock()

	if pkt.Header.HopCount+1 > limit {
		err := c.message.ReplyError(pkt, types.ErrProtocol, "hop count exceeded: routing loop")
		if err != nil {
			c.logger.Err(err).Msg("failed to report routing loop")
		}
		return xerrors.Errorf("hop count %d exceeds limit %d", pkt.Header.HopCount+1, limit)
	}

	err := c.message.Continue(pkt, succ, msg)
	if err != nil {
		// The successor is unreachable, tell the originator
		c.logger.Err(err).Str("successor", succ.String()).Msg("forward failed")
		return c.message.ReplyError(pkt, types.ErrTransport, err.Error())
	}
	return nil
}

// Overlay walks the ring and returns every live endpoint in clockwise order
// starting at this node. The authoritative count refreshes the ring size
// estimate.
func (c *Chord) Overlay() ([]types.Endpoint, error) {
	reply, err := c.message.ProcessLocal(types.OverlayMessage{}, c.conf.RequestTimeout)
	if err != nil {
		return nil, err
	}

	ovReply, ok := reply.(*types.OverlayReplyMessage)
	if !ok {
		return nil, xerrors.Errorf("Overlay: wrong reply type: %T", reply)
	}

	c.mu.Lock()
	c.ringLen = uint(len(ovReply.Peers))
	c.mu.Unlock()

	return ovReply.Peers, nil
}
