package chord

import (
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
	"golang.org/x/xerrors"
)

func (c *Chord) execFindSuccessorMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	fsMsg, ok := msg.(*types.FindSuccessorMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	joiner := fsMsg.Node

	c.mu.Lock()

	if joiner.ID.Equal(c.self.ID) {
		// The endpoint is already part of the ring (or rejoining): answer the
		// current view without transferring anything, so the second join is a
		// no-op.
		reply := types.FindSuccessorReplyMessage{
			Successor:   c.succ,
			Predecessor: c.predOrSelf(),
			Factor:      c.factor,
			Mode:        c.mode,
			RingLen:     c.ringLen,
		}
		c.mu.Unlock()
		return c.message.Reply(pkt, reply)
	}

	if !c.owns(joiner.ID) {
		// Not the joiner's successor, keep the lookup travelling clockwise
		c.mu.Unlock()
		return c.ForwardClockwise(pkt)
	}

	// This node is the joiner's successor. Carve the joiner's arc out of the
	// store, adopt the joiner as predecessor, and answer with the new
	// neighbors, the ring parameters, and the arc's records.
	oldPred := c.predOrSelf()
	items := c.store.Extract(oldPred.ID, joiner.ID)

	c.pred = joiner
	c.hasPred = true
	c.ringLen++

	reply := types.FindSuccessorReplyMessage{
		Successor:   c.self,
		Predecessor: oldPred,
		Factor:      c.factor,
		Mode:        c.mode,
		RingLen:     c.ringLen,
		Items:       items,
	}
	factor := c.factor
	wasAlone := oldPred.Equal(c.self)
	c.mu.Unlock()

	// The handed-over records stay here as first replicas; with R == 1 this
	// node must not keep a copy at all.
	for _, item := range items {
		if factor > 1 {
			c.store.SetDepth(item.Key, 1)
		} else {
			c.store.Delete(item.Key)
		}
	}

	c.logger.Info().
		Str("joiner", joiner.String()).
		Int("items", len(items)).
		Msg("adopted joiner as predecessor")

	if wasAlone {
		// Two-node ring now: the joiner is also this node's successor. The
		// NotifyAsSucc from the joiner would fix it as well, but doing it
		// here keeps the window where routing misses the joiner short.
		c.mu.Lock()
		c.succ = joiner
		c.mu.Unlock()
	}

	return c.message.Reply(pkt, reply)
}

func (c *Chord) execNotifyMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	notifyMsg, ok := msg.(*types.NotifyMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	node := notifyMsg.Node

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasPred || node.ID.Between(c.pred.ID, c.self.ID) {
		if !c.hasPred || !c.pred.Equal(node) {
			c.logger.Info().Str("predecessor", node.String()).Msg("updated predecessor")
		}
		c.pred = node
		c.hasPred = true
	}
	return nil
}

func (c *Chord) execNotifyAsSuccMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	notifyMsg, ok := msg.(*types.NotifyAsSuccMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	node := notifyMsg.Node

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.succ.Equal(c.self) || node.ID.Between(c.self.ID, c.succ.ID) {
		if !c.succ.Equal(node) {
			c.logger.Info().Str("successor", node.String()).Msg("updated successor")
			if !c.succ.Equal(c.self) {
				// A node slid in between us and our old successor
				c.ringLen++
			}
		}
		c.succ = node
	}
	return nil
}

func (c *Chord) execSetSuccMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	setMsg, ok := msg.(*types.SetSuccMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.succ = setMsg.Node
	if setMsg.Node.Equal(c.self) {
		// The departing node was the only other one, this node is alone now
		c.hasPred = false
	}
	if c.ringLen > 1 {
		c.ringLen--
	}
	c.logger.Info().Str("successor", setMsg.Node.String()).Msg("successor rewired on departure")
	return nil
}

func (c *Chord) execSetPredMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	setMsg, ok := msg.(*types.SetPredMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if setMsg.Node.Equal(c.self) {
		// The departing node was the only other one, this node is alone now
		c.hasPred = false
		c.succ = c.self
	} else {
		c.pred = setMsg.Node
		c.hasPred = true
	}
	if c.ringLen > 1 {
		c.ringLen--
	}
	c.logger.Info().Str("predecessor", setMsg.Node.String()).Msg("predecessor rewired on departure")
	return nil
}

func (c *Chord) execDepartMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	_, ok := msg.(*types.DepartMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	c.mu.Lock()

	if c.succ.Equal(c.self) {
		// Alone in the ring: nothing to hand over, the ring stays trivially
		// intact
		c.mu.Unlock()
		c.signalDone()
		c.logger.Info().Msg("departed (single-node ring)")
		return c.message.Reply(pkt, types.QueryReplyMessage{Value: "node departed"})
	}

	succ := c.succ
	pred := c.pred
	hasPred := c.hasPred
	items := c.store.Scan()
	c.mu.Unlock()

	// Hand every record to the successor: primaries stay primaries there,
	// replica copies shift one position up the chain.
	_, err := c.message.Request(succ, types.TransferStoreMessage{Items: items})
	if err != nil {
		c.logger.Err(err).Msg("failed to transfer store to successor")
	}

	// Splice this node out of the neighbor links
	if hasPred {
		_, err = c.message.Request(pred, types.SetSuccMessage{Node: succ})
		if err != nil {
			c.logger.Err(err).Msg("failed to rewire predecessor")
		}
		_, err = c.message.Request(succ, types.SetPredMessage{Node: pred})
		if err != nil {
			c.logger.Err(err).Msg("failed to rewire successor")
		}
	}

	c.store.Clear()
	c.signalDone()
	c.logger.Info().Int("items", len(items)).Msg("departed the ring")

	return c.message.Reply(pkt, types.QueryReplyMessage{Value: "node departed"})
}

func (c *Chord) execTransferStoreMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	transferMsg, ok := msg.(*types.TransferStoreMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	for _, item := range transferMsg.Items {
		if item.Depth == 0 {
			c.store.Put(item.Key, item.Value, 0)
			continue
		}
		// A replica copy from the departing predecessor: this node moved one
		// position closer to the primary, so the handed-over depth applies
		// unless a closer copy is already here.
		_, depth, exists := c.store.Get(item.Key)
		if !exists || depth > item.Depth {
			c.store.Put(item.Key, item.Value, item.Depth)
		}
	}
	return nil
}

func (c *Chord) execOverlayMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	ovMsg, ok := msg.(*types.OverlayMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	c.mu.RLock()
	self := c.self
	succ := c.succ
	c.mu.RUnlock()

	peers := append(ovMsg.Peers, self)
	c.ObserveRing(uint(len(peers)))

	if succ.Equal(peers[0]) {
		// The walk is back at its starting node, the collected list is the
		// full ring
		return c.message.Reply(pkt, types.OverlayReplyMessage{Peers: peers})
	}
	return c.ContinueClockwise(pkt, types.OverlayMessage{Peers: peers})
}

// predOrSelf requires c.mu held.
func (c *Chord) predOrSelf() types.Endpoint {
	if c.hasPred {
		return c.pred
	}
	return c.self
}
