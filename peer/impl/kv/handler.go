package kv

import (
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
	"golang.org/x/xerrors"
)

func (k *KV) execInsertMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	insertMsg, ok := msg.(*types.InsertMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	keyID := types.HashKey(insertMsg.Key)
	if !k.chord.Owns(keyID) {
		// Not the primary, keep the request travelling clockwise
		return k.chord.ForwardClockwise(pkt)
	}

	switch k.chord.Mode() {
	case types.Eventual:
		// The primary applies and acknowledges immediately; replicas catch up
		// asynchronously
		k.store.Put(insertMsg.Key, insertMsg.Value, 0)
		err := k.message.Reply(pkt, types.QueryReplyMessage{
			Key:   insertMsg.Key,
			Value: insertMsg.Value,
		})
		if k.chord.ChainLen() > 1 {
			k.replicate(types.ReplicateMessage{
				Key:   insertMsg.Key,
				Value: insertMsg.Value,
				Depth: 1,
			})
		}
		return err

	case types.Chain:
		// The head applies and pushes the write down the chain; the tail
		// acknowledges, so the client observes success only once every
		// replica has applied
		k.store.Put(insertMsg.Key, insertMsg.Value, 0)
		if k.chord.ChainLen() == 1 {
			return k.message.Reply(pkt, types.QueryReplyMessage{
				Key:   insertMsg.Key,
				Value: insertMsg.Value,
			})
		}
		return k.chord.ContinueClockwise(pkt, types.ReplicateMessage{
			Key:   insertMsg.Key,
			Value: insertMsg.Value,
			Depth: 1,
		})

	default:
		return xerrors.Errorf("unsupported consistency mode %v", k.chord.Mode())
	}
}

func (k *KV) execQueryMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	queryMsg, ok := msg.(*types.QueryMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	if queryMsg.Tail {
		// Walking the replica chain toward the tail
		if queryMsg.Remaining == 0 {
			value, _, exists := k.store.Get(queryMsg.Key)
			return k.message.Reply(pkt, types.QueryReplyMessage{
				Key:   queryMsg.Key,
				Value: value,
				Miss:  !exists,
			})
		}
		return k.chord.ContinueClockwise(pkt, types.QueryMessage{
			Key:       queryMsg.Key,
			Tail:      true,
			Remaining: queryMsg.Remaining - 1,
		})
	}

	keyID := types.HashKey(queryMsg.Key)
	if !k.chord.Owns(keyID) {
		return k.chord.ForwardClockwise(pkt)
	}

	switch k.chord.Mode() {
	case types.Eventual:
		// The primary's value is canonical; replicas are never consulted
		value, _, exists := k.store.Get(queryMsg.Key)
		return k.message.Reply(pkt, types.QueryReplyMessage{
			Key:   queryMsg.Key,
			Value: value,
			Miss:  !exists,
		})

	case types.Chain:
		// Reads are served by the tail so they reflect every committed write
		if _, _, exists := k.store.Get(queryMsg.Key); !exists {
			return k.message.Reply(pkt, types.QueryReplyMessage{
				Key:  queryMsg.Key,
				Miss: true,
			})
		}
		remaining := k.chord.ChainLen() - 1
		if remaining == 0 {
			value, _, exists := k.store.Get(queryMsg.Key)
			return k.message.Reply(pkt, types.QueryReplyMessage{
				Key:   queryMsg.Key,
				Value: value,
				Miss:  !exists,
			})
		}
		return k.chord.ContinueClockwise(pkt, types.QueryMessage{
			Key:       queryMsg.Key,
			Tail:      true,
			Remaining: uint8(remaining - 1),
		})

	default:
		return xerrors.Errorf("unsupported consistency mode %v", k.chord.Mode())
	}
}

func (k *KV) execDeleteMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	deleteMsg, ok := msg.(*types.DeleteMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	if deleteMsg.Chained {
		// Walking the replica chain toward the tail, removing as we go
		k.store.Delete(deleteMsg.Key)
		if deleteMsg.Remaining == 0 {
			return k.message.Reply(pkt, types.QueryReplyMessage{Key: deleteMsg.Key})
		}
		return k.chord.ContinueClockwise(pkt, types.DeleteMessage{
			Key:       deleteMsg.Key,
			Chained:   true,
			Remaining: deleteMsg.Remaining - 1,
		})
	}

	keyID := types.HashKey(deleteMsg.Key)
	if !k.chord.Owns(keyID) {
		return k.chord.ForwardClockwise(pkt)
	}

	switch k.chord.Mode() {
	case types.Eventual:
		existed := k.store.Delete(deleteMsg.Key)
		err := k.message.Reply(pkt, types.QueryReplyMessage{
			Key:  deleteMsg.Key,
			Miss: !existed,
		})
		if existed && k.chord.ChainLen() > 1 {
			k.replicate(types.ReplicateMessage{
				Key:    deleteMsg.Key,
				Depth:  1,
				Remove: true,
			})
		}
		return err

	case types.Chain:
		if _, _, exists := k.store.Get(deleteMsg.Key); !exists {
			return k.message.Reply(pkt, types.QueryReplyMessage{
				Key:  deleteMsg.Key,
				Miss: true,
			})
		}
		k.store.Delete(deleteMsg.Key)
		remaining := k.chord.ChainLen() - 1
		if remaining == 0 {
			return k.message.Reply(pkt, types.QueryReplyMessage{Key: deleteMsg.Key})
		}
		return k.chord.ContinueClockwise(pkt, types.DeleteMessage{
			Key:       deleteMsg.Key,
			Chained:   true,
			Remaining: uint8(remaining - 1),
		})

	default:
		return xerrors.Errorf("unsupported consistency mode %v", k.chord.Mode())
	}
}

func (k *KV) execReplicateMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	repMsg, ok := msg.(*types.ReplicateMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	chainLen := k.chord.ChainLen()

	if !repMsg.Remove && repMsg.Depth > 0 && k.chord.Owns(types.HashKey(repMsg.Key)) {
		// A stale ring size let the chain wrap past its tail onto the
		// primary. The primary copy stays as it is and the walk ends here.
		if k.chord.Mode() == types.Chain {
			return k.message.Reply(pkt, types.QueryReplyMessage{
				Key:   repMsg.Key,
				Value: repMsg.Value,
			})
		}
		return nil
	}

	if repMsg.Remove {
		// Replica removal: the eventual delete fan-out, or an eviction of a
		// copy that ended up beyond the tail after a membership change. A
		// primary copy is never evicted.
		if k.chord.Owns(types.HashKey(repMsg.Key)) {
			return nil
		}
		k.store.Delete(repMsg.Key)
		if uint(repMsg.Depth) < chainLen-1 {
			k.replicate(types.ReplicateMessage{
				Key:    repMsg.Key,
				Depth:  repMsg.Depth + 1,
				Remove: true,
			})
		}
		return nil
	}

	k.store.Put(repMsg.Key, repMsg.Value, repMsg.Depth)

	switch k.chord.Mode() {
	case types.Eventual:
		if uint(repMsg.Depth) < chainLen-1 {
			k.replicate(types.ReplicateMessage{
				Key:   repMsg.Key,
				Value: repMsg.Value,
				Depth: repMsg.Depth + 1,
			})
		}
		return nil

	case types.Chain:
		if uint(repMsg.Depth) < chainLen-1 {
			return k.chord.ContinueClockwise(pkt, types.ReplicateMessage{
				Key:   repMsg.Key,
				Value: repMsg.Value,
				Depth: repMsg.Depth + 1,
			})
		}
		// Reached the tail: the write is committed, acknowledge the
		// originator. For repair traffic nobody is waiting on the reply and
		// it is dropped at the origin.
		err := k.message.Reply(pkt, types.QueryReplyMessage{
			Key:   repMsg.Key,
			Value: repMsg.Value,
		})
		if k.chord.RingLen() > chainLen {
			// Shake off a stale copy that may linger just past the tail
			k.replicate(types.ReplicateMessage{
				Key:    repMsg.Key,
				Depth:  repMsg.Depth + 1,
				Remove: true,
			})
		}
		return err

	default:
		return xerrors.Errorf("unsupported consistency mode %v", k.chord.Mode())
	}
}

func (k *KV) execScanMessage(msg types.Message, pkt transport.Packet) error {
	/* cast the message to its actual type. You assume it is the right type. */
	scanMsg, ok := msg.(*types.ScanMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	entries := append(scanMsg.Entries, types.NodeItems{
		Node:  k.chord.Self(),
		Items: k.store.Primary(),
	})
	k.chord.ObserveRing(uint(len(entries)))

	if k.chord.Successor().Equal(entries[0].Node) {
		// The walk is back at its starting node, every primary has been
		// collected exactly once
		return k.message.Reply(pkt, types.ScanReplyMessage{Entries: entries})
	}
	return k.chord.ContinueClockwise(pkt, types.ScanMessage{Entries: entries})
}
