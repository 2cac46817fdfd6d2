package kv

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mlazoy/Chord-DHT/peer"
	"github.com/mlazoy/Chord-DHT/peer/impl/chord"
	"github.com/mlazoy/Chord-DHT/peer/impl/message"
	"github.com/mlazoy/Chord-DHT/peer/impl/store"
	"github.com/mlazoy/Chord-DHT/types"
	"golang.org/x/xerrors"
)

// NewKV creates the routing engine and registers its message callbacks.
func NewKV(conf *peer.Configuration, message *message.Message,
	chord *chord.Chord, store *store.Store) *KV {

	k := KV{
		conf:           conf,
		message:        message,
		chord:          chord,
		store:          store,
		logger:         message.Logger("kv"),
		stopRepairChan: make(chan bool, 1),
	}

	/* Register the data-plane message callbacks */
	conf.MessageRegistry.RegisterMessageCallback(types.InsertMessage{}, k.execInsertMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.QueryMessage{}, k.execQueryMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.DeleteMessage{}, k.execDeleteMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.ReplicateMessage{}, k.execReplicateMessage)
	conf.MessageRegistry.RegisterMessageCallback(types.ScanMessage{}, k.execScanMessage)

	return &k
}

// KV is the routing engine: it serves a request locally when the key lies on
// this node's arc, forwards it clockwise otherwise, and drives the
// replication traffic of both consistency modes.
type KV struct {
	conf           *peer.Configuration
	message        *message.Message
	chord          *chord.Chord
	store          *store.Store
	logger         zerolog.Logger
	stopRepairChan chan bool
}

// StartDaemon starts the background replica repair pass.
func (k *KV) StartDaemon() {
	go k.repairDaemon()
}

// StopDaemon stops the background replica repair pass.
func (k *KV) StopDaemon() {
	k.stopRepairChan <- true
}

// Insert stores or overwrites key -> value. It blocks until the write is
// acknowledged: by the primary under eventual consistency, by the chain tail
// under chain consistency.
func (k *KV) Insert(key, value string) error {
	reply, err := k.message.ProcessLocal(types.InsertMessage{Key: key, Value: value},
		k.conf.RequestTimeout)
	if err != nil {
		return err
	}
	if _, ok := reply.(*types.QueryReplyMessage); !ok {
		return xerrors.Errorf("Insert: wrong reply type: %T", reply)
	}
	return nil
}

// Query returns the current value of the key, or ok == false on a miss.
func (k *KV) Query(key string) (string, bool, error) {
	reply, err := k.message.ProcessLocal(types.QueryMessage{Key: key}, k.conf.RequestTimeout)
	if err != nil {
		return "", false, err
	}
	qReply, ok := reply.(*types.QueryReplyMessage)
	if !ok {
		return "", false, xerrors.Errorf("Query: wrong reply type: %T", reply)
	}
	return qReply.Value, !qReply.Miss, nil
}

// Delete removes the key from the primary and every replica. It returns
// whether the key existed.
func (k *KV) Delete(key string) (bool, error) {
	reply, err := k.message.ProcessLocal(types.DeleteMessage{Key: key}, k.conf.RequestTimeout)
	if err != nil {
		return false, err
	}
	qReply, ok := reply.(*types.QueryReplyMessage)
	if !ok {
		return false, xerrors.Errorf("Delete: wrong reply type: %T", reply)
	}
	return !qReply.Miss, nil
}

// Scan walks the ring and returns every node's primary items in clockwise
// order starting at this node.
func (k *KV) Scan() ([]types.NodeItems, error) {
	reply, err := k.message.ProcessLocal(types.ScanMessage{}, k.conf.RequestTimeout)
	if err != nil {
		return nil, err
	}
	sReply, ok := reply.(*types.ScanReplyMessage)
	if !ok {
		return nil, xerrors.Errorf("Scan: wrong reply type: %T", reply)
	}
	return sReply.Entries, nil
}

// replicate pushes one copy to the successor, fire-and-forget. Failures are
// logged, never surfaced to the client.
func (k *KV) replicate(msg types.ReplicateMessage) {
	succ := k.chord.Successor()
	if succ.Equal(k.chord.Self()) {
		return
	}
	_, err := k.message.Request(succ, msg)
	if err != nil {
		k.logger.Err(err).Str("key", msg.Key).Msg("replication to successor failed")
	}
}

// repairDaemon periodically restores the replica invariant: every key has
// min(R, ring size) copies on consecutive nodes starting at its owner. It
// promotes stray copies whose keys have landed on this node's arc, re-pushes
// every primary down the chain, and refreshes the ring size estimate.
func (k *KV) repairDaemon() {
	if k.conf.RepairInterval == 0 {
		// Repair mechanism is disabled
		return
	}

	ticker := time.NewTicker(k.conf.RepairInterval)
	for {
		select {
		case <-k.stopRepairChan:
			ticker.Stop()
			return
		case <-k.chord.Done():
			// The node has departed, its replica duties are over
			ticker.Stop()
			return
		case <-ticker.C:
			for _, item := range k.store.Scan() {
				if item.Depth > 0 && k.chord.Owns(types.HashKey(item.Key)) {
					k.store.SetDepth(item.Key, 0)
				}
			}

			if k.chord.ChainLen() > 1 {
				for _, item := range k.store.Primary() {
					k.replicate(types.ReplicateMessage{
						Key:   item.Key,
						Value: item.Value,
						Depth: 1,
					})
				}
			}

			if k.chord.RingLen() > 1 {
				_, err := k.chord.Overlay()
				if err != nil {
					k.logger.Err(err).Msg("ring size refresh failed")
				}
			}
		}
	}
}
