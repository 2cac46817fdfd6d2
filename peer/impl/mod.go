package impl

import (
	"github.com/rs/zerolog"

	"github.com/mlazoy/Chord-DHT/peer"
	"github.com/mlazoy/Chord-DHT/peer/impl/chord"
	"github.com/mlazoy/Chord-DHT/peer/impl/daemon"
	"github.com/mlazoy/Chord-DHT/peer/impl/kv"
	"github.com/mlazoy/Chord-DHT/peer/impl/message"
	"github.com/mlazoy/Chord-DHT/peer/impl/store"
	"github.com/mlazoy/Chord-DHT/types"
)

// node implements a peer of the Chord ring.
//
// - implements peer.Peer
type node struct {
	conf    *peer.Configuration
	message *message.Message // message module, handles packet plumbing
	daemon  *daemon.Daemon   // daemon module, runs the listen loop
	store   *store.Store     // the node's local item store
	chord   *chord.Chord     // the node's ring state and membership
	kv      *kv.KV           // the node's routing and replication engine
}

// NewPeer creates a new peer.
func NewPeer(conf peer.Configuration) peer.Peer {
	messageMod := message.NewMessage(&conf)
	daemonMod := daemon.NewDaemon(&conf, messageMod)
	storeMod := store.NewStore()
	chordMod := chord.NewChord(&conf, messageMod, storeMod)
	kvMod := kv.NewKV(&conf, messageMod, chordMod, storeMod)

	return &node{
		conf:    &conf,
		message: messageMod,
		daemon:  daemonMod,
		store:   storeMod,
		chord:   chordMod,
		kv:      kvMod,
	}
}

// Start implements peer.Service
func (n *node) Start() error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if n.conf.Bootstrap == nil {
		// The bootstrap node creates the ring and fixes its parameters
		n.chord.Create()
	}
	n.kv.StartDaemon()
	return n.daemon.Start()
}

// Stop implements peer.Service
func (n *node) Stop() error {
	n.kv.StopDaemon()
	err := n.daemon.Stop()
	if err != nil {
		return err
	}
	return n.conf.Socket.Close()
}

// Done implements peer.Service
func (n *node) Done() <-chan struct{} {
	return n.chord.Done()
}

// GetAddr implements peer.Service
func (n *node) GetAddr() string {
	return n.conf.Self.Addr()
}

// GetChordID implements peer.Service
func (n *node) GetChordID() types.ID {
	return n.conf.Self.ID
}

// Insert implements peer.Store
func (n *node) Insert(key, value string) error {
	return n.kv.Insert(key, value)
}

// Query implements peer.Store
func (n *node) Query(key string) (string, bool, error) {
	return n.kv.Query(key)
}

// Delete implements peer.Store
func (n *node) Delete(key string) (bool, error) {
	return n.kv.Delete(key)
}

// Scan implements peer.Store
func (n *node) Scan() ([]types.NodeItems, error) {
	return n.kv.Scan()
}

// Overlay implements peer.Store
func (n *node) Overlay() ([]types.Endpoint, error) {
	return n.chord.Overlay()
}

// Join implements peer.Membership
func (n *node) Join() error {
	return n.chord.Join()
}

// Depart implements peer.Membership
func (n *node) Depart() error {
	_, err := n.message.ProcessLocal(types.DepartMessage{}, n.conf.RequestTimeout)
	return err
}

// GetPredecessor implements peer.Membership
func (n *node) GetPredecessor() (types.Endpoint, bool) {
	return n.chord.Predecessor()
}

// GetSuccessor implements peer.Membership
func (n *node) GetSuccessor() types.Endpoint {
	return n.chord.Successor()
}

// RingLen implements peer.Membership
func (n *node) RingLen() uint {
	return n.chord.RingLen()
}
