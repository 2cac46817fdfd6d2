package chord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlazoy/Chord-DHT/peer"
	"github.com/mlazoy/Chord-DHT/peer/impl/message"
	"github.com/mlazoy/Chord-DHT/peer/impl/store"
	"github.com/mlazoy/Chord-DHT/registry/standard"
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
)

func makeChord(t *testing.T, addr string, factor uint) *Chord {
	self, err := types.ParseEndpoint(addr)
	require.NoError(t, err)

	conf := peer.Configuration{
		MessageRegistry: standard.NewRegistry(),
		Self:            self,
		ReplicaFactor:   factor,
		Mode:            types.Eventual,
		RequestTimeout:  time.Second,
	}
	return NewChord(&conf, message.NewMessage(&conf), store.NewStore())
}

func endpointWithID(addr string, prefix byte) types.Endpoint {
	e, _ := types.ParseEndpoint(addr)
	e.ID = types.ID{prefix}
	return e
}

// Test_Chord_Owns_Alone tests that a node without predecessor owns the whole
// identifier space.
func Test_Chord_Owns_Alone(t *testing.T) {
	c := makeChord(t, "127.0.0.1:8000", 1)
	c.Create()

	require.True(t, c.Owns(types.ID{0x00}))
	require.True(t, c.Owns(types.ID{0x80}))
	require.True(t, c.Owns(types.ID{0xff}))
	require.True(t, c.Owns(c.Self().ID))
}

// Test_Chord_Owns_Arc tests ownership against a fixed predecessor, including
// the wrap-around arc and the inclusive upper bound.
func Test_Chord_Owns_Arc(t *testing.T) {
	c := makeChord(t, "127.0.0.1:8000", 1)
	c.Create()

	c.mu.Lock()
	c.self.ID = types.ID{0x40}
	c.pred = endpointWithID("127.0.0.1:8001", 0x10)
	c.hasPred = true
	c.mu.Unlock()

	require.False(t, c.Owns(types.ID{0x10})) // predecessor's own position
	require.True(t, c.Owns(types.ID{0x11}))
	require.True(t, c.Owns(types.ID{0x40})) // identifier equal to self is local
	require.False(t, c.Owns(types.ID{0x41}))
	require.False(t, c.Owns(types.ID{0xf0}))

	// Wrapped arc (0xf0, 0x40]
	c.mu.Lock()
	c.pred = endpointWithID("127.0.0.1:8002", 0xf0)
	c.mu.Unlock()

	require.True(t, c.Owns(types.ID{0xff}))
	require.True(t, c.Owns(types.ID{0x00}))
	require.True(t, c.Owns(types.ID{0x40}))
	require.False(t, c.Owns(types.ID{0x41}))
	require.False(t, c.Owns(types.ID{0xf0}))
}

// Test_Chord_ChainLen tests that the chain is capped by the ring size.
func Test_Chord_ChainLen(t *testing.T) {
	c := makeChord(t, "127.0.0.1:8000", 3)
	c.Create()

	// Alone: only one copy fits
	require.Equal(t, uint(1), c.ChainLen())

	c.mu.Lock()
	c.ringLen = 2
	c.mu.Unlock()
	require.Equal(t, uint(2), c.ChainLen())

	c.mu.Lock()
	c.ringLen = 10
	c.mu.Unlock()
	require.Equal(t, uint(3), c.ChainLen())
}

// Test_Chord_ObserveRing tests that the ring estimate only grows from walk
// evidence.
func Test_Chord_ObserveRing(t *testing.T) {
	c := makeChord(t, "127.0.0.1:8000", 1)
	c.Create()

	c.ObserveRing(4)
	require.Equal(t, uint(4), c.RingLen())

	c.ObserveRing(2)
	require.Equal(t, uint(4), c.RingLen())
}

// Test_Chord_Notify tests the predecessor adoption rule.
func Test_Chord_Notify(t *testing.T) {
	c := makeChord(t, "127.0.0.1:8000", 1)
	c.Create()

	c.mu.Lock()
	c.self.ID = types.ID{0x40}
	c.mu.Unlock()

	header := transport.NewHeader("req", c.Self())
	pkt := transport.Packet{Header: &header, Msg: &transport.Message{}}

	// First notify is always adopted
	first := endpointWithID("127.0.0.1:8001", 0x10)
	require.NoError(t, c.execNotifyMessage(&types.NotifyMessage{Node: first}, pkt))
	pred, ok := c.Predecessor()
	require.True(t, ok)
	require.True(t, pred.Equal(first))

	// A closer predecessor displaces it
	closer := endpointWithID("127.0.0.1:8002", 0x20)
	require.NoError(t, c.execNotifyMessage(&types.NotifyMessage{Node: closer}, pkt))
	pred, _ = c.Predecessor()
	require.True(t, pred.Equal(closer))

	// A farther one does not
	farther := endpointWithID("127.0.0.1:8003", 0x05)
	require.NoError(t, c.execNotifyMessage(&types.NotifyMessage{Node: farther}, pkt))
	pred, _ = c.Predecessor()
	require.True(t, pred.Equal(closer))
}

// Test_Chord_SetPred_LastPair tests that losing the only other node leaves a
// clean single-node ring.
func Test_Chord_SetPred_LastPair(t *testing.T) {
	c := makeChord(t, "127.0.0.1:8000", 1)
	c.Create()

	other := endpointWithID("127.0.0.1:8001", 0x99)
	c.mu.Lock()
	c.pred = other
	c.hasPred = true
	c.succ = other
	c.ringLen = 2
	c.mu.Unlock()

	header := transport.NewHeader("req", other)
	pkt := transport.Packet{Header: &header, Msg: &transport.Message{}}

	// The departing node names this node as its own predecessor's successor
	require.NoError(t, c.execSetPredMessage(&types.SetPredMessage{Node: c.Self()}, pkt))
	require.NoError(t, c.execSetSuccMessage(&types.SetSuccMessage{Node: c.Self()}, pkt))

	_, hasPred := c.Predecessor()
	require.False(t, hasPred)
	require.True(t, c.Successor().Equal(c.Self()))
	require.Equal(t, uint(1), c.RingLen())
}
