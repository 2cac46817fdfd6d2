package impl

import (
	"bytes"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlazoy/Chord-DHT/peer"
	"github.com/mlazoy/Chord-DHT/registry/standard"
	"github.com/mlazoy/Chord-DHT/transport/tcp"
	"github.com/mlazoy/Chord-DHT/types"
)

const settle = time.Millisecond * 500

type testNode struct {
	peer.Peer
	endpoint types.Endpoint
	inner    *node
}

func startTestNode(t *testing.T, bootstrap *types.Endpoint, factor uint,
	mode types.Consistency) *testNode {

	sock, err := tcp.NewTCP().CreateSocket("127.0.0.1:0")
	require.NoError(t, err)

	self, err := types.ParseEndpoint(sock.GetAddress())
	require.NoError(t, err)

	conf := peer.Configuration{
		Socket:          sock,
		MessageRegistry: standard.NewRegistry(),
		Self:            self,
		Bootstrap:       bootstrap,
		ReplicaFactor:   factor,
		Mode:            mode,
		RequestTimeout:  time.Second * 2,
		RepairInterval:  time.Millisecond * 100,
	}

	p := NewPeer(conf)
	require.NoError(t, p.Start())
	t.Cleanup(func() { p.Stop() })

	return &testNode{Peer: p, endpoint: self, inner: p.(*node)}
}

// buildRing starts a bootstrap node and joins size-1 more nodes one by one.
func buildRing(t *testing.T, size int, factor uint, mode types.Consistency) []*testNode {
	nodes := make([]*testNode, 0, size)
	nodes = append(nodes, startTestNode(t, nil, factor, mode))

	for i := 1; i < size; i++ {
		n := startTestNode(t, &nodes[0].endpoint, factor, mode)
		require.NoError(t, n.Join())
		time.Sleep(settle)
		nodes = append(nodes, n)
	}
	return nodes
}

// holders returns the nodes storing the key at any replica depth.
func holders(nodes []*testNode, key string) []*testNode {
	var res []*testNode
	for _, n := range nodes {
		if _, _, ok := n.inner.store.Get(key); ok {
			res = append(res, n)
		}
	}
	return res
}

// ownerOf returns the node whose arc contains the key, or nil unless exactly
// one node claims it.
func ownerOf(nodes []*testNode, key string) *testNode {
	var res *testNode
	for _, n := range nodes {
		if n.inner.chord.Owns(types.HashKey(key)) {
			if res != nil {
				return nil
			}
			res = n
		}
	}
	return res
}

// Test_Ring_SingleNode covers both modes on a one-node ring: insert, query,
// overwrite, delete, miss.
func Test_Ring_SingleNode(t *testing.T) {
	for _, mode := range []types.Consistency{types.Eventual, types.Chain} {
		t.Run(mode.String(), func(t *testing.T) {
			nodes := buildRing(t, 1, 3, mode)
			n := nodes[0]

			_, ok, err := n.Query("foo")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, n.Insert("foo", "bar"))
			value, ok, err := n.Query("foo")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "bar", value)

			require.NoError(t, n.Insert("foo", "baz"))
			value, _, err = n.Query("foo")
			require.NoError(t, err)
			require.Equal(t, "baz", value)

			existed, err := n.Delete("foo")
			require.NoError(t, err)
			require.True(t, existed)

			_, ok, err = n.Query("foo")
			require.NoError(t, err)
			require.False(t, ok)

			existed, err = n.Delete("foo")
			require.NoError(t, err)
			require.False(t, existed)
		})
	}
}

// Test_Ring_RoundTrip_AnyNode checks that every operation can enter the ring
// through any node.
func Test_Ring_RoundTrip_AnyNode(t *testing.T) {
	for _, mode := range []types.Consistency{types.Eventual, types.Chain} {
		t.Run(mode.String(), func(t *testing.T) {
			nodes := buildRing(t, 3, 2, mode)

			for i := 0; i < 9; i++ {
				key := fmt.Sprintf("song-%d", i)
				require.NoError(t, nodes[i%3].Insert(key, fmt.Sprintf("url-%d", i)))
			}

			for i := 0; i < 9; i++ {
				key := fmt.Sprintf("song-%d", i)
				for _, n := range nodes {
					value, ok, err := n.Query(key)
					require.NoError(t, err)
					require.True(t, ok, "key %q missing via %s", key, n.endpoint)
					require.Equal(t, fmt.Sprintf("url-%d", i), value)
				}
			}
		})
	}
}

// Test_Ring_Eventual_ReplicaPlacement checks that after quiescence every key
// sits on exactly R consecutive nodes starting at its owner, primary first.
func Test_Ring_Eventual_ReplicaPlacement(t *testing.T) {
	const factor = 2
	nodes := buildRing(t, 4, factor, types.Eventual)

	keys := make([]string, 10)
	for i := range keys {
		keys[i] = fmt.Sprintf("song-%d", i)
		require.NoError(t, nodes[1].Insert(keys[i], "url"))
	}

	byAddr := make(map[string]*testNode)
	for _, n := range nodes {
		byAddr[n.endpoint.Addr()] = n
	}

	for _, key := range keys {
		key := key
		require.Eventually(t, func() bool {
			own := ownerOf(nodes, key)
			if own == nil {
				return false
			}
			_, depth, ok := own.inner.store.Get(key)
			if !ok || depth != 0 {
				return false
			}

			succ := byAddr[own.GetSuccessor().Addr()]
			_, depth, ok = succ.inner.store.Get(key)
			if !ok || depth != 1 {
				return false
			}

			return len(holders(nodes, key)) == factor
		}, time.Second*5, time.Millisecond*100, "key %q never reached %d consecutive copies", key, factor)
	}
}

// Test_Ring_Chain_ImmediateRead checks that in chain mode a read issued right
// after the write acknowledgement sees the latest value from any node.
func Test_Ring_Chain_ImmediateRead(t *testing.T) {
	nodes := buildRing(t, 3, 3, types.Chain)

	for i := 0; i < 30; i++ {
		key := fmt.Sprintf("song-%d", i%10)
		value := fmt.Sprintf("url-%d", i)
		require.NoError(t, nodes[i%3].Insert(key, value))

		got, ok, err := nodes[(i+1)%3].Query(key)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, value, got)
	}
}

// Test_Ring_Chain_Delete checks the chain delete discipline end to end.
func Test_Ring_Chain_Delete(t *testing.T) {
	nodes := buildRing(t, 3, 2, types.Chain)

	require.NoError(t, nodes[0].Insert("song", "url"))

	existed, err := nodes[2].Delete("song")
	require.NoError(t, err)
	require.True(t, existed)

	for _, n := range nodes {
		_, ok, err := n.Query("song")
		require.NoError(t, err)
		require.False(t, ok)
	}
}

// Test_Ring_Overlay checks that the overlay from every node returns each live
// endpoint exactly once, clockwise, rotated to start at the queried node.
func Test_Ring_Overlay(t *testing.T) {
	nodes := buildRing(t, 4, 1, types.Eventual)

	sorted := make([]types.Endpoint, 0, len(nodes))
	for _, n := range nodes {
		sorted = append(sorted, n.endpoint)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ID[:], sorted[j].ID[:]) < 0
	})

	for _, n := range nodes {
		peers, err := n.Overlay()
		require.NoError(t, err)
		require.Len(t, peers, len(nodes))
		require.True(t, peers[0].Equal(n.endpoint))

		// Find the queried node in the sorted order and expect the rotation
		start := 0
		for i, e := range sorted {
			if e.Equal(n.endpoint) {
				start = i
			}
		}
		for i, p := range peers {
			require.True(t, p.Equal(sorted[(start+i)%len(sorted)]),
				"overlay from %s is not in clockwise order", n.endpoint)
		}
	}
}

// Test_Ring_Scan checks that the scan returns every primary item exactly
// once, whichever node it starts from.
func Test_Ring_Scan(t *testing.T) {
	nodes := buildRing(t, 3, 2, types.Eventual)

	want := make(map[string]string)
	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("song-%d", i)
		want[key] = fmt.Sprintf("url-%d", i)
		require.NoError(t, nodes[i%3].Insert(key, want[key]))
	}
	time.Sleep(settle)

	for _, n := range nodes {
		entries, err := n.Scan()
		require.NoError(t, err)

		got := make(map[string]string)
		for _, e := range entries {
			for _, item := range e.Items {
				_, dup := got[item.Key]
				require.False(t, dup, "key %q reported twice", item.Key)
				got[item.Key] = item.Value
			}
		}
		require.Equal(t, want, got)
	}
}

// Test_Ring_Depart checks that records survive a graceful departure and that
// the ring heals.
func Test_Ring_Depart(t *testing.T) {
	for _, mode := range []types.Consistency{types.Eventual, types.Chain} {
		t.Run(mode.String(), func(t *testing.T) {
			nodes := buildRing(t, 3, 2, mode)

			keys := make([]string, 9)
			for i := range keys {
				keys[i] = fmt.Sprintf("song-%d", i)
				require.NoError(t, nodes[0].Insert(keys[i], "url"))
			}
			time.Sleep(settle)

			require.NoError(t, nodes[2].Depart())
			select {
			case <-nodes[2].Done():
			case <-time.After(time.Second * 2):
				t.Fatal("departure never completed")
			}
			time.Sleep(settle)

			remaining := nodes[:2]
			for _, key := range keys {
				value, ok, err := remaining[0].Query(key)
				require.NoError(t, err)
				require.True(t, ok, "key %q lost on departure", key)
				require.Equal(t, "url", value)
			}

			peers, err := remaining[1].Overlay()
			require.NoError(t, err)
			require.Len(t, peers, 2)
		})
	}
}

// Test_Ring_JoinDepart_RoundTrip checks that a join immediately followed by a
// departure leaves the single-node ring as it was.
func Test_Ring_JoinDepart_RoundTrip(t *testing.T) {
	boot := startTestNode(t, nil, 3, types.Eventual)
	require.NoError(t, boot.Insert("song", "url"))

	n2 := startTestNode(t, &boot.endpoint, 3, types.Eventual)
	require.NoError(t, n2.Join())
	time.Sleep(settle)

	require.NoError(t, n2.Depart())
	time.Sleep(settle)

	require.True(t, boot.GetSuccessor().Equal(boot.endpoint))
	_, hasPred := boot.GetPredecessor()
	require.False(t, hasPred)

	value, ok, err := boot.Query("song")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "url", value)
}

// Test_Ring_SparseReplicas checks the boundary where the ring is smaller than
// the replica factor: a lone node keeps one copy, later joins backfill.
func Test_Ring_SparseReplicas(t *testing.T) {
	boot := startTestNode(t, nil, 3, types.Eventual)
	require.NoError(t, boot.Insert("song", "url"))
	require.Equal(t, 1, boot.inner.store.Len())

	nodes := []*testNode{boot}
	for i := 0; i < 2; i++ {
		n := startTestNode(t, &boot.endpoint, 3, types.Eventual)
		require.NoError(t, n.Join())
		time.Sleep(settle)
		nodes = append(nodes, n)
	}

	// With three nodes and R=3 every node eventually holds a copy
	require.Eventually(t, func() bool {
		return len(holders(nodes, "song")) == 3
	}, time.Second*5, time.Millisecond*100)
}
