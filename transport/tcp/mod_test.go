package tcp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mlazoy/Chord-DHT/registry/standard"
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
)

func makePacket(t *testing.T, requestID string) transport.Packet {
	reg := standard.NewRegistry()
	msgTrans, err := reg.MarshalMessage(types.InsertMessage{Key: "title", Value: "url"})
	require.NoError(t, err)

	header := transport.NewHeader(requestID, types.NewEndpoint("127.0.0.1", 9000))
	return transport.Packet{Header: &header, Msg: &msgTrans}
}

// Test_TCP_SendRecv tests one frame travelling between two sockets over
// loopback.
func Test_TCP_SendRecv(t *testing.T) {
	trans := NewTCP()

	recv, err := trans.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)
	defer recv.Close()

	send, err := trans.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)
	defer send.Close()

	pkt := makePacket(t, "req-1")
	require.NoError(t, send.Send(recv.GetAddress(), pkt, time.Second))

	got, err := recv.Recv(time.Second * 2)
	require.NoError(t, err)
	require.Equal(t, "req-1", got.Header.RequestID)
	require.Equal(t, pkt.Msg.Type, got.Msg.Type)
	require.Equal(t, pkt.Header.Origin, got.Header.Origin)
}

// Test_TCP_Recv_Timeout tests that an idle socket reports a timeout error.
func Test_TCP_Recv_Timeout(t *testing.T) {
	trans := NewTCP()

	sock, err := trans.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)
	defer sock.Close()

	_, err = sock.Recv(time.Millisecond * 50)
	require.Error(t, err)
	require.True(t, errors.Is(err, transport.TimeoutError(0)))
}

// Test_TCP_Send_Refused tests that dialing a dead endpoint surfaces an error
// rather than hanging.
func Test_TCP_Send_Refused(t *testing.T) {
	trans := NewTCP()

	sock, err := trans.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)

	// Grab an address nobody listens on anymore
	dead, err := trans.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := dead.GetAddress()
	require.NoError(t, dead.Close())

	err = sock.Send(deadAddr, makePacket(t, "req-2"), time.Millisecond*500)
	require.Error(t, err)

	require.NoError(t, sock.Close())
}

// Test_TCP_MultipleFrames tests several frames sent one after another, each
// on its own connection, all arriving.
func Test_TCP_MultipleFrames(t *testing.T) {
	trans := NewTCP()

	recv, err := trans.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)
	defer recv.Close()

	send, err := trans.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)
	defer send.Close()

	const n = 10
	for i := 0; i < n; i++ {
		pkt := makePacket(t, "req")
		require.NoError(t, send.Send(recv.GetAddress(), pkt, time.Second))
	}

	for i := 0; i < n; i++ {
		_, err := recv.Recv(time.Second * 2)
		require.NoError(t, err)
	}
}

// Test_TCP_Close tests that closing twice fails and unblocks receivers.
func Test_TCP_Close(t *testing.T) {
	trans := NewTCP()

	sock, err := trans.CreateSocket("127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, sock.Close())
	require.Error(t, sock.Close())

	_, err = sock.Recv(time.Second)
	require.Error(t, err)
	require.False(t, errors.Is(err, transport.TimeoutError(0)))
}
