package standard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
)

// Test_Registry_MarshalUnmarshal tests the payload codec round trip.
func Test_Registry_MarshalUnmarshal(t *testing.T) {
	reg := NewRegistry()

	msg := types.InsertMessage{Key: "title", Value: "url"}
	msgTrans, err := reg.MarshalMessage(msg)
	require.NoError(t, err)
	require.Equal(t, msg.Name(), msgTrans.Type)

	var back types.InsertMessage
	require.NoError(t, reg.UnmarshalMessage(&msgTrans, &back))
	require.Equal(t, msg, back)

	// The concrete kind must match the wire kind
	var wrong types.QueryMessage
	require.Error(t, reg.UnmarshalMessage(&msgTrans, &wrong))
}

// Test_Registry_ProcessPacket tests the kind-indexed dispatch.
func Test_Registry_ProcessPacket(t *testing.T) {
	reg := NewRegistry()

	var got types.Message
	reg.RegisterMessageCallback(types.QueryMessage{}, func(m types.Message, p transport.Packet) error {
		got = m
		return nil
	})

	msgTrans, err := reg.MarshalMessage(types.QueryMessage{Key: "title"})
	require.NoError(t, err)

	header := transport.NewHeader("req-1", types.NewEndpoint("127.0.0.1", 9000))
	pkt := transport.Packet{Header: &header, Msg: &msgTrans}

	require.NoError(t, reg.ProcessPacket(pkt))
	queryMsg, ok := got.(*types.QueryMessage)
	require.True(t, ok)
	require.Equal(t, "title", queryMsg.Key)
}

// Test_Registry_UnknownKind tests that an unregistered kind is rejected: it
// is a protocol error at the dispatch layer.
func Test_Registry_UnknownKind(t *testing.T) {
	reg := NewRegistry()

	msgTrans, err := reg.MarshalMessage(types.QueryMessage{Key: "title"})
	require.NoError(t, err)

	header := transport.NewHeader("req-1", types.NewEndpoint("127.0.0.1", 9000))
	pkt := transport.Packet{Header: &header, Msg: &msgTrans}

	require.Error(t, reg.ProcessPacket(pkt))
}
