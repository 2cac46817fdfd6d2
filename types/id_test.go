package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func idWithPrefix(b byte) ID {
	var id ID
	id[0] = b
	return id
}

// Test_ID_Hash_Deterministic checks that hashing is stable and uniform enough
// to tell different inputs apart.
func Test_ID_Hash_Deterministic(t *testing.T) {
	require.Equal(t, HashKey("some key"), HashKey("some key"))
	require.NotEqual(t, HashKey("some key"), HashKey("some other key"))

	require.Equal(t, HashAddress("127.0.0.1:8000"), HashAddress("127.0.0.1:8000"))
	require.NotEqual(t, HashAddress("127.0.0.1:8000"), HashAddress("127.0.0.1:8001"))
}

// Test_ID_Between tests the half-open arc predicate on a normal arc.
func Test_ID_Between(t *testing.T) {
	a := idWithPrefix(0x10)
	b := idWithPrefix(0x40)

	require.False(t, idWithPrefix(0x10).Between(a, b)) // lower bound excluded
	require.True(t, idWithPrefix(0x11).Between(a, b))
	require.True(t, idWithPrefix(0x40).Between(a, b)) // upper bound included
	require.False(t, idWithPrefix(0x41).Between(a, b))
	require.False(t, idWithPrefix(0x00).Between(a, b))
	require.False(t, idWithPrefix(0xff).Between(a, b))
}

// Test_ID_Between_Wrap tests the arc crossing the top of the ring.
func Test_ID_Between_Wrap(t *testing.T) {
	a := idWithPrefix(0xf0)
	b := idWithPrefix(0x10)

	require.True(t, idWithPrefix(0xff).Between(a, b))
	require.True(t, idWithPrefix(0x00).Between(a, b))
	require.True(t, idWithPrefix(0x10).Between(a, b))
	require.False(t, idWithPrefix(0xf0).Between(a, b))
	require.False(t, idWithPrefix(0x11).Between(a, b))
	require.False(t, idWithPrefix(0x80).Between(a, b))
}

// Test_ID_Between_FullRing tests that an empty bound covers the whole ring,
// which is the single-node case.
func Test_ID_Between_FullRing(t *testing.T) {
	a := idWithPrefix(0x42)

	require.True(t, idWithPrefix(0x00).Between(a, a))
	require.True(t, idWithPrefix(0x42).Between(a, a))
	require.True(t, idWithPrefix(0xff).Between(a, a))
}

// Test_ID_Text_RoundTrip checks the hex wire encoding.
func Test_ID_Text_RoundTrip(t *testing.T) {
	id := HashKey("roundtrip")

	text, err := id.MarshalText()
	require.NoError(t, err)

	var back ID
	require.NoError(t, back.UnmarshalText(text))
	require.Equal(t, id, back)

	require.Error(t, back.UnmarshalText([]byte("not-hex")))
	require.Error(t, back.UnmarshalText([]byte("abcd")))
}

// Test_Endpoint_Equal checks that equality needs all three components.
func Test_Endpoint_Equal(t *testing.T) {
	e1 := NewEndpoint("127.0.0.1", 8000)
	e2 := NewEndpoint("127.0.0.1", 8000)
	e3 := NewEndpoint("127.0.0.1", 8001)

	require.True(t, e1.Equal(e2))
	require.False(t, e1.Equal(e3))

	forged := e2
	forged.ID = HashAddress("somewhere else")
	require.False(t, e1.Equal(forged))
}

// Test_Endpoint_Parse checks the address parsing round trip.
func Test_Endpoint_Parse(t *testing.T) {
	e, err := ParseEndpoint("127.0.0.1:8042")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8042", e.Addr())
	require.Equal(t, NewEndpoint("127.0.0.1", 8042), e)

	_, err = ParseEndpoint("no-port-here")
	require.Error(t, err)
}
