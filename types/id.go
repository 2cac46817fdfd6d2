package types

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"golang.org/x/xerrors"
)

// IDBytes is the width of a ring identifier. SHA-1 digests are used
// unmodified, which gives a circular identifier space of 2^160 values.
const IDBytes = 20

// ID is a position on the circular identifier space. Both keys and node
// endpoints are mapped into the same space, so the routing layer can compare
// them directly.
type ID [IDBytes]byte

// HashKey maps a record key to its ring identifier.
func HashKey(key string) ID {
	return ID(sha1.Sum([]byte(key)))
}

// HashAddress maps an "ip:port" identity to its ring identifier. The node ID
// is fully determined by the endpoint, so a restarted node lands on the same
// position of the ring.
func HashAddress(addr string) ID {
	return ID(sha1.Sum([]byte(addr)))
}

// Between reports whether id lies on the half-open arc (a, b] of the ring.
// When a == b the arc covers the entire ring, which is the single-node case
// where every key belongs to that node.
func (id ID) Between(a, b ID) bool {
	ab := bytes.Compare(a[:], b[:])
	if ab == 0 {
		return true
	}

	xa := bytes.Compare(id[:], a[:])
	xb := bytes.Compare(id[:], b[:])
	if ab < 0 {
		// Normal case, the arc does not cross the zero point
		return xa > 0 && xb <= 0
	}
	// The arc wraps around the top of the ring
	return xa > 0 || xb <= 0
}

// Equal reports whether two identifiers are the same ring position.
func (id ID) Equal(other ID) bool {
	return id == other
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns an abbreviated form used in log lines.
func (id ID) Short() string {
	return hex.EncodeToString(id[:4])
}

// MarshalText encodes the identifier as a hex string on the wire.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id[:])), nil
}

// UnmarshalText decodes a hex string back into an identifier.
func (id *ID) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return xerrors.Errorf("ID UnmarshalText: %v", err)
	}
	if len(raw) != IDBytes {
		return xerrors.Errorf("ID UnmarshalText: expected %d bytes, got %d", IDBytes, len(raw))
	}
	copy(id[:], raw)
	return nil
}
