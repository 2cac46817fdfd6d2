package types

import (
	"fmt"
	"net"
	"strconv"
	"golang.org/x/xerrors"
)

// Endpoint identifies a node of the ring: where to reach it and where it sits
// on the identifier space. Two endpoints are equal iff all three components
// match.
type Endpoint struct {
	IP   string `json:"ip"`
	Port uint16 `json:"port"`
	ID   ID     `json:"id"`
}

// NewEndpoint builds an endpoint for the given ip and port, deriving the ring
// identifier from them.
func NewEndpoint(ip string, port uint16) Endpoint {
	return Endpoint{
		IP:   ip,
		Port: port,
		ID:   HashAddress(net.JoinHostPort(ip, strconv.Itoa(int(port)))),
	}
}

// ParseEndpoint builds an endpoint from an "ip:port" address string.
func ParseEndpoint(addr string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Endpoint{}, xerrors.Errorf("ParseEndpoint %s: %v", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Endpoint{}, xerrors.Errorf("ParseEndpoint %s: %v", addr, err)
	}
	return NewEndpoint(host, uint16(port)), nil
}

// Addr returns the dialable "ip:port" form of the endpoint.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(int(e.Port)))
}

// Equal reports whether both endpoints name the same node.
func (e Endpoint) Equal(other Endpoint) bool {
	return e.IP == other.IP && e.Port == other.Port && e.ID == other.ID
}

// IsZero reports whether the endpoint is unset.
func (e Endpoint) IsZero() bool {
	return e.IP == "" && e.Port == 0
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s#%s", e.Addr(), e.ID.Short())
}
