package cmd

import (
	"net"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// LocalIP returns the outward-facing IPv4 address of this host, falling back
// to loopback when the host has no route.
func LocalIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

func addressValidator(ans interface{}) error {
	addr, _ := ans.(string)
	ipAndPort := strings.Split(addr, ":")
	if len(ipAndPort) != 2 {
		// The address given is invalid
		return xerrors.Errorf("Please enter a valid address, e.g., 127.0.0.1:8000")
	}

	if net.ParseIP(ipAndPort[0]) == nil {
		return xerrors.Errorf("Please enter a valid address, e.g., 127.0.0.1:8000")
	}

	portN, err := strconv.Atoi(ipAndPort[1])
	if err != nil || portN < 0 || portN >= 65536 {
		return xerrors.Errorf("Please enter a valid address, e.g., 127.0.0.1:8000")
	}

	return nil
}

func keyValidator(ans interface{}) error {
	key, _ := ans.(string)
	if strings.TrimSpace(key) == "" {
		return xerrors.Errorf("Please enter a non-empty key")
	}
	return nil
}
