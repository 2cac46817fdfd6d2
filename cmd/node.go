package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mlazoy/Chord-DHT/peer"
	"github.com/mlazoy/Chord-DHT/peer/impl"
	"github.com/mlazoy/Chord-DHT/registry/standard"
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/transport/tcp"
	"github.com/mlazoy/Chord-DHT/types"
	"golang.org/x/xerrors"
)

var peerFac peer.Factory = impl.NewPeer
var tcpFac transport.Factory = tcp.NewTCP

// BasePort is the port of the bootstrap node; a joining node with port index
// n listens on BasePort + n.
const BasePort = 8000

// bootstrapAddr returns the well-known bootstrap address, overridable through
// the environment.
func bootstrapAddr() string {
	if addr := os.Getenv("CHORD_BOOTSTRAP"); addr != "" {
		return addr
	}
	return fmt.Sprintf("127.0.0.1:%d", BasePort)
}

// nodeDefaultConf returns the default configuration of a node listening on
// the given address.
func nodeDefaultConf(trans transport.Transport, addr string) peer.Configuration {
	socket, err := trans.CreateSocket(addr)
	if err != nil {
		panic(err)
	}

	self, err := types.ParseEndpoint(socket.GetAddress())
	if err != nil {
		panic(err)
	}

	var config peer.Configuration
	config.Socket = socket
	config.MessageRegistry = standard.NewRegistry()
	config.Self = self
	config.RequestTimeout = time.Second * 10
	config.RepairInterval = time.Second * 5
	return config
}

// StartBootstrap starts the bootstrap node, which creates the ring and fixes
// the replica factor and consistency mode.
func StartBootstrap(factor uint, mode types.Consistency) (peer.Peer, error) {
	if factor < 1 {
		return nil, xerrors.Errorf("invalid replica factor %d: must be > 0", factor)
	}

	config := nodeDefaultConf(tcpFac(), bootstrapAddr())
	config.ReplicaFactor = factor
	config.Mode = mode

	node := peerFac(config)
	err := node.Start()
	if err != nil {
		return nil, xerrors.Errorf("failed to start bootstrap node: %v", err)
	}
	return node, nil
}

// StartNode starts a joining node listening on BasePort + index and joins the
// ring through the well-known bootstrap endpoint.
func StartNode(index uint16) (peer.Peer, error) {
	bootstrap, err := types.ParseEndpoint(bootstrapAddr())
	if err != nil {
		return nil, xerrors.Errorf("invalid bootstrap address: %v", err)
	}

	addr := fmt.Sprintf("%s:%d", LocalIP(), BasePort+index)
	config := nodeDefaultConf(tcpFac(), addr)
	config.Bootstrap = &bootstrap

	node := peerFac(config)
	err = node.Start()
	if err != nil {
		return nil, xerrors.Errorf("failed to start node: %v", err)
	}

	err = node.Join()
	if err != nil {
		node.Stop()
		return nil, xerrors.Errorf("failed to join the ring: %v", err)
	}
	return node, nil
}
