package daemon

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mlazoy/Chord-DHT/peer"
	"github.com/mlazoy/Chord-DHT/peer/impl/message"
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
)

// isReplyKind guards against answering a failed reply with another error,
// which could bounce between two nodes forever.
func isReplyKind(kind string) bool {
	switch kind {
	case types.QueryReplyMessage{}.Name(),
		types.FindSuccessorReplyMessage{}.Name(),
		types.OverlayReplyMessage{}.Name(),
		types.ScanReplyMessage{}.Name(),
		types.ErrorMessage{}.Name():
		return true
	default:
		return false
	}
}

// NewDaemon creates the listen daemon of a node.
func NewDaemon(conf *peer.Configuration, message *message.Message) *Daemon {
	return &Daemon{
		conf:           conf,
		message:        message,
		logger:         message.Logger("daemon"),
		stopListenChan: make(chan bool, 1),
	}
}

// Daemon owns the accept loop of the node: it reads frames from the socket
// and hands each one to the registry in its own goroutine.
type Daemon struct {
	conf           *peer.Configuration
	message        *message.Message
	logger         zerolog.Logger
	stopListenChan chan bool
}

// Start launches the listen daemon.
func (d *Daemon) Start() error {
	go d.listenDaemon()
	return nil
}

// Stop terminates the listen daemon.
func (d *Daemon) Stop() error {
	d.stopListenChan <- true
	return nil
}

func (d *Daemon) listenDaemon() {
	for {
		select {
		case <-d.stopListenChan:
			/* The node receives the stop message from the Stop() function,
			exit from the goroutine */
			return
		default:
			pkt, err := d.conf.Socket.Recv(time.Second * 1)
			if errors.Is(err, transport.TimeoutError(0)) {
				/* The socket is unable to receive a message within the
				specified duration. It should continue listening. */
				continue
			}
			if err != nil {
				// The socket is closed, nothing further will arrive
				return
			}

			go func() {
				err := d.conf.MessageRegistry.ProcessPacket(pkt)
				if err != nil {
					d.logger.Err(err).Str("packet", pkt.String()).Msg("failed to process packet")
					if !isReplyKind(pkt.Msg.Type) {
						err = d.message.ReplyError(pkt, types.ErrProtocol, err.Error())
						if err != nil {
							d.logger.Err(err).Msg("failed to report protocol error")
						}
					}
				}
			}()
		}
	}
}
