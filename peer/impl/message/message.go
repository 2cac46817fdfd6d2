package message

import (
	"os"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mlazoy/Chord-DHT/peer"
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
	"golang.org/x/xerrors"
)

// NewMessage creates the messaging module and registers the callbacks of the
// reply kinds, which all resolve a pending request.
func NewMessage(conf *peer.Configuration) *Message {
	m := Message{
		self:   conf.Self,
		conf:   conf,
		logger: log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Str("node", conf.Self.Addr()).Logger(),
	}

	/* Register the reply message callbacks */
	conf.MessageRegistry.RegisterMessageCallback(types.QueryReplyMessage{}, m.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.FindSuccessorReplyMessage{}, m.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.OverlayReplyMessage{}, m.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.ScanReplyMessage{}, m.execReply)
	conf.MessageRegistry.RegisterMessageCallback(types.ErrorMessage{}, m.execError)

	return &m
}

// Message handles the packet plumbing shared by every module: originating
// requests, forwarding them clockwise, sending replies back to originators,
// and correlating incoming replies with pending requests.
type Message struct {
	self    types.Endpoint
	conf    *peer.Configuration
	logger  zerolog.Logger
	pending sync.Map // request id -> chan types.Message
}

// Self returns the endpoint of this node.
func (m *Message) Self() types.Endpoint {
	return m.self
}

// Logger returns a child logger tagged with the given module name.
func (m *Message) Logger(module string) zerolog.Logger {
	return m.logger.With().Str("module", module).Logger()
}

// send delivers a packet to dest. Packets addressed to this node short-cut
// the network and go through the registry directly.
func (m *Message) send(dest types.Endpoint, pkt transport.Packet) error {
	if dest.Addr() == m.self.Addr() {
		go func() {
			err := m.conf.MessageRegistry.ProcessPacket(pkt)
			if err != nil {
				m.logger.Err(err).Msg("failed to process local packet")
			}
		}()
		return nil
	}
	return m.conf.Socket.Send(dest.Addr(), pkt, m.conf.RequestTimeout)
}

// Request originates a fire-and-forget request to dest and returns its
// request id.
func (m *Message) Request(dest types.Endpoint, msg types.Message) (string, error) {
	msgTrans, err := m.conf.MessageRegistry.MarshalMessage(msg)
	if err != nil {
		return "", err
	}

	header := transport.NewHeader(xid.New().String(), m.self)
	pkt := transport.Packet{Header: &header, Msg: &msgTrans}

	return header.RequestID, m.send(dest, pkt)
}

// SendAndWait originates a request to dest and blocks until the matching
// reply arrives or the timeout elapses.
func (m *Message) SendAndWait(dest types.Endpoint, msg types.Message,
	timeout time.Duration) (types.Message, error) {

	msgTrans, err := m.conf.MessageRegistry.MarshalMessage(msg)
	if err != nil {
		return nil, err
	}

	header := transport.NewHeader(xid.New().String(), m.self)
	pkt := transport.Packet{Header: &header, Msg: &msgTrans}

	return m.dispatchAndWait(dest, pkt, timeout)
}

// ProcessLocal injects a request into this node's own handler chain, as if it
// had arrived on the wire with this node as originator, and waits for the
// reply. It is the entry point of the client-facing operations.
func (m *Message) ProcessLocal(msg types.Message, timeout time.Duration) (types.Message, error) {
	msgTrans, err := m.conf.MessageRegistry.MarshalMessage(msg)
	if err != nil {
		return nil, err
	}

	header := transport.NewHeader(xid.New().String(), m.self)
	pkt := transport.Packet{Header: &header, Msg: &msgTrans}

	return m.dispatchAndWait(m.self, pkt, timeout)
}

func (m *Message) dispatchAndWait(dest types.Endpoint, pkt transport.Packet,
	timeout time.Duration) (types.Message, error) {

	// Prepare a reply channel that receives the reply, if any response is
	// ready
	replyChan := make(chan types.Message, 1)
	m.pending.Store(pkt.Header.RequestID, replyChan)
	defer m.pending.Delete(pkt.Header.RequestID)

	err := m.send(dest, pkt)
	if err != nil {
		return nil, err
	}

	// Either we wait until the timeout, or we receive a response from the
	// reply channel
	select {
	case reply := <-replyChan:
		if errMsg, ok := reply.(*types.ErrorMessage); ok {
			return nil, xerrors.Errorf("%s error: %s", errMsg.Code, errMsg.Reason)
		}
		return reply, nil
	case <-time.After(timeout):
		return nil, transport.TimeoutError(timeout)
	}
}

// Forward relays the packet unchanged to dest, incrementing the hop counter.
// The request id and originator are preserved so the eventual responder can
// reach back.
func (m *Message) Forward(pkt transport.Packet, dest types.Endpoint) error {
	header := *pkt.Header
	header.HopCount++
	fw := transport.Packet{Header: &header, Msg: pkt.Msg}
	return m.send(dest, fw)
}

// Continue sends a new message to dest within the request context of pkt: the
// request id and originator carry over and the hop counter increments. Used
// when a request changes shape along its path, e.g. entering a replica chain.
func (m *Message) Continue(pkt transport.Packet, dest types.Endpoint, msg types.Message) error {
	msgTrans, err := m.conf.MessageRegistry.MarshalMessage(msg)
	if err != nil {
		return err
	}

	header := *pkt.Header
	header.HopCount++
	fw := transport.Packet{Header: &header, Msg: &msgTrans}
	return m.send(dest, fw)
}

// Reply sends msg to the originator of pkt, carrying the same request id so
// the originator can correlate it.
func (m *Message) Reply(pkt transport.Packet, msg types.Message) error {
	msgTrans, err := m.conf.MessageRegistry.MarshalMessage(msg)
	if err != nil {
		return err
	}

	header := transport.NewHeader(pkt.Header.RequestID, m.self)
	reply := transport.Packet{Header: &header, Msg: &msgTrans}
	return m.send(pkt.Header.Origin, reply)
}

// ReplyError reports a failed request to the originator of pkt.
func (m *Message) ReplyError(pkt transport.Packet, code, reason string) error {
	return m.Reply(pkt, types.ErrorMessage{Code: code, Reason: reason})
}

func (m *Message) execReply(msg types.Message, pkt transport.Packet) error {
	// We receive a reply to one of our requests. Notify the handler that is
	// waiting for it, if it is still waiting.
	replyChan, ok := m.pending.Load(pkt.Header.RequestID)
	if ok {
		// A late or duplicate reply must not block the handler
		select {
		case replyChan.(chan types.Message) <- msg:
		default:
		}
	}
	return nil
}

func (m *Message) execError(msg types.Message, pkt transport.Packet) error {
	errMsg, ok := msg.(*types.ErrorMessage)
	if !ok {
		return xerrors.Errorf("wrong type: %T", msg)
	}

	m.logger.Warn().
		Str("request", pkt.Header.RequestID).
		Str("code", errMsg.Code).
		Msg(errMsg.Reason)

	return m.execReply(msg, pkt)
}
