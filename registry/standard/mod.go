package standard

import (
	"encoding/json"
	"sync"

	"github.com/mlazoy/Chord-DHT/registry"
	"github.com/mlazoy/Chord-DHT/transport"
	"github.com/mlazoy/Chord-DHT/types"
	"golang.org/x/xerrors"
)

// NewRegistry returns a new initialized registry.
func NewRegistry() registry.Registry {
	return &Registry{
		kinds: make(map[string]types.Message),
		execs: make(map[string]registry.Exec),
	}
}

// Registry implements a thread-safe message registry.
//
// - implements registry.Registry
type Registry struct {
	sync.RWMutex
	kinds map[string]types.Message
	execs map[string]registry.Exec
}

// RegisterMessageCallback implements registry.Registry.
func (r *Registry) RegisterMessageCallback(m types.Message, exec registry.Exec) {
	r.Lock()
	defer r.Unlock()

	r.kinds[m.Name()] = m
	r.execs[m.Name()] = exec
}

// ProcessPacket implements registry.Registry.
func (r *Registry) ProcessPacket(pkt transport.Packet) error {
	if pkt.Msg == nil || pkt.Header == nil {
		return xerrors.Errorf("ProcessPacket: packet misses header or msg")
	}

	r.RLock()
	kind, ok := r.kinds[pkt.Msg.Type]
	exec := r.execs[pkt.Msg.Type]
	r.RUnlock()

	if !ok || exec == nil {
		return xerrors.Errorf("ProcessPacket: unknown message kind %q", pkt.Msg.Type)
	}

	msg := kind.NewEmpty()
	err := json.Unmarshal(pkt.Msg.Payload, msg)
	if err != nil {
		return xerrors.Errorf("ProcessPacket: failed to decode %q payload: %v", pkt.Msg.Type, err)
	}

	return exec(msg, pkt)
}

// MarshalMessage implements registry.Registry.
func (r *Registry) MarshalMessage(m types.Message) (transport.Message, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return transport.Message{}, xerrors.Errorf("MarshalMessage %q: %v", m.Name(), err)
	}

	return transport.Message{
		Type:    m.Name(),
		Payload: payload,
	}, nil
}

// UnmarshalMessage implements registry.Registry.
func (r *Registry) UnmarshalMessage(m *transport.Message, into types.Message) error {
	if m.Type != into.Name() {
		return xerrors.Errorf("UnmarshalMessage: kind mismatch %q != %q", m.Type, into.Name())
	}

	err := json.Unmarshal(m.Payload, into)
	if err != nil {
		return xerrors.Errorf("UnmarshalMessage %q: %v", m.Type, err)
	}
	return nil
}
