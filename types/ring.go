package types

import "fmt"

// -----------------------------------------------------------------------------
// FindSuccessorMessage

// NewEmpty implements types.Message.
func (m FindSuccessorMessage) NewEmpty() Message {
	return &FindSuccessorMessage{}
}

// Name implements types.Message.
func (m FindSuccessorMessage) Name() string {
	return "findsuccessor"
}

// String implements types.Message.
func (m FindSuccessorMessage) String() string {
	return fmt.Sprintf("{findsuccessor for %s}", m.Node)
}

// -----------------------------------------------------------------------------
// FindSuccessorReplyMessage

// NewEmpty implements types.Message.
func (m FindSuccessorReplyMessage) NewEmpty() Message {
	return &FindSuccessorReplyMessage{}
}

// Name implements types.Message.
func (m FindSuccessorReplyMessage) Name() string {
	return "findsuccessorreply"
}

// String implements types.Message.
func (m FindSuccessorReplyMessage) String() string {
	return fmt.Sprintf("{findsuccessorreply succ %s pred %s %d items}",
		m.Successor, m.Predecessor, len(m.Items))
}

// -----------------------------------------------------------------------------
// NotifyMessage

// NewEmpty implements types.Message.
func (m NotifyMessage) NewEmpty() Message {
	return &NotifyMessage{}
}

// Name implements types.Message.
func (m NotifyMessage) Name() string {
	return "notify"
}

// String implements types.Message.
func (m NotifyMessage) String() string {
	return fmt.Sprintf("{notify from %s}", m.Node)
}

// -----------------------------------------------------------------------------
// NotifyAsSuccMessage

// NewEmpty implements types.Message.
func (m NotifyAsSuccMessage) NewEmpty() Message {
	return &NotifyAsSuccMessage{}
}

// Name implements types.Message.
func (m NotifyAsSuccMessage) Name() string {
	return "notifyassucc"
}

// String implements types.Message.
func (m NotifyAsSuccMessage) String() string {
	return fmt.Sprintf("{notifyassucc from %s}", m.Node)
}

// -----------------------------------------------------------------------------
// SetSuccMessage

// NewEmpty implements types.Message.
func (m SetSuccMessage) NewEmpty() Message {
	return &SetSuccMessage{}
}

// Name implements types.Message.
func (m SetSuccMessage) Name() string {
	return "setsucc"
}

// String implements types.Message.
func (m SetSuccMessage) String() string {
	return fmt.Sprintf("{setsucc %s}", m.Node)
}

// -----------------------------------------------------------------------------
// SetPredMessage

// NewEmpty implements types.Message.
func (m SetPredMessage) NewEmpty() Message {
	return &SetPredMessage{}
}

// Name implements types.Message.
func (m SetPredMessage) Name() string {
	return "setpred"
}

// String implements types.Message.
func (m SetPredMessage) String() string {
	return fmt.Sprintf("{setpred %s}", m.Node)
}

// -----------------------------------------------------------------------------
// DepartMessage

// NewEmpty implements types.Message.
func (m DepartMessage) NewEmpty() Message {
	return &DepartMessage{}
}

// Name implements types.Message.
func (m DepartMessage) Name() string {
	return "depart"
}

// String implements types.Message.
func (m DepartMessage) String() string {
	return "{depart}"
}

// -----------------------------------------------------------------------------
// TransferStoreMessage

// NewEmpty implements types.Message.
func (m TransferStoreMessage) NewEmpty() Message {
	return &TransferStoreMessage{}
}

// Name implements types.Message.
func (m TransferStoreMessage) Name() string {
	return "transferstore"
}

// String implements types.Message.
func (m TransferStoreMessage) String() string {
	return fmt.Sprintf("{transferstore %d items}", len(m.Items))
}

// -----------------------------------------------------------------------------
// OverlayMessage

// NewEmpty implements types.Message.
func (m OverlayMessage) NewEmpty() Message {
	return &OverlayMessage{}
}

// Name implements types.Message.
func (m OverlayMessage) Name() string {
	return "overlay"
}

// String implements types.Message.
func (m OverlayMessage) String() string {
	return fmt.Sprintf("{overlay %d peers}", len(m.Peers))
}

// -----------------------------------------------------------------------------
// OverlayReplyMessage

// NewEmpty implements types.Message.
func (m OverlayReplyMessage) NewEmpty() Message {
	return &OverlayReplyMessage{}
}

// Name implements types.Message.
func (m OverlayReplyMessage) Name() string {
	return "overlayreply"
}

// String implements types.Message.
func (m OverlayReplyMessage) String() string {
	return fmt.Sprintf("{overlayreply %d peers}", len(m.Peers))
}

// -----------------------------------------------------------------------------
// ErrorMessage

// NewEmpty implements types.Message.
func (m ErrorMessage) NewEmpty() Message {
	return &ErrorMessage{}
}

// Name implements types.Message.
func (m ErrorMessage) Name() string {
	return "error"
}

// String implements types.Message.
func (m ErrorMessage) String() string {
	return fmt.Sprintf("{error %s: %s}", m.Code, m.Reason)
}
