package types

import "fmt"

// -----------------------------------------------------------------------------
// InsertMessage

// NewEmpty implements types.Message.
func (m InsertMessage) NewEmpty() Message {
	return &InsertMessage{}
}

// Name implements types.Message.
func (m InsertMessage) Name() string {
	return "insert"
}

// String implements types.Message.
func (m InsertMessage) String() string {
	return fmt.Sprintf("{insert %s}", m.Key)
}

// -----------------------------------------------------------------------------
// QueryMessage

// NewEmpty implements types.Message.
func (m QueryMessage) NewEmpty() Message {
	return &QueryMessage{}
}

// Name implements types.Message.
func (m QueryMessage) Name() string {
	return "query"
}

// String implements types.Message.
func (m QueryMessage) String() string {
	if m.Tail {
		return fmt.Sprintf("{query %s tail-%d}", m.Key, m.Remaining)
	}
	return fmt.Sprintf("{query %s}", m.Key)
}

// -----------------------------------------------------------------------------
// QueryReplyMessage

// NewEmpty implements types.Message.
func (m QueryReplyMessage) NewEmpty() Message {
	return &QueryReplyMessage{}
}

// Name implements types.Message.
func (m QueryReplyMessage) Name() string {
	return "queryreply"
}

// String implements types.Message.
func (m QueryReplyMessage) String() string {
	if m.Miss {
		return fmt.Sprintf("{queryreply %s miss}", m.Key)
	}
	return fmt.Sprintf("{queryreply %s}", m.Key)
}

// -----------------------------------------------------------------------------
// DeleteMessage

// NewEmpty implements types.Message.
func (m DeleteMessage) NewEmpty() Message {
	return &DeleteMessage{}
}

// Name implements types.Message.
func (m DeleteMessage) Name() string {
	return "delete"
}

// String implements types.Message.
func (m DeleteMessage) String() string {
	if m.Chained {
		return fmt.Sprintf("{delete %s chain-%d}", m.Key, m.Remaining)
	}
	return fmt.Sprintf("{delete %s}", m.Key)
}

// -----------------------------------------------------------------------------
// ReplicateMessage

// NewEmpty implements types.Message.
func (m ReplicateMessage) NewEmpty() Message {
	return &ReplicateMessage{}
}

// Name implements types.Message.
func (m ReplicateMessage) Name() string {
	return "replicate"
}

// String implements types.Message.
func (m ReplicateMessage) String() string {
	if m.Remove {
		return fmt.Sprintf("{replicate remove %s@%d}", m.Key, m.Depth)
	}
	return fmt.Sprintf("{replicate %s@%d}", m.Key, m.Depth)
}

// -----------------------------------------------------------------------------
// ScanMessage

// NewEmpty implements types.Message.
func (m ScanMessage) NewEmpty() Message {
	return &ScanMessage{}
}

// Name implements types.Message.
func (m ScanMessage) Name() string {
	return "scan"
}

// String implements types.Message.
func (m ScanMessage) String() string {
	return fmt.Sprintf("{scan %d entries}", len(m.Entries))
}

// -----------------------------------------------------------------------------
// ScanReplyMessage

// NewEmpty implements types.Message.
func (m ScanReplyMessage) NewEmpty() Message {
	return &ScanReplyMessage{}
}

// Name implements types.Message.
func (m ScanReplyMessage) Name() string {
	return "scanreply"
}

// String implements types.Message.
func (m ScanReplyMessage) String() string {
	return fmt.Sprintf("{scanreply %d entries}", len(m.Entries))
}
