package types

import "fmt"

// Item is a stored record together with its replica role. Depth 0 marks the
// primary copy held by the arc owner; depth k in [1, R-1] marks the k-th
// forward replica held by the owner's k-th successor.
type Item struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Depth uint8  `json:"depth"`
}

func (i Item) String() string {
	return fmt.Sprintf("(%s:%s)@%d", i.Key, i.Value, i.Depth)
}

// NodeItems is one node's contribution to a ring-wide scan: the node's
// endpoint and its primary items.
type NodeItems struct {
	Node  Endpoint `json:"node"`
	Items []Item   `json:"items"`
}
