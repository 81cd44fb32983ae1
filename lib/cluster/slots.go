package cluster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("cluster")

// NumSlots is the size of the slot space. Every key hashes into [0, NumSlots).
const NumSlots = 16384

// Slot returns the hash slot of a key: CRC16/X25(key) mod NumSlots.
// It is a pure function of the key bytes, so every node agrees on it.
func Slot(key string) uint16 {
	return CRC16([]byte(key)) % NumSlots
}

// --------------------------------------------------------------------------
// Slot Ranges
// --------------------------------------------------------------------------

// SlotRange is the half open range of slots [Start, End)
type SlotRange struct {
	Start uint16
	End   uint16
}

// Contains reports whether slot lies in the range
func (r SlotRange) Contains(slot uint16) bool {
	return slot >= r.Start && slot < r.End
}

func (r SlotRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// NodeRange assigns a slot range to the node listening on Address
type NodeRange struct {
	Address string
	Range   SlotRange
}

// --------------------------------------------------------------------------
// Slot Table
// --------------------------------------------------------------------------

// SlotTable is the read-only view of the cluster layout held by one node.
// It is immutable after creation and therefore safe for concurrent use
// without locking.
//
// A nil *SlotTable represents a node that runs without cluster configuration;
// it owns every key.
type SlotTable struct {
	self  string
	nodes []NodeRange // sorted by Range.Start, contiguous, covering [0, NumSlots)
}

// NewSlotTable creates the slot table for the node reachable at self.
// The ranges must be non-empty, must not overlap and must cover the full slot
// space [0, NumSlots) exactly.
//
// Addresses are compared case-insensitively and stored in lower case.
func NewSlotTable(self string, ranges map[string]SlotRange) (*SlotTable, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("slot table: no nodes configured")
	}

	self = normalizeAddress(self)
	seen := make(map[string]struct{}, len(ranges))
	nodes := make([]NodeRange, 0, len(ranges))
	for addr, r := range ranges {
		addr = normalizeAddress(addr)
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("slot table: node %s is configured more than once", addr)
		}
		seen[addr] = struct{}{}
		if addr == "" {
			return nil, fmt.Errorf("slot table: empty node address")
		}
		if r.Start >= r.End {
			return nil, fmt.Errorf("slot table: node %s has empty or inverted range %s", addr, r)
		}
		if r.End > NumSlots {
			return nil, fmt.Errorf("slot table: node %s range %s exceeds %d slots", addr, r, NumSlots)
		}
		nodes = append(nodes, NodeRange{Address: addr, Range: r})
	}

	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].Range.Start < nodes[j].Range.Start
	})

	// check coverage: each range has to start where the previous one ended
	var next uint16
	for _, n := range nodes {
		if n.Range.Start < next {
			return nil, fmt.Errorf("slot table: range %s of node %s overlaps with the previous range", n.Range, n.Address)
		}
		if n.Range.Start > next {
			return nil, fmt.Errorf("slot table: slots [%d, %d) are not assigned to any node", next, n.Range.Start)
		}
		next = n.Range.End
	}
	if next != NumSlots {
		return nil, fmt.Errorf("slot table: slots [%d, %d) are not assigned to any node", next, NumSlots)
	}

	if _, ok := seen[self]; !ok {
		Logger.Warningf("this node (%s) does not own any slots, every key will be redirected", self)
	}

	return &SlotTable{self: self, nodes: nodes}, nil
}

func normalizeAddress(addr string) string {
	return strings.ToLower(addr)
}

// Self returns the address this node is known by in the table
func (t *SlotTable) Self() string {
	if t == nil {
		return ""
	}
	return t.self
}

// Nodes returns a copy of the node ranges, sorted by slot
func (t *SlotTable) Nodes() []NodeRange {
	if t == nil {
		return nil
	}
	nodes := make([]NodeRange, len(t.nodes))
	copy(nodes, t.nodes)
	return nodes
}

// Owner returns the address of the node owning slot
func (t *SlotTable) Owner(slot uint16) (string, bool) {
	if t == nil || slot >= NumSlots {
		return "", false
	}
	i := sort.Search(len(t.nodes), func(i int) bool {
		return t.nodes[i].Range.End > slot
	})
	if i == len(t.nodes) || !t.nodes[i].Range.Contains(slot) {
		return "", false
	}
	return t.nodes[i].Address, true
}

// Owns computes the slot of key and reports whether this node owns it.
// If not, owner is the address the client has to be redirected to.
// A nil table owns every key.
func (t *SlotTable) Owns(key string) (slot uint16, owner string, owned bool) {
	slot = Slot(key)
	if t == nil {
		return slot, "", true
	}
	owner, ok := t.Owner(slot)
	if !ok {
		// unreachable for validated tables
		return slot, "", true
	}
	return slot, owner, owner == t.self
}

// String returns a formatted representation of the table
func (t *SlotTable) String() string {
	if t == nil {
		return "no cluster configuration (all slots are served locally)"
	}
	var sb strings.Builder
	for _, n := range t.nodes {
		marker := ""
		if n.Address == t.self {
			marker = " (self)"
		}
		sb.WriteString(fmt.Sprintf("  %-22s: %s%s\n", n.Address, n.Range, marker))
	}
	return sb.String()
}
