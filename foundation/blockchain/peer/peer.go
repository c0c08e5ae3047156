// Package peer maintains the peer related information such as the set
// of known peers and their roles.
package peer

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// ErrInvalidAddress is returned when a peer address can't be used to reach
// a node.
var ErrInvalidAddress = errors.New("invalid peer address")

// Role represents the declared role of a node in the network.
type Role string

// Set of roles a node can run in.
const (
	RolePublisher Role = "PUBLISHER"
	RoleReplica   Role = "REPLICA"
	RoleUtility   Role = "UTILITY"
)

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(s)); r {
	case RolePublisher, RoleReplica, RoleUtility:
		return r, nil
	}
	return "", fmt.Errorf("invalid node role %q", s)
}

// =============================================================================

// Node represents information about a node in the network.
type Node struct {
	Address string `json:"address" validate:"required"`
	Type    Role   `json:"type" validate:"required,oneof=PUBLISHER REPLICA UTILITY"`
}

// New constructs a new node value.
func New(address string, role Role) Node {
	return Node{
		Address: address,
		Type:    role,
	}
}

// Match validates if the specified address matches this node.
func (n Node) Match(address string) bool {
	return n.Address == address
}

// Info is the self description a node provides on its status endpoint.
type Info struct {
	NetworkID string `json:"networkId"`
	Node      Node   `json:"node"`
}

// =============================================================================

// ValidateAddress checks the address is a usable base URL for a node. The
// returned error explains which part of the address is wrong.
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: address cannot be empty", ErrInvalidAddress)
	}

	u, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("%w: %q is not a valid url: %s", ErrInvalidAddress, address, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q must use the http or https scheme", ErrInvalidAddress, address)
	}

	if u.Host == "" || u.Hostname() == "" {
		return fmt.Errorf("%w: %q is missing a host", ErrInvalidAddress, address)
	}

	return nil
}

// =============================================================================

// Storage interface represents the behavior required to persist the roster
// across restarts.
type Storage interface {
	AddPeer(node Node) error
	Peers() ([]Node, error)
}

// Roster represents the set of known peers keyed by address.
type Roster struct {
	mu    sync.RWMutex
	order []string
	set   map[string]Node
}

// NewRoster constructs a new roster to manage node peer information.
func NewRoster() *Roster {
	return &Roster{
		set: make(map[string]Node),
	}
}

// Add adds a new node to the roster. It returns false if a node with the
// same address is already known.
func (r *Roster) Add(node Node) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.set[node.Address]; exists {
		return false
	}

	r.set[node.Address] = node
	r.order = append(r.order, node.Address)

	return true
}

// Lookup returns the node known by the specified address.
func (r *Roster) Lookup(address string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, exists := r.set[address]
	return node, exists
}

// Len returns the number of known peers.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.set)
}

// Copy returns the known peers in the order they were added, leaving out
// the node with the excluded address.
func (r *Roster) Copy(exclude string) []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]Node, 0, len(r.order))
	for _, address := range r.order {
		if address == exclude {
			continue
		}
		peers = append(peers, r.set[address])
	}

	return peers
}
