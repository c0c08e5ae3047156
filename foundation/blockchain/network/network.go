// Package network owns the peer roster and the outbound calls a node makes to
// replicate blocks and peers across the network.
package network

import (
	"context"
	"fmt"
	"sync"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of network calls.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to start the network.
type Config struct {
	Self      peer.Node
	Client    RemoteNodeClient
	Storage   peer.Storage
	EvHandler EventHandler
}

// Network manages the set of known peers and the calls made to them.
type Network struct {
	self      peer.Node
	client    RemoteNodeClient
	storage   peer.Storage
	evHandler EventHandler
	roster    *peer.Roster
}

// New constructs a network and loads the peers persisted by a previous run.
func New(cfg Config) (*Network, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	n := Network{
		self:      cfg.Self,
		client:    cfg.Client,
		storage:   cfg.Storage,
		evHandler: ev,
		roster:    peer.NewRoster(),
	}

	peers, err := cfg.Storage.Peers()
	if err != nil {
		return nil, fmt.Errorf("loading peers: %w", err)
	}

	for _, node := range peers {
		if node.Match(n.self.Address) {
			continue
		}
		n.roster.Add(node)
	}

	ev("network: New: loaded peers[%d]", n.roster.Len())

	return &n, nil
}

// Self returns the description of this node.
func (n *Network) Self() peer.Node {
	return n.self
}

// Peers returns a copy of the known peers.
func (n *Network) Peers() []peer.Node {
	return n.roster.Copy("")
}

// AddPeer validates the node and adds it to the roster. It returns false if
// the node is already known or is this node. When the node was added and
// broadcast is set, every other peer is told about it; failures of those
// calls are logged and not returned.
func (n *Network) AddPeer(ctx context.Context, node peer.Node, broadcast bool) (bool, error) {
	if err := peer.ValidateAddress(node.Address); err != nil {
		return false, err
	}

	if node.Match(n.self.Address) {
		return false, nil
	}

	if _, exists := n.roster.Lookup(node.Address); exists {
		n.evHandler("network: AddPeer: peer[%s] already known", node.Address)
		return false, nil
	}

	// The roster only holds peers that made it to storage.
	if err := n.storage.AddPeer(node); err != nil {
		return false, fmt.Errorf("persisting peer %s: %w", node.Address, err)
	}

	if !n.roster.Add(node) {
		n.evHandler("network: AddPeer: peer[%s] already known", node.Address)
		return false, nil
	}

	n.evHandler("network: AddPeer: added peer[%s]: type[%s]", node.Address, node.Type)

	if broadcast {
		n.BroadcastPeer(ctx, node)
	}

	return true, nil
}

// BroadcastPeer tells every known peer other than the node itself about the
// node. All calls run concurrently and the failures are returned.
func (n *Network) BroadcastPeer(ctx context.Context, node peer.Node) []error {
	n.evHandler("network: BroadcastPeer: started: peer[%s]", node.Address)
	defer n.evHandler("network: BroadcastPeer: completed: peer[%s]", node.Address)

	return n.fanOut(n.roster.Copy(node.Address), func(address string) error {
		return n.client.BroadcastPeer(ctx, address, node)
	})
}

// BroadcastBlock hands the block to every known peer. All calls run
// concurrently, a slow peer only delays its own call, and the failures are
// returned.
func (n *Network) BroadcastBlock(ctx context.Context, block database.Block) []error {
	n.evHandler("network: BroadcastBlock: started: blk[%d]", block.Height)
	defer n.evHandler("network: BroadcastBlock: completed: blk[%d]", block.Height)

	return n.fanOut(n.roster.Copy(""), func(address string) error {
		return n.client.BroadcastBlock(ctx, address, block)
	})
}

// =============================================================================

// DownloadPeers merges the donor's roster into this node's roster and
// returns the number of peers added.
func (n *Network) DownloadPeers(ctx context.Context, donor string) (int, error) {
	n.evHandler("network: DownloadPeers: started: donor[%s]", donor)
	defer n.evHandler("network: DownloadPeers: completed: donor[%s]", donor)

	peers, err := n.client.DownloadPeers(ctx, donor)
	if err != nil {
		return 0, fmt.Errorf("downloading peers from %s: %w", donor, err)
	}

	var added int
	for _, node := range peers {
		ok, err := n.AddPeer(ctx, node, false)
		if err != nil {
			n.evHandler("network: DownloadPeers: skipping peer[%s]: %s", node.Address, err)
			continue
		}
		if ok {
			added++
		}
	}

	return added, nil
}

// DownloadPeerInfo fetches the donor's self description and adds the donor
// as a peer.
func (n *Network) DownloadPeerInfo(ctx context.Context, donor string) (peer.Info, error) {
	n.evHandler("network: DownloadPeerInfo: started: donor[%s]", donor)
	defer n.evHandler("network: DownloadPeerInfo: completed: donor[%s]", donor)

	info, err := n.client.DownloadPeerInfo(ctx, donor)
	if err != nil {
		return peer.Info{}, fmt.Errorf("downloading info from %s: %w", donor, err)
	}

	if _, err := n.AddPeer(ctx, info.Node, false); err != nil {
		return peer.Info{}, fmt.Errorf("adding donor %s: %w", donor, err)
	}

	return info, nil
}

// DownloadBlocks fetches one page of the donor's chain. When fromHeight is
// set only blocks above that height are returned.
func (n *Network) DownloadBlocks(ctx context.Context, donor string, page int, fromHeight *uint64) ([]database.Block, error) {
	blocks, err := n.client.DownloadBlocks(ctx, donor, page, fromHeight)
	if err != nil {
		return nil, fmt.Errorf("downloading blocks page %d from %s: %w", page, donor, err)
	}

	n.evHandler("network: DownloadBlocks: donor[%s]: page[%d]: blocks[%d]", donor, page, len(blocks))

	return blocks, nil
}

// LatestBlock fetches the donor's tip. The boolean is false when the donor
// has an empty chain.
func (n *Network) LatestBlock(ctx context.Context, donor string) (database.Block, bool, error) {
	block, exists, err := n.client.LatestBlock(ctx, donor)
	if err != nil {
		return database.Block{}, false, fmt.Errorf("fetching latest block from %s: %w", donor, err)
	}

	return block, exists, nil
}

// UpdatePeer registers self with the donor, which passes it on to its peers.
func (n *Network) UpdatePeer(ctx context.Context, donor string, self peer.Node) error {
	n.evHandler("network: UpdatePeer: registering self[%s] with donor[%s]", self.Address, donor)

	if err := n.client.UpdatePeer(ctx, donor, self); err != nil {
		return fmt.Errorf("registering with %s: %w", donor, err)
	}

	return nil
}

// =============================================================================

// fanOut runs call against every peer concurrently and collects the
// failures once every call has returned.
func (n *Network) fanOut(peers []peer.Node, call func(address string) error) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, node := range peers {
		wg.Add(1)
		go func(address string) {
			defer wg.Done()

			if err := call(address); err != nil {
				n.evHandler("network: WARNING: peer[%s]: %s", address, err)

				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", address, err))
				mu.Unlock()
				return
			}

			n.evHandler("network: sent to peer[%s]", address)
		}(node.Address)
	}

	wg.Wait()

	return errs
}
