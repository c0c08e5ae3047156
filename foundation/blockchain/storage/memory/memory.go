// Package memory implements the ability to read and write blocks and peers
// to memory using slices.
package memory

import (
	"fmt"
	"math"
	"sync"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/peer"
)

// Memory represents the storage implementation for reading and storing
// blocks in memory using a slice indexed by height. This implements the
// database.Storage and peer.Storage interfaces.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockData
	byHash map[string]int
	peers  []peer.Node
}

// New constructs a Memory value for use.
func New() (*Memory, error) {
	return &Memory{
		byHash: make(map[string]int),
	}, nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified database block and stores it in memory.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := uint64(len(m.blocks))
	if l != blockData.Height {
		return fmt.Errorf("block is out of order, got height %d, exp %d", blockData.Height, l)
	}

	m.byHash[blockData.Hash] = len(m.blocks)
	m.blocks = append(m.blocks, blockData)

	return nil
}

// GetBlock searches the blockchain to locate and return the contents of
// the specified block by hash.
func (m *Memory) GetBlock(hash string) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, exists := m.byHash[hash]
	if !exists {
		return database.BlockData{}, database.ErrNotFound
	}

	return m.blocks[idx], nil
}

// LatestBlock returns the block with the greatest height.
func (m *Memory) LatestBlock() (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blocks) == 0 {
		return database.BlockData{}, database.ErrNotFound
	}

	return m.blocks[len(m.blocks)-1], nil
}

// ChainSize returns the number of blocks stored.
func (m *Memory) ChainSize() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.blocks)), nil
}

// Blocks returns the specified page of blocks in height order.
func (m *Memory) Blocks(page int, size int, order database.SortOrder) ([]database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []database.BlockData{}
	if page < 0 || size < 1 {
		return out, nil
	}

	start := page * size
	for i := start; i < start+size && i < len(m.blocks); i++ {
		idx := i
		if order == database.SortDESC {
			idx = len(m.blocks) - 1 - i
		}
		out = append(out, m.blocks[idx])
	}

	return out, nil
}

// BlocksFromHeight returns the specified page of blocks above the height in
// ascending order.
func (m *Memory) BlocksFromHeight(height uint64, page int, size int) ([]database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []database.BlockData{}
	if page < 0 || size < 1 || height == math.MaxUint64 {
		return out, nil
	}

	// Heights are gapless, so the first block above height sits at index height+1.
	start := height + 1 + uint64(page*size)
	for i := start; i < start+uint64(size) && i < uint64(len(m.blocks)); i++ {
		out = append(out, m.blocks[i])
	}

	return out, nil
}

// Article locates an article by identifier across every stored block.
func (m *Memory) Article(id string) (database.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, blockData := range m.blocks {
		for _, article := range blockData.Data.Articles {
			if article.ID == id {
				return article, nil
			}
		}
	}

	return database.Article{}, database.ErrNotFound
}

// =============================================================================

// AddPeer stores a peer, replacing any peer with the same address.
func (m *Memory) AddPeer(node peer.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.peers {
		if p.Address == node.Address {
			m.peers[i] = node
			return nil
		}
	}

	m.peers = append(m.peers, node)
	return nil
}

// Peers returns the stored peers.
func (m *Memory) Peers() ([]peer.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	peers := make([]peer.Node, len(m.peers))
	copy(peers, m.peers)

	return peers, nil
}
