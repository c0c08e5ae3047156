package database

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Set of errors produced by block validation and storage lookups.
var (
	ErrNotFound         = errors.New("not found")
	ErrStaleBlock       = errors.New("block is stale")
	ErrHeightGap        = errors.New("block height does not follow tip")
	ErrPreviousHash     = errors.New("previous hash does not match tip")
	ErrTimestamp        = errors.New("block timestamp is not after tip")
	ErrUnknownPublisher = errors.New("block minted by an unknown publisher")
	ErrBlockSignature   = errors.New("invalid block signature")
)

// =============================================================================

// SortOrder represents the height ordering used when paging blocks.
type SortOrder string

// Set of supported sort orders.
const (
	SortASC  SortOrder = "ASC"
	SortDESC SortOrder = "DESC"
)

// ParseSortOrder converts a query string value into a sort order. An empty
// value is ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToUpper(s) {
	case "", string(SortASC):
		return SortASC, nil
	case string(SortDESC):
		return SortDESC, nil
	}
	return "", fmt.Errorf("invalid sort order %q", s)
}

// =============================================================================

// BlockData represents what is written to storage. CreatedAt is set by the
// storage side and is distinct from the block's own timestamp.
type BlockData struct {
	Hash         string          `json:"hash"`
	PublisherKey string          `json:"publisherKey"`
	Signature    string          `json:"signature"`
	PreviousHash string          `json:"previousHash"`
	Data         TransactionData `json:"data"`
	Timestamp    int64           `json:"timestamp"`
	Height       uint64          `json:"height"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewBlockData constructs the value to persist.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:         block.Hash,
		PublisherKey: block.PublisherKey,
		Signature:    block.Signature,
		PreviousHash: block.PreviousHash,
		Data:         block.Data,
		Timestamp:    block.Timestamp,
		Height:       block.Height,
		CreatedAt:    time.Now().UTC(),
	}
}

// ToBlock converts the persisted form back into a Block, keeping the carried
// hash.
func ToBlock(blockData BlockData) Block {
	return Block{
		PublisherKey: blockData.PublisherKey,
		Signature:    blockData.Signature,
		PreviousHash: blockData.PreviousHash,
		Data:         blockData.Data,
		Timestamp:    blockData.Timestamp,
		Height:       blockData.Height,
		Hash:         blockData.Hash,
	}
}

// ToBlocks converts a page of persisted blocks.
func ToBlocks(blockData []BlockData) []Block {
	blocks := make([]Block, len(blockData))
	for i, bd := range blockData {
		blocks[i] = ToBlock(bd)
	}
	return blocks
}

// =============================================================================

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain. Storage
// implementations are expected to be safe for concurrent use.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(hash string) (BlockData, error)
	LatestBlock() (BlockData, error)
	ChainSize() (uint64, error)
	Blocks(page int, size int, order SortOrder) ([]BlockData, error)
	BlocksFromHeight(height uint64, page int, size int) ([]BlockData, error)
	Article(id string) (Article, error)
	Close() error
}
