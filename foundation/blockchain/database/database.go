// Package database handles all the lower level support for the article
// ledger: the block and article model, the signing payloads every node must
// reproduce, and access to the configured block storage.
package database

import (
	"errors"
	"regexp"
	"sync"
)

// PageSize is the number of blocks in a page. It matches the number of
// articles minted into a block.
const PageSize = 10

// articleIDRegex matches the shape of an article identifier.
var articleIDRegex = regexp.MustCompile(`^[A-Za-z0-9]{64}$`)

// Database manages access to the blocks of the chain held in storage.
type Database struct {
	mu          sync.RWMutex
	latestBlock Block
	chainSize   uint64
	storage     Storage
}

// New constructs a new database over the specified storage and loads the
// current tip of the chain.
func New(storage Storage) (*Database, error) {
	db := Database{
		storage: storage,
	}

	size, err := storage.ChainSize()
	if err != nil {
		return nil, err
	}

	if size > 0 {
		blockData, err := storage.LatestBlock()
		if err != nil {
			return nil, err
		}
		db.latestBlock = ToBlock(blockData)
	}
	db.chainSize = size

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.storage.Close()
}

// LatestBlock returns the current tip. The boolean is false when the chain
// is empty.
func (db *Database) LatestBlock() (Block, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock, db.chainSize > 0
}

// ChainSize returns the number of committed blocks.
func (db *Database) ChainSize() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.chainSize
}

// Write adds a new block to the chain and makes it the tip.
func (db *Database) Write(block Block) error {
	if err := db.storage.Write(NewBlockData(block)); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = block
	db.chainSize++

	return nil
}

// GetBlock locates the block with the specified hash.
func (db *Database) GetBlock(hash string) (Block, error) {
	blockData, err := db.storage.GetBlock(hash)
	if err != nil {
		return Block{}, err
	}
	return ToBlock(blockData), nil
}

// Blocks returns a page of blocks ordered by height.
func (db *Database) Blocks(page int, size int, order SortOrder) ([]Block, error) {
	if page < 0 {
		return []Block{}, nil
	}

	blockData, err := db.storage.Blocks(page, size, order)
	if err != nil {
		return nil, err
	}
	return ToBlocks(blockData), nil
}

// BlocksFromHeight returns a page of blocks with a height greater than the
// one specified, in ascending order.
func (db *Database) BlocksFromHeight(height uint64, page int) ([]Block, error) {
	if page < 0 {
		return []Block{}, nil
	}

	blockData, err := db.storage.BlocksFromHeight(height, page, PageSize)
	if err != nil {
		return nil, err
	}
	return ToBlocks(blockData), nil
}

// Article locates an article by identifier. Identifiers that don't have the
// right shape are reported as not found without touching storage.
func (db *Database) Article(id string) (Article, error) {
	if !articleIDRegex.MatchString(id) {
		return Article{}, ErrNotFound
	}

	article, err := db.storage.Article(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Article{}, ErrNotFound
		}
		return Article{}, err
	}
	return article, nil
}
