// Package ledger is the core API for the article chain and implements all the
// business rules for accepting articles, publishers and blocks.
package ledger

import (
	"crypto/ecdsa"
	"errors"
	"sync"
	"time"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/mempool"
	"github.com/avisen/ledger/foundation/blockchain/signature"
)

// MintThreshold is the number of buffered articles that triggers minting a
// new block. It is kept equal to the page size so that downloading pages
// until an empty one drains a remote chain.
const MintThreshold = database.PageSize

// Set of errors returned when the ledger can't perform an operation.
var (
	ErrNoGenesis    = errors.New("chain has no genesis block")
	ErrNoSigningKey = errors.New("node has no publisher signing key")
)

// EventHandler defines a function that is called when events
// occur in the processing of articles and blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the ledger.
type Config struct {
	Storage      database.Storage
	SigningKey   *ecdsa.PrivateKey // Nil on nodes that don't mint.
	AuthorityKey string            // Founding key that signs publisher admissions.
	EvHandler    EventHandler
}

// Ledger manages the chain of blocks and the buffers of articles and
// publishers waiting to be minted.
type Ledger struct {
	mu           sync.Mutex
	signingKey   *ecdsa.PrivateKey
	authorityKey string
	evHandler    EventHandler
	now          func() time.Time

	db      *database.Database
	mempool *mempool.Mempool
}

// New constructs a ledger over the specified storage.
func New(cfg Config) (*Ledger, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	db, err := database.New(cfg.Storage)
	if err != nil {
		return nil, err
	}

	l := Ledger{
		signingKey:   cfg.SigningKey,
		authorityKey: cfg.AuthorityKey,
		evHandler:    ev,
		now:          time.Now,
		db:           db,
		mempool:      mempool.New(),
	}

	return &l, nil
}

// Close cleanly closes the underlying storage.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// PublicKey returns the key this node mints blocks with. It is empty when
// the node has no signing key.
func (l *Ledger) PublicKey() string {
	if l.signingKey == nil {
		return ""
	}
	return signature.PublicKeyString(l.signingKey.PublicKey)
}

// AuthorityKey returns the key that authorizes publisher admissions.
func (l *Ledger) AuthorityKey() string {
	return l.authorityKey
}

// =============================================================================

// LatestBlock returns the current tip of the chain. The boolean is false
// when the chain is empty.
func (l *Ledger) LatestBlock() (database.Block, bool) {
	return l.db.LatestBlock()
}

// ChainSize returns the number of blocks in the chain.
func (l *Ledger) ChainSize() uint64 {
	return l.db.ChainSize()
}

// Chain returns a page of blocks. When fromHeight is set, the blocks above
// that height are returned in ascending order using the fixed page size and
// the size and order are ignored.
func (l *Ledger) Chain(page int, size int, order database.SortOrder, fromHeight *uint64) ([]database.Block, error) {
	if fromHeight != nil {
		return l.db.BlocksFromHeight(*fromHeight, page)
	}
	return l.db.Blocks(page, size, order)
}

// GetBlock returns the block with the specified hash.
func (l *Ledger) GetBlock(hash string) (database.Block, error) {
	return l.db.GetBlock(hash)
}

// GetArticle returns the committed article with the specified id.
func (l *Ledger) GetArticle(id string) (database.Article, error) {
	return l.db.Article(id)
}

// UnprocessedArticles returns the articles waiting to be minted.
func (l *Ledger) UnprocessedArticles() []database.Article {
	return l.mempool.Articles()
}

// UnprocessedPublishers returns the admitted publishers waiting to be minted.
func (l *Ledger) UnprocessedPublishers() []database.Publisher {
	return l.mempool.Publishers()
}

// IsPublisher reports whether the key is recognized by the current tip.
func (l *Ledger) IsPublisher(key string) bool {
	tip, exists := l.db.LatestBlock()
	if !exists {
		return false
	}
	return tip.Data.HasPublisher(key)
}
