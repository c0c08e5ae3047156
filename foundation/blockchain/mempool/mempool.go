// Package mempool maintains the unconfirmed articles and publisher admissions
// waiting to be minted into the next block.
package mempool

import (
	"sync"

	"github.com/avisen/ledger/foundation/blockchain/database"
)

// Mempool represents a cache of articles kept in submission order and a set
// of publishers keyed by public key. Nothing here survives a restart.
type Mempool struct {
	mu         sync.RWMutex
	articles   []database.Article
	publishers map[string]database.Publisher
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{
		publishers: make(map[string]database.Publisher),
	}
}

// Count returns the current number of articles in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.articles)
}

// Add appends an article to the pool and returns the new article count.
func (mp *Mempool) Add(article database.Article) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.articles = append(mp.articles, article)

	return len(mp.articles)
}

// AddPublisher inserts the publisher into the pending set. It returns false
// if the key is already pending.
func (mp *Mempool) AddPublisher(pub database.Publisher) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.publishers[pub.PublicKey]; exists {
		return false
	}

	mp.publishers[pub.PublicKey] = pub

	return true
}

// Articles returns a copy of the pending articles in submission order.
func (mp *Mempool) Articles() []database.Article {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	articles := make([]database.Article, len(mp.articles))
	copy(articles, mp.articles)

	return articles
}

// Publishers returns a copy of the pending publishers.
func (mp *Mempool) Publishers() []database.Publisher {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	pubs := make([]database.Publisher, 0, len(mp.publishers))
	for _, pub := range mp.publishers {
		pubs = append(pubs, pub)
	}

	return pubs
}

// Truncate clears all the articles and publishers from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.articles = nil
	mp.publishers = make(map[string]database.Publisher)
}
