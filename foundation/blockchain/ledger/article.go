package ledger

import (
	"fmt"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/signature"
)

// ProcessedArticle is the outcome of submitting an article. Block is set
// when the article completed a batch and a new block was minted.
type ProcessedArticle struct {
	Accepted bool
	Block    *database.Block
}

// ProcessArticle verifies the article and buffers it. When the buffer
// reaches the mint threshold a new block is minted on the tip, persisted and
// both buffers are cleared. An error is only returned when minting fails, in
// which case the article stays buffered and the next submission retries.
func (l *Ledger) ProcessArticle(article database.Article) (ProcessedArticle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evHandler("ledger: ProcessArticle: started: article[%s]", article.ID)

	if !article.VerifySignature() {
		l.evHandler("ledger: ProcessArticle: REJECTED: article[%s]: invalid signature", article.ID)
		return ProcessedArticle{}, nil
	}

	count := l.mempool.Add(article)
	l.evHandler("ledger: ProcessArticle: buffered: article[%s]: count[%d]", article.ID, count)

	if count < MintThreshold {
		return ProcessedArticle{Accepted: true}, nil
	}

	block, err := l.mint()
	if err != nil {
		l.evHandler("ledger: ProcessArticle: ERROR: mint: %s", err)
		return ProcessedArticle{Accepted: true}, err
	}

	return ProcessedArticle{Accepted: true, Block: &block}, nil
}

// AcceptPublisher admits a publisher into the pending set when the signature
// over its public key was produced by the authority key. It returns false for
// a bad signature or a key already pending.
func (l *Ledger) AcceptPublisher(pub database.Publisher, sig string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !signature.Verify(l.authorityKey, pub.PublicKey, sig) {
		l.evHandler("ledger: AcceptPublisher: REJECTED: publisher[%s]: invalid signature", pub.PublicKey)
		return false
	}

	if !l.mempool.AddPublisher(pub) {
		l.evHandler("ledger: AcceptPublisher: REJECTED: publisher[%s]: already pending", pub.PublicKey)
		return false
	}

	l.evHandler("ledger: AcceptPublisher: pending: publisher[%s]", pub.PublicKey)

	return true
}

// =============================================================================

// mint closes the article buffer into a new block on the tip. The caller
// must hold the ledger lock.
func (l *Ledger) mint() (database.Block, error) {
	if l.signingKey == nil {
		return database.Block{}, ErrNoSigningKey
	}

	tip, exists := l.db.LatestBlock()
	if !exists {
		return database.Block{}, ErrNoGenesis
	}

	var publishers []database.Publisher
	publishers = append(publishers, tip.Data.Publishers...)
	publishers = append(publishers, l.mempool.Publishers()...)
	data := database.NewTransactionData(l.mempool.Articles(), publishers)

	// Peers reject a block that doesn't move time forward.
	ts := l.now().UnixMilli()
	if ts <= tip.Timestamp {
		ts = tip.Timestamp + 1
	}

	l.evHandler("ledger: mint: MINTING: blk[%d]: articles[%d]: publishers[%d]", tip.Height+1, len(data.Articles), len(data.Publishers))

	block, err := database.NewBlock(l.signingKey, tip.Hash, data, ts, tip.Height+1)
	if err != nil {
		return database.Block{}, err
	}

	if err := l.db.Write(block); err != nil {
		return database.Block{}, fmt.Errorf("writing block %d: %w", block.Height, err)
	}

	l.mempool.Truncate()
	l.blockEvent(block)

	return block, nil
}
