package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/avisen/ledger/foundation/blockchain/database"
)

// ProcessBlock takes a block received from a peer or a donor, validates it
// against the tip and if that passes, adds the block to the chain. When the
// chain is empty the block is taken as the genesis without any checks. A
// rejected block returns false with a nil error; an error is only returned
// when the block could not be persisted.
func (l *Ledger) ProcessBlock(block database.Block) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evHandler("ledger: ProcessBlock: started: prevBlk[%s]: newBlk[%s]: height[%d]", block.PreviousHash, block.Hash, block.Height)
	defer l.evHandler("ledger: ProcessBlock: completed: newBlk[%s]", block.Hash)

	if tip, exists := l.db.LatestBlock(); exists {
		if err := block.ValidateBlock(tip, l.db.ChainSize(), l.evHandler); err != nil {
			l.evHandler("ledger: ProcessBlock: REJECTED: newBlk[%s]: %s", block.Hash, err)
			return false, nil
		}
	} else {
		l.evHandler("ledger: ProcessBlock: empty chain, accepting newBlk[%s] as genesis", block.Hash)
	}

	l.evHandler("ledger: ProcessBlock: write to storage")

	if err := l.db.Write(block); err != nil {
		return false, fmt.Errorf("writing block %d: %w", block.Height, err)
	}

	l.blockEvent(block)

	return true, nil
}

// CreateGenesis signs a new genesis block with the node's key and commits it
// as the start of the chain.
func (l *Ledger) CreateGenesis() (database.Block, error) {
	if l.signingKey == nil {
		return database.Block{}, ErrNoSigningKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db.ChainSize() > 0 {
		return database.Block{}, fmt.Errorf("chain already has %d blocks", l.db.ChainSize())
	}

	genesis, err := database.Genesis(l.signingKey, l.now().UnixMilli())
	if err != nil {
		return database.Block{}, err
	}

	if err := l.db.Write(genesis); err != nil {
		return database.Block{}, fmt.Errorf("writing genesis: %w", err)
	}

	l.evHandler("ledger: CreateGenesis: founder[%s]: blk[%s]", genesis.PublisherKey, genesis.Hash)
	l.blockEvent(genesis)

	return genesis, nil
}

// =============================================================================

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (l *Ledger) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(block)
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	l.evHandler(`viewer: block: {"hash":%q,"height":%d,"block":%s}`, block.Hash, block.Height, string(blockJSON))
}
