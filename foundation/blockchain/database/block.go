package database

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"

	"github.com/avisen/ledger/foundation/blockchain/signature"
)

// Block represents a signed batch of articles and publisher set updates
// extending the chain by one height.
type Block struct {
	PublisherKey string          `json:"publisherKey"` // Key of the publisher who minted the block.
	Signature    string          `json:"signature"`    // Minter's signature over the signing payload.
	PreviousHash string          `json:"previousHash"` // Hash of the previous block in the chain.
	Data         TransactionData `json:"data"`         // Articles and publishers carried by the block.
	Timestamp    int64           `json:"timestamp"`    // Time the block was minted in milliseconds.
	Height       uint64          `json:"height"`       // Block number in the chain, genesis is 0.
	Hash         string          `json:"hash"`         // Hash computed at construction and carried with the block.
}

// NewBlock constructs a block and signs it with the specified key. The hash is
// computed here and never recomputed by readers.
func NewBlock(privateKey *ecdsa.PrivateKey, previousHash string, data TransactionData, timestamp int64, height uint64) (Block, error) {
	sig, err := signature.Sign(privateKey, BlockSigningPayload(previousHash, timestamp, height, data))
	if err != nil {
		return Block{}, fmt.Errorf("signing block %d: %w", height, err)
	}

	b := Block{
		PublisherKey: signature.PublicKeyString(privateKey.PublicKey),
		Signature:    sig,
		PreviousHash: previousHash,
		Data:         data,
		Timestamp:    timestamp,
		Height:       height,
		Hash:         BlockHash(previousHash, timestamp, data),
	}

	return b, nil
}

// Genesis constructs the height 0 block for a new chain. It carries no
// articles and exactly one publisher, the founder. The founder key is the
// public half of the signing key.
func Genesis(signingKey *ecdsa.PrivateKey, timestamp int64) (Block, error) {
	founder := Publisher{PublicKey: signature.PublicKeyString(signingKey.PublicKey)}
	data := NewTransactionData(nil, []Publisher{founder})

	return NewBlock(signingKey, "", data, timestamp, 0)
}

// BlockHash returns the hash for a block with the specified fields.
func BlockHash(previousHash string, timestamp int64, data TransactionData) string {
	return signature.Hash(previousHash + strconv.FormatInt(timestamp, 10) + data.Canonical())
}

// BlockSigningPayload returns the string a minter signs for a block. The field
// order is part of the wire contract: previousHash, timestamp, height, data.
func BlockSigningPayload(previousHash string, timestamp int64, height uint64, data TransactionData) string {
	return previousHash + strconv.FormatInt(timestamp, 10) + strconv.FormatUint(height, 10) + data.Canonical()
}

// SigningPayload returns the string the minter signed for this block.
func (b Block) SigningPayload() string {
	return BlockSigningPayload(b.PreviousHash, b.Timestamp, b.Height, b.Data)
}

// IsGenesis reports whether this is the first block of a chain.
func (b Block) IsGenesis() bool {
	return b.Height == 0 && b.PreviousHash == ""
}

// ValidateBlock takes a block and validates it against the current tip of
// the chain. The chain size is the number of blocks already committed.
func (b Block) ValidateBlock(tip Block, chainSize uint64, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block is not stale", b.Height)

	if chainSize > 0 && b.Height <= chainSize-1 {
		return fmt.Errorf("%w: block height %d is not above %d", ErrStaleBlock, b.Height, chainSize-1)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block is next in the chain", b.Height)

	if b.Height != tip.Height+1 {
		return fmt.Errorf("%w: got %d, exp %d", ErrHeightGap, b.Height, tip.Height+1)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: previous hash does match tip", b.Height)

	if b.PreviousHash != tip.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrPreviousHash, b.PreviousHash, tip.Hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is greater than tip's timestamp", b.Height)

	if b.Timestamp <= tip.Timestamp {
		return fmt.Errorf("%w: tip %d, block %d", ErrTimestamp, tip.Timestamp, b.Timestamp)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: minter is a recognized publisher", b.Height)

	if !tip.Data.HasPublisher(b.PublisherKey) {
		return fmt.Errorf("%w: %s", ErrUnknownPublisher, b.PublisherKey)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: signature", b.Height)

	if !signature.Verify(b.PublisherKey, b.SigningPayload(), b.Signature) {
		return fmt.Errorf("%w: blk[%d]", ErrBlockSignature, b.Height)
	}

	return nil
}
