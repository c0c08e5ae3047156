// Package leveldb implements the ability to read and write blocks and peers
// to disk using LevelDB.
package leveldb

import (
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/peer"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key prefixes for the different record types kept in the database.
var (
	blockPrefix   = []byte("b/h/") // height -> block data
	hashPrefix    = []byte("b/x/") // hash -> height
	articlePrefix = []byte("a/")   // article id -> article
	peerPrefix    = []byte("p/")   // address -> node
	sizeKey       = []byte("m/size")
)

// Options returns the leveldb options used when opening the database.
// It's defined as a variable for the sake of testing.
var Options = func() *opt.Options {
	return &opt.Options{
		Compression:            opt.NoCompression,
		BlockCacheCapacity:     32 * opt.MiB,
		WriteBuffer:            16 * opt.MiB,
		DisableSeeksCompaction: true,
	}
}

// LevelDB represents the storage implementation for reading and storing
// blocks and peers on disk. This implements the database.Storage and
// peer.Storage interfaces.
type LevelDB struct {
	ldb *leveldb.DB
}

// New opens a leveldb instance defined by the given path. If it doesn't
// exist it is created.
func New(path string) (*LevelDB, error) {
	ldb, err := leveldb.OpenFile(path, Options())

	// If the database is corrupted, attempt to recover.
	if _, corrupted := err.(*ldbErrors.ErrCorrupted); corrupted {
		ldb, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "recovering leveldb at %s", path)
		}
	}

	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %s", path)
	}

	return &LevelDB{ldb: ldb}, nil
}

// Close closes the leveldb instance.
func (db *LevelDB) Close() error {
	return db.ldb.Close()
}

// Write stores the block along with its hash and article indexes in a
// single batch.
func (db *LevelDB) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return errors.Wrap(err, "marshaling block")
	}

	size, err := db.ChainSize()
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(heightKey(blockData.Height), data)
	batch.Put(prefixed(hashPrefix, blockData.Hash), encodeUint64(blockData.Height))
	batch.Put(sizeKey, encodeUint64(size+1))

	for _, article := range blockData.Data.Articles {
		a, err := json.Marshal(article)
		if err != nil {
			return errors.Wrapf(err, "marshaling article %s", article.ID)
		}
		batch.Put(prefixed(articlePrefix, article.ID), a)
	}

	if err := db.ldb.Write(batch, nil); err != nil {
		return errors.Wrapf(err, "writing block %d", blockData.Height)
	}

	return nil
}

// GetBlock locates the block with the specified hash.
func (db *LevelDB) GetBlock(hash string) (database.BlockData, error) {
	height, err := db.ldb.Get(prefixed(hashPrefix, hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockData{}, database.ErrNotFound
		}
		return database.BlockData{}, errors.Wrapf(err, "looking up hash %s", hash)
	}

	return db.get(append(append([]byte{}, blockPrefix...), height...))
}

// LatestBlock returns the block with the greatest height.
func (db *LevelDB) LatestBlock() (database.BlockData, error) {
	iter := db.ldb.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return database.BlockData{}, errors.Wrap(err, "reading latest block")
		}
		return database.BlockData{}, database.ErrNotFound
	}

	return decodeBlock(iter.Value())
}

// ChainSize returns the number of blocks stored.
func (db *LevelDB) ChainSize() (uint64, error) {
	data, err := db.ldb.Get(sizeKey, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "reading chain size")
	}

	return binary.BigEndian.Uint64(data), nil
}

// Blocks returns the specified page of blocks in height order.
func (db *LevelDB) Blocks(page int, size int, order database.SortOrder) ([]database.BlockData, error) {
	out := []database.BlockData{}
	if page < 0 || size < 1 {
		return out, nil
	}

	iter := db.ldb.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()

	first, next := iter.First, iter.Next
	if order == database.SortDESC {
		first, next = iter.Last, iter.Prev
	}

	return collect(iter, first, next, page*size, size)
}

// BlocksFromHeight returns the specified page of blocks above the height in
// ascending order.
func (db *LevelDB) BlocksFromHeight(height uint64, page int, size int) ([]database.BlockData, error) {
	out := []database.BlockData{}
	if page < 0 || size < 1 || height == math.MaxUint64 {
		return out, nil
	}

	iter := db.ldb.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()

	seek := func() bool { return iter.Seek(heightKey(height + 1)) }

	return collect(iter, seek, iter.Next, page*size, size)
}

// Article locates an article by identifier.
func (db *LevelDB) Article(id string) (database.Article, error) {
	data, err := db.ldb.Get(prefixed(articlePrefix, id), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.Article{}, database.ErrNotFound
		}
		return database.Article{}, errors.Wrapf(err, "looking up article %s", id)
	}

	var article database.Article
	if err := json.Unmarshal(data, &article); err != nil {
		return database.Article{}, errors.Wrapf(err, "decoding article %s", id)
	}

	return article, nil
}

// =============================================================================

// AddPeer stores a peer, replacing any peer with the same address.
func (db *LevelDB) AddPeer(node peer.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return errors.Wrap(err, "marshaling peer")
	}

	if err := db.ldb.Put(prefixed(peerPrefix, node.Address), data, nil); err != nil {
		return errors.Wrapf(err, "writing peer %s", node.Address)
	}

	return nil
}

// Peers returns the stored peers.
func (db *LevelDB) Peers() ([]peer.Node, error) {
	iter := db.ldb.NewIterator(util.BytesPrefix(peerPrefix), nil)
	defer iter.Release()

	var peers []peer.Node
	for iter.Next() {
		var node peer.Node
		if err := json.Unmarshal(iter.Value(), &node); err != nil {
			return nil, errors.Wrap(err, "decoding peer")
		}
		peers = append(peers, node)
	}

	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "reading peers")
	}

	return peers, nil
}

// =============================================================================

// get reads and decodes the block stored under key.
func (db *LevelDB) get(key []byte) (database.BlockData, error) {
	data, err := db.ldb.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.BlockData{}, database.ErrNotFound
		}
		return database.BlockData{}, errors.Wrap(err, "reading block")
	}

	return decodeBlock(data)
}

// collect walks the iterator skipping the first skip entries and returns up
// to size blocks.
func collect(iter iterator.Iterator, first func() bool, next func() bool, skip int, size int) ([]database.BlockData, error) {
	out := []database.BlockData{}

	i := 0
	for ok := first(); ok && len(out) < size; ok = next() {
		if i < skip {
			i++
			continue
		}

		blockData, err := decodeBlock(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, blockData)
	}

	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterating blocks")
	}

	return out, nil
}

func decodeBlock(data []byte) (database.BlockData, error) {
	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, errors.Wrap(err, "decoding block")
	}
	return blockData, nil
}

// heightKey builds a key that sorts blocks by height.
func heightKey(height uint64) []byte {
	return append(append([]byte{}, blockPrefix...), encodeUint64(height)...)
}

func prefixed(prefix []byte, s string) []byte {
	return append(append([]byte{}, prefix...), s...)
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
