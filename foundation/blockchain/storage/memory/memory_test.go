package memory_test

import (
	"math"
	"testing"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/peer"
	"github.com/avisen/ledger/foundation/blockchain/storage/memory"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const founderHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func Test_Memory(t *testing.T) {
	pk, err := crypto.HexToECDSA(founderHexKey)
	require.NoError(t, err)

	mem, err := memory.New()
	require.NoError(t, err)

	gen, err := database.Genesis(pk, 1000)
	require.NoError(t, err)
	require.NoError(t, mem.Write(database.NewBlockData(gen)))

	tip := gen
	for i := 1; i < 12; i++ {
		b, err := database.NewBlock(pk, tip.Hash, database.NewTransactionData(nil, tip.Data.Publishers), tip.Timestamp+1, tip.Height+1)
		require.NoError(t, err)
		require.NoError(t, mem.Write(database.NewBlockData(b)))
		tip = b
	}

	// Heights must stay gapless.
	skip, err := database.NewBlock(pk, tip.Hash, tip.Data, tip.Timestamp+1, tip.Height+2)
	require.NoError(t, err)
	require.Error(t, mem.Write(database.NewBlockData(skip)))

	size, err := mem.ChainSize()
	require.NoError(t, err)
	require.Equal(t, uint64(12), size)

	page, err := mem.Blocks(0, 5, database.SortDESC)
	require.NoError(t, err)
	require.Len(t, page, 5)
	require.Equal(t, uint64(11), page[0].Height)
	require.Equal(t, uint64(7), page[4].Height)

	page, err = mem.BlocksFromHeight(5, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 6)
	require.Equal(t, uint64(6), page[0].Height)

	page, err = mem.BlocksFromHeight(math.MaxUint64, 0, 10)
	require.NoError(t, err)
	require.Empty(t, page)

	got, err := mem.GetBlock(gen.Hash)
	require.NoError(t, err)
	require.Equal(t, gen.Hash, database.ToBlock(got).Hash)

	require.NoError(t, mem.AddPeer(peer.New("http://host1", peer.RoleReplica)))
	require.NoError(t, mem.AddPeer(peer.New("http://host1", peer.RolePublisher)))

	peers, err := mem.Peers()
	require.NoError(t, err)
	require.Len(t, peers, 1)
	require.Equal(t, peer.RolePublisher, peers[0].Type)
}
