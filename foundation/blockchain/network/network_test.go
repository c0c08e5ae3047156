package network_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/network"
	"github.com/avisen/ledger/foundation/blockchain/peer"
	"github.com/avisen/ledger/foundation/blockchain/storage/memory"
	"github.com/stretchr/testify/require"
)

// fakeClient records the calls made to it and fails for the addresses in
// fail.
type fakeClient struct {
	mu     sync.Mutex
	fail   map[string]bool
	calls  []string
	peers  []peer.Node
	info   peer.Info
	blocks map[int][]database.Block
}

func (fc *fakeClient) record(address string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.calls = append(fc.calls, address)
	if fc.fail[address] {
		return errors.New("unreachable")
	}
	return nil
}

func (fc *fakeClient) BroadcastPeer(ctx context.Context, address string, node peer.Node) error {
	return fc.record(address)
}

func (fc *fakeClient) BroadcastBlock(ctx context.Context, address string, block database.Block) error {
	return fc.record(address)
}

func (fc *fakeClient) LatestBlock(ctx context.Context, address string) (database.Block, bool, error) {
	return database.Block{}, false, fc.record(address)
}

func (fc *fakeClient) DownloadPeers(ctx context.Context, address string) ([]peer.Node, error) {
	return fc.peers, fc.record(address)
}

func (fc *fakeClient) DownloadPeerInfo(ctx context.Context, address string) (peer.Info, error) {
	return fc.info, fc.record(address)
}

func (fc *fakeClient) DownloadBlocks(ctx context.Context, address string, page int, fromHeight *uint64) ([]database.Block, error) {
	return fc.blocks[page], fc.record(address)
}

func (fc *fakeClient) UpdatePeer(ctx context.Context, address string, node peer.Node) error {
	return fc.record(address)
}

func newNetwork(t *testing.T, client network.RemoteNodeClient) (*network.Network, *memory.Memory) {
	strg, err := memory.New()
	require.NoError(t, err)

	n, err := network.New(network.Config{
		Self:      peer.New("http://self", peer.RolePublisher),
		Client:    client,
		Storage:   strg,
		EvHandler: func(v string, args ...any) { t.Logf(v, args...) },
	})
	require.NoError(t, err)

	return n, strg
}

// =============================================================================

func Test_AddPeer(t *testing.T) {
	fc := fakeClient{fail: map[string]bool{"http://host2": true}}
	n, strg := newNetwork(t, &fc)
	ctx := context.Background()

	added, err := n.AddPeer(ctx, peer.New("http://host1", peer.RoleReplica), false)
	require.NoError(t, err)
	require.True(t, added)

	added, err = n.AddPeer(ctx, peer.New("http://host2", peer.RoleReplica), false)
	require.NoError(t, err)
	require.True(t, added)

	added, err = n.AddPeer(ctx, peer.New("http://host1", peer.RolePublisher), true)
	require.NoError(t, err)
	require.False(t, added, "duplicate address")
	require.Len(t, n.Peers(), 2)
	require.Empty(t, fc.calls, "a duplicate is not broadcast")

	added, err = n.AddPeer(ctx, peer.New("http://self", peer.RolePublisher), false)
	require.NoError(t, err)
	require.False(t, added, "own address")

	_, err = n.AddPeer(ctx, peer.New("ftp://host3", peer.RoleReplica), false)
	require.ErrorIs(t, err, peer.ErrInvalidAddress)

	// The broadcast reaches every other peer, a failing one included.
	added, err = n.AddPeer(ctx, peer.New("http://host3", peer.RoleReplica), true)
	require.NoError(t, err)
	require.True(t, added)
	require.ElementsMatch(t, []string{"http://host1", "http://host2"}, fc.calls)

	stored, err := strg.Peers()
	require.NoError(t, err)
	require.Len(t, stored, 3)

	// A new network over the same storage starts with the same roster.
	reloaded, err := network.New(network.Config{Self: n.Self(), Client: &fc, Storage: strg})
	require.NoError(t, err)
	require.Equal(t, n.Peers(), reloaded.Peers())
}

// brokenStorage fails every write of a peer.
type brokenStorage struct {
	*memory.Memory
}

func (brokenStorage) AddPeer(node peer.Node) error {
	return errors.New("disk full")
}

func Test_AddPeerStorageFailure(t *testing.T) {
	strg, err := memory.New()
	require.NoError(t, err)

	var fc fakeClient
	n, err := network.New(network.Config{
		Self:    peer.New("http://self", peer.RolePublisher),
		Client:  &fc,
		Storage: brokenStorage{strg},
	})
	require.NoError(t, err)

	added, err := n.AddPeer(context.Background(), peer.New("http://host1", peer.RoleReplica), true)
	require.Error(t, err)
	require.False(t, added)
	require.Empty(t, n.Peers(), "a peer that was not stored stays out of the roster")
	require.Empty(t, fc.calls, "a peer that was not stored is not broadcast")
}

func Test_BroadcastBlock(t *testing.T) {
	fc := fakeClient{fail: map[string]bool{"http://host2": true}}
	n, _ := newNetwork(t, &fc)
	ctx := context.Background()

	for _, address := range []string{"http://host1", "http://host2", "http://host3"} {
		_, err := n.AddPeer(ctx, peer.New(address, peer.RoleReplica), false)
		require.NoError(t, err)
	}

	errs := n.BroadcastBlock(ctx, database.Block{Height: 1})
	require.Len(t, errs, 1)
	require.Len(t, fc.calls, 3)
}

func Test_DownloadPeers(t *testing.T) {
	fc := fakeClient{
		peers: []peer.Node{
			peer.New("http://host1", peer.RolePublisher),
			peer.New("http://self", peer.RoleReplica),
			peer.New("", peer.RoleReplica),
		},
		info: peer.Info{NetworkID: "test", Node: peer.New("http://donor", peer.RolePublisher)},
	}
	n, _ := newNetwork(t, &fc)
	ctx := context.Background()

	added, err := n.DownloadPeers(ctx, "http://donor")
	require.NoError(t, err)
	require.Equal(t, 1, added)

	info, err := n.DownloadPeerInfo(ctx, "http://donor")
	require.NoError(t, err)
	require.Equal(t, "test", info.NetworkID)

	_, exists := func() (peer.Node, bool) {
		for _, p := range n.Peers() {
			if p.Address == "http://donor" {
				return p, true
			}
		}
		return peer.Node{}, false
	}()
	require.True(t, exists, "donor is added as a peer")
	require.Len(t, n.Peers(), 2)
}

// =============================================================================

func Test_Client(t *testing.T) {
	block := database.Block{Hash: "abc", Height: 4}

	mux := http.NewServeMux()
	mux.HandleFunc("/blockchain", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(network.NetworkIDHeader) != "net-1" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"wrong network"}`))
			return
		}
		if r.URL.Query().Get("fromHeight") == "9" {
			json.NewEncoder(w).Encode([]database.Block{})
			return
		}
		json.NewEncoder(w).Encode([]database.Block{block})
	})
	mux.HandleFunc("/network/node", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/blockchain/block", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	client := network.NewClient("net-1", 50*time.Millisecond)

	got, exists, err := client.LatestBlock(ctx, srv.URL)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, block.Hash, got.Hash)

	from := uint64(9)
	blocks, err := client.DownloadBlocks(ctx, srv.URL, 0, &from)
	require.NoError(t, err)
	require.Empty(t, blocks)

	// Registering with a donor expects 201.
	err = client.UpdatePeer(ctx, srv.URL, peer.New("http://self", peer.RoleReplica))
	var se *network.StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusOK, se.Status)

	// A slow peer fails on the per call timeout.
	err = client.BroadcastBlock(ctx, srv.URL, block)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	wrong := network.NewClient("net-2", time.Second)
	_, _, err = wrong.LatestBlock(ctx, srv.URL)
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.Status)
	require.Contains(t, se.Body, "wrong network")
}
