// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/avisen/ledger/business/web/errs"
	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/ledger"
	"github.com/avisen/ledger/foundation/blockchain/network"
	"github.com/avisen/ledger/foundation/blockchain/peer"
	"github.com/avisen/ledger/foundation/blockchain/worker"
	"github.com/avisen/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Ledger  *ledger.Ledger
	Network *network.Network
	Worker  *worker.Worker
}

// Peers returns the known peers of this node.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Network.Peers(), http.StatusOK)
}

// AddPeer adds the node to the roster. When broadcast is set and the node
// is new, the worker passes it on to the other peers.
func (h Handlers) AddPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var broadcast bool
	if b := r.URL.Query().Get("broadcast"); b != "" {
		broadcast, err = strconv.ParseBool(b)
		if err != nil {
			return errs.NewTrustedf(http.StatusBadRequest, "broadcast must be true or false")
		}
	}

	var n node
	if err := web.Decode(r, &n); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	nd := peer.New(n.Address, n.Type)

	added, err := h.Network.AddPeer(ctx, nd, false)
	if err != nil {
		if errors.Is(err, peer.ErrInvalidAddress) {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return fmt.Errorf("adding peer %s: %w", nd.Address, err)
	}

	h.Log.Infow("add peer", "traceid", v.TraceID, "address", nd.Address, "type", nd.Type, "added", added, "broadcast", broadcast)

	if added && broadcast {
		h.Worker.SignalSharePeer(nd)
	}

	return web.Respond(ctx, w, nil, http.StatusCreated)
}

// AddPublisher admits a publisher signed by the authority key into the set
// minted with the next block.
func (h Handlers) AddPublisher(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var np newPublisher
	if err := web.Decode(r, &np); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if !h.Ledger.AcceptPublisher(database.Publisher{PublicKey: np.PublicKey}, np.Signature) {
		return errs.NewTrustedf(http.StatusBadRequest, "publisher %s not accepted", np.PublicKey)
	}

	return web.Respond(ctx, w, nil, http.StatusOK)
}

// ProposeBlock takes a block received from a peer, validates it and if that
// passes, adds the block to the local chain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var block database.Block
	if err := web.Decode(r, &block); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	accepted, err := h.Ledger.ProcessBlock(block)
	if err != nil {
		return fmt.Errorf("processing block %d: %w", block.Height, err)
	}

	if !accepted {
		return errs.NewTrustedf(http.StatusBadRequest, "block %d not accepted", block.Height)
	}

	return web.Respond(ctx, w, nil, http.StatusCreated)
}
