// Package public maintains the group of handlers for client access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/avisen/ledger/business/web/errs"
	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/ledger"
	"github.com/avisen/ledger/foundation/blockchain/peer"
	"github.com/avisen/ledger/foundation/blockchain/worker"
	"github.com/avisen/ledger/foundation/events"
	"github.com/avisen/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of client facing ledger endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Info   peer.Info
	Ledger *ledger.Ledger
	Worker *worker.Worker
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Hello answers the root path so a node can be checked from a browser.
func (h Handlers) Hello(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	web.SetStatusCode(ctx, http.StatusOK)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	_, err := w.Write([]byte("Hello World!"))
	return err
}

// Status returns the self description of the node. Utility nodes have no
// ledger so only the node information is returned for them.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st := status{
		Info: h.Info,
	}

	if h.Worker != nil {
		st.Phase = string(h.Worker.Phase())
	}

	if h.Ledger != nil {
		st.ChainSize = h.Ledger.ChainSize()
		if tip, exists := h.Ledger.LatestBlock(); exists {
			st.Tip = tip.Hash
		}
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Chain returns a page of blocks. The page is required, the size defaults
// to the ledger page size and fromHeight switches to height paging.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	qry := r.URL.Query()

	page, err := strconv.Atoi(qry.Get("page"))
	if err != nil || page < 0 {
		return errs.NewTrustedf(http.StatusBadRequest, "page must be a number greater or equal to 0")
	}

	size := database.PageSize
	if s := qry.Get("size"); s != "" {
		size, err = strconv.Atoi(s)
		if err != nil || size < 1 {
			return errs.NewTrustedf(http.StatusBadRequest, "size must be a number greater than 0")
		}
	}

	order, err := database.ParseSortOrder(qry.Get("sort"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	var fromHeight *uint64
	if fh := qry.Get("fromHeight"); fh != "" {
		height, err := strconv.ParseUint(fh, 10, 64)
		if err != nil {
			return errs.NewTrustedf(http.StatusBadRequest, "fromHeight must be an unsigned number")
		}
		fromHeight = &height
	}

	blocks, err := h.Ledger.Chain(page, size, order, fromHeight)
	if err != nil {
		return fmt.Errorf("chain: page[%d] size[%d]: %w", page, size, err)
	}

	if blocks == nil {
		blocks = []database.Block{}
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Article returns the committed article with the specified id.
func (h Handlers) Article(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")

	article, err := h.Ledger.GetArticle(id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errs.NewTrustedf(http.StatusNotFound, "article %s not found", id)
		}
		return fmt.Errorf("article[%s]: %w", id, err)
	}

	return web.Respond(ctx, w, article, http.StatusOK)
}

// Block returns the block with the specified hash.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")
	if hash == "" {
		return errs.NewTrustedf(http.StatusBadRequest, "hash is required")
	}

	block, err := h.Ledger.GetBlock(hash)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errs.NewTrustedf(http.StatusNotFound, "block %s not found", hash)
		}
		return fmt.Errorf("block[%s]: %w", hash, err)
	}

	return web.Respond(ctx, w, block, http.StatusOK)
}

// SubmitArticle buffers a signed article. When the article completes a batch
// the minted block is handed to the worker for broadcast and 201 is returned.
func (h Handlers) SubmitArticle(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	if h.Info.Node.Type == peer.RoleReplica {
		return errs.NewTrustedf(http.StatusForbidden, "replica nodes do not accept articles")
	}

	var na newArticle
	if err := web.Decode(r, &na); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	article := na.toArticle()

	h.Log.Infow("submit article", "traceid", v.TraceID, "id", article.ID, "author", article.AuthorKey)

	processed, err := h.Ledger.ProcessArticle(article)
	if err != nil {
		return fmt.Errorf("processing article %s: %w", article.ID, err)
	}

	if !processed.Accepted {
		return errs.NewTrustedf(http.StatusBadRequest, "article %s has an invalid signature", article.ID)
	}

	if processed.Block == nil {
		return web.Respond(ctx, w, article, http.StatusOK)
	}

	h.Log.Infow("minted block", "traceid", v.TraceID, "height", processed.Block.Height, "hash", processed.Block.Hash)
	h.Worker.SignalShareBlock(*processed.Block)

	return web.Respond(ctx, w, processed.Block, http.StatusCreated)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
