// Package v1 contains the full set of handler functions and routes
// supported by the node api.
package v1

import (
	"net/http"

	"github.com/avisen/ledger/app/services/node/handlers/v1/private"
	"github.com/avisen/ledger/app/services/node/handlers/v1/public"
	"github.com/avisen/ledger/business/web/v1/mid"
	"github.com/avisen/ledger/foundation/blockchain/ledger"
	"github.com/avisen/ledger/foundation/blockchain/network"
	"github.com/avisen/ledger/foundation/blockchain/peer"
	"github.com/avisen/ledger/foundation/blockchain/worker"
	"github.com/avisen/ledger/foundation/events"
	"github.com/avisen/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// The node routes sit at the root of the api.
const group = ""

// Config contains all the mandatory systems required by handlers. Utility
// nodes run without a ledger, network or worker.
type Config struct {
	Log     *zap.SugaredLogger
	Info    peer.Info
	Ledger  *ledger.Ledger
	Network *network.Network
	Worker  *worker.Worker
	Evts    *events.Events
}

// Routes binds all the routes for the role of the node.
func Routes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:    cfg.Log,
		Info:   cfg.Info,
		Ledger: cfg.Ledger,
		Worker: cfg.Worker,
		WS:     websocket.Upgrader{},
		Evts:   cfg.Evts,
	}

	app.Handle(http.MethodGet, group, "/", pbl.Hello)
	app.Handle(http.MethodGet, group, "/status", pbl.Status)
	app.Handle(http.MethodGet, group, "/util/crypto/hash", pbl.Hash)
	app.Handle(http.MethodGet, group, "/util/crypto/key-pair", pbl.KeyPair)
	app.Handle(http.MethodGet, group, "/util/crypto/sign", pbl.Sign)

	if cfg.Info.Node.Type == peer.RoleUtility {
		return
	}

	synced := mid.Ready(func() bool {
		return cfg.Worker.Phase() == worker.PhaseSynced
	})

	app.Handle(http.MethodGet, group, "/events", pbl.Events)
	app.Handle(http.MethodGet, group, "/blockchain", pbl.Chain)
	app.Handle(http.MethodGet, group, "/blockchain/article/:id", pbl.Article)
	app.Handle(http.MethodGet, group, "/blockchain/block/:hash", pbl.Block)
	app.Handle(http.MethodPost, group, "/article", pbl.SubmitArticle, synced)

	prv := private.Handlers{
		Log:     cfg.Log,
		Ledger:  cfg.Ledger,
		Network: cfg.Network,
		Worker:  cfg.Worker,
	}

	app.Handle(http.MethodGet, group, "/network", prv.Peers)
	app.Handle(http.MethodPost, group, "/network/node", prv.AddPeer, synced)
	app.Handle(http.MethodPost, group, "/blockchain/block", prv.ProposeBlock, synced)

	if cfg.Info.Node.Type == peer.RolePublisher {
		app.Handle(http.MethodPost, group, "/network/node/publisher", prv.AddPublisher, synced)
	}
}
