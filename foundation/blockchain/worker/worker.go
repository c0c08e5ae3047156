// Package worker implements the node lifecycle, block and peer sharing, and
// peer updates for the ledger.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/ledger"
	"github.com/avisen/ledger/foundation/blockchain/network"
	"github.com/avisen/ledger/foundation/blockchain/peer"
)

// maxShareRequests represents the max number of pending block or peer share
// requests that can be outstanding before share requests are dropped. To
// keep this simple, a buffered channel of this arbitrary number is being
// used. If the channel does become full, requests for new blocks or peers to
// be shared will not be accepted.
const maxShareRequests = 100

// EventHandler defines a function that is called when events
// occur in the background processing.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to start the worker.
type Config struct {
	Ledger  *ledger.Ledger
	Network *network.Network

	// PeerUpdateInterval is how often the rosters of known peers are merged
	// into this node's roster. Zero turns peer updates off.
	PeerUpdateInterval time.Duration

	EvHandler EventHandler
}

// =============================================================================

// Worker manages the background workflows for the node.
type Worker struct {
	ledger       *ledger.Ledger
	net          *network.Network
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	ticker       *time.Ticker
	shut         chan struct{}
	blockSharing chan database.Block
	peerSharing  chan peer.Node
	evHandler    EventHandler

	mu    sync.RWMutex
	phase Phase
}

// Run creates a worker and starts up all the background processes.
func Run(cfg Config) *Worker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		ledger:       cfg.Ledger,
		net:          cfg.Network,
		ctx:          ctx,
		cancel:       cancel,
		shut:         make(chan struct{}),
		blockSharing: make(chan database.Block, maxShareRequests),
		peerSharing:  make(chan peer.Node, maxShareRequests),
		evHandler:    ev,
		phase:        PhaseUninitialized,
	}

	// Load the set of operations we need to run.
	operations := []func(){
		w.shareBlockOperations,
		w.sharePeerOperations,
	}

	if cfg.PeerUpdateInterval > 0 {
		w.ticker = time.NewTicker(cfg.PeerUpdateInterval)
		operations = append(operations, w.peerOperations)
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}

	return &w
}

// Shutdown terminates the goroutines performing work. Calls to peers that
// are in flight are cancelled.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	if w.ticker != nil {
		w.evHandler("worker: shutdown: stop ticker")
		w.ticker.Stop()
	}

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.cancel()
	w.wg.Wait()
}

// SignalShareBlock signals a share block operation. If maxShareRequests
// signals exist in the channel, the block won't be shared.
func (w *Worker) SignalShareBlock(block database.Block) {
	select {
	case w.blockSharing <- block:
		w.evHandler("worker: SignalShareBlock: share blk[%d] signaled", block.Height)
	default:
		w.evHandler("worker: SignalShareBlock: queue full, blk[%d] won't be shared.", block.Height)
	}
}

// SignalSharePeer signals a share peer operation. If maxShareRequests
// signals exist in the channel, the peer won't be shared.
func (w *Worker) SignalSharePeer(node peer.Node) {
	select {
	case w.peerSharing <- node:
		w.evHandler("worker: SignalSharePeer: share peer[%s] signaled", node.Address)
	default:
		w.evHandler("worker: SignalSharePeer: queue full, peer[%s] won't be shared.", node.Address)
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
