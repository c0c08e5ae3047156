package worker

import (
	"github.com/avisen/ledger/foundation/blockchain/database"
	"github.com/avisen/ledger/foundation/blockchain/peer"
)

// shareBlockOperations handles sharing newly minted blocks.
func (w *Worker) shareBlockOperations() {
	w.evHandler("worker: shareBlockOperations: G started")
	defer w.evHandler("worker: shareBlockOperations: G completed")

	for {
		select {
		case block := <-w.blockSharing:
			if !w.isShutdown() {
				w.runShareBlockOperation(block)
			}
		case <-w.shut:
			w.evHandler("worker: shareBlockOperations: received shut signal")
			return
		}
	}
}

// runShareBlockOperation sends a new block to the known peers.
func (w *Worker) runShareBlockOperation(block database.Block) {
	w.evHandler("worker: runShareBlockOperation: started: blk[%d]", block.Height)
	defer w.evHandler("worker: runShareBlockOperation: completed: blk[%d]", block.Height)

	if errs := w.net.BroadcastBlock(w.ctx, block); len(errs) > 0 {
		w.evHandler("worker: runShareBlockOperation: WARNING: blk[%d]: failed peers[%d]", block.Height, len(errs))
	}
}

// =============================================================================

// sharePeerOperations handles sharing newly added peers.
func (w *Worker) sharePeerOperations() {
	w.evHandler("worker: sharePeerOperations: G started")
	defer w.evHandler("worker: sharePeerOperations: G completed")

	for {
		select {
		case node := <-w.peerSharing:
			if !w.isShutdown() {
				w.runSharePeerOperation(node)
			}
		case <-w.shut:
			w.evHandler("worker: sharePeerOperations: received shut signal")
			return
		}
	}
}

// runSharePeerOperation tells the known peers about a new peer.
func (w *Worker) runSharePeerOperation(node peer.Node) {
	w.evHandler("worker: runSharePeerOperation: started: peer[%s]", node.Address)
	defer w.evHandler("worker: runSharePeerOperation: completed: peer[%s]", node.Address)

	if errs := w.net.BroadcastPeer(w.ctx, node); len(errs) > 0 {
		w.evHandler("worker: runSharePeerOperation: WARNING: peer[%s]: failed peers[%d]", node.Address, len(errs))
	}
}
