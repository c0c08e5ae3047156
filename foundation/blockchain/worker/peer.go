package worker

// peerOperations handles finding new peers.
func (w *Worker) peerOperations() {
	w.evHandler("worker: peerOperations: G started")
	defer w.evHandler("worker: peerOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() && w.Phase() == PhaseSynced {
				w.runPeersOperation()
			}
		case <-w.shut:
			w.evHandler("worker: peerOperations: received shut signal")
			return
		}
	}
}

// runPeersOperation merges the roster of every known peer into this node's
// roster.
func (w *Worker) runPeersOperation() {
	w.evHandler("worker: runPeersOperation: started")
	defer w.evHandler("worker: runPeersOperation: completed")

	for _, node := range w.net.Peers() {
		added, err := w.net.DownloadPeers(w.ctx, node.Address)
		if err != nil {
			w.evHandler("worker: runPeersOperation: peer[%s]: ERROR: %s", node.Address, err)
			continue
		}

		if added > 0 {
			w.evHandler("worker: runPeersOperation: peer[%s]: added peers[%d]", node.Address, added)
		}
	}
}
