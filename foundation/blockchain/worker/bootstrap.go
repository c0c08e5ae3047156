package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/avisen/ledger/foundation/blockchain/database"
)

// ErrBlockRejected is returned when a block downloaded from the donor does
// not extend the local chain.
var ErrBlockRejected = errors.New("downloaded block rejected")

// Phase represents where a node is in its startup lifecycle.
type Phase string

// Set of lifecycle phases.
const (
	PhaseUninitialized Phase = "UNINITIALIZED"
	PhaseBootstrapping Phase = "BOOTSTRAPPING"
	PhaseGenesis       Phase = "GENESIS"
	PhaseSynced        Phase = "SYNCED"
)

// Phase returns the current lifecycle phase.
func (w *Worker) Phase() Phase {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.phase
}

func (w *Worker) setPhase(phase Phase) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evHandler("worker: phase: %s -> %s", w.phase, phase)
	w.phase = phase
}

// =============================================================================

// Bootstrap brings the node to the synced phase. With a donor, the donor's
// roster and self description are downloaded, missing blocks are replayed
// through the ledger and this node registers itself with the donor. Without
// a donor, an empty chain gets a locally created genesis block. Any failure
// leaves the node in its current phase and is returned.
func (w *Worker) Bootstrap(ctx context.Context, donor string) error {
	w.evHandler("worker: Bootstrap: started: donor[%s]", donor)
	defer w.evHandler("worker: Bootstrap: completed: donor[%s]", donor)

	if donor == "" {
		if w.ledger.ChainSize() == 0 {
			w.setPhase(PhaseGenesis)

			if _, err := w.ledger.CreateGenesis(); err != nil {
				return fmt.Errorf("genesis: %w", err)
			}
		}

		w.setPhase(PhaseSynced)
		return nil
	}

	w.setPhase(PhaseBootstrapping)

	if _, err := w.net.DownloadPeers(ctx, donor); err != nil {
		return err
	}

	if _, err := w.net.DownloadPeerInfo(ctx, donor); err != nil {
		return err
	}

	if err := w.catchUp(ctx, donor); err != nil {
		return err
	}

	if err := w.net.UpdatePeer(ctx, donor, w.net.Self()); err != nil {
		return err
	}

	w.setPhase(PhaseSynced)

	return nil
}

// catchUp replays the donor's chain when the local chain is empty, or the
// blocks above the local tip when the donor is ahead.
func (w *Worker) catchUp(ctx context.Context, donor string) error {
	tip, exists := w.ledger.LatestBlock()
	if !exists {
		w.evHandler("worker: catchUp: empty chain, replaying donor[%s]", donor)
		return w.replay(ctx, donor, nil)
	}

	latest, donorHasBlocks, err := w.net.LatestBlock(ctx, donor)
	if err != nil {
		return err
	}

	if !donorHasBlocks || latest.Height <= tip.Height {
		w.evHandler("worker: catchUp: chain is up to date: height[%d]", tip.Height)
		return nil
	}

	w.evHandler("worker: catchUp: behind donor[%s]: local[%d]: donor[%d]", donor, tip.Height, latest.Height)

	height := tip.Height
	return w.replay(ctx, donor, &height)
}

// replay downloads pages from the donor starting at page 0 until an empty
// page comes back. Every block goes through the ledger in order before the
// next page is requested.
func (w *Worker) replay(ctx context.Context, donor string, fromHeight *uint64) error {
	for page := 0; ; page++ {
		blocks, err := w.net.DownloadBlocks(ctx, donor, page, fromHeight)
		if err != nil {
			return err
		}

		if len(blocks) == 0 {
			return nil
		}

		if err := w.processBlocks(blocks); err != nil {
			return err
		}
	}
}

func (w *Worker) processBlocks(blocks []database.Block) error {
	for _, block := range blocks {
		accepted, err := w.ledger.ProcessBlock(block)
		if err != nil {
			return err
		}

		if !accepted {
			return fmt.Errorf("%w: blk[%d]: %s", ErrBlockRejected, block.Height, block.Hash)
		}
	}

	return nil
}
