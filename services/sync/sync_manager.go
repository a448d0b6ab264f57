package sync

import (
	"log"
	"time"

	"Garito/services/store"
)

// SyncManager periodically reconciles best-effort persistence: match
// history writes that failed while their room was closing are retried
// here until PostgreSQL takes them.
type SyncManager struct {
	store    *store.CompositeStore
	interval time.Duration
	stop     chan struct{}
}

// NewSyncManager creates a new instance of the reconciliation manager
func NewSyncManager(compositeStore *store.CompositeStore, interval time.Duration) *SyncManager {
	return &SyncManager{
		store:    compositeStore,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Reconcile runs one retry pass and reports progress.
func (sm *SyncManager) Reconcile() {
	pending := sm.store.PendingCount()
	if pending == 0 {
		return
	}
	flushed := sm.store.FlushPending()
	log.Printf("[SYNC] Reconciled %d/%d pending match history writes", flushed, pending)
}

// Start launches the background reconciliation loop.
func (sm *SyncManager) Start() {
	go func() {
		ticker := time.NewTicker(sm.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sm.Reconcile()
			case <-sm.stop:
				return
			}
		}
	}()
}

// Stop halts the background loop. A final Reconcile pass runs so nothing
// pending is silently abandoned on shutdown.
func (sm *SyncManager) Stop() {
	close(sm.stop)
	sm.Reconcile()
}
