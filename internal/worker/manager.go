package worker

import (
	"context"
	"sync"
	"time"

	"github.com/arcscan/bridge-indexer/pkg/common/logger"
	"github.com/arcscan/bridge-indexer/pkg/events"
	"github.com/arcscan/bridge-indexer/pkg/infra"
	"github.com/arcscan/bridge-indexer/pkg/store/cursorstore"
)

const defaultShutdownTimeout = 30 * time.Second

type Manager struct {
	ctx     context.Context
	workers []Worker
	kvstore infra.KVStore
	cursor  cursorstore.Store
	emitter events.Emitter
}

func NewManager(
	ctx context.Context,
	kvstore infra.KVStore,
	cursor cursorstore.Store,
	emitter events.Emitter,
) *Manager {
	return &Manager{
		ctx:     ctx,
		kvstore: kvstore,
		cursor:  cursor,
		emitter: emitter,
	}
}

func (m *Manager) AddWorkers(workers ...Worker) {
	m.workers = append(m.workers, workers...)
}

func (m *Manager) Start() {
	for _, w := range m.workers {
		w.Start()
	}
}

// Stop shuts down all workers concurrently with a timeout, then closes
// shared resources.
func (m *Manager) Stop() {
	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, w := range m.workers {
			if w != nil {
				wg.Add(1)
				go func(w Worker) {
					defer wg.Done()
					w.Stop()
				}(w)
			}
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("All workers stopped")
	case <-time.After(defaultShutdownTimeout):
		logger.Warn("Worker shutdown timed out, proceeding with resource cleanup",
			"timeout", defaultShutdownTimeout)
	}

	if m.emitter != nil {
		m.emitter.Close()
	}
	if m.cursor != nil {
		if err := m.cursor.Close(); err != nil {
			logger.Error("Failed to close cursor store", "err", err)
		}
	}

	logger.Info("Manager stopped")
}
