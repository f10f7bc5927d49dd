package workers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mskovgaard/warboard/pkg/log"
	"github.com/mskovgaard/warboard/pkg/repositories"
	"github.com/mskovgaard/warboard/pkg/store"
)

// SaveDocumentsWorker periodically flushes changed documents from the
// store to the repository. Documents that disappeared from the store are
// deleted.
type SaveDocumentsWorker struct {
	repository repositories.Repository
	store      *store.InMemoryStore
	clock      clockwork.Clock
	interval   time.Duration

	lastSaved map[string]string
}

// NewSaveDocumentsWorkerOptions contains options for creating a
// SaveDocumentsWorker.
type NewSaveDocumentsWorkerOptions struct {
	Repository repositories.Repository
	Store      *store.InMemoryStore
	Clock      clockwork.Clock
	Interval   time.Duration
}

func NewSaveDocumentsWorker(opts NewSaveDocumentsWorkerOptions) *SaveDocumentsWorker {
	return &SaveDocumentsWorker{
		repository: opts.Repository,
		store:      opts.Store,
		clock:      opts.Clock,
		interval:   opts.Interval,
		lastSaved:  make(map[string]string),
	}
}

// Start runs the flush loop until ctx is cancelled, with a final flush
// on the way out.
func (w *SaveDocumentsWorker) Start(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Flush(context.Background())
			return
		case <-ticker.Chan():
			w.Flush(ctx)
		}
	}
}

// Flush writes every changed document to the repository.
func (w *SaveDocumentsWorker) Flush(ctx context.Context) {
	snapshot := w.store.Snapshot()

	for key, value := range snapshot {
		if w.lastSaved[key] == string(value) {
			continue
		}
		if err := w.repository.SaveDocument(ctx, key, value); err != nil {
			log.Error("Failed to save document %s: %v", key, err)
			continue
		}
		w.lastSaved[key] = string(value)
	}

	for key := range w.lastSaved {
		if _, ok := snapshot[key]; ok {
			continue
		}
		if err := w.repository.SaveDocument(ctx, key, nil); err != nil {
			log.Error("Failed to delete document %s: %v", key, err)
			continue
		}
		delete(w.lastSaved, key)
	}
}
