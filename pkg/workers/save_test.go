package workers

import (
	"context"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mskovgaard/warboard/pkg/repositories/models"
	"github.com/mskovgaard/warboard/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRepository records SaveDocument calls for assertions.
type recordingRepository struct {
	lock  sync.Mutex
	docs  map[string][]byte
	saves int
}

func newRecordingRepository() *recordingRepository {
	return &recordingRepository{docs: make(map[string][]byte)}
}

func (r *recordingRepository) Close(ctx context.Context) error { return nil }

func (r *recordingRepository) SaveDocument(ctx context.Context, key string, value []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.saves++
	if value == nil {
		delete(r.docs, key)
		return nil
	}
	r.docs[key] = value
	return nil
}

func (r *recordingRepository) LoadDocuments(ctx context.Context) (map[string][]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	docs := make(map[string][]byte, len(r.docs))
	for key, value := range r.docs {
		docs[key] = value
	}
	return docs, nil
}

func (r *recordingRepository) ListGamesByCreator(ctx context.Context, creator string) ([]models.GameSummary, error) {
	return nil, nil
}

func (r *recordingRepository) saveCount() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.saves
}

func TestSaveDocumentsWorker_FlushWritesChangedOnly(t *testing.T) {
	memStore := store.NewInMemoryStore(clockwork.NewRealClock())
	repo := newRecordingRepository()
	worker := NewSaveDocumentsWorker(NewSaveDocumentsWorkerOptions{
		Repository: repo,
		Store:      memStore,
		Clock:      clockwork.NewRealClock(),
	})
	ctx := context.Background()

	require.NoError(t, memStore.Set(ctx, "docs/a", store.Value(`{"v":1}`)))
	require.NoError(t, memStore.Set(ctx, "docs/b", store.Value(`{"v":2}`)))

	worker.Flush(ctx)
	assert.Equal(t, 2, repo.saveCount())

	// Nothing changed: the next flush is a no-op.
	worker.Flush(ctx)
	assert.Equal(t, 2, repo.saveCount())

	require.NoError(t, memStore.Set(ctx, "docs/a", store.Value(`{"v":9}`)))
	worker.Flush(ctx)
	assert.Equal(t, 3, repo.saveCount())

	docs, err := repo.LoadDocuments(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":9}`, string(docs["docs/a"]))
	assert.JSONEq(t, `{"v":2}`, string(docs["docs/b"]))
}

func TestSaveDocumentsWorker_FlushDeletesRemoved(t *testing.T) {
	memStore := store.NewInMemoryStore(clockwork.NewRealClock())
	repo := newRecordingRepository()
	worker := NewSaveDocumentsWorker(NewSaveDocumentsWorkerOptions{
		Repository: repo,
		Store:      memStore,
		Clock:      clockwork.NewRealClock(),
	})
	ctx := context.Background()

	require.NoError(t, memStore.Set(ctx, "docs/a", store.Value(`{"v":1}`)))
	worker.Flush(ctx)

	require.NoError(t, memStore.Set(ctx, "docs/a", nil))
	worker.Flush(ctx)

	docs, err := repo.LoadDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
