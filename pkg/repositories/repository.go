package repositories

import (
	"context"

	"github.com/mskovgaard/warboard/pkg/repositories/models"
)

// Repository persists document snapshots for the store server and backs
// the lobby listing.
type Repository interface {
	Close(ctx context.Context) error
	// SaveDocument upserts one document. A nil value deletes it.
	SaveDocument(ctx context.Context, key string, value []byte) error
	// LoadDocuments returns every persisted document, used to restore
	// the store at boot.
	LoadDocuments(ctx context.Context) (map[string][]byte, error)
	// ListGamesByCreator returns lobby summaries of the creator's games,
	// sorted by title.
	ListGamesByCreator(ctx context.Context, creator string) ([]models.GameSummary, error)
}
