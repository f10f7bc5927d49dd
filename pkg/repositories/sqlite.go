package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mskovgaard/warboard/pkg/game/types"
	"github.com/mskovgaard/warboard/pkg/repositories/models"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func NewSQLiteRepository(ctx context.Context, path string) (Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) SaveDocument(ctx context.Context, key string, value []byte) error {
	if value == nil {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?;`, key); err != nil {
			return fmt.Errorf("failed to delete document: %v", err)
		}
		return nil
	}

	q := `
	INSERT OR REPLACE INTO documents (key, value)
	VALUES (?, ?);
	`
	if _, err := r.db.ExecContext(ctx, q, key, string(value)); err != nil {
		return fmt.Errorf("failed to upsert document: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) LoadDocuments(ctx context.Context) (map[string][]byte, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM documents;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %v", err)
	}
	defer rows.Close()

	docs := make(map[string][]byte)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan document: %v", err)
		}
		docs[key] = []byte(value)
	}
	return docs, rows.Err()
}

func (r *SQLiteRepository) ListGamesByCreator(ctx context.Context, creator string) ([]models.GameSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT value FROM documents WHERE key LIKE 'games/%';`)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %v", err)
	}
	defer rows.Close()

	var games []models.GameSummary
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan game: %v", err)
		}
		summary, ok := summarize([]byte(value), creator)
		if !ok {
			continue
		}
		games = append(games, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortGames(games)
	return games, nil
}

// summarize filters and projects one game document for the lobby.
func summarize(value []byte, creator string) (models.GameSummary, bool) {
	var g types.Game
	if err := json.Unmarshal(value, &g); err != nil {
		return models.GameSummary{}, false
	}
	if g.Creator != creator {
		return models.GameSummary{}, false
	}
	return models.GameSummary{
		ID:      g.ID,
		Title:   g.Title,
		Creator: g.Creator,
		Members: g.Members,
		Started: g.Started,
	}, true
}

func sortGames(games []models.GameSummary) {
	sort.Slice(games, func(i, j int) bool {
		return games[i].Title < games[j].Title
	})
}
