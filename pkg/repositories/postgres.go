package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mskovgaard/warboard/pkg/repositories/models"
)

type PostgresRepository struct {
	conn *pgx.Conn
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

func NewPostgresRepository(ctx context.Context, connStr string) (Repository, error) {
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if _, err := conn.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}

	return &PostgresRepository{
		conn: conn,
	}, nil
}

func (r *PostgresRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}

func (r *PostgresRepository) SaveDocument(ctx context.Context, key string, value []byte) error {
	if value == nil {
		if _, err := r.conn.Exec(ctx, `DELETE FROM documents WHERE key = $1;`, key); err != nil {
			return fmt.Errorf("failed to delete document: %v", err)
		}
		return nil
	}

	q := `
	INSERT INTO documents (key, value)
	VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;
	`
	if _, err := r.conn.Exec(ctx, q, key, string(value)); err != nil {
		return fmt.Errorf("failed to upsert document: %v", err)
	}
	return nil
}

func (r *PostgresRepository) LoadDocuments(ctx context.Context) (map[string][]byte, error) {
	rows, err := r.conn.Query(ctx, `SELECT key, value FROM documents;`)
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

func (r *PostgresRepository) ListGamesByCreator(ctx context.Context, creator string) ([]models.GameSummary, error) {
	rows, err := r.conn.Query(ctx, `SELECT value FROM documents WHERE key LIKE 'games/%';`)
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
