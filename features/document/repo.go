package document

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Upsert(ctx context.Context, doc *Document) error {
	query := `INSERT INTO documents (doc_id, chunks_stored, ingested_at) VALUES ($1, $2, $3)
		ON CONFLICT (doc_id) DO UPDATE SET chunks_stored = EXCLUDED.chunks_stored, ingested_at = EXCLUDED.ingested_at`
	_, err := r.db.ExecContext(ctx, query, doc.ID, doc.ChunksStored, doc.IngestedAt)
	return err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT doc_id, chunks_stored, ingested_at FROM documents ORDER BY ingested_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.ChunksStored, &d.IngestedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}
