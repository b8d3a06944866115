package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/legisdoc/parecer/internal/models"
)

// HistoryRepository handles the append-only generation log
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create appends a record and sets its id
func (r *HistoryRepository) Create(ctx context.Context, rec *models.HistoryRecord) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO pareceres (pdf_name, docx_name, numero_projeto, data_geracao) VALUES (?, ?, ?, ?)`,
		rec.PDFName, rec.DocxName, rec.ProjectNumber, rec.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create history record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read history id: %w", err)
	}
	rec.ID = id
	return nil
}

// List returns the log newest first
func (r *HistoryRepository) List(ctx context.Context) ([]models.HistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, pdf_name, docx_name, numero_projeto, data_geracao FROM pareceres ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := []models.HistoryRecord{}
	for rows.Next() {
		var rec models.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.PDFName, &rec.DocxName, &rec.ProjectNumber, &rec.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
